// Package report formats command output for the terminal.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/mattn/go-runewidth"

	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/noteservice"
)

const (
	green   = "#A9DC76"
	red     = "#FF6188"
	yellow  = "#FFD866"
	magenta = "#FF6188"
	comment = "#727072"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(magenta))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(comment))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(green))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(red))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(yellow)).Bold(true)
)

const titleWidth = 40

// Diff returns the unified diff from old to new for the file name.
func Diff(name, old, new string) string {
	edits := myers.ComputeEdits(span.URIFromPath(name), old, new)
	return fmt.Sprint(gotextdiff.ToUnified("a/"+name, "b/"+name, old, edits))
}

// RenderDiff renders a unified diff for the terminal. The plain diff is
// returned when rendering fails.
func RenderDiff(unified string) string {
	md := "```diff\n" + unified + "```\n"
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Exported lists the files an export wrote or would write.
func Exported(files []noteservice.ExportedFile, dryRun bool) string {
	var b strings.Builder
	changed := 0
	for _, f := range files {
		if !f.Changed {
			continue
		}
		changed++
		if dryRun {
			b.WriteString(titleStyle.Render(f.Path) + "\n")
			b.WriteString(RenderDiff(Diff(f.Path, f.Old, f.New)))
			continue
		}
		b.WriteString(successStyle.Render("wrote") + " " + f.Path + "\n")
	}
	verb := "written"
	if dryRun {
		verb = "would change"
	}
	fmt.Fprintf(&b, "%s %s, %s unchanged\n",
		countStyle.Render(fmt.Sprint(changed)), verb,
		dimStyle.Render(fmt.Sprint(len(files)-changed)))
	return b.String()
}

// Imported summarizes a directory import.
func Imported(sum *noteservice.ImportSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s created, %s updated",
		countStyle.Render(fmt.Sprint(sum.Created)), countStyle.Render(fmt.Sprint(sum.Updated)))
	if len(sum.Failed) > 0 {
		fmt.Fprintf(&b, ", %s failed", errorStyle.Render(fmt.Sprint(len(sum.Failed))))
	}
	b.WriteString("\n")
	for _, f := range sum.Failed {
		b.WriteString(errorStyle.Render("  ✗ ") + f + "\n")
	}
	return b.String()
}

// Notes prints one line per note: title, tags and when it was last
// updated relative to now.
func Notes(items []models.NoteMetadata, total int, now time.Time) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(pad("TITLE", titleWidth)+"  "+pad("ID", 12)+"  UPDATED") + "\n")
	for _, it := range items {
		line := pad(runewidth.Truncate(it.Title, titleWidth, "…"), titleWidth) + "  " +
			dimStyle.Render(pad(runewidth.Truncate(it.ID, 12, "…"), 12)) + "  " +
			humanize.RelTime(it.UpdatedAt, now, "ago", "from now")
		if len(it.Tags) > 0 {
			line += "  " + dimStyle.Render("#"+strings.Join(it.Tags, " #"))
		}
		b.WriteString(line + "\n")
	}
	if total > len(items) {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("… %s more", humanize.Comma(int64(total-len(items))))))
	}
	return b.String()
}

// Graph prints the graph counters and the most connected notes.
func Graph(g *linkgraph.Graph, top int) string {
	var b strings.Builder
	s := g.Stats
	b.WriteString(titleStyle.Render("Note graph") + "\n")
	for _, row := range []struct {
		label string
		n     int
	}{
		{"notes", s.Nodes},
		{"links", s.Edges},
		{"bidirectional", s.Bidirectional},
		{"dangling", s.Dangling},
		{"orphans", s.Orphans},
	} {
		b.WriteString(pad(row.label, 14) + countStyle.Render(humanize.Comma(int64(row.n))) + "\n")
	}

	nodes := append([]*linkgraph.Node(nil), g.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Val > nodes[j].Val })
	if len(nodes) > top {
		nodes = nodes[:top]
	}
	if len(nodes) == 0 {
		return b.String()
	}
	b.WriteString("\n" + headerStyle.Render("Most connected") + "\n")
	for _, n := range nodes {
		fmt.Fprintf(&b, "%s  %s  %s\n",
			pad(runewidth.Truncate(n.Name, titleWidth, "…"), titleWidth),
			countStyle.Render(pad(humanize.Ftoa(n.Val), 6)),
			dimStyle.Render(n.Color))
	}
	return b.String()
}

// pad right-fills s with spaces to w terminal cells.
func pad(s string, w int) string {
	return runewidth.FillRight(s, w)
}
