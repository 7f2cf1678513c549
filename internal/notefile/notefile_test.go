package notefile

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/models"
)

func fixedCodec() *Codec {
	n := 0
	return &Codec{
		NewID: func() string {
			n++
			return "gen-" + string(rune('0'+n))
		},
		Now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestDecode_EndToEnd(t *testing.T) {
	input := "---\ntitle: Foo\n---\n\nSee [[bar-456]].\n\n## Tasks\n- [x] Done thing\n  - priority: high\n"
	note, doc, err := fixedCodec().Decode("foo-123.md", []byte(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if note.ID != "123" {
		t.Errorf("id = %q, want %q", note.ID, "123")
	}
	if note.Title != "Foo" {
		t.Errorf("title = %q, want %q", note.Title, "Foo")
	}
	refs := document.Refs(doc)
	if len(refs) != 1 || refs[0].TargetID != "bar-456" || refs[0].Embed {
		t.Fatalf("refs = %+v, want one link to bar-456", refs)
	}
	if len(note.Tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(note.Tasks))
	}
	task := note.Tasks[0]
	if !task.Completed || task.Priority != models.PriorityHigh {
		t.Errorf("task = %+v, want completed with high priority", task)
	}
	if task.Status != models.StatusCompleted || task.Progress != 100 {
		t.Errorf("status/progress = %s/%d, want completed/100", task.Status, task.Progress)
	}
	if task.Title != "Done thing" {
		t.Errorf("task title = %q", task.Title)
	}

	stored, err := document.Parse([]byte(note.Content))
	if err != nil {
		t.Fatalf("content does not parse: %v", err)
	}
	if !document.EqualDocuments(stored, doc) {
		t.Error("content differs from returned document")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	note := &models.Note{
		ID:        "n1",
		Title:     "Plans: Q3",
		Color:     "bg-red-200 dark:bg-red-800",
		Tags:      []string{"work", "q3"},
		CreatedAt: time.Date(2023, 12, 24, 8, 30, 0, 0, time.UTC),
		Flags:     models.Flags{HideTagsSection: true, IsMaximized: true},
		Tasks: []models.Task{{
			ID:            "t1",
			Title:         "Write draft",
			Description:   "first pass",
			Priority:      models.PriorityCritical,
			Status:        models.StatusInProgress,
			Progress:      40,
			StartDate:     &start,
			Fulfils:       []string{"t0"},
			Requires:      []string{},
			Notifications: []byte(`[{"at":"2024-01-03"}]`),
			Text:          "Write draft",
		}},
	}
	doc := document.New(
		document.NewHeading(2, document.NewText("Goals")),
		document.NewParagraph(document.NewText("ship it")),
	)

	c := fixedCodec()
	data, err := c.Encode(note, doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"---\nid: n1\n",
		`tags: ["work", "q3"]`,
		"2023-12-24T08:30:00.000Z",
		"hideTagsSection: true",
		"\n## Tasks\n- [ ] Write draft\n  - id: t1\n",
		`  - fulfils: ["t0"]`,
		`  - notifications: [{"at":"2024-01-03"}]`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("encoded file lacks %q:\n%s", want, text)
		}
	}

	back, backDoc, err := c.Decode(FileName(note), data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.ID != note.ID || back.Title != note.Title || back.Color != note.Color {
		t.Errorf("note = %+v", back)
	}
	if !back.CreatedAt.Equal(note.CreatedAt) {
		t.Errorf("created = %v, want %v", back.CreatedAt, note.CreatedAt)
	}
	if back.Flags != note.Flags {
		t.Errorf("flags = %+v, want %+v", back.Flags, note.Flags)
	}
	if strings.Join(back.Tags, ",") != "work,q3" {
		t.Errorf("tags = %v", back.Tags)
	}
	if !document.EqualDocuments(doc, backDoc) {
		t.Error("body changed in round trip")
	}
	if len(back.Tasks) != 1 {
		t.Fatalf("len(tasks) = %d", len(back.Tasks))
	}
	got := back.Tasks[0]
	if got.ID != "t1" || got.Priority != models.PriorityCritical || got.Status != models.StatusInProgress ||
		got.Progress != 40 || got.Description != "first pass" {
		t.Errorf("task = %+v", got)
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) || got.EndDate != nil {
		t.Errorf("dates = %v / %v", got.StartDate, got.EndDate)
	}
	if len(got.Fulfils) != 1 || got.Fulfils[0] != "t0" {
		t.Errorf("fulfils = %v", got.Fulfils)
	}
	if string(got.Notifications) != `[{"at":"2024-01-03"}]` {
		t.Errorf("notifications = %s", got.Notifications)
	}
}

func TestDecode_InvalidTaskFieldsFallBack(t *testing.T) {
	var logs bytes.Buffer
	c := fixedCodec()
	c.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	input := "body\n\n## Tasks\n- [ ] Odd\n  - priority: urgent\n  - progress: 250\n  - startDate: soon\n"
	note, _, err := c.Decode("odd.md", []byte(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(note.Tasks) != 1 {
		t.Fatalf("len(tasks) = %d", len(note.Tasks))
	}
	task := note.Tasks[0]
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
	if task.Progress != 100 {
		t.Errorf("progress = %d, want 100", task.Progress)
	}
	if task.StartDate != nil {
		t.Errorf("startDate = %v, want nil", task.StartDate)
	}
	if task.ID != "gen-1" {
		t.Errorf("task id = %q", task.ID)
	}
	if !strings.Contains(logs.String(), "field=priority") {
		t.Errorf("no warning for priority in logs:\n%s", logs.String())
	}
}

func TestDecode_TitleAndIDFallbacks(t *testing.T) {
	c := fixedCodec()

	note, _, err := c.Decode("notes/whatever.md", []byte("# From Heading\n\ntext"))
	if err != nil {
		t.Fatal(err)
	}
	if note.Title != "From Heading" {
		t.Errorf("title = %q", note.Title)
	}
	if note.ID != "gen-1" {
		t.Errorf("id = %q, want generated", note.ID)
	}
	if note.Color != DefaultColor {
		t.Errorf("color = %q", note.Color)
	}

	note, _, err = c.Decode("x.md", []byte("just text"))
	if err != nil {
		t.Fatal(err)
	}
	if note.Title != DefaultTitle {
		t.Errorf("title = %q, want %q", note.Title, DefaultTitle)
	}

	note, _, err = c.Decode("Title-550e8400-e29b-41d4-a716-446655440000.md", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if note.ID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("id = %q, want the uuid suffix", note.ID)
	}
}

func TestDecode_InvalidFrontmatterIsBody(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	note, doc, err := fixedCodec().Decode("bad-1.md", []byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if note.ID != "1" {
		t.Errorf("id = %q", note.ID)
	}
	if !strings.Contains(doc.PlainText(), "Body") {
		t.Errorf("body lost: %q", doc.PlainText())
	}
}

func TestSplitTasks_KeepsBodyHeading(t *testing.T) {
	body, tasks := splitTasks("## Tasks\n\nSome prose under a heading.")
	if tasks != nil {
		t.Errorf("tasks = %v, want none", tasks)
	}
	if !strings.HasPrefix(body, "## Tasks") {
		t.Errorf("body = %q", body)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	tags := extractTags("Some text #beta and #alpha again.", []string{"alpha"})
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestFileName(t *testing.T) {
	cases := []struct {
		title, id, want string
	}{
		{"Foo", "123", "Foo-123.md"},
		{`a/b\c?d%e*f:g|h"i<j>k`, "1", "a-b-c-d-e-f-g-h-i-j-k-1.md"},
		{"", "9", "untitled-9.md"},
	}
	for _, tc := range cases {
		got := FileName(&models.Note{ID: tc.id, Title: tc.title})
		if got != tc.want {
			t.Errorf("FileName(%q) = %q, want %q", tc.title, got, tc.want)
		}
		if id := IDFromFileName(got); id != tc.id {
			t.Errorf("IDFromFileName(%q) = %q, want %q", got, id, tc.id)
		}
	}
}

func TestDecode_FallbackID(t *testing.T) {
	c := fixedCodec()
	c.FallbackID = "kept"

	note, _, err := c.Decode("plain.md", []byte("no id anywhere\n\n## Tasks\n- [ ] one\n"))
	if err != nil {
		t.Fatal(err)
	}
	if note.ID != "kept" {
		t.Errorf("id = %q, want the fallback", note.ID)
	}
	if len(note.Tasks) != 1 || note.Tasks[0].ID != "gen-1" {
		t.Errorf("tasks = %+v, want a generated task id", note.Tasks)
	}

	note, _, err = c.Decode("Named-7.md", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if note.ID != "7" {
		t.Errorf("id = %q, want the file name id", note.ID)
	}
}
