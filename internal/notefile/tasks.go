package notefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notegraph/internal/models"
)

const tasksHeading = "## Tasks"

var (
	taskLine = regexp.MustCompile(`^- \[([xX ])\](?: (.*))?$`)
	metaLine = regexp.MustCompile(`^\s+- (\w+): ?(.*)$`)
)

// splitTasks cuts a trailing "## Tasks" section off body. The section is
// only recognised when every line after the heading is a task line, a
// metadata line or blank, so a body heading of the same name is kept.
func splitTasks(body string) (string, []string) {
	lines := strings.Split(body, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimRight(lines[i], " \t") != tasksHeading {
			continue
		}
		rest := lines[i+1:]
		for _, l := range rest {
			if strings.TrimSpace(l) != "" && !taskLine.MatchString(l) && !metaLine.MatchString(l) {
				return strings.Trim(body, "\n"), nil
			}
		}
		return strings.Trim(strings.Join(lines[:i], "\n"), "\n"), rest
	}
	return strings.Trim(body, "\n"), nil
}

func encodeTasks(tasks []models.Task) string {
	var lines []string
	lines = append(lines, tasksHeading)
	for _, t := range tasks {
		box := " "
		if t.Completed {
			box = "x"
		}
		title := oneLine(t.Title)
		if title == "" {
			title = oneLine(t.Text)
		}
		if title == "" {
			title = "Untitled Task"
		}
		lines = append(lines, "- ["+box+"] "+title)

		meta := func(key, value string) {
			lines = append(lines, "  - "+key+": "+value)
		}
		if t.ID != "" {
			meta("id", t.ID)
		}
		if t.Description != "" {
			meta("description", oneLine(t.Description))
		}
		if t.Priority != "" {
			meta("priority", string(t.Priority))
		}
		if t.Status != "" {
			meta("status", string(t.Status))
		}
		meta("progress", strconv.Itoa(t.Progress))
		if t.StartDate != nil {
			meta("startDate", t.StartDate.UTC().Format(timeLayout))
		}
		if t.EndDate != nil {
			meta("endDate", t.EndDate.UTC().Format(timeLayout))
		}
		if len(t.Fulfils) > 0 {
			meta("fulfils", idList(t.Fulfils))
		}
		if len(t.Requires) > 0 {
			meta("requires", idList(t.Requires))
		}
		if n := compactJSON(t.Notifications); n != "" {
			meta("notifications", n)
		}
		if t.Text != "" && t.Text != t.Title {
			meta("text", oneLine(t.Text))
		}
	}
	return strings.Join(lines, "\n")
}

func oneLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// idList writes ids as `["a", "b"]`.
func idList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		b, _ := json.Marshal(id)
		quoted[i] = string(b)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func compactJSON(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == "[]" {
		return ""
	}
	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return ""
	}
	return b.String()
}

func (c *Codec) decodeTasks(file string, lines []string) []models.Task {
	tasks := []models.Task{}
	var cur *models.Task
	for _, l := range lines {
		if m := taskLine.FindStringSubmatch(l); m != nil {
			if cur != nil {
				tasks = append(tasks, c.finishTask(file, *cur))
			}
			title := strings.TrimSpace(m[2])
			cur = &models.Task{Title: title, Text: title, Completed: m[1] != " "}
			continue
		}
		m := metaLine.FindStringSubmatch(l)
		if m == nil || cur == nil {
			continue
		}
		c.setTaskField(file, cur, m[1], strings.TrimSpace(m[2]))
	}
	if cur != nil {
		tasks = append(tasks, c.finishTask(file, *cur))
	}
	return tasks
}

func (c *Codec) setTaskField(file string, t *models.Task, key, value string) {
	warn := func(err error) {
		c.logger().Warn("ignoring task field",
			slog.String("file", file), slog.String("field", key), slog.String("error", err.Error()))
	}
	switch key {
	case "id":
		t.ID = value
	case "description":
		t.Description = value
	case "priority":
		t.Priority = models.Priority(value)
	case "status":
		t.Status = models.Status(value)
	case "progress":
		p, err := strconv.Atoi(value)
		if err != nil {
			warn(err)
			return
		}
		t.Progress = p
	case "startDate", "endDate":
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			warn(err)
			return
		}
		if key == "startDate" {
			t.StartDate = &ts
		} else {
			t.EndDate = &ts
		}
	case "fulfils", "requires":
		var ids []string
		if err := json.Unmarshal([]byte(value), &ids); err != nil {
			warn(err)
			return
		}
		if key == "fulfils" {
			t.Fulfils = ids
		} else {
			t.Requires = ids
		}
	case "notifications":
		if !json.Valid([]byte(value)) {
			warn(errors.New("not JSON"))
			return
		}
		t.Notifications = json.RawMessage(value)
	case "text":
		t.Text = value
	}
}

// finishTask fills defaults and resets fields that fail validation.
func (c *Codec) finishTask(file string, t models.Task) models.Task {
	if t.ID == "" {
		t.ID = c.newID()
	}
	if t.Text == "" {
		t.Text = t.Title
	}
	t.ApplyDefaults()
	err := t.Validate()
	if err == nil {
		return t
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return t
	}
	for field, ferr := range errs {
		c.logger().Warn("task field reset to default",
			slog.String("file", file),
			slog.String("task", t.ID),
			slog.String("field", field),
			slog.String("error", ferr.Error()))
		switch field {
		case "title":
			t.Title = "Untitled Task"
		case "priority":
			t.Priority = models.PriorityMedium
		case "status":
			t.Status = ""
		case "progress":
			t.Progress = min(max(t.Progress, 0), 100)
		}
	}
	t.ApplyDefaults()
	return t
}
