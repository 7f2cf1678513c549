package models

import (
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
	StatusCancelled  Status = "cancelled"
)

// Task is an actionable item attached to a note.
type Task struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Completed     bool            `json:"completed"`
	Priority      Priority        `json:"priority"`
	Status        Status          `json:"status"`
	Progress      int             `json:"progress"`
	StartDate     *time.Time      `json:"startDate,omitempty"`
	EndDate       *time.Time      `json:"endDate,omitempty"`
	Fulfils       []string        `json:"fulfils"`
	Requires      []string        `json:"requires"`
	Notifications json.RawMessage `json:"notifications,omitempty"`
	Text          string          `json:"text,omitempty"`
}

// Validate checks the enumerated fields and the progress range.
func (t Task) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Title, validation.Required),
		validation.Field(&t.Priority, validation.Required,
			validation.In(PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical)),
		validation.Field(&t.Status, validation.Required,
			validation.In(StatusNotStarted, StatusInProgress, StatusCompleted, StatusOnHold, StatusCancelled)),
		validation.Field(&t.Progress, validation.Min(0), validation.Max(100)),
	)
}

// ApplyDefaults fills fields a task source may omit: medium priority, a
// status and progress that agree with Completed.
func (t *Task) ApplyDefaults() {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		if t.Completed {
			t.Status = StatusCompleted
		} else {
			t.Status = StatusNotStarted
		}
	}
	if t.Progress == 0 && t.Completed {
		t.Progress = 100
	}
	if t.Fulfils == nil {
		t.Fulfils = []string{}
	}
	if t.Requires == nil {
		t.Requires = []string{}
	}
}
