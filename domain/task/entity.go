package task

import (
	"fmt"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts a string into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusComplete Status = "COMPLETE"
	StatusTrash    Status = "TRASH"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusComplete, StatusTrash:
		return true
	}
	return false
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Task represents a to-do item owned by a single user.
// A stored task has either both reminder fields or neither of them.
type Task struct {
	ID             string     `gorm:"primaryKey;type:text" json:"id"`
	OwnerID        string     `gorm:"not null;type:text;index:idx_tasks_owner_status_priority,priority:1" json:"owner_id"`
	Title          string     `gorm:"not null;size:1024" json:"title"`
	Description    *string    `gorm:"size:4096" json:"description,omitempty"`
	Priority       Priority   `gorm:"not null;type:text;index:idx_tasks_owner_status_priority,priority:3" json:"priority"`
	Status         Status     `gorm:"not null;type:text;index:idx_tasks_owner_status_priority,priority:2" json:"status"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	ReminderAt     *time.Time `json:"reminder_at,omitempty"`
	ReminderAllDay *bool      `json:"reminder_all_day,omitempty"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Normalize puts every timestamp of the task in UTC.
func (t *Task) Normalize() {
	t.CreatedAt = t.CreatedAt.UTC()
	if t.ReminderAt != nil {
		r := t.ReminderAt.UTC()
		t.ReminderAt = &r
	}
}

// Timestamp converts a time into the millisecond precision used for stored tasks.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
