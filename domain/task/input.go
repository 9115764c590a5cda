package task

import "time"

// Input is a sparse set of task fields. A nil field is unset and is neither
// validated nor written; a non-nil field is set, even when it holds a zero value.
type Input struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	Status         *Status    `json:"status,omitempty"`
	ReminderAt     *time.Time `json:"reminder_at,omitempty"`
	ReminderAllDay *bool      `json:"reminder_all_day,omitempty"`

	// ClearDescription removes the description. Description is ignored when set.
	ClearDescription bool `json:"clear_description,omitempty"`
}

// Empty reports whether no field is set.
func (in Input) Empty() bool {
	return in.Title == nil &&
		in.Description == nil &&
		!in.ClearDescription &&
		in.Priority == nil &&
		in.Status == nil &&
		in.ReminderAt == nil &&
		in.ReminderAllDay == nil
}

// ClearsReminder reports whether the input asks to remove the reminder.
// Setting reminderAt to the Unix epoch is the clear signal.
func (in Input) ClearsReminder() bool {
	return in.ReminderAt != nil && in.ReminderAt.UnixMilli() == 0
}

// Filter restricts a task search. Nil fields do not restrict.
type Filter struct {
	Priority *Priority `json:"priority,omitempty"`
	Status   *Status   `json:"status,omitempty"`
}

// Ptr returns a pointer to v. It keeps literal inputs short.
func Ptr[T any](v T) *T {
	return &v
}
