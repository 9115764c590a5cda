package task

import "unicode/utf8"

const (
	// MaxTitleLength is the maximum number of characters in a title.
	MaxTitleLength = 1024
	// MaxDescriptionLength is the maximum number of characters in a description.
	MaxDescriptionLength = 4096
)

// Violation messages returned by Validate.
const (
	MsgTitleTooLong       = "Invalid title. Length is more than 1024 characters"
	MsgDescriptionTooLong = "Invalid description. Length is more than 4096 characters"
	MsgReminderPairing    = "The reminderAt and the reminderAllDay attributes must be both always set"
	MsgInvalidPriority    = "Invalid priority. Allowed values are LOW, MEDIUM and HIGH"
	MsgInvalidStatus      = "Invalid status. Allowed values are OPEN and COMPLETE"
	MsgStatusTrash        = "Invalid status. A task can be moved to TRASH only by trashing it"
)

// Validate checks the set fields of in and returns every violation found, in a
// fixed order: title, description, reminder pairing, priority, status.
// An empty result means the input is valid. Unset fields are never checked.
func Validate(in Input) []string {
	var violations []string

	if in.Title != nil && utf8.RuneCountInString(*in.Title) > MaxTitleLength {
		violations = append(violations, MsgTitleTooLong)
	}

	if in.Description != nil && utf8.RuneCountInString(*in.Description) > MaxDescriptionLength {
		violations = append(violations, MsgDescriptionTooLong)
	}

	if (in.ReminderAt == nil) != (in.ReminderAllDay == nil) {
		violations = append(violations, MsgReminderPairing)
	}

	if in.Priority != nil && !in.Priority.Valid() {
		violations = append(violations, MsgInvalidPriority)
	}

	if in.Status != nil {
		switch {
		case *in.Status == StatusTrash:
			violations = append(violations, MsgStatusTrash)
		case !in.Status.Valid():
			violations = append(violations, MsgInvalidStatus)
		}
	}

	return violations
}
