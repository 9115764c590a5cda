package task

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate_TitleLength(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   []string
	}{
		{name: "empty title is valid", length: 0, want: nil},
		{name: "exactly max length", length: MaxTitleLength, want: nil},
		{name: "one over max length", length: MaxTitleLength + 1, want: []string{MsgTitleTooLong}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(Input{Title: Ptr(strings.Repeat("a", tt.length))})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_TitleCountsCharactersNotBytes(t *testing.T) {
	got := Validate(Input{Title: Ptr(strings.Repeat("é", MaxTitleLength))})
	assert.Empty(t, got)
}

func TestValidate_DescriptionLength(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   []string
	}{
		{name: "exactly max length", length: MaxDescriptionLength, want: nil},
		{name: "one over max length", length: MaxDescriptionLength + 1, want: []string{MsgDescriptionTooLong}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(Input{Description: Ptr(strings.Repeat("d", tt.length))})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_ReminderPairing(t *testing.T) {
	at := time.UnixMilli(50)

	tests := []struct {
		name  string
		input Input
		want  []string
	}{
		{name: "neither set", input: Input{}, want: nil},
		{name: "both set", input: Input{ReminderAt: &at, ReminderAllDay: Ptr(true)}, want: nil},
		{name: "clear signal with flag", input: Input{ReminderAt: Ptr(time.UnixMilli(0)), ReminderAllDay: Ptr(false)}, want: nil},
		{name: "only reminderAt", input: Input{ReminderAt: &at}, want: []string{MsgReminderPairing}},
		{name: "only reminderAllDay", input: Input{ReminderAllDay: Ptr(false)}, want: []string{MsgReminderPairing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.input))
		})
	}
}

func TestValidate_CollectsAllViolationsInOrder(t *testing.T) {
	got := Validate(Input{
		Title:          Ptr(strings.Repeat("t", MaxTitleLength+1)),
		Description:    Ptr(strings.Repeat("d", MaxDescriptionLength+1)),
		ReminderAllDay: Ptr(true),
	})

	assert.Equal(t, []string{MsgTitleTooLong, MsgDescriptionTooLong, MsgReminderPairing}, got)
}

func TestValidate_StatusAndPriority(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		want  []string
	}{
		{name: "complete status", input: Input{Status: Ptr(StatusComplete)}, want: nil},
		{name: "trash status", input: Input{Status: Ptr(StatusTrash)}, want: []string{MsgStatusTrash}},
		{name: "unknown status", input: Input{Status: Ptr(Status("DONE"))}, want: []string{MsgInvalidStatus}},
		{name: "unknown priority", input: Input{Priority: Ptr(Priority("URGENT"))}, want: []string{MsgInvalidPriority}},
		{name: "high priority", input: Input{Priority: Ptr(PriorityHigh)}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.input))
		})
	}
}

func TestValidationError_JoinsWithNewlines(t *testing.T) {
	err := &ValidationError{Violations: []string{MsgTitleTooLong, MsgReminderPairing}}
	assert.Equal(t, MsgTitleTooLong+"\n"+MsgReminderPairing, err.Error())
	assert.True(t, IsUserError(err))
}

func TestNotFoundError_Message(t *testing.T) {
	err := &NotFoundError{ID: "abc"}
	assert.Equal(t, "Could not find task with id abc", err.Error())
	assert.True(t, IsUserError(err))
}
