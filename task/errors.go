package task

import "fmt"

// Reason identifies why an artifact map or locale check failed. The
// public contract is a single error kind; the reason narrows it for
// failure reports.
type Reason string

const (
	ReasonTaskNotFound   Reason = "task not found"
	ReasonLocaleNotFound Reason = "locale not found under task"
	ReasonFileNotFound   Reason = "file not found under locale"
	ReasonLocaleMismatch Reason = "locale mismatch"
	ReasonBadTaskID      Reason = "malformed task id"
)

// VerificationError reports malformed or inconsistent task input. It is
// deterministic and never retryable: the task definition itself is wrong.
type VerificationError struct {
	Filename string
	TaskID   string
	Locale   string
	Reason   Reason
	Detail   string
}

func (e *VerificationError) Error() string {
	msg := fmt.Sprintf("task verification: %s", e.Reason)
	if e.Filename != "" {
		msg += fmt.Sprintf(" (file %q)", e.Filename)
	}
	if e.TaskID != "" {
		msg += fmt.Sprintf(" (task %q)", e.TaskID)
	}
	if e.Locale != "" {
		msg += fmt.Sprintf(" (locale %q)", e.Locale)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
