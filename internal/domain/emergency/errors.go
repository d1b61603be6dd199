package emergency

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrRecordTerminal    = errors.New("record is terminal")
	ErrStorageFailure    = errors.New("storage failure")
	ErrPartialWrite      = errors.New("partial write")

	ErrEventIDRequired  = errors.New("event id is required")
	ErrTitleRequired    = errors.New("title is required")
	ErrCategoryRequired = errors.New("category is required")
	ErrInvalidSeverity  = errors.New("invalid severity")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrActionRequired   = errors.New("action is required")
	ErrActionReserved   = errors.New("action is reserved for status changes")
	ErrEmptyReportPatch = errors.New("report patch has no fields")
)

// StorageError reports an I/O failure in the record store or the timeline.
// Retryable is true only when the failed unit of work is known to have left no
// trace, so the same call can be repeated without re-reading state first.
type StorageError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageFailure, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageFailure, e.Err} }

func (e *StorageError) IsRetryable() bool { return e.Retryable }

// PartialWriteError means the status write committed but the matching
// timeline entry was not appended. Pending holds the entry still owed.
type PartialWriteError struct {
	EventID string
	Status  Status
	Pending TimelineDraft
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: event %s moved to %s but timeline append failed: %v", ErrPartialWrite, e.EventID, e.Status, e.Err)
}

func (e *PartialWriteError) Unwrap() []error {
	return []error{ErrPartialWrite, ErrStorageFailure, e.Err}
}

// IsRetryable is true: the owed entry can be appended with ResumeTimeline.
// Repeating the original operation is not safe.
func (e *PartialWriteError) IsRetryable() bool { return true }

const (
	CodeRecordNotFound    = "record_not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeRecordTerminal    = "record_terminal"
	CodePartialWrite      = "partial_write"
	CodeStorageFailure    = "storage_failure"
	CodeInvalidInput      = "invalid_input"
	CodeUnknown           = "unknown"
)

// ErrorCode maps an error to a stable machine-readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRecordNotFound):
		return CodeRecordNotFound
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrRecordTerminal):
		return CodeRecordTerminal
	case errors.Is(err, ErrPartialWrite):
		return CodePartialWrite
	case errors.Is(err, ErrStorageFailure):
		return CodeStorageFailure
	case isValidation(err):
		return CodeInvalidInput
	default:
		return CodeUnknown
	}
}

// Message maps an error to the single user-facing sentence for its kind.
func Message(err error) string {
	switch ErrorCode(err) {
	case "":
		return ""
	case CodeRecordNotFound:
		return "The event could not be found."
	case CodeInvalidTransition:
		return "This action is not available for the event's current status."
	case CodeRecordTerminal:
		return "The event is closed; notes and reports can no longer be changed."
	case CodePartialWrite:
		return "The status was saved but the timeline entry was not; resume the timeline before doing anything else."
	case CodeStorageFailure:
		var se *StorageError
		if errors.As(err, &se) && !se.Retryable {
			return "Saving failed and the outcome is unknown; reload the event before trying again."
		}
		return "Saving failed; nothing was changed, please try again."
	case CodeInvalidInput:
		return "The request is invalid: " + err.Error() + "."
	default:
		return err.Error()
	}
}

func isValidation(err error) bool {
	for _, target := range []error{
		ErrEventIDRequired,
		ErrTitleRequired,
		ErrCategoryRequired,
		ErrInvalidSeverity,
		ErrInvalidStatus,
		ErrActionRequired,
		ErrActionReserved,
		ErrEmptyReportPatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
