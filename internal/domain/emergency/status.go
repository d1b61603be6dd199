package emergency

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an emergency event.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusInProgress Status = "in_progress"
	StatusAllClear   Status = "all_clear"
	StatusResolved   Status = "resolved"
	StatusCancelled  Status = "cancelled"
)

// primaryPath is the strictly ordered sequence an event normally moves through.
// Cancellation is a side path and is not part of this table.
var primaryPath = []Status{
	StatusInitiated,
	StatusInProgress,
	StatusAllClear,
	StatusResolved,
}

var statusLabels = map[Status]string{
	StatusInitiated:  "Initiated",
	StatusInProgress: "In Progress",
	StatusAllClear:   "All Clear",
	StatusResolved:   "Resolved",
	StatusCancelled:  "Cancelled",
}

// NextState returns the status immediately after current on the primary path.
func NextState(current Status) (Status, bool) {
	if IsTerminal(current) {
		return "", false
	}
	for i, status := range primaryPath {
		if status != current {
			continue
		}
		if i+1 < len(primaryPath) {
			return primaryPath[i+1], true
		}
		return "", false
	}
	return "", false
}

func CanCancel(current Status) bool {
	return current.Valid() && !IsTerminal(current)
}

func IsTerminal(current Status) bool {
	return current == StatusResolved || current == StatusCancelled
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the human-readable form used in timeline actions and output.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts the stored form ("all_clear") as well as the label form ("All Clear").
func ParseStatus(raw string) (Status, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidStatus)
	}
	normalized := Status(strings.NewReplacer(" ", "_", "-", "_").Replace(trimmed))
	if !normalized.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return normalized, nil
}

// TransitionAction is the timeline action text recorded when status changes to next.
func TransitionAction(next Status) string {
	if next == StatusCancelled {
		return "Event cancelled"
	}
	return "Status changed to " + next.Label()
}

// IsTransitionAction reports whether action is the text some status change
// records. Manual notes may not use these texts.
func IsTransitionAction(action string) bool {
	action = strings.TrimSpace(action)
	for _, s := range []Status{StatusInProgress, StatusAllClear, StatusResolved, StatusCancelled} {
		if strings.EqualFold(action, TransitionAction(s)) {
			return true
		}
	}
	return false
}
