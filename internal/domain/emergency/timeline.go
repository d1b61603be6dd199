package emergency

import (
	"strings"
	"time"
)

// TimestampEpsilon is the step used when the clock reads earlier than the
// last entry of an event. Microseconds survive every supported store.
const TimestampEpsilon = time.Microsecond

// TimelineEntry is one immutable audit record of an event.
type TimelineEntry struct {
	ID          string
	EventID     string
	Position    int64
	Action      string
	Notes       *string
	PerformedBy *string
	Timestamp   time.Time
}

// TimelineDraft is an entry before the ledger assigns id, position and time.
type TimelineDraft struct {
	EventID     string
	Action      string
	Notes       *string
	PerformedBy *string
}

// NewDraft trims optional text; empty notes or actor become nil.
func NewDraft(eventID string, action string, notes string, performedBy string) (TimelineDraft, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return TimelineDraft{}, ErrActionRequired
	}
	return TimelineDraft{
		EventID:     eventID,
		Action:      action,
		Notes:       optionalText(notes),
		PerformedBy: optionalText(performedBy),
	}, nil
}

// SealEntry fixes the position and timestamp of draft relative to the last
// entry of the same event. last is nil for the first entry.
//
// Callers must hold the per-event serialization of their store while sealing
// and persisting, otherwise two entries can claim the same position.
func SealEntry(id string, last *TimelineEntry, draft TimelineDraft, now time.Time) TimelineEntry {
	ts := now.UTC()
	position := int64(1)
	if last != nil {
		position = last.Position + 1
		if floor := last.Timestamp.Add(TimestampEpsilon); ts.Before(floor) {
			ts = floor.UTC()
		}
	}
	return TimelineEntry{
		ID:          id,
		EventID:     draft.EventID,
		Position:    position,
		Action:      draft.Action,
		Notes:       cloneString(draft.Notes),
		PerformedBy: cloneString(draft.PerformedBy),
		Timestamp:   ts,
	}
}

func optionalText(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
