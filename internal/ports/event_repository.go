package ports

import (
	"context"
	"errors"
	"time"

	"safetrail/internal/domain/emergency"
)

var (
	ErrEventNotFound = errors.New("event not found")
	// ErrConflict means the stored version or status no longer matches the
	// caller's read. The caller should re-read and decide again.
	ErrConflict = errors.New("event version conflict")
)

type EventFilter struct {
	Status          emergency.Status
	IncludeTerminal bool
	Limit           int
}

// StatusTransition is a conditional status write. It applies only when the
// stored row still has FromStatus at ExpectedVersion. AllClearAt and
// ResolvedAt are written only into columns that are still unset.
type StatusTransition struct {
	EventID         string
	FromStatus      emergency.Status
	ToStatus        emergency.Status
	ExpectedVersion int64
	AllClearAt      *time.Time
	ResolvedAt      *time.Time
	UpdatedAt       time.Time
}

type ReportUpdate struct {
	EventID         string
	ExpectedVersion int64
	Patch           emergency.ReportPatch
	UpdatedAt       time.Time
}

type EventReadRepository interface {
	GetEvent(ctx context.Context, eventID string) (emergency.Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]emergency.Event, error)
	ListTimeline(ctx context.Context, eventID string) ([]emergency.TimelineEntry, error)
}

// EventRepository is the record store the lifecycle engine runs against.
type EventRepository interface {
	EventReadRepository
	CreateEvent(ctx context.Context, event emergency.Event) (emergency.Event, error)
	TransitionStatus(ctx context.Context, input StatusTransition) (emergency.Event, error)
	PatchReport(ctx context.Context, input ReportUpdate) (emergency.Event, error)
	// AppendTimeline seals draft against the event's last entry (see
	// emergency.SealEntry) and persists it. It fails with ErrEventNotFound
	// for unknown events.
	AppendTimeline(ctx context.Context, draft emergency.TimelineDraft, now time.Time) (emergency.TimelineEntry, error)
}
