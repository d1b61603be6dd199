package emergency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/errs"
	"safetrail/internal/ports"
)

// Service is the lifecycle engine. It holds no event state of its own; the
// repository and unit of work own storage and per-event serialization.
type Service struct {
	repo  ports.EventRepository
	uow   ports.UnitOfWork
	now   func() time.Time
	newID func() string

	intakeKeys ports.Cache
	intakeTTL  time.Duration
}

type Option func(*Service)

// WithClock replaces the wall clock used for stamps and timeline entries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithIdempotentIntake remembers intake idempotency keys in cache for ttl.
// A repeated key returns the event it first created.
func WithIdempotentIntake(cache ports.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.intakeKeys = cache
		s.intakeTTL = ttl
	}
}

// NewService wires the lifecycle usecases with a record store and its unit of work.
func NewService(repo ports.EventRepository, uow ports.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		uow:   uow,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	Category    string
	Severity    string
	ReportedBy  string

	// IdempotencyKey is optional. Ignored unless the service has an intake cache.
	IdempotencyKey string
}

type AdvanceInput struct {
	EventID string
	Actor   string
}

type CancelInput struct {
	EventID string
	Actor   string
	Reason  string
}

type AddTimelineNoteInput struct {
	EventID string
	Action  string
	Notes   string
	Actor   string
}

// SaveReportInput is a partial update: nil fields keep their stored value.
type SaveReportInput struct {
	EventID           string
	RootCause         *string
	Notes             *string
	CorrectiveActions *string
}

type ListEventsInput struct {
	Status          string
	IncludeTerminal bool
	Limit           int
}

// EventDetail is an event with its timeline and display values derived at read time.
type EventDetail struct {
	Event           domainemergency.Event
	Timeline        []domainemergency.TimelineEntry
	Elapsed         time.Duration
	ElapsedLabel    string
	NextStatusLabel string
	CanAdvance      bool
	CanCancel       bool
}

func (s *Service) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errors.New("event repository is required")
	}
	if s.uow == nil {
		return errors.New("event unit of work is required")
	}
	return nil
}
