package emergency

import (
	"fmt"
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func ParseSeverity(raw string) (Severity, error) {
	candidate := Severity(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range severities {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, raw)
}

// Event is an emergency event record.
//
// Classification fields (Title, Category, Severity, Description, Location,
// ReportedBy) and InitiatedAt are fixed at intake. AllClearAt and ResolvedAt
// are written once, the first time the matching status is entered.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Category    string
	Severity    Severity
	ReportedBy  string
	Status      Status
	InitiatedAt time.Time
	AllClearAt  *time.Time
	ResolvedAt  *time.Time
	Report      *Report
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Event) IsTerminal() bool {
	return IsTerminal(e.Status)
}

// Intake carries the caller-supplied fields of a new event.
type Intake struct {
	Title       string
	Description string
	Location    string
	Category    string
	Severity    string
	ReportedBy  string
}

// NewEvent validates intake and builds an event in the initiated status.
func NewEvent(id string, in Intake, now time.Time) (Event, error) {
	if strings.TrimSpace(id) == "" {
		return Event{}, ErrEventIDRequired
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Event{}, ErrTitleRequired
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		return Event{}, ErrCategoryRequired
	}
	severity, err := ParseSeverity(in.Severity)
	if err != nil {
		return Event{}, err
	}

	now = now.UTC()
	return Event{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Category:    category,
		Severity:    severity,
		ReportedBy:  strings.TrimSpace(in.ReportedBy),
		Status:      StatusInitiated,
		InitiatedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Stamps returns the derived timestamps entering next must set. Storage
// applies them only where the column is still unset.
func Stamps(next Status, now time.Time) (allClearAt *time.Time, resolvedAt *time.Time) {
	at := now.UTC()
	switch next {
	case StatusAllClear:
		return &at, nil
	case StatusResolved:
		return nil, &at
	default:
		return nil, nil
	}
}
