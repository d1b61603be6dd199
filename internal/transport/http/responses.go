package httptransport

import (
	"time"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/usecase/emergency"
)

type eventResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	Category    string          `json:"category"`
	Severity    string          `json:"severity"`
	ReportedBy  string          `json:"reported_by,omitempty"`
	Status      string          `json:"status"`
	StatusLabel string          `json:"status_label"`
	InitiatedAt time.Time       `json:"initiated_at"`
	AllClearAt  *time.Time      `json:"all_clear_at,omitempty"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	Report      *reportResponse `json:"report,omitempty"`
	Version     int64           `json:"version"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type reportResponse struct {
	RootCause         *string   `json:"root_cause"`
	Notes             *string   `json:"notes"`
	CorrectiveActions *string   `json:"corrective_actions"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type timelineEntryResponse struct {
	ID          string    `json:"id"`
	Position    int64     `json:"position"`
	Action      string    `json:"action"`
	Notes       *string   `json:"notes,omitempty"`
	PerformedBy *string   `json:"performed_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type detailResponse struct {
	Event           eventResponse           `json:"event"`
	Timeline        []timelineEntryResponse `json:"timeline"`
	ElapsedSeconds  int64                   `json:"elapsed_seconds"`
	Elapsed         string                  `json:"elapsed"`
	NextStatusLabel string                  `json:"next_status_label,omitempty"`
	CanAdvance      bool                    `json:"can_advance"`
	CanCancel       bool                    `json:"can_cancel"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

type timelineResponse struct {
	Entries []timelineEntryResponse `json:"entries"`
}

type summaryResponse struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	Resolved   int            `json:"resolved"`
	Cancelled  int            `json:"cancelled"`
	ByStatus   map[string]int `json:"by_status"`
	BySeverity map[string]int `json:"by_severity"`
}

func toEventResponse(e domainemergency.Event) eventResponse {
	resp := eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Category:    e.Category,
		Severity:    string(e.Severity),
		ReportedBy:  e.ReportedBy,
		Status:      string(e.Status),
		StatusLabel: e.Status.Label(),
		InitiatedAt: e.InitiatedAt,
		AllClearAt:  e.AllClearAt,
		ResolvedAt:  e.ResolvedAt,
		Version:     e.Version,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.Report != nil {
		resp.Report = &reportResponse{
			RootCause:         e.Report.RootCause,
			Notes:             e.Report.Notes,
			CorrectiveActions: e.Report.CorrectiveActions,
			UpdatedAt:         e.Report.UpdatedAt,
		}
	}
	return resp
}

func toTimelineResponse(entry domainemergency.TimelineEntry) timelineEntryResponse {
	return timelineEntryResponse{
		ID:          entry.ID,
		Position:    entry.Position,
		Action:      entry.Action,
		Notes:       entry.Notes,
		PerformedBy: entry.PerformedBy,
		Timestamp:   entry.Timestamp,
	}
}

func toTimelineResponses(entries []domainemergency.TimelineEntry) []timelineEntryResponse {
	out := make([]timelineEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toTimelineResponse(entry))
	}
	return out
}

func toDetailResponse(d emergency.EventDetail) detailResponse {
	return detailResponse{
		Event:           toEventResponse(d.Event),
		Timeline:        toTimelineResponses(d.Timeline),
		ElapsedSeconds:  int64(d.Elapsed / time.Second),
		Elapsed:         d.ElapsedLabel,
		NextStatusLabel: d.NextStatusLabel,
		CanAdvance:      d.CanAdvance,
		CanCancel:       d.CanCancel,
	}
}

func toSummaryResponse(s domainemergency.Summary) summaryResponse {
	resp := summaryResponse{
		Total:      s.Total,
		Active:     s.Active,
		Resolved:   s.Resolved,
		Cancelled:  s.Cancelled,
		ByStatus:   make(map[string]int, len(s.ByStatus)),
		BySeverity: make(map[string]int, len(s.BySeverity)),
	}
	for status, n := range s.ByStatus {
		resp.ByStatus[string(status)] = n
	}
	for severity, n := range s.BySeverity {
		resp.BySeverity[string(severity)] = n
	}
	return resp
}
