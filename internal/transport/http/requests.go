package httptransport

import (
	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/usecase/emergency"
)

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	ReportedBy  string `json:"reported_by"`
}

func (r createEventRequest) toInput() emergency.CreateEventInput {
	return emergency.CreateEventInput{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Category:    r.Category,
		Severity:    r.Severity,
		ReportedBy:  r.ReportedBy,
	}
}

type actorRequest struct {
	Actor string `json:"actor"`
}

type cancelRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type noteRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
	Actor  string `json:"actor"`
}

// reportRequest distinguishes an omitted field (nil, keep) from an empty one (clear).
type reportRequest struct {
	RootCause         *string `json:"root_cause"`
	Notes             *string `json:"notes"`
	CorrectiveActions *string `json:"corrective_actions"`
}

// pendingEntry is the timeline entry a partial write still owes. It is
// returned with partial_write errors and accepted back by the resume route,
// which derives the action from the status and ignores the one sent.
type pendingEntry struct {
	Status      string  `json:"status"`
	Action      string  `json:"action"`
	Notes       *string `json:"notes,omitempty"`
	PerformedBy *string `json:"performed_by,omitempty"`
}

func (p pendingEntry) toPartialWrite(eventID string) (*domainemergency.PartialWriteError, error) {
	status, err := domainemergency.ParseStatus(p.Status)
	if err != nil {
		return nil, err
	}
	draft, err := domainemergency.NewDraft(eventID, domainemergency.TransitionAction(status), derefString(p.Notes), derefString(p.PerformedBy))
	if err != nil {
		return nil, err
	}
	return &domainemergency.PartialWriteError{EventID: eventID, Status: status, Pending: draft}, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
