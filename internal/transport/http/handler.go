package httptransport

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/infrastructure/metrics"
	"safetrail/internal/usecase/emergency"
)

// Service is the slice of the lifecycle engine the HTTP layer drives.
type Service interface {
	CreateEvent(ctx context.Context, input emergency.CreateEventInput) (domainemergency.Event, error)
	ListEvents(ctx context.Context, input emergency.ListEventsInput) ([]domainemergency.Event, error)
	Summary(ctx context.Context) (domainemergency.Summary, error)
	GetEvent(ctx context.Context, eventID string) (emergency.EventDetail, error)
	ListTimeline(ctx context.Context, eventID string) ([]domainemergency.TimelineEntry, error)
	Advance(ctx context.Context, input emergency.AdvanceInput) (domainemergency.Event, error)
	Cancel(ctx context.Context, input emergency.CancelInput) (domainemergency.Event, error)
	AddTimelineNote(ctx context.Context, input emergency.AddTimelineNoteInput) (domainemergency.TimelineEntry, error)
	SaveReport(ctx context.Context, input emergency.SaveReportInput) (domainemergency.Event, error)
	ResumeTimeline(ctx context.Context, partial *domainemergency.PartialWriteError) (domainemergency.TimelineEntry, error)
}

// Handler maps event routes onto the lifecycle engine. It holds no business rules.
type Handler struct {
	service Service
	metrics *metrics.Metrics
}

func New(service Service, m *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: m}
}

// Register mounts the event routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/events", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/summary", h.handleSummary)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/timeline", h.handleTimeline)
			r.Post("/timeline/resume", h.handleResume)
			r.Post("/advance", h.handleAdvance)
			r.Post("/cancel", h.handleCancel)
			r.Post("/notes", h.handleNote)
			r.Patch("/report", h.handleReport)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input := req.toInput()
	input.IdempotencyKey = r.Header.Get("Idempotency-Key")
	event, err := h.service.CreateEvent(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	h.metrics.IncrementCreated(string(event.Severity))
	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := emergency.ListEventsInput{Status: query.Get("status")}
	if raw := query.Get("include_terminal"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, "include_terminal must be a boolean")
			return
		}
		input.IncludeTerminal = v
	}
	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		input.Limit = v
	}

	items, err := h.service.ListEvents(r.Context(), input)
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}
	resp := listEventsResponse{Events: make([]eventResponse, 0, len(items))}
	for _, item := range items {
		resp.Events = append(resp.Events, toEventResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, r, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListTimeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, timelineResponse{Entries: toTimelineResponses(entries)})
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	event, err := h.service.Advance(r.Context(), emergency.AdvanceInput{
		EventID: chi.URLParam(r, "id"),
		Actor:   req.Actor,
	})
	if err != nil {
		h.fail(w, r, "advance", err)
		return
	}
	h.metrics.IncrementTransition(string(event.Status))
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	event, err := h.service.Cancel(r.Context(), emergency.CancelInput{
		EventID: chi.URLParam(r, "id"),
		Actor:   req.Actor,
		Reason:  req.Reason,
	})
	if err != nil {
		h.fail(w, r, "cancel", err)
		return
	}
	h.metrics.IncrementTransition(string(event.Status))
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *Handler) handleNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.service.AddTimelineNote(r.Context(), emergency.AddTimelineNoteInput{
		EventID: chi.URLParam(r, "id"),
		Action:  req.Action,
		Notes:   req.Notes,
		Actor:   req.Actor,
	})
	if err != nil {
		h.fail(w, r, "note", err)
		return
	}
	h.metrics.IncrementNote()
	writeJSON(w, http.StatusCreated, toTimelineResponse(entry))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := h.service.SaveReport(r.Context(), emergency.SaveReportInput{
		EventID:           chi.URLParam(r, "id"),
		RootCause:         req.RootCause,
		Notes:             req.Notes,
		CorrectiveActions: req.CorrectiveActions,
	})
	if err != nil {
		h.fail(w, r, "report", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	var req pendingEntry
	if !decodeJSON(w, r, &req) {
		return
	}
	partial, err := req.toPartialWrite(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "resume", err)
		return
	}
	entry, err := h.service.ResumeTimeline(r.Context(), partial)
	if err != nil {
		h.fail(w, r, "resume", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelineResponse(entry))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := domainemergency.ErrorCode(err)
	h.metrics.IncrementError(op, code)
	if code == domainemergency.CodeUnknown || errors.Is(err, domainemergency.ErrStorageFailure) {
		logRequestError(r.Context(), op, err)
	}
	writeError(w, err)
}
