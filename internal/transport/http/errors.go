package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/errs"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string        `json:"error"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
	Pending   *pendingEntry `json:"pending,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:   domainemergency.CodeInvalidInput,
		Message: message,
	})
}

// writeError translates the engine's error taxonomy into status codes and a
// stable JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := domainemergency.ErrorCode(err)
	resp := errorResponse{
		Error:     code,
		Message:   domainemergency.Message(err),
		Retryable: errs.IsRetryable(err),
	}

	status := http.StatusInternalServerError
	switch code {
	case domainemergency.CodeRecordNotFound:
		status = http.StatusNotFound
	case domainemergency.CodeInvalidTransition, domainemergency.CodeRecordTerminal:
		status = http.StatusConflict
	case domainemergency.CodeInvalidInput:
		status = http.StatusBadRequest
	case domainemergency.CodeStorageFailure:
		status = http.StatusServiceUnavailable
	case domainemergency.CodePartialWrite:
		var partial *domainemergency.PartialWriteError
		if errors.As(err, &partial) {
			resp.Pending = &pendingEntry{
				Status:      string(partial.Status),
				Action:      partial.Pending.Action,
				Notes:       partial.Pending.Notes,
				PerformedBy: partial.Pending.PerformedBy,
			}
		}
	default:
		resp.Error = "internal_error"
		resp.Message = "An unexpected error occurred."
	}
	writeJSON(w, status, resp)
}

// decodeJSON requires a body; decodeOptionalJSON accepts an empty one.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decode(w, r, dst, false)
}

func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeBadRequest(w, "request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}
