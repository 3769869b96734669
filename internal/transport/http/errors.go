package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quizmap-service/internal/domain"
)

// errResp is the JSON error body. Transient marks failures the client may retry.
type errResp struct {
	Error     string   `json:"error"`
	Problems  []string `json:"problems,omitempty"`
	Transient bool     `json:"transient,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, domain.ErrInvalidName):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, domain.ErrSubjectNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSubjectLocked),
		errors.Is(err, domain.ErrAttemptInProgress),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrLifelineUnavailable),
		errors.Is(err, domain.ErrEmptyAttempt):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNoQuestionsGenerated),
		errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) errResp {
	body := errResp{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Problems = verr.Problems
	}
	if errors.Is(err, domain.ErrNoQuestionsGenerated) {
		body.Error = "could not generate questions right now, please try again"
		body.Transient = true
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody(err))
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errResp{Error: msg})
}
