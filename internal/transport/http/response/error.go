package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/logger"
	appCtx "github.com/orgnet-app/identity-service/internal/pkg/context"
)

type ErrorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteError converts a domain error into a consistent JSON HTTP error response.
// Non-domain errors are treated as internal errors (500) without leaking details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"
	var details map[string]string

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		code = de.Code
		message = de.Message
		details = de.Meta

		if de.Kind == domain.KindIntegrity {
			logger.WithCtx(r.Context()).Error().
				Str("marker", "integrity").
				Str("code", de.Code).
				Err(de.Cause).
				Msg(de.Message)
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorBody{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: appCtx.GetRequestID(r.Context()),
	})
}

// statusFromKind maps domain error kinds to HTTP status codes.
func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindIdentityConflict:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	case domain.KindIntegrity, domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
