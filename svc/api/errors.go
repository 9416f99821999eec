package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/flagkit/pkg/binder"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/ratelimiter"
	"github.com/dmitrymomot/flagkit/pkg/requestid"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/pkg/validator"
	"github.com/dmitrymomot/flagkit/svc/flags"
	"github.com/dmitrymomot/flagkit/svc/tenants"
)

var (
	errRouteNotFound    = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errInvalidIfMatch   = errors.New("malformed If-Match header")
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Details   map[string][]string `json:"details,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
}

type errorResponse struct {
	Error ErrorDetail `json:"error"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, flags.ErrValidation), errors.Is(err, tenants.ErrValidation), validator.IsValidationError(err):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, binder.ErrMissingContentType),
		errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParseQuery),
		errors.Is(err, binder.ErrFailedToParsePath):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, tenant.ErrInvalidIdentifier), errors.Is(err, tenant.ErrNoTenantInContext):
		return http.StatusBadRequest, "tenant_required"
	case errors.Is(err, tenant.ErrTenantNotFound):
		return http.StatusNotFound, "tenant_not_found"
	case errors.Is(err, flags.ErrNotFound), errors.Is(err, tenants.ErrNotFound), errors.Is(err, errRouteNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, flags.ErrConflict), errors.Is(err, tenants.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, flags.ErrPreconditionFailed), errors.Is(err, errInvalidIfMatch):
		return http.StatusPreconditionFailed, "precondition_failed"
	case errors.Is(err, ratelimiter.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err as JSON. Server errors are logged and their
// message is hidden from the client.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	detail := ErrorDetail{Code: code, Message: http.StatusText(status), RequestID: requestid.FromContext(r.Context())}
	switch {
	case status >= http.StatusInternalServerError:
		a.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method), slog.String("path", r.URL.Path), logger.Error(err))
	case code == "validation_error":
		detail.Message = "Validation failed"
		detail.Details = fieldErrors(err)
	case status == http.StatusBadRequest || status == http.StatusUnsupportedMediaType:
		detail.Message = err.Error()
	}

	writeJSON(w, status, errorResponse{Error: detail})
}

func fieldErrors(err error) map[string][]string {
	verrs := validator.ExtractValidationErrors(err)
	if verrs.IsEmpty() {
		return nil
	}
	out := make(map[string][]string, len(verrs))
	for _, ve := range verrs {
		out[ve.Field] = append(out[ve.Field], ve.Message)
	}
	return out
}
