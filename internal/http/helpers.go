package http

import (
	"errors"
	"net/http"

	"receitas/internal/core"
	"receitas/internal/log"
)

// statusFor maps a service error to an HTTP status. Field validation failures
// are 422; every other invalid input (ids, month, year, JSON syntax) is 400.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindAlreadyExists:
		return http.StatusConflict
	case core.KindInvalidInput:
		if isFieldError(err) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isFieldError(err error) bool {
	var fe *FieldError
	if errors.As(err, &fe) {
		return true
	}
	for _, sentinel := range []error{
		core.ErrEmptyDescription,
		core.ErrDescriptionTooLong,
		core.ErrInvalidAmount,
		core.ErrZeroDate,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// writeError answers with the error envelope. Internal failures are logged
// and their detail is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Entry request failed", err, log.ComponentHTTP, op, nil)
		InternalServerError("internal server error").Write(w)
		return
	}
	ErrorResponse(status, err.Error()).Write(w)
}
