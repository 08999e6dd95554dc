package utils

import (
	"errors"
	"net/http"
	"strings"
)

// WriteError writes a failure envelope with the given message.
func WriteError(w http.ResponseWriter, message string, statusCode int) {
	writeEnvelope(w, statusCode, Envelope{
		Success: false,
		Message: message,
	})
}

// WriteServiceError translates a service error into the envelope. Unknown
// errors are logged and reported as a generic 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeEnvelope(w, http.StatusBadRequest, Envelope{
			Success: false,
			Message: "invalid input",
			Errors:  verr.Fields,
		})
	case errors.Is(err, ErrValidation):
		WriteError(w, publicMessage(err, ErrValidation), http.StatusBadRequest)
	case errors.Is(err, ErrUnauthenticated):
		WriteError(w, publicMessage(err, ErrUnauthenticated), http.StatusUnauthorized)
	case errors.Is(err, ErrPermissionDenied):
		WriteError(w, publicMessage(err, ErrPermissionDenied), http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		WriteError(w, publicMessage(err, ErrNotFound), http.StatusNotFound)
	case errors.Is(err, ErrConflict):
		WriteError(w, publicMessage(err, ErrConflict), http.StatusConflict)
	default:
		Logger.WithError(err).Error("unhandled service error")
		WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}

// publicMessage returns the reason attached to a sentinel by Denied, NotFound
// and friends, i.e. the text after "<sentinel>: ".
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}
