package httpapi

import (
	"errors"
	"net/http"

	"github.com/spluca/ippool"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a pool error to its HTTP status and public message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ippool.ErrNoAvailableAddresses):
		return http.StatusServiceUnavailable, "No available IPs in pool"
	case errors.Is(err, ippool.ErrNotFound):
		return http.StatusNotFound, "IP not found"
	case errors.Is(err, ippool.ErrInvalidAddress):
		return http.StatusBadRequest, "Invalid IP address"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	entry := log.WithField("request_id", requestIDFrom(r)).WithError(err)
	if code >= http.StatusInternalServerError {
		entry.Warnf("%s %s", r.Method, r.URL.Path)
	} else {
		entry.Debugf("%s %s", r.Method, r.URL.Path)
	}
	writeErrorMessage(w, code, msg)
}

func writeErrorMessage(w http.ResponseWriter, code int, msg string) {
	doJSONWrite(w, code, errorResponse{Error: msg})
}
