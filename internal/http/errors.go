package http

import (
	"errors"
	"net/http"

	"billtracker/internal/backup"
	"billtracker/internal/core"
	applog "billtracker/internal/log"
	"billtracker/internal/quickadd"
)

var (
	errConfirmRequired = errors.New("confirmation required")
	errMalformedBody   = errors.New("malformed request body")
	errUnknownBill     = errors.New("bill not found")
)

// statusFor maps domain errors onto response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrFormat), errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownBill):
		return http.StatusNotFound
	case errors.Is(err, quickadd.ErrDeclined),
		errors.Is(err, backup.ErrNotConfirmed),
		errors.Is(err, errConfirmRequired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// messageFor hides internal failures from clients.
func messageFor(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "Something went wrong saving your bills. Please try again."
	}
	return err.Error()
}

// fail answers an API client with a JSON error, or re-renders the week page
// with the error for browsers.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, view ViewState, err error, prompt *confirmPrompt) {
	status := statusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldError, err, applog.FieldPath, r.URL.Path)
	} else {
		logger.InfoContext(r.Context(), "Request rejected", applog.FieldError, err, applog.FieldStatusCode, status)
	}

	msg := messageFor(err, status)
	if wantsJSON(r) {
		JSONError(status, msg).Write(w)
		return
	}
	page := s.page(view)
	if prompt != nil {
		page.Confirm = prompt
	} else {
		page.Error = msg
	}
	s.render(w, r, status, page)
}
