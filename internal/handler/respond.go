package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brizuela-go/takeorderhd/internal/selection"
	"github.com/brizuela-go/takeorderhd/internal/service"
	"github.com/brizuela-go/takeorderhd/internal/terminal"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to status codes. Anything unknown
// is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, op string, err error) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, terminal.ErrSessionNotFound),
		errors.Is(err, terminal.ErrOrderNotActive),
		errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, terminal.ErrNoTargetOrder),
		errors.Is(err, terminal.ErrSubmitInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.WithError(err).WithField("op", op).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isValidationError(err error) bool {
	return service.IsValidationError(err) ||
		errors.Is(err, selection.ErrUnknownItem) ||
		errors.Is(err, selection.ErrInvalidDirection)
}
