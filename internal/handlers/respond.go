package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

const maxBodyBytes = 1 << 20

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrDivisionByZero), errors.Is(err, models.ErrOverAllocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidOperationType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError replies with the status of err. Unexpected errors are logged and
// hidden from the client.
func writeError(w http.ResponseWriter, log *logrus.Entry, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var fieldErr *models.FieldError
	if errors.As(err, &fieldErr) {
		resp.Field = fieldErr.Field
	}
	switch {
	case status == http.StatusInternalServerError:
		log.WithError(err).Error("Request failed")
		resp = errorResponse{Error: "internal server error"}
	case models.IsClientError(err):
		log.WithError(err).WithField("status", status).Debug("Request rejected")
	}
	writeJSON(w, status, resp)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return models.Invalid("body", "request body is required")
		}
		return models.Invalid("body", "invalid JSON: %v", err)
	}
	return nil
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, models.Invalid(field, "is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, models.Invalid(field, "must be a date (2006-01-02) or an RFC 3339 timestamp")
}

func parseOptionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
