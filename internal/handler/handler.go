package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/sirupsen/logrus"
)

// Envelope keys. User routes answer with "status", the rest with "success".
const (
	keyStatus  = "status"
	keySuccess = "success"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, key string, message string) {
	writeJSON(w, status, map[string]interface{}{key: false, "message": message})
}

// errorStatus maps a service error to an HTTP status and client message
func errorStatus(err error) (int, string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, models.ErrInvalidUserID):
		return http.StatusBadRequest, "Invalid user ID"
	case errors.Is(err, models.ErrInvalidTransactionID):
		return http.StatusBadRequest, "Invalid transaction ID"
	case errors.Is(err, models.ErrInsufficientBalance):
		return http.StatusBadRequest, "Insufficient balance"
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, models.ErrTransactionNotFound):
		return http.StatusNotFound, "Transaction not found"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusNotFound, "Username or password is incorrect"
	case errors.Is(err, models.ErrUsernameTaken):
		return http.StatusConflict, "Username already exists"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, service.ErrRatesUnavailable):
		return http.StatusBadGateway, "Exchange rates unavailable"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, key string, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Errorf("Request failed: %v", err)
	}
	writeMessage(w, status, key, message)
}

// decodeBody reads a JSON object from the request body
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return models.NewValidationError("please enter required data")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// parseDate accepts RFC3339 timestamps and YYYY-MM-DD dates (UTC midnight)
func parseDate(field, s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, models.NewValidationError(fmt.Sprintf("%s must be RFC3339 or YYYY-MM-DD", field))
}

// flexString decodes a JSON string or number, as phone numbers arrive both ways
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// Health reports whether the store is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.log.Errorf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
