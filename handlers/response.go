package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskhub/logging"
	"taskhub/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response: %v", err)
	}
}

// writeError maps service errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateTask):
		status = http.StatusConflict
	case errors.Is(err, services.ErrBusy):
		status = http.StatusServiceUnavailable
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidTransition):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %v", err)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	http.Error(w, err.Error(), status)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// userID reads the acting user from the User-ID header set by the gateway,
// falling back to the userId query parameter.
func userID(r *http.Request) string {
	if id := r.Header.Get("User-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}
