// Package handlers contains the HTTP handlers for the attendance API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// maxUploadSize limits multipart image uploads to 20 MB.
const maxUploadSize = 20 << 20

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// parseEventTime combines optional date ("2006-01-02") and clock ("15:04")
// form values into a UTC timestamp, defaulting missing parts to now.
func parseEventTime(dateValue, clockValue string) (time.Time, error) {
	now := time.Now().UTC()

	day := now
	if dateValue != "" {
		parsed, err := time.Parse("2006-01-02", dateValue)
		if err != nil {
			return time.Time{}, err
		}
		day = parsed
	}

	hour, minute, sec := now.Hour(), now.Minute(), now.Second()
	if clockValue != "" {
		parsed, err := time.Parse("15:04", clockValue)
		if err != nil {
			return time.Time{}, err
		}
		hour, minute, sec = parsed.Hour(), parsed.Minute(), 0
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, sec, 0, time.UTC), nil
}
