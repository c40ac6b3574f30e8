// File: internal/handlers/helpers.go
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/aiwill/companion-api/internal/middleware"
	"github.com/aiwill/companion-api/internal/services/conversation"
	"github.com/aiwill/companion-api/internal/services/media"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("[Handlers] Failed to encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service error taxonomies to HTTP statuses.
// Internal details never reach the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case conversation.IsNotFound(err) || media.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	case conversation.IsValidation(err) || media.IsValidation(err):
		writeError(w, http.StatusBadRequest, serviceMessage(err))
	case conversation.IsUnavailable(err) || media.IsUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, "generation temporarily unavailable")
	default:
		log.Printf("[Handlers] Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// serviceMessage extracts the safe, human-readable part of a service
// error for validation responses.
func serviceMessage(err error) string {
	var convErr *conversation.Error
	if errors.As(err, &convErr) {
		return convErr.Message
	}
	var mediaErr *media.Error
	if errors.As(err, &mediaErr) {
		return mediaErr.Message
	}
	return "invalid request"
}

// requireUserID pulls the authenticated user from the request context.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
