// File: internal/handlers/thread_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aiwill/companion-api/internal/dtos"
	"github.com/aiwill/companion-api/internal/services/conversation"
)

// ThreadHandler serves the thread lifecycle endpoints.
type ThreadHandler struct {
	conversations *conversation.Service
}

func NewThreadHandler(conversations *conversation.Service) *ThreadHandler {
	return &ThreadHandler{conversations: conversations}
}

// ResolveThread handles POST /v1/threads. Repeated calls for the same
// character return the same active thread.
func (h *ThreadHandler) ResolveThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.ResolveThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CharacterID == "" {
		writeError(w, http.StatusBadRequest, "character_id is required")
		return
	}

	thread, err := h.conversations.ResolveOrCreateThread(r.Context(), userID, req.CharacterID, req.PackID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dtos.NewThreadResponse(thread))
}

// ListThreads handles GET /v1/threads.
func (h *ThreadHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	summaries, pagination, err := h.conversations.ListThreads(
		r.Context(), userID, q.Get("character_id"), q.Get("cursor"), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dtos.NewThreadListResponse(summaries, pagination))
}

// GetThread handles GET /v1/threads/{thread_id}.
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	thread, err := h.conversations.GetThread(r.Context(), mux.Vars(r)["thread_id"], userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dtos.NewThreadResponse(thread))
}

// DeleteThread handles DELETE /v1/threads/{thread_id}. The second
// delete of the same thread is a 404, not an idempotent 204.
func (h *ThreadHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.conversations.DeleteThread(r.Context(), mux.Vars(r)["thread_id"], userID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
