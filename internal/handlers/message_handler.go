// File: internal/handlers/message_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aiwill/companion-api/internal/dtos"
	"github.com/aiwill/companion-api/internal/services/ai"
	"github.com/aiwill/companion-api/internal/services/conversation"
)

// MessageHandler serves the message history and send endpoints.
type MessageHandler struct {
	conversations *conversation.Service
}

func NewMessageHandler(conversations *conversation.Service) *MessageHandler {
	return &MessageHandler{conversations: conversations}
}

// ListMessages handles GET /v1/threads/{thread_id}/messages.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	messages, pagination, err := h.conversations.ListMessages(
		r.Context(), mux.Vars(r)["thread_id"], userID, q.Get("cursor"), queryInt(r, "limit"), q.Get("order"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dtos.NewMessageListResponse(messages, pagination))
}

// SendMessage handles POST /v1/threads/{thread_id}/messages.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userMsg, characterMsg, err := h.conversations.SendMessage(r.Context(), mux.Vars(r)["thread_id"], userID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dtos.SendMessageResponse{
		UserMessage:      dtos.NewMessageResponse(userMsg),
		CharacterMessage: dtos.NewMessageResponse(characterMsg),
	})
}

// StreamMessage handles POST /v1/threads/{thread_id}/messages:stream,
// emitting the reply as server-sent events.
func (h *MessageHandler) StreamMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sink := &sseSink{w: w, flusher: flusher}
	err := h.conversations.SendMessageStream(r.Context(), mux.Vars(r)["thread_id"], userID, req.Content, sink)
	if err != nil {
		// Failures before the first event still get a real HTTP status;
		// once frames are on the wire, errors become a terminal event.
		if !sink.started {
			writeServiceError(w, err)
			return
		}
		sink.event("error", map[string]string{"message": streamErrorMessage(err)})
	}
}

func streamErrorMessage(err error) string {
	switch {
	case conversation.IsNotFound(err):
		return "thread not found"
	case conversation.IsValidation(err):
		return serviceMessage(err)
	default:
		return "internal server error"
	}
}

// sseSink writes stream events as SSE frames.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseSink) event(name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		// Disable proxy buffering so deltas reach the client immediately.
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) OnStart(userMessageID, assistantMessageID string) error {
	return s.event("message_start", map[string]string{
		"user_message_id": userMessageID,
		"message_id":      assistantMessageID,
	})
}

func (s *sseSink) OnDelta(delta string) error {
	return s.event("content_delta", map[string]string{"delta": delta})
}

func (s *sseSink) OnDone(assistantMessageID, finishReason string, usage *ai.Usage) error {
	payload := map[string]interface{}{
		"message_id":    assistantMessageID,
		"finish_reason": finishReason,
	}
	if usage != nil {
		payload["usage"] = map[string]int{
			"prompt_tokens":     usage.PromptTokens,
			"completion_tokens": usage.CompletionTokens,
			"total_tokens":      usage.TotalTokens,
		}
	}
	return s.event("message_done", payload)
}
