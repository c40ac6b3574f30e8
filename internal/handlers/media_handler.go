// File: internal/handlers/media_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aiwill/companion-api/internal/dtos"
	"github.com/aiwill/companion-api/internal/services/media"
)

// MediaHandler serves derived media: scene images and speech audio.
type MediaHandler struct {
	media *media.Service
}

func NewMediaHandler(mediaService *media.Service) *MediaHandler {
	return &MediaHandler{media: mediaService}
}

// GenerateSceneImage handles POST /v1/threads/{thread_id}/scene-image.
func (h *MediaHandler) GenerateSceneImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.SceneImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.media.GenerateSceneImage(r.Context(), mux.Vars(r)["thread_id"], userID, req.MessageIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dtos.NewMessageResponse(msg))
}

// GetMessageAudio handles GET /v1/threads/{thread_id}/messages/{message_id}/audio.
// Audio is synthesized per request and returned inline.
func (h *MediaHandler) GetMessageAudio(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	audio, err := h.media.SynthesizeMessageAudio(
		r.Context(), vars["thread_id"], userID, vars["message_id"], r.URL.Query().Get("voice"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}
