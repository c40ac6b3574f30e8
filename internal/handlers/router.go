// File: internal/handlers/router.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/aiwill/companion-api/internal/middleware"
	"github.com/aiwill/companion-api/internal/ratelimit"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Threads      *ThreadHandler
	Messages     *MessageHandler
	Media        *MediaHandler
	JWTSecret    []byte
	SendLimiter  *ratelimit.MemoryRateLimiter
	MediaLimiter *ratelimit.MemoryRateLimiter
	ImagesDir    string
	ImagesPrefix string
}

// NewRouter wires all routes under /v1 behind auth, with per-endpoint
// rate limits on the generation-backed routes.
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RecoverPanic)
	r.Use(middleware.LoggingMiddleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// Generated scene images are public files under opaque UUID names.
	prefix := strings.TrimRight(deps.ImagesPrefix, "/") + "/"
	r.PathPrefix(prefix).Handler(
		http.StripPrefix(prefix, http.FileServer(http.Dir(deps.ImagesDir)))).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(middleware.NewJWTMiddleware(deps.JWTSecret))

	sendLimit := middleware.RateLimitMiddleware(deps.SendLimiter, "send")
	mediaLimit := middleware.RateLimitMiddleware(deps.MediaLimiter, "media")

	api.HandleFunc("/threads", deps.Threads.ResolveThread).Methods(http.MethodPost)
	api.HandleFunc("/threads", deps.Threads.ListThreads).Methods(http.MethodGet)
	api.HandleFunc("/threads/{thread_id}", deps.Threads.GetThread).Methods(http.MethodGet)
	api.HandleFunc("/threads/{thread_id}", deps.Threads.DeleteThread).Methods(http.MethodDelete)

	api.HandleFunc("/threads/{thread_id}/messages", deps.Messages.ListMessages).Methods(http.MethodGet)
	api.Handle("/threads/{thread_id}/messages",
		sendLimit(http.HandlerFunc(deps.Messages.SendMessage))).Methods(http.MethodPost)
	api.Handle("/threads/{thread_id}/messages:stream",
		sendLimit(http.HandlerFunc(deps.Messages.StreamMessage))).Methods(http.MethodPost)

	api.Handle("/threads/{thread_id}/messages/{message_id}/audio",
		mediaLimit(http.HandlerFunc(deps.Media.GetMessageAudio))).Methods(http.MethodGet)
	api.Handle("/threads/{thread_id}/scene-image",
		mediaLimit(http.HandlerFunc(deps.Media.GenerateSceneImage))).Methods(http.MethodPost)

	return r
}
