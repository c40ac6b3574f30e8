// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/aiwill/companion-api/internal/config"
	"github.com/aiwill/companion-api/internal/domain"
	"github.com/aiwill/companion-api/internal/handlers"
	"github.com/aiwill/companion-api/internal/ratelimit"
	"github.com/aiwill/companion-api/internal/repository/character"
	"github.com/aiwill/companion-api/internal/repository/message"
	"github.com/aiwill/companion-api/internal/repository/thread"
	"github.com/aiwill/companion-api/internal/services"
	"github.com/aiwill/companion-api/internal/services/ai"
	"github.com/aiwill/companion-api/internal/services/conversation"
	"github.com/aiwill/companion-api/internal/services/media"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	logger := services.NewLogger("companion-api")

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	if err := db.AutoMigrate(&domain.Thread{}, &domain.Message{}, &domain.Character{}); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	threadRepo := thread.NewThreadRepository(db)
	messageRepo := message.NewMessageRepository(db)
	characterRepo := character.NewCharacterRepository(db)

	// --- Services ---
	provider := ai.NewOpenAIProvider(&ai.Config{
		APIKey:            cfg.LLMAPIKey,
		BaseURL:           cfg.LLMBaseURL,
		ChatModel:         cfg.ChatModel,
		ImageModel:        cfg.ImageModel,
		SpeechModel:       cfg.TTSModel,
		CompletionTimeout: cfg.CompletionTimeout,
		ImageTimeout:      cfg.ImageTimeout,
		SpeechTimeout:     cfg.SpeechTimeout,
		MaxTokens:         cfg.MaxTokens,
		Temperature:       float32(cfg.Temperature),
	})

	conversationConfig := conversation.DefaultConfig()
	conversationConfig.ContextWindow = cfg.ContextWindow
	conversationConfig.MaxPageSize = cfg.MaxPageSize
	conversationConfig.MaxTokens = cfg.MaxTokens
	conversationConfig.Temperature = float32(cfg.Temperature)

	conversationService, err := conversation.NewService(
		conversationConfig, threadRepo, messageRepo, characterRepo, provider, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize conversation service: %v", err)
	}

	mediaConfig := media.DefaultConfig()
	mediaConfig.ImagesDir = cfg.ImagesDir
	mediaConfig.ImageTTL = cfg.ImageTTL
	mediaConfig.SweepInterval = cfg.SweepInterval

	storage, err := media.NewLocalStorage(mediaConfig.ImagesDir, mediaConfig.ImageURLPrefix)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize image storage: %v", err)
	}

	mediaService, err := media.NewService(
		mediaConfig, threadRepo, messageRepo, characterRepo,
		provider, provider, provider, storage, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media service: %v", err)
	}

	// --- Rate limiters ---
	sendLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.DefaultSendConfig())
	defer sendLimiter.Close()
	mediaLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.DefaultMediaConfig())
	defer mediaLimiter.Close()

	// --- Router ---
	router := handlers.NewRouter(handlers.RouterDeps{
		Threads:      handlers.NewThreadHandler(conversationService),
		Messages:     handlers.NewMessageHandler(conversationService),
		Media:        handlers.NewMediaHandler(mediaService),
		JWTSecret:    []byte(cfg.JWTSecretKey),
		SendLimiter:  sendLimiter,
		MediaLimiter: mediaLimiter,
		ImagesDir:    mediaConfig.ImagesDir,
		ImagesPrefix: mediaConfig.ImageURLPrefix,
	})

	// --- Expiry sweep ---
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go mediaService.RunSweeper(sweepCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      corsMiddleware(router),
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
		WriteTimeout: 0, // streaming responses manage their own deadlines
	}

	go func() {
		logger.Info("server starting", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
