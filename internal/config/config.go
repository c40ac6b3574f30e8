// File: internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	DatabasePath string
	JWTSecretKey string
	Environment  string

	// LLM / generation providers. An empty LLMAPIKey means no provider
	// is configured and text responses fall back to the stub pool.
	LLMAPIKey         string
	LLMBaseURL        string
	ChatModel         string
	ImageModel        string
	TTSModel          string
	MaxTokens         int
	Temperature       float64
	CompletionTimeout time.Duration
	ImageTimeout      time.Duration
	SpeechTimeout     time.Duration

	// Conversation behavior.
	ContextWindow int
	MaxPageSize   int

	// Derived media lifecycle.
	ImagesDir     string
	ImageTTL      time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "companion.db"),
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),
		Environment:  env,

		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		ChatModel:  getEnv("LLM_CHAT_MODEL", "gpt-4o-mini"),
		ImageModel: getEnv("LLM_IMAGE_MODEL", "dall-e-3"),
		TTSModel:   getEnv("LLM_TTS_MODEL", "tts-1"),

		MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 500),
		Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		CompletionTimeout: getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		ImageTimeout:      getEnvAsDuration("IMAGE_TIMEOUT", 60*time.Second),
		SpeechTimeout:     getEnvAsDuration("TTS_TIMEOUT", 30*time.Second),

		ContextWindow: getEnvAsInt("CONTEXT_WINDOW", 10),
		MaxPageSize:   getEnvAsInt("MAX_PAGE_SIZE", 100),

		ImagesDir:     getEnv("IMAGES_DIR", "static/images/scenes"),
		ImageTTL:      getEnvAsDuration("IMAGE_TTL", 7*24*time.Hour),
		SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", time.Hour),
	}

	// Validation for production environments
	if strings.ToLower(env) == "production" {
		missing := []string{}
		if cfg.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if len(missing) > 0 {
			log.Fatalf("Missing required production environment variables: %v", missing)
		}
	}

	return cfg
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsFloat gets an env var as a float, with a fallback.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as float. Using default value.", key)
		return defaultValue
	}
	return floatValue
}

// getEnvAsDuration gets an env var as a duration (e.g. "30s"), with a fallback.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
		return defaultValue
	}
	return d
}
