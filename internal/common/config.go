package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Blob   BlobConfig
	AI     AIConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
}

// BlobConfig holds attachment blob store configuration
type BlobConfig struct {
	RootDir string
}

// AIConfig holds AI extraction service configuration
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	FallbackModels []string
	Temperature    float32
	UploadTimeout  time.Duration // per upload call
	CallTimeout    time.Duration // per completion/delete call
	Deadline       time.Duration // total wall clock per parse request
	MaxRetries     int           // extra attempts on retryable statuses
	BackoffStep    time.Duration // linear: step * attempt
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Blob: BlobConfig{
			RootDir: getEnv("ATTACHMENT_ROOT", "./attachments"),
		},
		AI: AIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o"),
			FallbackModels: getEnvAsList("OPENAI_FALLBACK_MODELS", []string{"gpt-4o", "gpt-4.1", "gpt-4o-mini"}),
			Temperature:    getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			UploadTimeout:  getEnvAsDuration("OPENAI_UPLOAD_TIMEOUT", 45*time.Second),
			CallTimeout:    getEnvAsDuration("OPENAI_CALL_TIMEOUT", 35*time.Second),
			Deadline:       getEnvAsDuration("PARSE_DEADLINE", 90*time.Second),
			MaxRetries:     getEnvAsInt("OPENAI_MAX_RETRIES", 2),
			BackoffStep:    getEnvAsDuration("OPENAI_BACKOFF_STEP", 400*time.Millisecond),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrConfig)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrConfig)
	}
	return nil
}
