package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey        string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL       string        // default https://api.openai.com/v1
	Temperature   float32       // 0..2
	UploadTimeout time.Duration // per file-upload call
	CallTimeout   time.Duration // per completion/delete call
	MaxRetries    int           // extra attempts on retryable statuses
	BackoffStep   time.Duration // linear backoff: step * attempt
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 45 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 35 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = 400 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Per-call timeouts are enforced with contexts, not a client-wide
	// timeout, so a parent cancellation stays distinguishable.
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  logger,
	}
}
