package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vapl/orderdocs/internal/common"
	"github.com/vapl/orderdocs/internal/llm/openai"
	"github.com/vapl/orderdocs/internal/pipeline"
	"github.com/vapl/orderdocs/internal/server"
	"github.com/vapl/orderdocs/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := openai.NewClient(openai.Config{
		APIKey:        cfg.AI.APIKey,
		BaseURL:       cfg.AI.BaseURL,
		Temperature:   cfg.AI.Temperature,
		UploadTimeout: cfg.AI.UploadTimeout,
		CallTimeout:   cfg.AI.CallTimeout,
		MaxRetries:    cfg.AI.MaxRetries,
		BackoffStep:   cfg.AI.BackoffStep,
	}, logger)

	orch := pipeline.NewOrchestrator(client, logger, cfg.AI.Model, cfg.AI.FallbackModels, cfg.AI.Deadline)
	orch.Temperature = cfg.AI.Temperature
	proc := pipeline.NewProcessor(logger, orch)
	blobs := store.NewFSBlobStore(cfg.Blob.RootDir)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	server.NewParseHandler(proc, blobs, logger).Register(engine)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
}
