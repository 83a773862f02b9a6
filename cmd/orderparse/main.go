package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vapl/orderdocs/internal/common"
	"github.com/vapl/orderdocs/internal/export"
	"github.com/vapl/orderdocs/internal/ingest"
	"github.com/vapl/orderdocs/internal/llm/openai"
	"github.com/vapl/orderdocs/internal/pipeline"
	"github.com/vapl/orderdocs/internal/schema"
)

var (
	columnsPath string
	useAI       bool
	xlsxOut     string
)

var rootCmd = &cobra.Command{
	Use:   "orderparse <attachment>",
	Short: "Parse a manufacturing order attachment into schema rows",
	Long: "Runs the extraction cascade against a local PDF or spreadsheet and prints " +
		"the resulting rows and column mapping as JSON. The column schema is read " +
		"from a JSON file. With --ai the AI tier is enabled and OPENAI_API_KEY must be set.",
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir> [dir...]",
	Short: "Watch directories and parse every attachment that appears",
	Long: "Watches the given directories recursively, parses each new or changed " +
		"attachment, and prints one JSON result per file. Duplicated file content " +
		"is parsed once.",
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&columnsPath, "columns", "c", "", "path to the column schema JSON file (required)")
	rootCmd.PersistentFlags().BoolVar(&useAI, "ai", false, "enable the AI extraction tier")
	rootCmd.Flags().StringVar(&xlsxOut, "xlsx", "", "also write the parsed rows to this XLSX file")
	_ = rootCmd.MarkPersistentFlagRequired("columns")
	rootCmd.AddCommand(watchCmd)
}

func loadColumns() ([]schema.Column, error) {
	colsData, err := os.ReadFile(columnsPath)
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	var cols []schema.Column
	if err := json.Unmarshal(colsData, &cols); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	return cols, nil
}

func buildProcessor(logger *slog.Logger) (*pipeline.Processor, error) {
	var orch *pipeline.Orchestrator
	if useAI {
		cfg := common.LoadConfig()
		if cfg.AI.APIKey == "" {
			return nil, fmt.Errorf("--ai requires OPENAI_API_KEY")
		}
		client := openai.NewClient(openai.Config{
			APIKey:        cfg.AI.APIKey,
			BaseURL:       cfg.AI.BaseURL,
			Temperature:   cfg.AI.Temperature,
			UploadTimeout: cfg.AI.UploadTimeout,
			CallTimeout:   cfg.AI.CallTimeout,
			MaxRetries:    cfg.AI.MaxRetries,
			BackoffStep:   cfg.AI.BackoffStep,
		}, logger)
		orch = pipeline.NewOrchestrator(client, logger, cfg.AI.Model, cfg.AI.FallbackModels, cfg.AI.Deadline)
		orch.Temperature = cfg.AI.Temperature
	}
	return pipeline.NewProcessor(logger, orch), nil
}

func runParse(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cols, err := loadColumns()
	if err != nil {
		return err
	}
	proc, err := buildProcessor(logger)
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}

	res, err := proc.Parse(context.Background(), pipeline.ParseRequest{
		FileName: filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Data:     data,
		Columns:  cols,
	})
	if err != nil {
		return err
	}

	if xlsxOut != "" {
		validated, err := schema.ValidateColumns(cols)
		if err != nil {
			return err
		}
		wb, err := export.Workbook(validated, res.Rows)
		if err != nil {
			return fmt.Errorf("build workbook: %w", err)
		}
		if err := os.WriteFile(xlsxOut, wb, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cols, err := loadColumns()
	if err != nil {
		return err
	}
	proc, err := buildProcessor(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	go func() {
		for werr := range errs {
			logger.Error("watch.error", "error", werr)
		}
	}()

	enc := json.NewEncoder(os.Stdout)
	runner := ingest.NewRunner(proc, cols, logger)
	runner.Run(ctx, paths, func(res ingest.Result) {
		out := map[string]any{"path": res.Path}
		if res.Err != nil {
			out["error"] = res.Err.Error()
		} else {
			out["result"] = res.Parsed
		}
		_ = enc.Encode(out)
	})
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
