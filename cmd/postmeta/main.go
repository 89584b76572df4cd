package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cognicore/postmeta/internal/llm"
	"github.com/cognicore/postmeta/pkg/postmeta/config"
	"github.com/cognicore/postmeta/pkg/postmeta/corpus"
	"github.com/cognicore/postmeta/pkg/postmeta/metrics"
	"github.com/cognicore/postmeta/pkg/postmeta/pipeline"
	"github.com/cognicore/postmeta/pkg/postmeta/store"
	"github.com/cognicore/postmeta/pkg/postmeta/store/sqlite"
)

type options struct {
	configPath  string
	input       string
	output      string
	tagMapPath  string
	reportPath  string
	workers     int
	onError     string
	attempts    int
	strict      bool
	stripMarkup bool
	checkpoint  string
	metricsFile string
	llmBase     string
	llmModel    string
	llmAPIKey   string
	logLevel    string

	// set holds the names of flags given on the command line.
	set map[string]bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("postmeta", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "YAML config file (optional)")
	fs.StringVar(&o.input, "input", "", "Input JSON array of posts (required)")
	fs.StringVar(&o.output, "output", "", "Output JSON file (required)")
	fs.StringVar(&o.tagMapPath, "tagmap", "", "Write the raw -> canonical tag map here (optional)")
	fs.StringVar(&o.reportPath, "report", "", "Write a JSON run report here (optional)")
	fs.IntVar(&o.workers, "workers", 1, "Concurrent extraction calls")
	fs.StringVar(&o.onError, "on-error", "abort", "Malformed extraction policy: abort or skip")
	fs.IntVar(&o.attempts, "attempts", 1, "Extraction attempts per post on malformed output")
	fs.BoolVar(&o.strict, "strict", false, "Reject metadata outside the output contract")
	fs.BoolVar(&o.stripMarkup, "strip-markup", false, "Strip HTML from post text before extraction")
	fs.StringVar(&o.checkpoint, "checkpoint", "", "SQLite checkpoint database (optional)")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "Prometheus textfile output (optional)")
	fs.StringVar(&o.llmBase, "llm-base", "", "Chat completion endpoint URL")
	fs.StringVar(&o.llmModel, "llm-model", "", "Model name")
	fs.StringVar(&o.llmAPIKey, "llm-api-key", "", "API key")
	fs.StringVar(&o.logLevel, "log-level", "", "trace, debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.input == "" {
		return options{}, errors.New("--input required")
	}
	if o.output == "" {
		return options{}, errors.New("--output required")
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	cfg.ApplyEnv()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if o.set["workers"] {
		cfg.Pipeline.Workers = o.workers
	}
	if o.set["on-error"] {
		cfg.Pipeline.OnExtractError = o.onError
	}
	if o.set["attempts"] {
		cfg.Pipeline.ExtractAttempts = o.attempts
	}
	if o.set["strict"] {
		cfg.Pipeline.Strict = o.strict
	}
	if o.set["strip-markup"] {
		cfg.Pipeline.StripMarkup = o.stripMarkup
	}
	if o.set["checkpoint"] {
		cfg.Checkpoint.Path = o.checkpoint
	}
	if o.set["metrics-file"] {
		cfg.Metrics.Textfile = o.metricsFile
	}
	if o.set["llm-base"] {
		cfg.LLM.BaseURL = o.llmBase
	}
	if o.set["llm-model"] {
		cfg.LLM.Model = o.llmModel
	}
	if o.set["llm-api-key"] {
		cfg.LLM.APIKey = o.llmAPIKey
	}
	if o.set["log-level"] {
		cfg.LogLevel = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildPipeline wires the model client, checkpoint store and metrics.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, *metrics.Metrics, func(), error) {
	client := &llm.Client{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		HTTPClient:  &http.Client{Timeout: cfg.LLM.Timeout},
		Retry: llm.RetryConfig{
			MaxRetries: cfg.LLM.MaxRetries,
			BaseDelay:  cfg.LLM.RetryBaseDelay,
			MaxDelay:   cfg.LLM.RetryMaxDelay,
		},
		Logger: logger.With("component", "llm"),
	}

	policy, err := pipeline.ParsePolicy(cfg.Pipeline.OnExtractError)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {}
	var st store.Store
	if cfg.Checkpoint.Path != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Checkpoint.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open checkpoint store: %w", err)
		}
		cleanup = func() {
			if err := st.Close(); err != nil {
				logger.Warn("failed to close checkpoint store", "error", err)
			}
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Textfile != "" {
		m = metrics.New()
	}

	p := pipeline.New(pipeline.Options{
		Invoker:         client,
		Model:           cfg.LLM.Model,
		Store:           st,
		Metrics:         m,
		Logger:          logger,
		Workers:         cfg.Pipeline.Workers,
		OnExtractError:  policy,
		ExtractAttempts: cfg.Pipeline.ExtractAttempts,
		Strict:          cfg.Pipeline.Strict,
		StripMarkup:     cfg.Pipeline.StripMarkup,
	})
	return p, m, cleanup, nil
}

type report struct {
	RunID          string    `json:"run_id"`
	Input          string    `json:"input"`
	Output         string    `json:"output"`
	Model          string    `json:"model"`
	Posts          int       `json:"posts"`
	Extracted      int       `json:"extracted"`
	CheckpointHits int       `json:"checkpoint_hits"`
	Skipped        []int     `json:"skipped"`
	RawTags        []string  `json:"raw_tags"`
	CanonicalTags  []string  `json:"canonical_tags"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Duration       string    `json:"duration"`
}

func newReport(o options, model string, res pipeline.Result) report {
	r := report{
		RunID:          res.RunID,
		Input:          o.input,
		Output:         o.output,
		Model:          model,
		Posts:          res.Posts,
		Extracted:      res.Extracted,
		CheckpointHits: res.CheckpointHits,
		Skipped:        res.Skipped,
		RawTags:        res.RawTags,
		CanonicalTags:  res.TagMap.Canonical(),
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		Duration:       res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond).String(),
	}
	if r.Skipped == nil {
		r.Skipped = []int{}
	}
	if r.RawTags == nil {
		r.RawTags = []string{}
	}
	return r
}

func run(ctx context.Context, o options, stderr io.Writer) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	p, m, cleanup, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res, runErr := p.Run(ctx, corpus.FileSource{Path: o.input}, corpus.FileSink{Path: o.output})

	if m != nil {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if o.tagMapPath != "" {
		if err := corpus.WriteFileAtomic(o.tagMapPath, res.TagMap); err != nil {
			return fmt.Errorf("write tag map: %w", err)
		}
	}
	if o.reportPath != "" {
		if err := corpus.WriteFileAtomic(o.reportPath, newReport(o, cfg.LLM.Model, res)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	logger.Info("enrichment complete",
		"run", res.RunID,
		"posts", res.Posts,
		"skipped", len(res.Skipped),
		"canonical_tags", len(res.TagMap.Canonical()),
		"output", o.output,
	)
	return nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stderr); err != nil {
		slog.Error("postmeta failed", "error", err)
		stop()
		os.Exit(1)
	}
}
