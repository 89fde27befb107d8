package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runnerr0/streamtally/internal/config"
	"github.com/runnerr0/streamtally/internal/filter"
	"github.com/runnerr0/streamtally/internal/ingest"
	"github.com/runnerr0/streamtally/internal/storage"
	"github.com/runnerr0/streamtally/internal/stream"
)

const progressInterval = 30 * time.Second

// Execute implements the go-flags Commander interface for IngestCommand.
func (c *IngestCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	c.applyFlags(cfg)
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}
	logger := newLogger(cfg, c.globals)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Duration != "" {
		d, err := parseDuration(c.Duration)
		if err != nil {
			return err
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	store := c.store
	if store == nil {
		store, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()
	}

	provider := c.provider
	if provider == nil {
		provider, err = newProvider(cfg, logger)
		if err != nil {
			return err
		}
	}

	return c.executeWithStore(ctx, cfg, store, provider, logger)
}

// applyFlags lets command-line flags win over the config file.
func (c *IngestCommand) applyFlags(cfg *config.Config) {
	if c.Provider != "" {
		cfg.Stream.Provider = c.Provider
	}
	if len(c.Track) > 0 {
		cfg.Stream.Track = c.Track
	}
	if c.File != "" {
		cfg.Stream.File = c.File
		if c.Provider == "" {
			cfg.Stream.Provider = "file"
		}
	}
	if c.MetricsAddr != "" {
		cfg.Metrics.Addr = c.MetricsAddr
	}
}

func newProvider(cfg *config.Config, logger *slog.Logger) (stream.Provider, error) {
	switch cfg.Stream.Provider {
	case "http":
		return &stream.HTTPProvider{
			URL:            cfg.Stream.URL,
			BearerToken:    cfg.Stream.BearerToken,
			ConnectTimeout: cfg.Stream.ConnectTimeout,
			Client:         &http.Client{},
			Logger:         logger,
		}, nil
	case "kafka":
		return &stream.KafkaProvider{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
			Logger:  logger,
		}, nil
	case "file":
		return &stream.FileProvider{Path: cfg.Stream.File}, nil
	default:
		return nil, fmt.Errorf("unknown stream provider %q", cfg.Stream.Provider)
	}
}

// executeWithStore runs one ingest session against the given store and
// provider (for testing).
func (c *IngestCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store, provider stream.Provider, logger *slog.Logger) error {
	filters, err := filter.New(cfg.Stream.Track)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := ingest.NewMetrics(reg)
	if cfg.Metrics.Addr != "" {
		srv, err := newMetricsServer(cfg.Metrics.Addr, reg)
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		srv.Serve(logger)
		logger.Info("serving metrics", "addr", srv.Addr())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	listener, err := ingest.New(filters, store,
		ingest.WithInsertTimeout(cfg.Ingest.InsertTimeout),
		ingest.WithMaxInsertRate(cfg.Ingest.MaxInsertRate),
		ingest.WithRequireMatch(cfg.Ingest.RequireMatch),
		ingest.WithLogger(logger),
		ingest.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	summary := ingest.NewSummary(provider.Name(), cfg.Storage.Backend, filters.Track())

	done := make(chan struct{})
	go logProgress(done, listener, logger)
	runErr := listener.Run(ctx, provider)
	close(done)

	summary.Finish(listener, runErr)
	if cfg.Ingest.SummaryPath != "" {
		path, err := config.ExpandPath(cfg.Ingest.SummaryPath)
		if err == nil {
			err = ingest.SaveSummary(path, summary)
		}
		if err != nil {
			logger.Warn("could not save session summary", "error", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printSummary(summary)
	}
	return runErr
}

func logProgress(done <-chan struct{}, l *ingest.Listener, logger *slog.Logger) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s := l.Stats()
			logger.Info("progress",
				"state", l.State().String(),
				"received", s.Received,
				"stored", s.Accepted,
				"decode_failed", s.DecodeFailed,
				"storage_failed", s.StorageFailed,
			)
		}
	}
}

func printSummary(s *ingest.Summary) {
	fmt.Println("Ingest Session")
	fmt.Println("==============")
	fmt.Printf("Session:        %s\n", s.SessionID)
	fmt.Printf("Provider:       %s\n", s.Provider)
	fmt.Printf("Track:          %s\n", strings.Join(s.Track, ", "))
	fmt.Printf("Backend:        %s\n", s.Backend)
	fmt.Printf("Duration:       %s\n", formatDurationHuman(s.Duration()))
	fmt.Println()
	fmt.Printf("Received:       %s\n", formatNumber(s.Stats.Received))
	fmt.Printf("Stored:         %s\n", formatNumber(s.Stats.Accepted))
	fmt.Printf("Decode errors:  %s\n", formatNumber(s.Stats.DecodeFailed))
	fmt.Printf("Storage errors: %s\n", formatNumber(s.Stats.StorageFailed))
	if s.Stats.Unmatched > 0 {
		fmt.Printf("Unmatched:      %s\n", formatNumber(s.Stats.Unmatched))
	}
	if s.Stats.RateLimited > 0 {
		fmt.Printf("Rate limited:   %s\n", formatNumber(s.Stats.RateLimited))
	}
	fmt.Printf("Final state:    %s\n", s.FinalState)
	if s.Error != "" {
		fmt.Printf("Error:          %s\n", s.Error)
	}
}
