package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/streamtally/internal/config"
	"github.com/runnerr0/streamtally/internal/ingest"
	"github.com/runnerr0/streamtally/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version       string          `json:"version"`
	Backend       string          `json:"backend"`
	DatabasePath  string          `json:"database_path,omitempty"`
	DatabaseBytes int64           `json:"database_size_bytes,omitempty"`
	TotalEvents   int64           `json:"total_events"`
	Track         []string        `json:"track"`
	LastSession   *ingest.Summary `json:"last_session,omitempty"`
}

// sizer is implemented by stores that can report their on-disk size.
type sizer interface {
	Size(ctx context.Context) int64
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	return c.executeWithStore(ctx, cfg, store)
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store) error {
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}

	out := statusJSON{
		Version:     c.version,
		Backend:     cfg.Storage.Backend,
		TotalEvents: count,
		Track:       cfg.Stream.Track,
	}
	if s, ok := store.(sizer); ok {
		out.DatabaseBytes = s.Size(ctx)
		if path, err := cfg.Storage.SQLitePath(); err == nil {
			out.DatabasePath = path
		}
	}

	if cfg.Ingest.SummaryPath != "" {
		path, err := config.ExpandPath(cfg.Ingest.SummaryPath)
		if err != nil {
			return err
		}
		last, err := ingest.LoadSummary(path)
		switch {
		case err == nil:
			out.LastSession = last
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("read last session: %w", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	c.printStatusHuman(out)
	return nil
}

func (c *StatusCommand) printStatusHuman(s statusJSON) {
	fmt.Println("Streamtally Status")
	fmt.Println("==================")
	fmt.Printf("Version:       %s\n", s.Version)
	if s.DatabasePath != "" {
		fmt.Printf("Backend:       %s (%s, %s)\n", s.Backend, s.DatabasePath, formatBytes(s.DatabaseBytes))
	} else {
		fmt.Printf("Backend:       %s\n", s.Backend)
	}
	fmt.Printf("Events:        %s\n", formatNumber(s.TotalEvents))
	if len(s.Track) > 0 {
		fmt.Printf("Track:         %s\n", strings.Join(s.Track, ", "))
	}

	fmt.Println()
	last := s.LastSession
	if last == nil {
		fmt.Println("Last session:  none")
		return
	}
	fmt.Printf("Last session:  %s\n", last.SessionID)
	fmt.Printf("  Started:     %s\n", last.StartedAt.Local().Format(time.DateTime))
	fmt.Printf("  Duration:    %s\n", formatDurationHuman(last.Duration()))
	fmt.Printf("  Provider:    %s\n", last.Provider)
	fmt.Printf("  Stored:      %s of %s received\n", formatNumber(last.Stats.Accepted), formatNumber(last.Stats.Received))
	fmt.Printf("  Final state: %s\n", last.FinalState)
	if last.Error != "" {
		fmt.Printf("  Error:       %s\n", last.Error)
	}
}
