package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Summary records one ingest session.
type Summary struct {
	SessionID  string    `json:"session_id"`
	Provider   string    `json:"provider"`
	Track      []string  `json:"track"`
	Backend    string    `json:"backend"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Stats      Stats     `json:"stats"`
	FinalState State     `json:"final_state"`
	Error      string    `json:"error,omitempty"`
}

// NewSummary starts a summary for a session beginning now.
func NewSummary(provider, backend string, track []string) *Summary {
	return &Summary{
		SessionID: uuid.NewString(),
		Provider:  provider,
		Track:     track,
		Backend:   backend,
		StartedAt: time.Now().UTC(),
	}
}

// Finish copies the listener's final counters and state.
func (s *Summary) Finish(l *Listener, runErr error) {
	s.FinishedAt = time.Now().UTC()
	s.Stats = l.Stats()
	s.FinalState = l.State()
	if runErr != nil {
		s.Error = runErr.Error()
	}
}

// Duration is the session's wall-clock length.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SaveSummary writes s as indented JSON, creating parent directories.
func SaveSummary(path string, s *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create summary directory: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}

// LoadSummary reads a summary written by SaveSummary.
func LoadSummary(path string) (*Summary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", path, err)
	}
	return &s, nil
}
