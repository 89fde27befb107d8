package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/streamtally/internal/config"
	"github.com/runnerr0/streamtally/internal/doc"
	"github.com/runnerr0/streamtally/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// parseOnly parses args without executing the matched command.
func parseOnly(args ...string) (*GlobalFlags, *commands, error) {
	parser, globals, cmds := buildParser("test")
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := parser.ParseArgs(args)
	return globals, cmds, err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns defaults pointed at a temp directory with an in-memory
// backend.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Stream.Track = []string{"#golang", "#gopher"}
	cfg.Storage.Backend = "memory"
	cfg.Storage.Path = dir
	cfg.Ingest.SummaryPath = filepath.Join(dir, "last_session.json")
	return cfg
}

// writeConfigFile writes a YAML config using the memory backend and returns
// its path.
func writeConfigFile(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	body := "storage:\n  backend: memory\n  path: " + dir + "\n" +
		"ingest:\n  summary_path: " + filepath.Join(dir, "last_session.json") + "\n" +
		strings.Join(extra, "\n") + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// seedStore returns a memory store holding payloads.
func seedStore(t *testing.T, payloads ...string) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for _, p := range payloads {
		d, err := doc.DecodeObject([]byte(p))
		require.NoError(t, err)
		require.NoError(t, store.Insert(ctx, storage.NewEvent([]byte(p), d)))
	}
	return store
}

// samplePosts covers every content type, two places and mixed hashtags.
var samplePosts = []string{
	`{"id":1,"lang":"en","entities":{"hashtags":[{"text":"golang"},{"text":"Gopher"}],"user_mentions":[{"screen_name":"rob"}]},"place":{"country":"Ukraine"}}`,
	`{"id":2,"lang":"en","entities":{"hashtags":[{"text":"GoLang"}],"user_mentions":[]},"retweeted_status":{"id":1}}`,
	`{"id":3,"lang":"uk","entities":{"hashtags":[{"text":"golang"},{"text":"kyiv"}],"user_mentions":[{"screen_name":"ken"}]},"place":{"country":"Ukraine"},"is_quote_status":true}`,
	`{"id":4,"lang":"es","entities":{"hashtags":[],"user_mentions":[{"screen_name":"rob"}]},"in_reply_to_status_id":3}`,
	`{"id":5,"entities":{"hashtags":[{"text":"rust"}]},"place":{"country":"Spain"},"is_quote_status":null}`,
}
