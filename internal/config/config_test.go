package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBearerToken, EnvMongoURI, EnvPostgresDSN, EnvRedisAddr, EnvKafkaBrokers} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http", cfg.Stream.Provider)
	assert.Empty(t, cfg.Stream.Track)
	assert.Equal(t, 30*time.Second, cfg.Stream.ConnectTimeout)
	assert.Equal(t, "posts", cfg.Kafka.Topic)
	assert.Equal(t, "streamtally", cfg.Kafka.GroupID)
	assert.Equal(t, 5*time.Second, cfg.Ingest.InsertTimeout)
	assert.Zero(t, cfg.Ingest.MaxInsertRate)
	assert.False(t, cfg.Ingest.RequireMatch)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "~/.config/streamtally", cfg.Storage.Path)
	assert.Equal(t, "streamtally.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "wal", cfg.Storage.SQLiteJournalMode)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.MongoURI)
	assert.Equal(t, "lab1", cfg.Storage.MongoDatabase)
	assert.Equal(t, "posts", cfg.Storage.MongoCollection)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, "streamtally:events", cfg.Storage.RedisStream)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 15, cfg.Report.Top)
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
stream:
  provider: "file"
  file: "/tmp/posts.ndjson"
  track: ["#Ukraine", "russia"]
  connect_timeout: 2m
ingest:
  insert_timeout: 750ms
  require_match: true
storage:
  backend: "mongo"
logging:
  level: "debug"
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "file", cfg.Stream.Provider)
	assert.Equal(t, "/tmp/posts.ndjson", cfg.Stream.File)
	assert.Equal(t, []string{"#Ukraine", "russia"}, cfg.Stream.Track)
	assert.Equal(t, 2*time.Minute, cfg.Stream.ConnectTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.Ingest.InsertTimeout)
	assert.True(t, cfg.Ingest.RequireMatch)
	assert.Equal(t, "mongo", cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Non-overridden values remain defaults
	assert.Equal(t, "lab1", cfg.Storage.MongoDatabase)
	assert.Equal(t, 15, cfg.Report.Top)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte(":::not valid yaml{{{"), 0644)
	require.NoError(t, err)

	_, err = Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	assert.Error(t, err)
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "deep", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Ingest.InsertTimeout)

	// File should now exist on disk
	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	// Durations must survive the round trip
	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Ingest.InsertTimeout, cfg2.Ingest.InsertTimeout)
	assert.Equal(t, cfg.Stream.ConnectTimeout, cfg2.Stream.ConnectTimeout)
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte("report:\n  top: 7\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Report.Top)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestEnvOverridesFileValues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
stream:
  bearer_token: "from-file"
storage:
  mongo_uri: "mongodb://file:27017"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0644))

	t.Setenv(EnvBearerToken, "from-env")
	t.Setenv(EnvMongoURI, "mongodb://env:27017")
	t.Setenv(EnvPostgresDSN, "postgres://u@db/streamtally")
	t.Setenv(EnvRedisAddr, "cache:6380")
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092,")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Stream.BearerToken)
	assert.Equal(t, "mongodb://env:27017", cfg.Storage.MongoURI)
	assert.Equal(t, "postgres://u@db/streamtally", cfg.Storage.PostgresDSN)
	assert.Equal(t, "cache:6380", cfg.Storage.RedisAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/.config/streamtally")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/streamtally"), got)

	got, err = ExpandPath("/var/lib/streamtally")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/streamtally", got)
}

func TestSQLitePath(t *testing.T) {
	s := StorageConfig{Path: "/data", SQLiteFile: "events.db"}
	got, err := s.SQLitePath()
	require.NoError(t, err)
	assert.Equal(t, "/data/events.db", got)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Backend = "cassandra"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestValidateIngest(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ValidateIngest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream.track")

	cfg.Stream.Track = []string{"ukraine"}
	assert.NoError(t, cfg.ValidateIngest())

	cfg.Stream.Provider = "carrier-pigeon"
	assert.Error(t, cfg.ValidateIngest())

	cfg.Stream.Provider = "kafka"
	err = cfg.ValidateIngest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokers")

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.ValidateIngest())

	cfg.Stream.Provider = "file"
	assert.Error(t, cfg.ValidateIngest())
}
