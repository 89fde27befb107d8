package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/streamtally/config.yaml"

// Config holds all streamtally configuration.
type Config struct {
	Stream  StreamConfig  `yaml:"stream"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	Report  ReportConfig  `yaml:"report"`
}

type StreamConfig struct {
	Provider       string        `yaml:"provider"`
	URL            string        `yaml:"url"`
	Track          []string      `yaml:"track"`
	BearerToken    string        `yaml:"bearer_token"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	File           string        `yaml:"file"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type IngestConfig struct {
	InsertTimeout time.Duration `yaml:"insert_timeout"`
	MaxInsertRate float64       `yaml:"max_insert_rate"`
	RequireMatch  bool          `yaml:"require_match"`
	SummaryPath   string        `yaml:"summary_path"`
}

type StorageConfig struct {
	Backend           string `yaml:"backend"`
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`

	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`

	PostgresDSN string `yaml:"postgres_dsn"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisStream   string `yaml:"redis_stream"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ReportConfig struct {
	Top int `yaml:"top"`
}

// Known provider and backend names.
var (
	Providers = []string{"http", "kafka", "file"}
	Backends  = []string{"sqlite", "mongo", "postgres", "redis", "memory"}
)

// Load reads a YAML config file at path and merges it with defaults, then
// applies environment overrides.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	ApplyEnv(cfg)
	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		ApplyEnv(cfg)
		return cfg, nil
	}

	return Load(path)
}

// SQLitePath returns the expanded location of the SQLite database file.
func (s StorageConfig) SQLitePath() (string, error) {
	dir, err := ExpandPath(s.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, s.SQLiteFile), nil
}

// Validate checks the settings needed by every command. Ingest-only
// requirements are checked by ValidateIngest.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.Storage.Backend, Backends) {
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q (want one of %s)",
			c.Storage.Backend, strings.Join(Backends, ", ")))
	}
	if c.Report.Top < 0 {
		errs = append(errs, fmt.Errorf("report.top: must not be negative"))
	}
	if c.Ingest.MaxInsertRate < 0 {
		errs = append(errs, fmt.Errorf("ingest.max_insert_rate: must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateIngest checks the stream section on top of Validate.
func (c *Config) ValidateIngest() error {
	errs := []error{c.Validate()}
	if !oneOf(c.Stream.Provider, Providers) {
		errs = append(errs, fmt.Errorf("stream.provider: unknown provider %q (want one of %s)",
			c.Stream.Provider, strings.Join(Providers, ", ")))
	}
	if len(c.Stream.Track) == 0 {
		errs = append(errs, errors.New("stream.track: at least one hashtag is required"))
	}
	switch c.Stream.Provider {
	case "http":
		if c.Stream.URL == "" {
			errs = append(errs, errors.New("stream.url: required for the http provider"))
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka: brokers and topic are required for the kafka provider"))
		}
	case "file":
		if c.Stream.File == "" {
			errs = append(errs, errors.New("stream.file: required for the file provider"))
		}
	}
	return errors.Join(errs...)
}

func oneOf(s string, names []string) bool {
	for _, n := range names {
		if s == n {
			return true
		}
	}
	return false
}
