package config

import "time"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Stream: StreamConfig{
			Provider:       "http",
			URL:            "https://stream.example.com/2/posts/filter",
			Track:          []string{},
			BearerToken:    "",
			ConnectTimeout: 30 * time.Second,
			File:           "",
		},
		Kafka: KafkaConfig{
			Brokers: []string{},
			Topic:   "posts",
			GroupID: "streamtally",
		},
		Ingest: IngestConfig{
			InsertTimeout: 5 * time.Second,
			MaxInsertRate: 0,
			RequireMatch:  false,
			SummaryPath:   "~/.config/streamtally/last_session.json",
		},
		Storage: StorageConfig{
			Backend:           "sqlite",
			Path:              "~/.config/streamtally",
			SQLiteFile:        "streamtally.db",
			SQLiteJournalMode: "wal",
			MongoURI:          "mongodb://localhost:27017",
			MongoDatabase:     "lab1",
			MongoCollection:   "posts",
			PostgresDSN:       "",
			RedisAddr:         "localhost:6379",
			RedisDB:           0,
			RedisStream:       "streamtally:events",
			ConnectTimeout:    10 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Report: ReportConfig{
			Top: 15,
		},
	}
}
