package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override credentials and endpoints from the
// config file.
const (
	EnvBearerToken  = "STREAMTALLY_BEARER_TOKEN"
	EnvMongoURI     = "STREAMTALLY_MONGO_URI"
	EnvPostgresDSN  = "STREAMTALLY_POSTGRES_DSN"
	EnvRedisAddr    = "STREAMTALLY_REDIS_ADDR"
	EnvKafkaBrokers = "STREAMTALLY_KAFKA_BROKERS"
)

// LoadDotEnv reads a .env file from the working directory into the process
// environment. Variables already set are left alone; a missing file is not
// an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// ApplyEnv overrides cfg with any STREAMTALLY_* variables that are set.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvBearerToken); v != "" {
		cfg.Stream.BearerToken = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		cfg.Storage.MongoURI = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Kafka.Brokers = brokers
	}
}
