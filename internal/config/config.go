package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from the environment with an
// optional .env file for local development.
type Config struct {
	Mode     string // "dev" | "prod"
	HTTPAddr string

	// Relational payload store.
	RelationalDriver string // "postgres" | "mysql"
	SQLHost          string
	SQLPort          int
	SQLUser          string
	SQLPassword      string
	SQLDatabase      string
	SQLSSLMode       string

	// Document payload store.
	MongoURI      string
	MongoDatabase string

	// Catalog store.
	CatalogPath string

	// Optional read-through cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTLSec   int

	// Staging watcher.
	StagingDir string
	SweepCron  string
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Mode:             getEnv("APP_MODE", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		RelationalDriver: getEnv("RELATIONAL_DRIVER", "postgres"),
		SQLHost:          getEnv("SQL_HOST", "localhost"),
		SQLUser:          getEnv("SQL_USER", "datalake"),
		SQLPassword:      getEnv("SQL_PASSWORD", ""),
		SQLDatabase:      getEnv("SQL_DATABASE", "datalake"),
		SQLSSLMode:       getEnv("SQL_SSLMODE", "disable"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "datalake"),
		CatalogPath:      getEnv("CATALOG_PATH", "data/catalog.db"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		StagingDir:       getEnv("STAGING_DIR", ""),
		SweepCron:        getEnv("SWEEP_CRON", "@every 5m"),
	}

	var err error
	if cfg.SQLPort, err = getEnvInt("SQL_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CacheTTLSec, err = getEnvInt("CACHE_TTL_SEC", 60); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
