// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string
	Storage      string // memory | sqlite | postgres
	DatabaseURL  string // postgres DSN
	SQLitePath   string
	KafkaBrokers []string // empty disables event publishing
	SeedFile     string   // optional YAML fixture; empty uses built-in defaults
	Currency     string   // default currency for seeded data
}

// Load reads .env if present, then the environment. Missing values fall back
// to defaults suitable for local development.
func Load() Config {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		Storage:     getenv("STORAGE", "memory"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getenv("SQLITE_PATH", "splitledger.db"),
		SeedFile:    os.Getenv("SEED_FILE"),
		Currency:    getenv("CURRENCY", "INR"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
