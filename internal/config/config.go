package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Secret           string
	HTTPPort         string
	DatabaseDriver   string
	DatabaseDSN      string
	RedisAddr        string
	KafkaBrokers     []string
	KafkaTopic       string
	CommitTimeout    time.Duration
	ShutdownTimeout  time.Duration
	ExpiryWindowDays int
	LowStockLimit    int
	SeedCSV          string
	LogLevel         string
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("invalid %s value %q, defaulting to %d", key, v, def)
		return def
	}
	return n
}

func durenv(key string, def time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid %s value %q, defaulting to %s", key, v, def)
		return def
	}
	return d
}

func listenv(key string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads an optional .env file and then the environment, falling back to
// reasonable defaults.
func Load() Config {
	_ = godotenv.Load()

	port := getenv("HTTP_PORT", "8080")
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	driver := getenv("DATABASE_DRIVER", "sqlite")
	if driver != "sqlite" && driver != "pgx" {
		log.Printf("unknown DATABASE_DRIVER %q, defaulting to sqlite", driver)
		driver = "sqlite"
	}

	return Config{
		Secret:           getenv("SECRET", "dev_secret"),
		HTTPPort:         port,
		DatabaseDriver:   driver,
		DatabaseDSN:      getenv("DATABASE_DSN", "file:medeasy.db"),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		KafkaBrokers:     listenv("KAFKA_BROKERS"),
		KafkaTopic:       getenv("KAFKA_TOPIC", "pos.sales"),
		CommitTimeout:    durenv("COMMIT_TIMEOUT", 10*time.Second),
		ShutdownTimeout:  durenv("SHUTDOWN_TIMEOUT", 10*time.Second),
		ExpiryWindowDays: atoienv("EXPIRY_WINDOW_DAYS", 30),
		LowStockLimit:    atoienv("LOW_STOCK_LIMIT", 5),
		SeedCSV:          getenv("SEED_CSV", ""),
		LogLevel:         getenv("LOG_LEVEL", "info"),
	}
}
