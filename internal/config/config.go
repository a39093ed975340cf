package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Port         string
	DBPath       string
	BoroughsPath string
	StationsPath string
	JWTSecret    string

	GQLEndpoint  string
	BixiCookie   string
	FetchTimeout time.Duration

	FetchBaseBackoff time.Duration
	FetchMaxAttempts int
}

// Load reads configuration from the environment, with a .env file as
// fallback.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		Port:             getEnv("PORT", ":8080"),
		DBPath:           getEnv("DB_PATH", "./data/monbixi.db"),
		BoroughsPath:     getEnv("BOROUGHS_PATH", "./data/arrondissements.json"),
		StationsPath:     getEnv("STATIONS_PATH", "./data/stations.json"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		GQLEndpoint:      getEnv("GQL_ENDPOINT", "https://secure.bixi.com/bikesharefe-gql"),
		BixiCookie:       getEnv("BIXI_COOKIE", ""),
		FetchTimeout:     time.Duration(getEnvInt("RIDE_FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		FetchBaseBackoff: time.Duration(getEnvInt("RIDE_FETCH_BASE_BACKOFF_MS", 500)) * time.Millisecond,
		FetchMaxAttempts: getEnvInt("RIDE_FETCH_MAX_ATTEMPTS", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
