package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is everything the process reads from the environment.
type Config struct {
	StateTable       string
	ParamPrefix      string
	DBDriver         string
	DBDSN            string
	AutoMigrate      bool
	ContextTTL       time.Duration
	MaxContextItems  int
	MaxMessageLength int
	ClassifyTimeout  time.Duration
	CatalogTTL       time.Duration
	ParamCacheTTL    time.Duration
	ShareBaseURL     string
	LogMode          string
	AWSMaxAttempts   int
}

// FromEnv reads the configuration. Missing required variables are reported
// together.
func FromEnv() (Config, error) {
	var errs []error
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("required environment variable %s is not set", key))
		}
		return v
	}
	cfg := Config{
		StateTable:       required("STATE_TABLE"),
		ParamPrefix:      required("PARAM_PREFIX"),
		DBDriver:         envString("DB_DRIVER", "postgres"),
		DBDSN:            strings.TrimSpace(os.Getenv("DB_DSN")),
		AutoMigrate:      envBool("DB_AUTO_MIGRATE", false),
		ContextTTL:       envDuration("CONTEXT_TTL", time.Hour),
		MaxContextItems:  envInt("MAX_CONTEXT_ITEMS", 12),
		MaxMessageLength: envInt("MAX_MESSAGE_LENGTH", 1000),
		ClassifyTimeout:  envDuration("CLASSIFY_TIMEOUT", 25*time.Second),
		CatalogTTL:       envDuration("CATALOG_TTL", 5*time.Minute),
		ParamCacheTTL:    envDuration("PARAM_CACHE_TTL", 5*time.Minute),
		ShareBaseURL:     envString("SHARE_BASE_URL", "https://example.com"),
		LogMode:          envString("LOG_MODE", "prod"),
		AWSMaxAttempts:   envInt("AWS_MAX_ATTEMPTS", 3),
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}
