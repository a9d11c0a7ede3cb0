package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/region"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir      string
	FocosDir     string
	Regions      []region.Region
	DatasetYears []int

	ClusterDistanceKm   float64
	ClusterStrategy     domain.Strategy
	PipelineConcurrency int
	FailFast            bool

	HTTPAddr           string
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	LedgerPath         string

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	// meteoblue climate forecast configuration.
	MeteoblueAPIKey       string
	MeteoblueSharedSecret string
	MeteoblueEnabled      bool
	MeteoblueBaseURL      string
	MeteoblueTimeout      time.Duration
	MeteoblueCacheSize    int
	MeteoblueCacheTTL     time.Duration
}

// ClusterOptions builds the clusterer settings.
func (c *Config) ClusterOptions() domain.ClusterOptions {
	opts := domain.DefaultClusterOptions()
	opts.ThresholdKm = c.ClusterDistanceKm
	opts.Strategy = c.ClusterStrategy
	return opts
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	regions, err := region.Parse(splitList(os.Getenv("REGIONS")))
	if err != nil {
		return nil, fmt.Errorf("invalid REGIONS: %w", err)
	}

	years, err := parseYears(sharedcfg.EnvOrDefault("DATASET_YEARS", "2023,2024"))
	if err != nil {
		return nil, err
	}

	distance, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("CLUSTER_DISTANCE_KM", "100"), 64)
	if err != nil || distance <= 0 || math.IsInf(distance, 0) || math.IsNaN(distance) {
		return nil, errors.New("invalid CLUSTER_DISTANCE_KM: must be a positive number")
	}

	strategy, err := domain.ParseStrategy(sharedcfg.EnvOrDefault("CLUSTER_STRATEGY", string(domain.StrategyConnected)))
	if err != nil {
		return nil, fmt.Errorf("invalid CLUSTER_STRATEGY: %w", err)
	}

	concurrency, err := strconv.Atoi(sharedcfg.EnvOrDefault("PIPELINE_CONCURRENCY", "1"))
	if err != nil || concurrency < 1 || concurrency > len(region.All()) {
		return nil, fmt.Errorf("invalid PIPELINE_CONCURRENCY: must be 1-%d", len(region.All()))
	}

	failFast, err := parseBool("FAIL_FAST", true)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	meteoblueTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("METEOBLUE_TIMEOUT", "5s"))
	if err != nil || meteoblueTimeout <= 0 {
		return nil, errors.New("invalid METEOBLUE_TIMEOUT")
	}

	cacheTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("METEOBLUE_CACHE_TTL", "1h"))
	if err != nil || cacheTTL <= 0 {
		return nil, errors.New("invalid METEOBLUE_CACHE_TTL")
	}

	apiKey := os.Getenv("METEOBLUE_API_KEY")
	meteoblueEnabled := apiKey != ""
	if v := os.Getenv("METEOBLUE_ENABLED"); v != "" {
		meteoblueEnabled = v == "true"
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "dados")

	cfg := &Config{
		DataDir:      dataDir,
		FocosDir:     sharedcfg.EnvOrDefault("FOCOS_DIR", filepath.Join(dataDir, "focos")),
		Regions:      regions,
		DatasetYears: years,

		ClusterDistanceKm:   distance,
		ClusterStrategy:     strategy,
		PipelineConcurrency: concurrency,
		FailFast:            failFast,

		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		LedgerPath:         sharedcfg.EnvOrDefault("LEDGER_PATH", "wildfire.db"),

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "wildfire-training-data"),

		MeteoblueAPIKey:       apiKey,
		MeteoblueSharedSecret: os.Getenv("METEOBLUE_SHARED_SECRET"),
		MeteoblueEnabled:      meteoblueEnabled,
		MeteoblueBaseURL:      strings.TrimRight(sharedcfg.EnvOrDefault("METEOBLUE_BASE_URL", "https://my.meteoblue.com"), "/"),
		MeteoblueTimeout:      meteoblueTimeout,
		MeteoblueCacheSize:    parseCacheSize(),
		MeteoblueCacheTTL:     cacheTTL,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MeteoblueEnabled && cfg.MeteoblueAPIKey == "" {
		return nil, errors.New("METEOBLUE_ENABLED is true but METEOBLUE_API_KEY is not set")
	}
	if cfg.MeteoblueEnabled && cfg.MeteoblueSharedSecret == "" {
		return nil, errors.New("METEOBLUE_SHARED_SECRET is required to sign forecast requests")
	}

	return cfg, nil
}

func splitList(value string) []string {
	// ParseBrokers is a generic trimmed comma split.
	return sharedcfg.ParseBrokers(value)
}

func parseYears(value string) ([]int, error) {
	parts := splitList(value)
	if len(parts) == 0 {
		return nil, errors.New("DATASET_YEARS is required")
	}
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(p)
		if err != nil || y < 1900 || y > 2100 {
			return nil, fmt.Errorf("invalid DATASET_YEARS: %q is not a year", p)
		}
		years = append(years, y)
	}
	return years, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("METEOBLUE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
