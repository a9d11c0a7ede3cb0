package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker    = "localhost:9092"
	testAPIKey       = "mb-test-key"
	testSharedSecret = "mb-shared-secret"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dados", cfg.DataDir)
	assert.Equal(t, filepath.Join("dados", "focos"), cfg.FocosDir)
	assert.Equal(t, region.All(), cfg.Regions)
	assert.Equal(t, []int{2023, 2024}, cfg.DatasetYears)
	assert.Equal(t, 100.0, cfg.ClusterDistanceKm)
	assert.Equal(t, domain.StrategyConnected, cfg.ClusterStrategy)
	assert.Equal(t, 1, cfg.PipelineConcurrency)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "wildfire.db", cfg.LedgerPath)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "wildfire-training-data", cfg.KafkaSinkTopic)
	assert.False(t, cfg.MeteoblueEnabled)
	assert.Empty(t, cfg.MeteoblueAPIKey)
	assert.Equal(t, "https://my.meteoblue.com", cfg.MeteoblueBaseURL)
	assert.Equal(t, 5*time.Second, cfg.MeteoblueTimeout)
	assert.Equal(t, 1000, cfg.MeteoblueCacheSize)
	assert.Equal(t, time.Hour, cfg.MeteoblueCacheTTL)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("FOCOS_DIR", "/srv/focos")
	t.Setenv("REGIONS", "pa, AC")
	t.Setenv("DATASET_YEARS", "2022, 2023")
	t.Setenv("CLUSTER_DISTANCE_KM", "55.287")
	t.Setenv("CLUSTER_STRATEGY", "first-touch")
	t.Setenv("PIPELINE_CONCURRENCY", "4")
	t.Setenv("FAIL_FAST", "false")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("LEDGER_PATH", "/var/lib/wildfire/ledger.db")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("METEOBLUE_API_KEY", testAPIKey)
	t.Setenv("METEOBLUE_SHARED_SECRET", testSharedSecret)
	t.Setenv("METEOBLUE_BASE_URL", "http://localhost:9999/")
	t.Setenv("METEOBLUE_TIMEOUT", "10s")
	t.Setenv("METEOBLUE_CACHE_SIZE", "500")
	t.Setenv("METEOBLUE_CACHE_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/data", cfg.DataDir)
	assert.Equal(t, "/srv/focos", cfg.FocosDir)
	assert.Equal(t, []region.Region{{Name: "PARA", Code: "PA"}, {Name: "ACRE", Code: "AC"}}, cfg.Regions)
	assert.Equal(t, []int{2022, 2023}, cfg.DatasetYears)
	assert.Equal(t, 55.287, cfg.ClusterDistanceKm)
	assert.Equal(t, domain.StrategyFirstTouch, cfg.ClusterStrategy)
	assert.Equal(t, 4, cfg.PipelineConcurrency)
	assert.False(t, cfg.FailFast)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/wildfire/ledger.db", cfg.LedgerPath)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.True(t, cfg.MeteoblueEnabled)
	assert.Equal(t, testAPIKey, cfg.MeteoblueAPIKey)
	assert.Equal(t, testSharedSecret, cfg.MeteoblueSharedSecret)
	assert.Equal(t, "http://localhost:9999", cfg.MeteoblueBaseURL)
	assert.Equal(t, 10*time.Second, cfg.MeteoblueTimeout)
	assert.Equal(t, 500, cfg.MeteoblueCacheSize)
	assert.Equal(t, 15*time.Minute, cfg.MeteoblueCacheTTL)

	opts := cfg.ClusterOptions()
	assert.Equal(t, 55.287, opts.ThresholdKm)
	assert.Equal(t, domain.StrategyFirstTouch, opts.Strategy)
	assert.InDelta(t, 0.5, opts.ToDegrees(opts.ThresholdKm), 1e-3)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"REGIONS", "PA,SP", "REGIONS"},
		{"DATASET_YEARS", "twenty", "DATASET_YEARS"},
		{"DATASET_YEARS", " , ", "DATASET_YEARS"},
		{"CLUSTER_DISTANCE_KM", "0", "CLUSTER_DISTANCE_KM"},
		{"CLUSTER_DISTANCE_KM", "-5", "CLUSTER_DISTANCE_KM"},
		{"CLUSTER_DISTANCE_KM", "NaN", "CLUSTER_DISTANCE_KM"},
		{"CLUSTER_STRATEGY", "dbscan", "CLUSTER_STRATEGY"},
		{"PIPELINE_CONCURRENCY", "0", "PIPELINE_CONCURRENCY"},
		{"PIPELINE_CONCURRENCY", "99", "PIPELINE_CONCURRENCY"},
		{"FAIL_FAST", "sometimes", "FAIL_FAST"},
		{"KAFKA_ENABLED", "yes please", "KAFKA_ENABLED"},
		{"METEOBLUE_TIMEOUT", "bad", "METEOBLUE_TIMEOUT"},
		{"METEOBLUE_CACHE_TTL", "0s", "METEOBLUE_CACHE_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MeteoblueEnabledWithoutKey(t *testing.T) {
	t.Setenv("METEOBLUE_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METEOBLUE_API_KEY")
}

func TestLoad_MeteoblueKeyWithoutSecret(t *testing.T) {
	t.Setenv("METEOBLUE_API_KEY", testAPIKey)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METEOBLUE_SHARED_SECRET")
}

func TestLoad_MeteoblueKeyImpliesEnabled(t *testing.T) {
	t.Setenv("METEOBLUE_API_KEY", testAPIKey)
	t.Setenv("METEOBLUE_SHARED_SECRET", testSharedSecret)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MeteoblueEnabled)
}

func TestLoad_MeteoblueExplicitlyDisabled(t *testing.T) {
	t.Setenv("METEOBLUE_API_KEY", testAPIKey)
	t.Setenv("METEOBLUE_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MeteoblueEnabled)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_CacheSizeFallsBack(t *testing.T) {
	t.Setenv("METEOBLUE_CACHE_SIZE", "-3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MeteoblueCacheSize)
}
