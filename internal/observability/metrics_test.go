package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RecordsRead.WithLabelValues("PA").Add(3)
	a.ClimateCache.WithLabelValues("hit").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(a.RecordsRead.WithLabelValues("PA")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RecordsRead.WithLabelValues("PA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ClimateCache.WithLabelValues("hit")))
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.RecordsRead))
	require.NoError(t, reg.Register(m.RegionDuration))
	require.NoError(t, reg.Register(m.ClimateEnabled))

	m.RegionDuration.WithLabelValues("AC").Observe(1.2)
	m.ClimateEnabled.Set(1)

	count, err := testutil.GatherAndCount(reg, "wildfire_etl_region_duration_seconds", "wildfire_etl_climate_enabled")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
