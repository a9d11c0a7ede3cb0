package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDataset_NoGapsScenario(t *testing.T) {
	records := []Occurrence{
		onDay(0, 0, 1),
		onDay(0, 0.001, 2),
		onDay(10, 10, 3),
	}

	ds, err := BuildDataset(records, DefaultClusterOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Positives)
	assert.Equal(t, 0, ds.Synthetic)
	assert.Equal(t, 2, ds.Clusters)
	assert.Len(t, ds.Records, 3)
	assert.Equal(t, records, ds.Records)
}

func TestBuildDataset_LargerGapScenario(t *testing.T) {
	records := []Occurrence{onDay(-9, -63, 1), onDay(-9, -63, 5)}

	ds, err := BuildDataset(records, DefaultClusterOptions())
	require.NoError(t, err)
	require.Len(t, ds.Records, 5)
	assert.Equal(t, 2, ds.Positives)
	assert.Equal(t, 3, ds.Synthetic)

	assert.Equal(t, records, ds.Records[:2], "originals come first, unchanged")
	for i, r := range ds.Records[2:] {
		assert.Equal(t, LabelNoFire, r.Label)
		assert.Equal(t, day0.AddDate(0, 0, i+1), r.ObservedAt)
		assert.Equal(t, -9.0, r.Lat)
		assert.Equal(t, -63.0, r.Lon)
	}
}

func TestBuildDataset_Empty(t *testing.T) {
	ds, err := BuildDataset(nil, DefaultClusterOptions())
	require.NoError(t, err)
	assert.Empty(t, ds.Records)
	assert.Equal(t, 0, ds.Clusters)
}

func TestBuildDataset_PropagatesValidation(t *testing.T) {
	opts := DefaultClusterOptions()
	opts.ThresholdKm = -1
	_, err := BuildDataset([]Occurrence{onDay(0, 0, 1)}, opts)
	require.ErrorIs(t, err, ErrInvalidThreshold)
	assert.Contains(t, err.Error(), "cluster occurrences")
}

func TestDataset_Table(t *testing.T) {
	fire := onDay(-3.5, -52.25, 1)
	rain := 2.5
	fire.Precipitation = &rain
	fire.Extra = map[string]string{"foco_id": "x9"}

	ds, err := BuildDataset([]Occurrence{fire, onDay(-3.5, -52.25, 3)}, DefaultClusterOptions())
	require.NoError(t, err)

	table := ds.Table([]string{"foco_id", ColLat, ColLon, ColObservedAt})
	assert.Equal(t, []string{"foco_id", ColLat, ColLon, ColObservedAt, ColState, ColMunicipality, ColLabel, ColPrecipitation}, table.Columns)
	require.Equal(t, 3, table.Len())

	assert.Equal(t, "x9", table.Rows[0]["foco_id"])
	assert.Equal(t, "-3.5", table.Rows[0][ColLat])
	assert.Equal(t, "2023-08-01 00:00:00", table.Rows[0][ColObservedAt])
	assert.Equal(t, "fire", table.Rows[0][ColLabel])
	assert.Equal(t, "2.5", table.Rows[0][ColPrecipitation])

	absence := table.Rows[2]
	assert.Equal(t, "no-fire", absence[ColLabel])
	assert.Equal(t, "2023-08-02 00:00:00", absence[ColObservedAt])
	assert.Empty(t, absence[ColState])
	assert.Empty(t, absence[ColMunicipality])
	assert.Empty(t, absence[ColPrecipitation])
	assert.Empty(t, absence["foco_id"])
}
