package fs

import (
	"archive/zip"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var para = region.Region{Name: "PARA", Code: "PA"}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	return New(base, filepath.Join(base, "focos"), slog.New(slog.NewTextHandler(io.Discard, nil))), base
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestExtractArchives(t *testing.T) {
	s, base := newTestStore(t)
	dir := filepath.Join(base, "PA")
	writeZip(t, filepath.Join(dir, "focos_br_pa_ref_2023.zip"), map[string]string{
		"export/nested/focos_br_pa_ref_2023.csv": "estado,municipio\nPARÁ,ALTAMIRA\n",
		"export/readme.txt":                      "ignored",
	})
	writeZip(t, filepath.Join(dir, "sub", "focos_br_pa_ref_2024.zip"), map[string]string{
		"focos_br_pa_ref_2024.csv": "estado,municipio\nPARÁ,ITAITUBA\n",
	})

	n, err := s.ExtractArchives(para)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"focos_br_pa_ref_2023.csv", "focos_br_pa_ref_2024.csv"}, names)
}

func TestExtractArchives_MissingRegionDir(t *testing.T) {
	s, _ := newTestStore(t)
	n, err := s.ExtractArchives(para)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExtractArchives_CorruptArchive(t *testing.T) {
	s, base := newTestStore(t)
	writeFile(t, filepath.Join(base, "PA", "broken.zip"), "not a zip")

	_, err := s.ExtractArchives(para)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.zip")
}

func TestReferenceSources(t *testing.T) {
	s, base := newTestStore(t)
	dir := filepath.Join(base, "PA")
	writeFile(t, filepath.Join(dir, "focos_br_pa_ref_2024.csv"), "estado,municipio\nPARÁ,B\n")
	writeFile(t, filepath.Join(dir, "focos_br_pa_ref_2023.csv"), "estado,municipio\nPARÁ,A\n")
	writeFile(t, filepath.Join(dir, "focos_br_pa_ref_2019.csv"), "estado,municipio\nPARÁ,OLD\n")
	writeFile(t, filepath.Join(dir, DatasetFile), "lat,lon\n")

	sources, err := s.ReferenceSources(para, []int{2023, 2024})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "focos_br_pa_ref_2023.csv", sources[0].Name)
	assert.Equal(t, "focos_br_pa_ref_2024.csv", sources[1].Name)

	body, err := io.ReadAll(sources[0].Reader)
	require.NoError(t, err)
	assert.Contains(t, string(body), "PARÁ,A")
}

func TestReferenceSources_MissingDir(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.ReferenceSources(para, []int{2023})
	require.Error(t, err)
}

func TestLoadHotspots(t *testing.T) {
	s, base := newTestStore(t)
	writeFile(t, filepath.Join(base, "focos", "focos_2023.csv"),
		"bioma,estado,municipio,precipitacao\nAmazônia,PARÁ,ALTAMIRA,0.4\nCerrado,TOCANTINS,PALMAS,1\n")
	writeFile(t, filepath.Join(base, "focos", "focos_2024.csv"),
		"bioma,estado,municipio,numero_dias_sem_chuva\nAmazônia,ACRE,FEIJÓ,3\n")

	table, ok, err := s.LoadHotspots()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"bioma", "estado", "municipio", "precipitacao", "numero_dias_sem_chuva"}, table.Columns)
}

func TestLoadHotspots_NoDirectory(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok, err := s.LoadHotspots()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteDatasetAndFeatures(t *testing.T) {
	s, base := newTestStore(t)
	table := domain.Table{
		Columns: []string{"lat", "lon", "target"},
		Rows:    []map[string]string{{"lat": "-3.2", "lon": "-52.2", "target": "fire"}},
	}

	path, err := s.WriteDataset(para, table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "PA", DatasetFile), path)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lat,lon,target\n-3.2,-52.2,fire\n", string(body))

	path, err = s.WriteFeatures(para, table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "PA", FeaturesFile), path)

	entries, err := os.ReadDir(filepath.Join(base, "PA"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}
