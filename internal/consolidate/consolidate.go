// Package consolidate merges raw per-state exports into a single table and
// joins hotspot weather attributes onto it. It never touches the filesystem;
// callers hand it readers.
package consolidate

import (
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

// Source is one named raw export, typically a file.
type Source struct {
	Name   string
	Reader io.Reader
}

// MatchesReferenceYear reports whether a file name ends with ref_<year>.csv
// for one of the given years.
func MatchesReferenceYear(name string, years []int) bool {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	for _, y := range years {
		if strings.HasSuffix(base, fmt.Sprintf("ref_%d.csv", y)) {
			return true
		}
	}
	return false
}

// Consolidate concatenates the sources into one table. Sources lacking the
// estado or municipio column are skipped with a warning. The column list is
// the union of all headers in first-seen order.
func Consolidate(sources []Source, logger *slog.Logger) (domain.Table, error) {
	var out domain.Table
	for _, src := range sources {
		t, err := ReadCSV(src.Reader)
		if err != nil {
			return domain.Table{}, fmt.Errorf("consolidate %s: %w", src.Name, err)
		}
		if !t.HasColumns(domain.ColState, domain.ColMunicipality) {
			logger.Warn("source missing required columns, skipping",
				"source", src.Name,
				"required", []string{domain.ColState, domain.ColMunicipality},
			)
			continue
		}
		for _, c := range t.Columns {
			out.AddColumn(c)
		}
		out.Rows = append(out.Rows, t.Rows...)
		logger.Debug("source consolidated", "source", src.Name, "rows", t.Len())
	}
	return out, nil
}

// Hotspot ("focos") columns used by Enrich.
const (
	ColBiome       = "bioma"
	ColHotspotTime = "data_hora_gmt"
	AmazonBiome    = "Amazônia"
)

// FilterBiome keeps only the rows whose bioma column equals biome.
func FilterBiome(t domain.Table, biome string) domain.Table {
	out := domain.Table{Columns: t.Columns}
	for _, row := range t.Rows {
		if row[ColBiome] == biome {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Enrich left-joins hotspot rows onto the consolidated table by municipality,
// state, coordinates and timestamp, adding days-without-rain and
// precipitation. Unmatched rows get 0 for both. When several hotspot rows share
// a key the first one wins. The input table is not modified.
func Enrich(t domain.Table, hotspots domain.Table) (domain.Table, error) {
	index := make(map[string]map[string]string, len(hotspots.Rows))
	for _, h := range hotspots.Rows {
		key := joinKey(h[domain.ColMunicipality], h[domain.ColState], h[domain.ColLat], h[domain.ColLon], h[ColHotspotTime])
		if _, ok := index[key]; !ok {
			index[key] = h
		}
	}

	out := domain.Table{Columns: append([]string(nil), t.Columns...)}
	out.AddColumn(domain.ColDaysWithoutRain)
	out.AddColumn(domain.ColPrecipitation)
	out.Rows = make([]map[string]string, len(t.Rows))

	for i, row := range t.Rows {
		enriched := make(map[string]string, len(row)+2)
		for k, v := range row {
			enriched[k] = v
		}

		days, rain := "", ""
		key := joinKey(row[domain.ColMunicipality], row[domain.ColState], row[domain.ColLat], row[domain.ColLon], row[domain.ColObservedAt])
		if h, ok := index[key]; ok {
			days, rain = h[domain.ColDaysWithoutRain], h[domain.ColPrecipitation]
		}

		d, err := normalizeInt(i, domain.ColDaysWithoutRain, days)
		if err != nil {
			return domain.Table{}, err
		}
		p, err := normalizeFloat(i, domain.ColPrecipitation, rain)
		if err != nil {
			return domain.Table{}, err
		}
		enriched[domain.ColDaysWithoutRain] = d
		enriched[domain.ColPrecipitation] = p
		out.Rows[i] = enriched
	}
	return out, nil
}

// joinKey normalizes numbers and timestamps so "1.50" matches "1.5" and
// "2023-08-14T17:25:00" matches "2023-08-14 17:25:00".
func joinKey(municipality, state, lat, lon, ts string) string {
	return strings.Join([]string{
		strings.TrimSpace(municipality),
		strings.TrimSpace(state),
		canonicalFloat(lat),
		canonicalFloat(lon),
		canonicalTime(ts),
	}, "|")
}

func canonicalFloat(s string) string {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return s
}

func canonicalTime(s string) string {
	if t, err := domain.ParseTimestamp(s); err == nil {
		return t.Format(domain.TimestampLayout)
	}
	return strings.TrimSpace(s)
}

func normalizeInt(row int, field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return "0", nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", &domain.DataFormatError{Row: row, Field: field, Value: s, Err: err}
	}
	return strconv.FormatInt(int64(v), 10), nil
}

func normalizeFloat(row int, field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return "0", nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", &domain.DataFormatError{Row: row, Field: field, Value: s, Err: err}
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}
