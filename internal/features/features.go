// Package features turns a labeled occurrence dataset into numeric model
// inputs: missing-value imputation, seasonal features, min-max scaling and a
// temporal train/test split.
package features

import (
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Feature column names.
const (
	ColMonth     = "month"
	ColDayOfYear = "day_of_year"
)

// Row is one model input.
type Row struct {
	Lat             float64
	Lon             float64
	Precipitation   float64
	DaysWithoutRain float64
	Month           int
	DayOfYear       int
	ObservedAt      time.Time
	Target          int // 1 fire, 0 no-fire
}

// FillMissing returns a copy of the records with missing precipitation and
// days-without-rain filled. A gap is first filled with the mean of its
// (label, municipality, day) group, then with the column mean. Records without
// a municipality skip the group step. A column with no values at all is left
// missing and reads as 0 in Extract.
func FillMissing(records []domain.Occurrence) []domain.Occurrence {
	out := slices.Clone(records)
	fillColumn(out, func(o *domain.Occurrence) **float64 { return &o.Precipitation })
	fillColumn(out, func(o *domain.Occurrence) **float64 { return &o.DaysWithoutRain })
	return out
}

type groupKey struct {
	label        domain.Label
	municipality string
	day          string
}

func fillColumn(records []domain.Occurrence, field func(*domain.Occurrence) **float64) {
	groups := make(map[groupKey][]float64)
	missing := false
	for i := range records {
		r := &records[i]
		v := *field(r)
		if v == nil {
			missing = true
			continue
		}
		if r.Municipality != "" {
			k := keyOf(r)
			groups[k] = append(groups[k], *v)
		}
	}
	if !missing {
		return
	}

	for i := range records {
		r := &records[i]
		if *field(r) != nil || r.Municipality == "" {
			continue
		}
		if vals := groups[keyOf(r)]; len(vals) > 0 {
			m := stat.Mean(vals, nil)
			*field(r) = &m
		}
	}

	var present []float64
	for i := range records {
		if v := *field(&records[i]); v != nil {
			present = append(present, *v)
		}
	}
	if len(present) == 0 {
		return
	}
	mean := stat.Mean(present, nil)
	for i := range records {
		if *field(&records[i]) == nil {
			m := mean
			*field(&records[i]) = &m
		}
	}
}

func keyOf(r *domain.Occurrence) groupKey {
	return groupKey{label: r.Label, municipality: r.Municipality, day: r.ObservedAt.Format(time.DateOnly)}
}

// Extract derives model rows from occurrences.
func Extract(records []domain.Occurrence) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			Lat:             r.Lat,
			Lon:             r.Lon,
			Precipitation:   valueOrZero(r.Precipitation),
			DaysWithoutRain: valueOrZero(r.DaysWithoutRain),
			Month:           int(r.ObservedAt.Month()),
			DayOfYear:       r.ObservedAt.YearDay(),
			ObservedAt:      r.ObservedAt,
			Target:          target(r.Label),
		}
	}
	return rows
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func target(l domain.Label) int {
	if l == domain.LabelFire {
		return 1
	}
	return 0
}

// Range is the observed span of one scaled column.
type Range struct {
	Min float64
	Max float64
}

// Scaler records the ranges used by Normalize so predictions can be scaled the same way.
type Scaler struct {
	Lat             Range
	Lon             Range
	Precipitation   Range
	DaysWithoutRain Range
}

// Normalize min-max scales latitude, longitude, precipitation and
// days-without-rain into [0, 1]. A constant column scales to 0.
func Normalize(rows []Row) ([]Row, Scaler) {
	out := slices.Clone(rows)
	if len(out) == 0 {
		return out, Scaler{}
	}

	var s Scaler
	s.Lat = scaleColumn(out, func(r *Row) *float64 { return &r.Lat })
	s.Lon = scaleColumn(out, func(r *Row) *float64 { return &r.Lon })
	s.Precipitation = scaleColumn(out, func(r *Row) *float64 { return &r.Precipitation })
	s.DaysWithoutRain = scaleColumn(out, func(r *Row) *float64 { return &r.DaysWithoutRain })
	return out, s
}

func scaleColumn(rows []Row, field func(*Row) *float64) Range {
	vals := make([]float64, len(rows))
	for i := range rows {
		vals[i] = *field(&rows[i])
	}
	rg := Range{Min: floats.Min(vals), Max: floats.Max(vals)}
	span := rg.Max - rg.Min
	for i := range rows {
		p := field(&rows[i])
		if span == 0 {
			*p = 0
			continue
		}
		*p = (*p - rg.Min) / span
	}
	return rg
}

// TemporalSplit orders rows by time and holds out the most recent testRatio
// share as the test set. A ratio that rounds down to zero rows keeps every row
// in the training set.
func TemporalSplit(rows []Row, testRatio float64) (train, test []Row) {
	ordered := slices.Clone(rows)
	slices.SortStableFunc(ordered, func(a, b Row) int { return a.ObservedAt.Compare(b.ObservedAt) })

	testSize := int(float64(len(ordered)) * testRatio)
	if testSize <= 0 {
		return ordered, nil
	}
	if testSize > len(ordered) {
		testSize = len(ordered)
	}
	cut := len(ordered) - testSize
	return ordered[:cut], ordered[cut:]
}

// Summary describes the distribution of one feature column.
type Summary struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes per-column statistics and the share of positive rows.
func Summarize(rows []Row) (summaries []Summary, positiveShare float64) {
	if len(rows) == 0 {
		return nil, 0
	}
	columns := []struct {
		name string
		get  func(Row) float64
	}{
		{domain.ColLat, func(r Row) float64 { return r.Lat }},
		{domain.ColLon, func(r Row) float64 { return r.Lon }},
		{domain.ColPrecipitation, func(r Row) float64 { return r.Precipitation }},
		{domain.ColDaysWithoutRain, func(r Row) float64 { return r.DaysWithoutRain }},
	}

	vals := make([]float64, len(rows))
	targets := make([]float64, len(rows))
	for i, r := range rows {
		targets[i] = float64(r.Target)
	}
	for _, c := range columns {
		for i, r := range rows {
			vals[i] = c.get(r)
		}
		mean, std := stat.MeanStdDev(vals, nil)
		if math.IsNaN(std) {
			std = 0
		}
		summaries = append(summaries, Summary{
			Column: c.name,
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(vals),
			Max:    floats.Max(vals),
		})
	}
	return summaries, stat.Mean(targets, nil)
}

// Table renders feature rows for export.
func Table(rows []Row) domain.Table {
	t := domain.Table{Columns: []string{
		domain.ColLat, domain.ColLon, domain.ColObservedAt,
		domain.ColDaysWithoutRain, domain.ColPrecipitation,
		ColMonth, ColDayOfYear, domain.ColLabel,
	}}
	t.Rows = make([]map[string]string, len(rows))
	for i, r := range rows {
		t.Rows[i] = map[string]string{
			domain.ColLat:             formatFloat(r.Lat),
			domain.ColLon:             formatFloat(r.Lon),
			domain.ColObservedAt:      r.ObservedAt.Format(domain.TimestampLayout),
			domain.ColDaysWithoutRain: formatFloat(r.DaysWithoutRain),
			domain.ColPrecipitation:   formatFloat(r.Precipitation),
			ColMonth:                  strconv.Itoa(r.Month),
			ColDayOfYear:              strconv.Itoa(r.DayOfYear),
			domain.ColLabel:           strconv.Itoa(r.Target),
		}
	}
	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
