package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var errUnknownLayout = errors.New("unrecognized timestamp layout")

// timestampLayouts are tried in order; naive timestamps are read as UTC.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

// knownColumns are interpreted by ParseOccurrences and never copied into Extra.
var knownColumns = map[string]bool{
	ColLat: true, ColLon: true, ColObservedAt: true, ColLabel: true,
	ColState: true, ColMunicipality: true, ColPrecipitation: true, ColDaysWithoutRain: true,
}

// ParseTimestamp parses a detection timestamp in any of the supported layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errUnknownLayout
}

// ParseOccurrences converts a consolidated table into occurrence records, all
// labeled fire. A missing or non-numeric coordinate fails the whole batch with
// a *ValidationError; an unparseable timestamp or passthrough number fails it
// with a *DataFormatError. An empty table yields no records and no error.
func ParseOccurrences(t Table) ([]Occurrence, error) {
	out := make([]Occurrence, 0, len(t.Rows))
	for i, row := range t.Rows {
		lat, err := parseCoordinate(i, ColLat, row[ColLat], 90)
		if err != nil {
			return nil, err
		}
		lon, err := parseCoordinate(i, ColLon, row[ColLon], 180)
		if err != nil {
			return nil, err
		}

		observedAt, err := ParseTimestamp(row[ColObservedAt])
		if err != nil {
			return nil, &DataFormatError{Row: i, Field: ColObservedAt, Value: row[ColObservedAt], Err: err}
		}

		precipitation, err := parseOptionalFloat(i, ColPrecipitation, row[ColPrecipitation])
		if err != nil {
			return nil, err
		}
		daysWithoutRain, err := parseOptionalFloat(i, ColDaysWithoutRain, row[ColDaysWithoutRain])
		if err != nil {
			return nil, err
		}

		out = append(out, Occurrence{
			Lat:             lat,
			Lon:             lon,
			ObservedAt:      observedAt,
			Label:           LabelFire,
			State:           row[ColState],
			Municipality:    row[ColMunicipality],
			Precipitation:   precipitation,
			DaysWithoutRain: daysWithoutRain,
			Extra:           extraColumns(row),
		})
	}
	return out, nil
}

func parseCoordinate(row int, field, raw string, limit float64) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ValidationError{Row: row, Field: field, Value: raw, Reason: "missing coordinate"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValidationError{Row: row, Field: field, Value: raw, Reason: "not a number"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Row: row, Field: field, Value: raw, Reason: "not finite"}
	}
	if math.Abs(v) > limit {
		return 0, &ValidationError{Row: row, Field: field, Value: raw, Reason: "out of range"}
	}
	return v, nil
}

func parseOptionalFloat(row int, field, raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &DataFormatError{Row: row, Field: field, Value: raw, Err: err}
	}
	return &v, nil
}

func extraColumns(row map[string]string) map[string]string {
	var extra map[string]string
	for k, v := range row {
		if knownColumns[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[k] = v
	}
	return extra
}
