package domain

import (
	"slices"
	"strconv"
	"time"
)

// Column names used by the consolidated per-state tables.
const (
	ColLat             = "lat"
	ColLon             = "lon"
	ColObservedAt      = "data_pas"
	ColLabel           = "target"
	ColState           = "estado"
	ColMunicipality    = "municipio"
	ColPrecipitation   = "precipitacao"
	ColDaysWithoutRain = "numero_dias_sem_chuva"
)

// TimestampLayout is the layout used when timestamps are written back out.
const TimestampLayout = "2006-01-02 15:04:05"

// Label is the binary class of a record.
type Label string

const (
	LabelFire   Label = "fire"
	LabelNoFire Label = "no-fire"
)

// Occurrence is a single fire detection, or a synthetic absence record.
type Occurrence struct {
	Lat        float64
	Lon        float64
	ObservedAt time.Time
	Label      Label

	// Passthrough columns. Synthetic absence records leave them unset.
	State           string
	Municipality    string
	Precipitation   *float64
	DaysWithoutRain *float64
	Extra           map[string]string
}

// Synthetic reports whether the record was manufactured by the synthesizer.
func (o Occurrence) Synthetic() bool {
	return o.Label == LabelNoFire
}

// Columns renders the occurrence as a table row keyed by column name.
// Unset passthrough values are written as empty strings.
func (o Occurrence) Columns() map[string]string {
	row := make(map[string]string, len(o.Extra)+8)
	for k, v := range o.Extra {
		row[k] = v
	}
	row[ColLat] = strconv.FormatFloat(o.Lat, 'f', -1, 64)
	row[ColLon] = strconv.FormatFloat(o.Lon, 'f', -1, 64)
	row[ColObservedAt] = o.ObservedAt.Format(TimestampLayout)
	row[ColLabel] = string(o.Label)
	row[ColState] = o.State
	row[ColMunicipality] = o.Municipality
	row[ColPrecipitation] = formatOptional(o.Precipitation)
	row[ColDaysWithoutRain] = formatOptional(o.DaysWithoutRain)
	return row
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Table is an in-memory tabular record set: an ordered column list plus rows
// keyed by column name. Missing keys read as empty values.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// HasColumns reports whether every named column is present.
func (t Table) HasColumns(cols ...string) bool {
	for _, c := range cols {
		if !slices.Contains(t.Columns, c) {
			return false
		}
	}
	return true
}

// AddColumn appends a column name if it is not already present.
func (t *Table) AddColumn(name string) {
	if !slices.Contains(t.Columns, name) {
		t.Columns = append(t.Columns, name)
	}
}
