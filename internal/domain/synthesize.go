package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// absenceStep is both the minimum gap that triggers synthesis and the spacing
// between synthetic records.
const absenceStep = 24 * time.Hour

var errMissingTimestamp = errors.New("missing timestamp")

// SynthesizeAbsences fills the temporal gaps of every cluster with synthetic
// no-fire records. Clusters are processed in ascending id order; within a
// cluster records are ordered by time (ties keep input order). For each pair of
// consecutive records more than one day apart, one record per day is emitted
// from the earlier timestamp + 1 day while strictly before the later
// timestamp, at the midpoint of the two locations.
//
// The input slice is not modified. A record with a zero timestamp fails the
// whole batch with a *DataFormatError.
func SynthesizeAbsences(records []Occurrence, a Assignment) ([]Occurrence, error) {
	if len(a.IDs) != len(records) {
		return nil, fmt.Errorf("synthesize absences: %d cluster ids for %d records", len(a.IDs), len(records))
	}

	var out []Occurrence
	for _, members := range a.Groups() {
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			if records[i].ObservedAt.IsZero() {
				return nil, &DataFormatError{Row: i, Field: ColObservedAt, Err: errMissingTimestamp}
			}
		}

		ordered := slices.Clone(members)
		slices.SortStableFunc(ordered, func(x, y int) int {
			return records[x].ObservedAt.Compare(records[y].ObservedAt)
		})

		for k := 0; k+1 < len(ordered); k++ {
			out = appendGap(out, records[ordered[k]], records[ordered[k+1]])
		}
	}
	return out, nil
}

// appendGap emits the absence records between two chronologically adjacent
// occurrences of the same cluster.
func appendGap(out []Occurrence, cur, next Occurrence) []Occurrence {
	if next.ObservedAt.Sub(cur.ObservedAt) <= absenceStep {
		return out
	}

	lat := (cur.Lat + next.Lat) / 2
	lon := (cur.Lon + next.Lon) / 2
	for day := cur.ObservedAt.Add(absenceStep); day.Before(next.ObservedAt); day = day.Add(absenceStep) {
		out = append(out, Occurrence{
			Lat:        lat,
			Lon:        lon,
			ObservedAt: day,
			Label:      LabelNoFire,
		})
	}
	return out
}
