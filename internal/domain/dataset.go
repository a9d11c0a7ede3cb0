package domain

import "fmt"

// Dataset is the labeled training set for one region: the original fire
// records in input order followed by the synthetic no-fire records.
// Cluster ids are not retained.
type Dataset struct {
	Records   []Occurrence
	Positives int
	Synthetic int
	Clusters  int
}

// BuildDataset clusters the occurrences, synthesizes absence records per
// cluster and concatenates them after the originals.
func BuildDataset(records []Occurrence, opts ClusterOptions) (Dataset, error) {
	assignment, err := Cluster(records, opts)
	if err != nil {
		return Dataset{}, fmt.Errorf("cluster occurrences: %w", err)
	}

	absences, err := SynthesizeAbsences(records, assignment)
	if err != nil {
		return Dataset{}, fmt.Errorf("synthesize absences: %w", err)
	}

	combined := make([]Occurrence, 0, len(records)+len(absences))
	combined = append(combined, records...)
	combined = append(combined, absences...)

	return Dataset{
		Records:   combined,
		Positives: len(records),
		Synthetic: len(absences),
		Clusters:  assignment.Count,
	}, nil
}

// Table renders the dataset with the given leading columns. The label column
// and the interpreted columns are appended when missing.
func (d Dataset) Table(columns []string) Table {
	t := Table{Columns: append([]string(nil), columns...)}
	for _, c := range []string{ColLat, ColLon, ColObservedAt, ColState, ColMunicipality, ColLabel} {
		t.AddColumn(c)
	}
	for _, r := range d.Records {
		if r.Precipitation != nil {
			t.AddColumn(ColPrecipitation)
		}
		if r.DaysWithoutRain != nil {
			t.AddColumn(ColDaysWithoutRain)
		}
	}

	t.Rows = make([]map[string]string, len(d.Records))
	for i, r := range d.Records {
		t.Rows[i] = r.Columns()
	}
	return t
}
