// Command validate checks an engineered state dataset (consolidado.csv) and,
// optionally, its feature file (consolidado_processado.csv) against the
// dataset invariants: label values and ordering, coordinate and timestamp
// validity, empty passthrough fields on absence rows, and that the absence
// rows are exactly what the clusterer and synthesizer produce from the
// fire rows.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset dados/PA/consolidado.csv \
//	  -features dados/PA/consolidado_processado.csv \
//	  -distance-km 100 \
//	  -strategy connected
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/wildfire-etl/internal/consolidate"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/features"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	datasetPath := flag.String("dataset", "", "path to the engineered dataset CSV")
	featuresPath := flag.String("features", "", "optional path to the feature CSV")
	distanceKm := flag.Float64("distance-km", domain.DefaultThresholdKm, "clustering distance used to build the dataset")
	strategy := flag.String("strategy", string(domain.StrategyConnected), "cluster strategy used to build the dataset")
	flag.Parse()

	if *datasetPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	strat, err := domain.ParseStrategy(*strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	opts := domain.DefaultClusterOptions()
	opts.ThresholdKm = *distanceKm
	opts.Strategy = strat

	if code := run(*datasetPath, *featuresPath, opts); code != 0 {
		os.Exit(code)
	}
}

func run(datasetPath, featuresPath string, opts domain.ClusterOptions) int {
	fmt.Println("=== Wildfire Dataset Validation ===")
	fmt.Println()

	dataset, err := loadTable(datasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateSchema(dataset),
		validateLabels(dataset),
		validateValues(dataset),
		validateAbsenceRows(dataset),
		validateReproducible(dataset, opts),
	}

	var featureRows int
	if featuresPath != "" {
		feat, err := loadTable(featuresPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load features: %v\n", err)
			return 1
		}
		featureRows = feat.Len()
		phases = append(phases, validateFeatures(feat, dataset))
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fire, noFire := countLabels(dataset)
	fmt.Println()
	fmt.Printf("Records: %d dataset (%d fire, %d no-fire), %d features\n", dataset.Len(), fire, noFire, featureRows)

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadTable(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer f.Close()
	return consolidate.ReadCSV(f)
}

func countLabels(t domain.Table) (fire, noFire int) {
	for _, row := range t.Rows {
		switch domain.Label(row[domain.ColLabel]) {
		case domain.LabelFire:
			fire++
		case domain.LabelNoFire:
			noFire++
		}
	}
	return fire, noFire
}

// line converts a row index to its 1-based CSV line number.
func line(i int) int { return i + 2 }

// ── Phase 1: Schema ──

func validateSchema(t domain.Table) *phase {
	p := &phase{name: "Phase 1: Schema"}
	for _, c := range []string{domain.ColLat, domain.ColLon, domain.ColObservedAt, domain.ColLabel, domain.ColState, domain.ColMunicipality} {
		if !t.HasColumns(c) {
			p.errorf("missing column %q", c)
		}
	}
	return p
}

// ── Phase 2: Labels ──
// Every row is fire or no-fire, and all fire rows precede the first no-fire row.

func validateLabels(t domain.Table) *phase {
	p := &phase{name: "Phase 2: Labels and ordering"}
	firstNoFire := -1
	for i, row := range t.Rows {
		switch domain.Label(row[domain.ColLabel]) {
		case domain.LabelFire:
			if firstNoFire >= 0 {
				p.errorf("line %d: fire row after first no-fire row (line %d)", line(i), line(firstNoFire))
			}
		case domain.LabelNoFire:
			if firstNoFire < 0 {
				firstNoFire = i
			}
		default:
			p.errorf("line %d: invalid label %q", line(i), row[domain.ColLabel])
		}
	}
	if t.Len() > 0 && firstNoFire == 0 {
		p.errorf("dataset has no-fire rows but no fire rows")
	}
	return p
}

// ── Phase 3: Values ──

func validateValues(t domain.Table) *phase {
	p := &phase{name: "Phase 3: Coordinates and timestamps"}
	for i, row := range t.Rows {
		lat, latErr := strconv.ParseFloat(row[domain.ColLat], 64)
		lon, lonErr := strconv.ParseFloat(row[domain.ColLon], 64)
		if latErr != nil || lonErr != nil {
			p.errorf("line %d: non-numeric coordinate lat=%q lon=%q", line(i), row[domain.ColLat], row[domain.ColLon])
		} else if err := domain.ValidateCoordinate(lat, lon); err != nil {
			p.errorf("line %d: %v", line(i), err)
		}
		if _, err := domain.ParseTimestamp(row[domain.ColObservedAt]); err != nil {
			p.errorf("line %d: %v", line(i), err)
		}
	}
	return p
}

// ── Phase 4: Absence rows ──
// Synthetic rows carry no passthrough attributes and sit inside the extent of
// the fire rows, since each is a midpoint of two of them.

func validateAbsenceRows(t domain.Table) *phase {
	p := &phase{name: "Phase 4: Absence rows"}

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, row := range t.Rows {
		if domain.Label(row[domain.ColLabel]) != domain.LabelFire {
			continue
		}
		lat, err1 := strconv.ParseFloat(row[domain.ColLat], 64)
		lon, err2 := strconv.ParseFloat(row[domain.ColLon], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		minLat, maxLat = math.Min(minLat, lat), math.Max(maxLat, lat)
		minLon, maxLon = math.Min(minLon, lon), math.Max(maxLon, lon)
	}

	passthrough := []string{domain.ColState, domain.ColMunicipality, domain.ColPrecipitation, domain.ColDaysWithoutRain}
	for i, row := range t.Rows {
		if domain.Label(row[domain.ColLabel]) != domain.LabelNoFire {
			continue
		}
		for _, c := range passthrough {
			if v := strings.TrimSpace(row[c]); v != "" {
				p.errorf("line %d: no-fire row has %s=%q (should be empty)", line(i), c, v)
			}
		}
		lat, err1 := strconv.ParseFloat(row[domain.ColLat], 64)
		lon, err2 := strconv.ParseFloat(row[domain.ColLon], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if lat < minLat || lat > maxLat || lon < minLon || lon > maxLon {
			p.errorf("line %d: no-fire row (%v, %v) outside the fire extent", line(i), lat, lon)
		}
	}
	return p
}

// ── Phase 5: Reproducibility ──
// Rebuilding the dataset from the fire rows yields the same absence rows.

func validateReproducible(t domain.Table, opts domain.ClusterOptions) *phase {
	p := &phase{name: "Phase 5: Absence rows reproducible"}

	fires := domain.Table{Columns: t.Columns}
	var stored []map[string]string
	for _, row := range t.Rows {
		if domain.Label(row[domain.ColLabel]) == domain.LabelFire {
			fires.Rows = append(fires.Rows, row)
		} else {
			stored = append(stored, row)
		}
	}

	records, err := domain.ParseOccurrences(fires)
	if err != nil {
		p.errorf("parse fire rows: %v", err)
		return p
	}
	ds, err := domain.BuildDataset(records, opts)
	if err != nil {
		p.errorf("rebuild dataset: %v", err)
		return p
	}

	rebuilt := ds.Records[ds.Positives:]
	if len(rebuilt) != len(stored) {
		p.errorf("expected %d no-fire rows, dataset has %d", len(rebuilt), len(stored))
	}
	for i := 0; i < min(len(rebuilt), len(stored)); i++ {
		want := rebuilt[i].Columns()
		got := stored[i]
		for _, c := range []string{domain.ColLat, domain.ColLon, domain.ColObservedAt} {
			if want[c] != got[c] {
				p.errorf("no-fire row %d: %s expected %q, got %q", i+1, c, want[c], got[c])
			}
		}
	}
	return p
}

// ── Phase 6: Features ──

func validateFeatures(feat, dataset domain.Table) *phase {
	p := &phase{name: "Phase 6: Feature rows"}

	if feat.Len() != dataset.Len() {
		p.errorf("feature rows: expected %d, got %d", dataset.Len(), feat.Len())
	}
	for _, c := range []string{domain.ColLat, domain.ColLon, domain.ColPrecipitation, domain.ColDaysWithoutRain, features.ColMonth, features.ColDayOfYear, domain.ColLabel} {
		if !feat.HasColumns(c) {
			p.errorf("missing column %q", c)
		}
	}

	scaled := []string{domain.ColLat, domain.ColLon, domain.ColPrecipitation, domain.ColDaysWithoutRain}
	for i, row := range feat.Rows {
		for _, c := range scaled {
			v, err := strconv.ParseFloat(row[c], 64)
			if err != nil || v < 0 || v > 1 {
				p.errorf("line %d: %s=%q not in [0, 1]", line(i), c, row[c])
			}
		}
		if tgt := row[domain.ColLabel]; tgt != "0" && tgt != "1" {
			p.errorf("line %d: target %q is not 0 or 1", line(i), tgt)
		}
		if m, err := strconv.Atoi(row[features.ColMonth]); err != nil || m < 1 || m > 12 {
			p.errorf("line %d: month %q out of range", line(i), row[features.ColMonth])
		}
		if d, err := strconv.Atoi(row[features.ColDayOfYear]); err != nil || d < 1 || d > 366 {
			p.errorf("line %d: day_of_year %q out of range", line(i), row[features.ColDayOfYear])
		}
	}
	return p
}
