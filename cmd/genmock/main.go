// Command genmock writes synthetic per-state reference exports (and a matching
// hotspot file) so the pipeline can be run locally without the real data
// dumps. Output is deterministic for a given seed.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out dados \
//	  -regions PA,RO \
//	  -year 2024 \
//	  -rows 400
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/consolidate"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/region"
)

// bbox is the approximate extent of a state, in degrees.
type bbox struct {
	minLat, maxLat float64
	minLon, maxLon float64
	municipios     []string
}

var extents = map[string]bbox{
	"AC": {-11.1, -7.1, -74.0, -66.6, []string{"RIO BRANCO", "CRUZEIRO DO SUL", "FEIJÓ"}},
	"AM": {-9.8, 2.2, -73.8, -56.1, []string{"MANAUS", "LÁBREA", "APUÍ", "BOCA DO ACRE"}},
	"AP": {-1.2, 4.4, -54.9, -49.9, []string{"MACAPÁ", "OIAPOQUE", "LARANJAL DO JARI"}},
	"MT": {-18.0, -7.3, -61.6, -50.2, []string{"CUIABÁ", "COLNIZA", "SINOP", "FELIZ NATAL"}},
	"PA": {-9.8, 2.6, -58.9, -46.1, []string{"BELÉM", "ALTAMIRA", "SÃO FÉLIX DO XINGU", "NOVO PROGRESSO"}},
	"RO": {-13.7, -7.9, -66.8, -59.8, []string{"PORTO VELHO", "CANDEIAS DO JAMARI", "MACHADINHO D'OESTE"}},
	"RR": {-1.6, 5.3, -64.8, -58.9, []string{"BOA VISTA", "CARACARAÍ", "MUCAJAÍ"}},
	"TO": {-13.5, -5.2, -50.7, -45.7, []string{"PALMAS", "LAGOA DA CONFUSÃO", "FORMOSO DO ARAGUAIA"}},
}

var refColumns = []string{
	domain.ColObservedAt, "satelite", "pais", domain.ColState, domain.ColMunicipality,
	consolidate.ColBiome, domain.ColLat, domain.ColLon,
}

var hotspotColumns = []string{
	consolidate.ColHotspotTime, domain.ColState, domain.ColMunicipality, consolidate.ColBiome,
	domain.ColLat, domain.ColLon, domain.ColDaysWithoutRain, domain.ColPrecipitation,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "dados", "data directory to write region folders into")
	regionList := flag.String("regions", "", "comma-separated state codes (default: all)")
	year := flag.Int("year", 2024, "reference year of the generated exports")
	rows := flag.Int("rows", 300, "fire detections per state")
	clusters := flag.Int("clusters", 6, "fire fronts per state")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *rows < 1 || *clusters < 1 {
		flag.Usage()
		return fmt.Errorf("-rows and -clusters must be positive")
	}

	var codes []string
	if *regionList != "" {
		codes = strings.Split(*regionList, ",")
	}
	regions, err := region.Parse(codes)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, uint64(*year)))
	hotspots := domain.Table{Columns: hotspotColumns}

	for _, r := range regions {
		t := generate(rng, r, *year, *rows, *clusters)
		path := filepath.Join(r.Dir(*outDir), fmt.Sprintf("focos_%s_ref_%d.csv", strings.ToLower(r.Code), *year))
		if err := writeTable(path, t); err != nil {
			return fmt.Errorf("writing %s: %w", r.Code, err)
		}
		log.Printf("%s: %d records -> %s", r.Code, t.Len(), path)

		// Roughly half the detections get a weather reading.
		for _, row := range t.Rows {
			if rng.IntN(2) == 0 {
				continue
			}
			hotspots.Rows = append(hotspots.Rows, map[string]string{
				consolidate.ColHotspotTime: strings.Replace(row[domain.ColObservedAt], " ", "T", 1),
				domain.ColState:            row[domain.ColState],
				domain.ColMunicipality:     row[domain.ColMunicipality],
				consolidate.ColBiome:       row[consolidate.ColBiome],
				domain.ColLat:              row[domain.ColLat],
				domain.ColLon:              row[domain.ColLon],
				domain.ColDaysWithoutRain:  strconv.Itoa(rng.IntN(40)),
				domain.ColPrecipitation:    strconv.FormatFloat(round(rng.Float64()*8, 1), 'f', -1, 64),
			})
		}
	}

	path := filepath.Join(*outDir, "focos", fmt.Sprintf("focos_amazonia_%d.csv", *year))
	if err := writeTable(path, hotspots); err != nil {
		return fmt.Errorf("writing hotspots: %w", err)
	}
	log.Printf("hotspots: %d records -> %s", hotspots.Len(), path)
	return nil
}

// generate scatters detections around a few fire fronts. Each front burns on
// scattered days through the dry season, leaving multi-day gaps to fill.
func generate(rng *rand.Rand, r region.Region, year, rows, clusters int) domain.Table {
	box := extents[r.Code]
	start := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)

	type front struct{ lat, lon float64 }
	fronts := make([]front, clusters)
	for i := range fronts {
		fronts[i] = front{
			lat: box.minLat + rng.Float64()*(box.maxLat-box.minLat),
			lon: box.minLon + rng.Float64()*(box.maxLon-box.minLon),
		}
	}

	t := domain.Table{Columns: refColumns}
	t.Rows = make([]map[string]string, rows)
	for i := range t.Rows {
		f := fronts[rng.IntN(len(fronts))]
		observed := start.Add(time.Duration(rng.IntN(150*24*60)) * time.Minute)
		t.Rows[i] = map[string]string{
			domain.ColObservedAt:   observed.Format(domain.TimestampLayout),
			"satelite":             "AQUA_M-T",
			"pais":                 "Brasil",
			domain.ColState:        r.Name,
			domain.ColMunicipality: box.municipios[rng.IntN(len(box.municipios))],
			consolidate.ColBiome:   consolidate.AmazonBiome,
			domain.ColLat:          strconv.FormatFloat(round(f.lat+rng.NormFloat64()*0.15, 5), 'f', -1, 64),
			domain.ColLon:          strconv.FormatFloat(round(f.lon+rng.NormFloat64()*0.15, 5), 'f', -1, 64),
		}
	}
	return t
}

func writeTable(path string, t domain.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := consolidate.WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
