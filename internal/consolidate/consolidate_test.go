package consolidate

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func source(name, body string) Source {
	return Source{Name: name, Reader: strings.NewReader(body)}
}

func TestMatchesReferenceYear(t *testing.T) {
	years := []int{2023, 2024}

	tests := []struct {
		name string
		want bool
	}{
		{"focos_br_pa_ref_2023.csv", true},
		{"dados/PA/focos_br_pa_ref_2024.csv", true},
		{"focos_br_pa_ref_2022.csv", false},
		{"consolidado.csv", false},
		{"focos_br_pa_ref_2023.zip", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesReferenceYear(tt.name, years))
		})
	}
}

func TestReadCSV(t *testing.T) {
	body := "\ufefflat,lon,data_pas\n-3.1,-52.0,2023-08-14 17:25:00\n-3.2,-52.1\n"
	table, err := ReadCSV(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, []string{"lat", "lon", "data_pas"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "-3.1", table.Rows[0]["lat"])
	assert.Equal(t, "2023-08-14 17:25:00", table.Rows[0]["data_pas"])
	assert.Empty(t, table.Rows[1]["data_pas"])
}

func TestReadCSV_Empty(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	in := domain.Table{
		Columns: []string{"municipio", "lat"},
		Rows: []map[string]string{
			{"municipio": "SÃO FÉLIX DO XINGU", "lat": "-6.6"},
			{"municipio": "ALTAMIRA, PA", "lat": ""},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	assert.Equal(t, "municipio,lat\nSÃO FÉLIX DO XINGU,-6.6\n\"ALTAMIRA, PA\",\n", buf.String())

	out, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in.Columns, out.Columns)
	assert.Equal(t, in.Rows[1]["municipio"], out.Rows[1]["municipio"])
}

func TestConsolidate(t *testing.T) {
	sources := []Source{
		source("a_ref_2023.csv", "estado,municipio,lat,lon,data_pas\nPARÁ,ALTAMIRA,-3.2,-52.2,2023-08-14\n"),
		source("broken_ref_2023.csv", "lat,lon,data_pas\n0,0,2023-01-01\n"),
		source("b_ref_2024.csv", "estado,municipio,lat,lon,data_pas,foco_id\nPARÁ,ITAITUBA,-4.2,-56.0,2024-09-01,f1\nPARÁ,ITAITUBA,-4.3,-56.1,2024-09-02,f2\n"),
	}

	table, err := Consolidate(sources, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"estado", "municipio", "lat", "lon", "data_pas", "foco_id"}, table.Columns)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, "ALTAMIRA", table.Rows[0]["municipio"])
	assert.Empty(t, table.Rows[0]["foco_id"])
	assert.Equal(t, "f2", table.Rows[2]["foco_id"])
}

func TestConsolidate_NoSources(t *testing.T) {
	table, err := Consolidate(nil, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestConsolidate_MalformedCSV(t *testing.T) {
	_, err := Consolidate([]Source{source("bad_ref_2023.csv", "estado,municipio\n\"unterminated,x\n")}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_ref_2023.csv")
}

func TestFilterBiome(t *testing.T) {
	in := domain.Table{
		Columns: []string{"bioma"},
		Rows:    []map[string]string{{"bioma": "Amazônia"}, {"bioma": "Cerrado"}, {"bioma": "Amazônia"}},
	}
	out := FilterBiome(in, AmazonBiome)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, in.Columns, out.Columns)
}

func TestEnrich(t *testing.T) {
	consolidated := domain.Table{
		Columns: []string{"estado", "municipio", "lat", "lon", "data_pas"},
		Rows: []map[string]string{
			{"estado": "PARÁ", "municipio": "ALTAMIRA", "lat": "-3.20", "lon": "-52.2", "data_pas": "2023-08-14 17:25:00"},
			{"estado": "PARÁ", "municipio": "ALTAMIRA", "lat": "-3.5", "lon": "-52.9", "data_pas": "2023-08-15 10:00:00"},
		},
	}
	hotspots := domain.Table{
		Columns: []string{"estado", "municipio", "lat", "lon", "data_hora_gmt", "numero_dias_sem_chuva", "precipitacao"},
		Rows: []map[string]string{
			{"estado": "PARÁ", "municipio": "ALTAMIRA", "lat": "-3.2", "lon": "-52.2", "data_hora_gmt": "2023-08-14T17:25:00", "numero_dias_sem_chuva": "12.0", "precipitacao": "0.40"},
			{"estado": "PARÁ", "municipio": "ALTAMIRA", "lat": "-3.2", "lon": "-52.2", "data_hora_gmt": "2023-08-14T17:25:00", "numero_dias_sem_chuva": "99", "precipitacao": "9"},
		},
	}

	out, err := Enrich(consolidated, hotspots)
	require.NoError(t, err)
	assert.Equal(t, []string{"estado", "municipio", "lat", "lon", "data_pas", "numero_dias_sem_chuva", "precipitacao"}, out.Columns)

	assert.Equal(t, "12", out.Rows[0]["numero_dias_sem_chuva"])
	assert.Equal(t, "0.4", out.Rows[0]["precipitacao"])
	assert.Equal(t, "0", out.Rows[1]["numero_dias_sem_chuva"])
	assert.Equal(t, "0", out.Rows[1]["precipitacao"])

	_, touched := consolidated.Rows[0]["precipitacao"]
	assert.False(t, touched, "input rows must not be modified")
}

func TestEnrich_BadHotspotValue(t *testing.T) {
	consolidated := domain.Table{Rows: []map[string]string{
		{"estado": "AC", "municipio": "FEIJÓ", "lat": "1", "lon": "2", "data_pas": "2024-01-01"},
	}}
	hotspots := domain.Table{Rows: []map[string]string{
		{"estado": "AC", "municipio": "FEIJÓ", "lat": "1", "lon": "2", "data_hora_gmt": "2024-01-01", "numero_dias_sem_chuva": "many"},
	}}

	_, err := Enrich(consolidated, hotspots)
	var fErr *domain.DataFormatError
	require.ErrorAs(t, err, &fErr)
	assert.Equal(t, "numero_dias_sem_chuva", fErr.Field)
}
