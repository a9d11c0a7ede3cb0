// Package region holds the static reference table of Legal Amazon states.
package region

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Region is one state of the Brazilian Legal Amazon.
type Region struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Dir returns the region's data directory under base, e.g. dados/PA.
func (r Region) Dir(base string) string {
	return filepath.Join(base, r.Code)
}

var legalAmazon = [...]Region{
	{Name: "ACRE", Code: "AC"},
	{Name: "AMAZONAS", Code: "AM"},
	{Name: "AMAPA", Code: "AP"},
	{Name: "MATO_GROSSO", Code: "MT"},
	{Name: "PARA", Code: "PA"},
	{Name: "RONDONIA", Code: "RO"},
	{Name: "RORAIMA", Code: "RR"},
	{Name: "TOCANTINS", Code: "TO"},
}

// All returns every Legal Amazon state in a stable order. The slice is a copy.
func All() []Region {
	out := make([]Region, len(legalAmazon))
	copy(out, legalAmazon[:])
	return out
}

// Lookup finds a region by its two-letter code, case-insensitively.
func Lookup(code string) (Region, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, r := range legalAmazon {
		if r.Code == code {
			return r, true
		}
	}
	return Region{}, false
}

// Parse resolves a list of codes. An empty list selects every region.
func Parse(codes []string) ([]Region, error) {
	if len(codes) == 0 {
		return All(), nil
	}
	out := make([]Region, 0, len(codes))
	for _, c := range codes {
		r, ok := Lookup(c)
		if !ok {
			return nil, fmt.Errorf("unknown region code %q", c)
		}
		out = append(out, r)
	}
	return out, nil
}
