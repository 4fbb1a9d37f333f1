// Package taxtable holds the reference transition schedule of the tax
// reform (2026-2033). The figures are simulation references, not legal
// values: ICMS and PIS/COFINS phase out through multiplying factors while
// CBS/IBS phase in.
package taxtable

import (
	"fmt"
	"sort"
)

// Fallback rates for services that need a CBS/IBS figure outside the table.
const (
	DefaultCBS = 0.088
	DefaultIBS = 0.01
)

// YearRates describes one transition year.
//
// ICMSFactor and PISCofinsFactor multiply the current-regime burden
// (1 = unchanged, 0 = extinct); CBS and IBS are decimal rates.
type YearRates struct {
	ICMSFactor      float64 `json:"icms_factor"`
	PISCofinsFactor float64 `json:"pis_cofins_factor"`
	CBS             float64 `json:"cbs"`
	IBS             float64 `json:"ibs"`
}

// Transition is the 2026-2033 reference schedule. 2026 is the parallel test
// year (CBS 0.9%, IBS 0.1%, everything else intact); PIS/COFINS die in 2027
// and ICMS ramps down from 2029 until extinction in 2033.
var Transition = map[int]YearRates{
	2026: {ICMSFactor: 1.00, PISCofinsFactor: 1.00, CBS: 0.009, IBS: 0.001},
	2027: {ICMSFactor: 1.00, PISCofinsFactor: 0.00, CBS: 0.088, IBS: 0.01},
	2028: {ICMSFactor: 1.00, PISCofinsFactor: 0.00, CBS: 0.088, IBS: 0.01},
	2029: {ICMSFactor: 0.90, PISCofinsFactor: 0.00, CBS: 0.088, IBS: 0.01},
	2030: {ICMSFactor: 0.80, PISCofinsFactor: 0.00, CBS: 0.088, IBS: 0.01},
	2031: {ICMSFactor: 0.70, PISCofinsFactor: 0.00, CBS: 0.088, IBS: 0.01},
	2032: {ICMSFactor: 0.60, PISCofinsFactor: 0.00, CBS: 0.088, IBS: 0.01},
	2033: {ICMSFactor: 0.00, PISCofinsFactor: 0.00, CBS: 0.088, IBS: 0.01},
}

// Years lists the transition years in ascending order.
func Years() []int {
	out := make([]int, 0, len(Transition))
	for y := range Transition {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// ForYear returns the rates of one transition year.
func ForYear(year int) (YearRates, error) {
	r, ok := Transition[year]
	if !ok {
		return YearRates{}, fmt.Errorf("taxtable: year %d outside transition schedule", year)
	}
	return r, nil
}

// TributoStatus tells what happens to a tax in a given year.
type TributoStatus string

const (
	StatusSemAlteracao          TributoStatus = "SEM_ALTERACAO"
	StatusNovo                  TributoStatus = "NOVO"
	StatusReduzido              TributoStatus = "REDUZIDO"
	StatusExtinto               TributoStatus = "EXTINTO"
	StatusDefinidoPosteriormente TributoStatus = "DEFINIDO_POSTERIORMENTE"
)

// TributoConfig is one tax's entry in the year timeline. Aliquota is in
// percent for display (0.9 = 0.90%), present only for the new taxes.
type TributoConfig struct {
	Status   TributoStatus `json:"status"`
	Aliquota *float64      `json:"aliquota,omitempty"`
}

// Timeline returns the per-tributo status map for one transition year,
// derived from the schedule.
func Timeline(year int) (map[string]TributoConfig, error) {
	r, err := ForYear(year)
	if err != nil {
		return nil, err
	}

	pct := func(v float64) *float64 {
		p := v * 100
		return &p
	}

	statusFromFactor := func(f float64) TributoStatus {
		switch {
		case f == 0:
			return StatusExtinto
		case f < 1:
			return StatusReduzido
		default:
			return StatusSemAlteracao
		}
	}

	out := map[string]TributoConfig{
		"PIS":    {Status: statusFromFactor(r.PISCofinsFactor)},
		"COFINS": {Status: statusFromFactor(r.PISCofinsFactor)},
		"ICMS":   {Status: statusFromFactor(r.ICMSFactor)},
		"CBS":    {Status: StatusNovo, Aliquota: pct(r.CBS)},
		"IBS":    {Status: StatusNovo, Aliquota: pct(r.IBS)},
		"IS":     {Status: StatusDefinidoPosteriormente},
	}
	return out, nil
}
