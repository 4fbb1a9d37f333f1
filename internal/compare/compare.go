// Package compare builds the dashboard's whole-dataset comparison between
// the current regime and a chosen reform year.
package compare

import (
	"sort"

	"github.com/mpaiva/fiscalsim/internal/domain"
	"github.com/mpaiva/fiscalsim/internal/money"
	"github.com/mpaiva/fiscalsim/internal/taxparams"
	"github.com/mpaiva/fiscalsim/internal/taxtable"
)

// semData buckets rows whose emission date cannot be parsed; they still
// belong in the totals.
const semData = "SEM_DATA"

// RateSource resolves configurable rates. *taxparams.Registry satisfies it.
type RateSource interface {
	GetRate(ano int, tipo, uf string, def float64) (float64, error)
}

// KPIs are the headline comparison figures.
type KPIs struct {
	AnoReforma          int     `json:"ano_reforma"`
	ReceitaTotal        float64 `json:"receita_total"`
	CargaAtualTotal     float64 `json:"carga_atual_total"`
	CargaReformaTotal   float64 `json:"carga_reforma_total"`
	DiferencaAbsoluta   float64 `json:"diferenca_absoluta"`
	DiferencaPercentual float64 `json:"diferenca_percentual"`
}

// Detail is one tax's before/after line.
type Detail struct {
	Tributo string  `json:"tributo"`
	Atual   float64 `json:"atual"`
	Reforma float64 `json:"reforma"`
}

// TimeseriesPoint compares the burdens for one period.
type TimeseriesPoint struct {
	Period  string  `json:"period"`
	Receita float64 `json:"receita"`
	Atual   float64 `json:"atual"`
	Reforma float64 `json:"reforma"`
}

// Result is the dashboard compare payload.
type Result struct {
	KPIs       KPIs              `json:"kpis"`
	Detalhes   []Detail          `json:"detalhes"`
	Timeseries []TimeseriesPoint `json:"timeseries"`
}

type periodAgg struct {
	receita float64
	icms    float64
	pis     float64
	cofins  float64
}

// rates holds the resolved reform parameters for one comparison.
type rates struct {
	cbs             float64
	ibs             float64
	icmsFactor      float64
	pisCofinsFactor float64
}

func resolveRates(anoReforma int, src RateSource) rates {
	// Schedule first; outside the table fall back to the reference
	// constants (pre-2027 uses the parallel-test rates).
	r := rates{icmsFactor: 1, pisCofinsFactor: 1}
	if yr, err := taxtable.ForYear(anoReforma); err == nil {
		r.cbs = yr.CBS
		r.ibs = yr.IBS
		r.icmsFactor = yr.ICMSFactor
		r.pisCofinsFactor = yr.PISCofinsFactor
	} else if anoReforma >= 2027 {
		r.cbs = taxtable.DefaultCBS
		r.ibs = taxtable.DefaultIBS
		r.pisCofinsFactor = 0
	} else {
		r.cbs = 0.009
		r.ibs = 0.001
	}

	// Registry overrides win over the schedule.
	if src != nil {
		if v, err := src.GetRate(anoReforma, taxparams.TipoCBSPadrao, "", r.cbs); err == nil {
			r.cbs = v
		}
		if v, err := src.GetRate(anoReforma, taxparams.TipoIBSPadrao, "", r.ibs); err == nil {
			r.ibs = v
		}
	}
	return r
}

// Build compares the full dataset's current burden against the reform
// regime in anoReforma. CBS/IBS apply over revenue; ICMS and PIS/COFINS are
// scaled by the transition factors of that year.
func Build(rows []domain.Row, anoReforma int, src RateSource) Result {
	rt := resolveRates(anoReforma, src)

	var receitaTotal, icmsAtual, pisAtual, cofinsAtual float64
	series := map[string]*periodAgg{}

	for _, r := range rows {
		receita := money.Parse(r.VProd)
		icms := money.Parse(r.VICMS)
		pis := money.Parse(r.VPIS)
		cofins := money.Parse(r.VCofins)

		receitaTotal += receita
		icmsAtual += icms
		pisAtual += pis
		cofinsAtual += cofins

		period := semData
		if dt, ok := domain.ParseDate(r.EmissionDate()); ok {
			period = dt.Format("2006-01")
		}
		agg := series[period]
		if agg == nil {
			agg = &periodAgg{}
			series[period] = agg
		}
		agg.receita += receita
		agg.icms += icms
		agg.pis += pis
		agg.cofins += cofins
	}

	cargaAtual := icmsAtual + pisAtual + cofinsAtual

	icmsReforma := icmsAtual * rt.icmsFactor
	pisReforma := pisAtual * rt.pisCofinsFactor
	cofinsReforma := cofinsAtual * rt.pisCofinsFactor
	cbsReforma := receitaTotal * rt.cbs
	ibsReforma := receitaTotal * rt.ibs

	cargaReforma := icmsReforma + pisReforma + cofinsReforma + cbsReforma + ibsReforma
	difAbs := cargaReforma - cargaAtual
	difPct := 0.0
	if cargaAtual != 0 {
		difPct = difAbs / cargaAtual * 100
	}

	periods := make([]string, 0, len(series))
	for p := range series {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	ts := make([]TimeseriesPoint, 0, len(periods))
	for _, p := range periods {
		agg := series[p]
		atual := agg.icms + agg.pis + agg.cofins
		reforma := agg.icms*rt.icmsFactor +
			(agg.pis+agg.cofins)*rt.pisCofinsFactor +
			agg.receita*(rt.cbs+rt.ibs)
		ts = append(ts, TimeseriesPoint{
			Period:  p,
			Receita: agg.receita,
			Atual:   atual,
			Reforma: reforma,
		})
	}

	return Result{
		KPIs: KPIs{
			AnoReforma:          anoReforma,
			ReceitaTotal:        receitaTotal,
			CargaAtualTotal:     cargaAtual,
			CargaReformaTotal:   cargaReforma,
			DiferencaAbsoluta:   difAbs,
			DiferencaPercentual: difPct,
		},
		Detalhes: []Detail{
			{Tributo: "ICMS", Atual: icmsAtual, Reforma: icmsReforma},
			{Tributo: "PIS", Atual: pisAtual, Reforma: pisReforma},
			{Tributo: "COFINS", Atual: cofinsAtual, Reforma: cofinsReforma},
			{Tributo: "CBS", Atual: 0, Reforma: cbsReforma},
			{Tributo: "IBS", Atual: 0, Reforma: ibsReforma},
		},
		Timeseries: ts,
	}
}

// Empty is the zero-dataset payload: KPIs and details at zero, no series.
func Empty(anoReforma int) Result {
	return Result{
		KPIs: KPIs{AnoReforma: anoReforma},
		Detalhes: []Detail{
			{Tributo: "ICMS"},
			{Tributo: "PIS"},
			{Tributo: "COFINS"},
			{Tributo: "CBS"},
			{Tributo: "IBS"},
		},
		Timeseries: []TimeseriesPoint{},
	}
}

