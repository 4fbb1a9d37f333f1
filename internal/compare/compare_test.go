package compare

import (
	"math"
	"testing"

	"github.com/mpaiva/fiscalsim/internal/domain"
	"github.com/mpaiva/fiscalsim/internal/taxparams"
)

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

var sampleRows = []domain.Row{
	{Dhemi: "2026-01-10", VProd: "1000,00", VICMS: "180,00", VPIS: "16,50", VCofins: "76,00"},
	{Dhemi: "2026-02-05", VProd: "500,00", VICMS: "90,00", VPIS: "8,25", VCofins: "38,00"},
	{Dhemi: "", VProd: "100,00", VICMS: "18,00", VPIS: "1,65", VCofins: "7,60"},
}

type fixedRates map[string]float64

func (f fixedRates) GetRate(ano int, tipo, uf string, def float64) (float64, error) {
	if v, ok := f[tipo]; ok {
		return v, nil
	}
	return def, nil
}

func TestBuild2027(t *testing.T) {
	res := Build(sampleRows, 2027, nil)

	approx(t, "receita_total", res.KPIs.ReceitaTotal, 1600)
	approx(t, "carga_atual", res.KPIs.CargaAtualTotal, 288+26.4+121.6)

	// 2027: PIS/COFINS extinct, ICMS intact, CBS 8.8% + IBS 1% over revenue.
	wantReforma := 288.0 + 1600*0.088 + 1600*0.01
	approx(t, "carga_reforma", res.KPIs.CargaReformaTotal, wantReforma)

	byTributo := map[string]Detail{}
	for _, d := range res.Detalhes {
		byTributo[d.Tributo] = d
	}
	approx(t, "PIS reforma", byTributo["PIS"].Reforma, 0)
	approx(t, "COFINS reforma", byTributo["COFINS"].Reforma, 0)
	approx(t, "ICMS reforma", byTributo["ICMS"].Reforma, 288)
	approx(t, "CBS reforma", byTributo["CBS"].Reforma, 1600*0.088)
	approx(t, "CBS atual", byTributo["CBS"].Atual, 0)
}

func TestBuild2026ParallelTest(t *testing.T) {
	res := Build(sampleRows, 2026, nil)

	// 2026 keeps everything and adds the test rates on top.
	wantReforma := res.KPIs.CargaAtualTotal + 1600*(0.009+0.001)
	approx(t, "carga_reforma", res.KPIs.CargaReformaTotal, wantReforma)
	if res.KPIs.DiferencaAbsoluta <= 0 {
		t.Error("2026 reform burden must exceed current (parallel test adds taxes)")
	}
}

func TestBuildICMSRampDown(t *testing.T) {
	res := Build(sampleRows, 2029, nil)

	byTributo := map[string]Detail{}
	for _, d := range res.Detalhes {
		byTributo[d.Tributo] = d
	}
	approx(t, "2029 ICMS reforma", byTributo["ICMS"].Reforma, 288*0.9)

	res = Build(sampleRows, 2033, nil)
	for _, d := range res.Detalhes {
		if d.Tributo == "ICMS" {
			approx(t, "2033 ICMS reforma", d.Reforma, 0)
		}
	}
}

func TestBuildRegistryOverridesSchedule(t *testing.T) {
	src := fixedRates{taxparams.TipoCBSPadrao: 0.12}
	res := Build(sampleRows, 2027, src)

	for _, d := range res.Detalhes {
		if d.Tributo == "CBS" {
			approx(t, "CBS with override", d.Reforma, 1600*0.12)
		}
		if d.Tributo == "IBS" {
			approx(t, "IBS keeps schedule", d.Reforma, 1600*0.01)
		}
	}
}

func TestBuildTimeseries(t *testing.T) {
	res := Build(sampleRows, 2027, nil)

	if len(res.Timeseries) != 3 {
		t.Fatalf("timeseries = %d points, want 3 (2 months + SEM_DATA)", len(res.Timeseries))
	}
	if res.Timeseries[0].Period != "2026-01" || res.Timeseries[1].Period != "2026-02" {
		t.Errorf("periods = %s, %s", res.Timeseries[0].Period, res.Timeseries[1].Period)
	}
	if res.Timeseries[2].Period != semData {
		t.Errorf("last period = %s, want %s", res.Timeseries[2].Period, semData)
	}
	approx(t, "jan receita", res.Timeseries[0].Receita, 1000)
	approx(t, "jan atual", res.Timeseries[0].Atual, 180+16.5+76)
	approx(t, "jan reforma", res.Timeseries[0].Reforma, 180+1000*0.098)

	// Timeseries must sum to the KPI totals.
	var receita, atual, reforma float64
	for _, p := range res.Timeseries {
		receita += p.Receita
		atual += p.Atual
		reforma += p.Reforma
	}
	approx(t, "sum receita", receita, res.KPIs.ReceitaTotal)
	approx(t, "sum atual", atual, res.KPIs.CargaAtualTotal)
	approx(t, "sum reforma", reforma, res.KPIs.CargaReformaTotal)
}

func TestEmpty(t *testing.T) {
	res := Empty(2027)
	if res.KPIs.AnoReforma != 2027 {
		t.Errorf("ano_reforma = %d", res.KPIs.AnoReforma)
	}
	if len(res.Detalhes) != 5 {
		t.Errorf("detalhes = %d entries, want 5", len(res.Detalhes))
	}
	if res.Timeseries == nil || len(res.Timeseries) != 0 {
		t.Errorf("timeseries = %+v, want empty non-nil", res.Timeseries)
	}
	for _, d := range res.Detalhes {
		if d.Atual != 0 || d.Reforma != 0 {
			t.Errorf("non-zero detail in empty result: %+v", d)
		}
	}
}
