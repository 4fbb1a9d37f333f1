package engine

import (
	"math"
	"testing"
	"time"

	"github.com/mpaiva/fiscalsim/internal/domain"
)

const eps = 1e-9

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func testFilters() Filters {
	return Filters{
		PeriodoInicio: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodoFim:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestRunOutboundBurden(t *testing.T) {
	rows := []domain.Row{
		{
			Dhemi:     "2026-03-10",
			UF:        "SP",
			UFDest:    "RJ",
			VProd:     "1000,00",
			VICMS:     "200,00",
			VPIS:      "16,50",
			VCofins:   "56,00",
			CFOP:      "5102",
			Movimento: "SAIDA",
		},
	}

	res := Run(rows, testFilters(), DefaultScenario())

	if res.Base.Rows != 1 {
		t.Fatalf("rows = %d, want 1", res.Base.Rows)
	}
	approx(t, "base.saida_receita", res.Base.SaidaReceita, 1000)
	approx(t, "atual.carga_total", res.Atual.CargaTotal, 272.5)
	approx(t, "reforma.cbs", res.Reforma.CBS, 88)
	approx(t, "reforma.ibs", res.Reforma.IBS, 10)
	approx(t, "reforma.carga_bruta", res.Reforma.CargaBruta, 98)
	approx(t, "reforma.carga_liquida", res.Reforma.CargaLiquida, 98)

	// prazo 30 days: cash factor 1.0
	approx(t, "caixa.impacto", res.Caixa.ImpactoCaixaEstimado, 98)

	if len(res.Series) != 1 || res.Series[0].Period != "2026-03" {
		t.Fatalf("series = %+v, want single 2026-03 point", res.Series)
	}
	approx(t, "series.reforma_bruta", res.Series[0].ReformaBruta, 98)
	approx(t, "series.atual_total", res.Series[0].AtualTotal, 272.5)
}

func TestRunAtivoAmortization(t *testing.T) {
	c := DefaultScenario()
	c.AtivoMeses = 2

	rows := []domain.Row{
		{
			Dhemi:     "2026-01-15",
			UF:        "MG",
			UFDest:    "SP",
			VProd:     "1000,00",
			NCM:       "84439933",
			CFOP:      "1551",
			Produto:   "MAQUINA INDUSTRIAL",
			Movimento: "ENTRADA",
		},
	}

	res := Run(rows, testFilters(), c)

	// 1000 * 0.098 * 0.5 = 49 generated, amortized 24.5 + 24.5.
	approx(t, "creditos.credito_potencial", res.Creditos.CreditoPotencial, 49)
	approx(t, "creditos.credito_aproveitado", res.Creditos.CreditoAproveitado, 49)

	// Only 2026-01 is a visible month (the row's own); the 2026-02 portion
	// falls outside the series and is excluded from the period KPI.
	approx(t, "creditos.apropriado_no_periodo", res.Creditos.CreditoApropriadoNoPeriodo, 24.5)

	if len(res.Series) != 1 || res.Series[0].Period != "2026-01" {
		t.Fatalf("series = %+v, want single 2026-01 point", res.Series)
	}
	approx(t, "series.credito_aproveitado", res.Series[0].CreditoAproveitado, 24.5)

	ledger := res.CreditLedger
	if ledger == nil {
		t.Fatal("credit_ledger missing")
	}
	if len(ledger.Series) != 2 {
		t.Fatalf("ledger series months = %d, want 2", len(ledger.Series))
	}
	approx(t, "ledger.series[0]", ledger.Series[0].CreditoApropriado, 24.5)
	approx(t, "ledger.series[1]", ledger.Series[1].CreditoApropriado, 24.5)
	if ledger.Series[0].Period != "2026-01" || ledger.Series[1].Period != "2026-02" {
		t.Errorf("ledger periods = %s, %s", ledger.Series[0].Period, ledger.Series[1].Period)
	}
	approx(t, "ledger.summary.credito_apropriado", ledger.Summary.CreditoApropriado, 49)
	approx(t, "ledger.summary.saldo_a_apropriar", ledger.Summary.SaldoAApropriar, 0)

	if ledger.Aging == nil {
		t.Fatal("aging missing with events present")
	}
}

func TestRunAtivoEventConservation(t *testing.T) {
	c := DefaultScenario()
	c.AtivoMeses = 48
	c.PercGlosa = 0.1

	rows := []domain.Row{
		{
			Dhemi:     "2026-01-15",
			VProd:     "10000,00",
			CFOP:      "1551",
			Produto:   "SERVIDOR RACK",
			Movimento: "ENTRADA",
		},
	}

	res := Run(rows, testFilters(), c)

	// All 48 portions together must equal the row's net credit.
	var sum float64
	for _, p := range res.CreditLedger.Series {
		sum += p.CreditoApropriado
	}
	approx(t, "sum(ledger series)", sum, res.Creditos.CreditoAproveitado)
	if n := len(res.CreditLedger.Series); n != 48 {
		t.Errorf("amortization months = %d, want 48", n)
	}
}

func TestRunNonAtivoSingleAppropriation(t *testing.T) {
	rows := []domain.Row{
		{
			Dhemi:     "2026-05-02",
			VProd:     "500,00",
			CFOP:      "1102",
			Produto:   "MERCADORIA PARA REVENDA",
			Movimento: "ENTRADA",
		},
	}

	res := Run(rows, testFilters(), DefaultScenario())

	// 500 * 0.098 * 1.0, appropriated entirely in the emission month.
	approx(t, "creditos.aproveitado", res.Creditos.CreditoAproveitado, 49)
	approx(t, "creditos.apropriado_no_periodo", res.Creditos.CreditoApropriadoNoPeriodo, 49)

	if n := len(res.CreditLedger.Series); n != 1 {
		t.Fatalf("ledger series months = %d, want 1", n)
	}
	if res.CreditLedger.Series[0].Period != "2026-05" {
		t.Errorf("appropriation month = %s, want 2026-05", res.CreditLedger.Series[0].Period)
	}
}

func TestRunGlosaMonotonic(t *testing.T) {
	rows := []domain.Row{
		{Dhemi: "2026-02-01", VProd: "1000,00", CFOP: "1102", Movimento: "ENTRADA"},
	}

	base := DefaultScenario()
	withGlosa := DefaultScenario()
	withGlosa.PercGlosa = 0.3

	r0 := Run(rows, testFilters(), base)
	r1 := Run(rows, testFilters(), withGlosa)

	if r1.Creditos.CreditoAproveitado >= r0.Creditos.CreditoAproveitado {
		t.Errorf("glosa did not reduce net credit: %v >= %v",
			r1.Creditos.CreditoAproveitado, r0.Creditos.CreditoAproveitado)
	}
	approx(t, "glosa amount", r1.Creditos.Glosa, r1.Creditos.CreditoPotencial*0.3)
	approx(t, "potencial unchanged", r1.Creditos.CreditoPotencial, r0.Creditos.CreditoPotencial)
}

func TestRunIdempotent(t *testing.T) {
	rows := []domain.Row{
		{Dhemi: "2026-01-10", VProd: "1000,00", CFOP: "5102", Movimento: "SAIDA"},
		{Dhemi: "2026-01-20", VProd: "400,00", CFOP: "1102", Movimento: "ENTRADA"},
		{Dhemi: "2026-02-03", VProd: "2500,00", CFOP: "1551", Produto: "EQUIPAMENTO", Movimento: "ENTRADA"},
	}

	a := Run(rows, testFilters(), DefaultScenario())
	b := Run(rows, testFilters(), DefaultScenario())

	approx(t, "carga_liquida", b.Reforma.CargaLiquida, a.Reforma.CargaLiquida)
	approx(t, "total_caixa", b.CashLedger.Summary.TotalCaixa, a.CashLedger.Summary.TotalCaixa)
	if len(a.Series) != len(b.Series) || len(a.BreakdownFinalidade) != len(b.BreakdownFinalidade) {
		t.Error("repeated runs produced different shapes")
	}
	for i := range a.BreakdownFinalidade {
		if a.BreakdownFinalidade[i] != b.BreakdownFinalidade[i] {
			t.Errorf("breakdown_finalidade[%d] differs between runs", i)
		}
	}
}

func TestRunMovimentoFilter(t *testing.T) {
	rows := []domain.Row{
		{Dhemi: "2026-01-10", VProd: "1000,00", CFOP: "5102", Movimento: "SAIDA"},
		{Dhemi: "2026-01-20", VProd: "400,00", CFOP: "1102", Movimento: "ENTRADA"},
	}

	f := testFilters()
	f.Movimento = "entrada"

	res := Run(rows, f, DefaultScenario())

	if res.Base.Rows != 1 {
		t.Fatalf("rows = %d, want 1", res.Base.Rows)
	}
	approx(t, "saida_receita", res.Base.SaidaReceita, 0)
	approx(t, "entrada_base", res.Base.EntradaBase, 400)
}

func TestRunFinalidadeFilterAfterRules(t *testing.T) {
	// The rule rewrites CFOP 1102 from REVENDA to ATIVO; the finalidade
	// filter must see the rewritten value.
	rows := []domain.Row{
		{Dhemi: "2026-01-20", VProd: "400,00", CFOP: "1102", Movimento: "ENTRADA"},
	}

	f := testFilters()
	f.Finalidade = "ATIVO"
	f.RegrasJSON = `[{"match":"cfop","value":"1102","finalidade":"ATIVO"}]`

	res := Run(rows, f, DefaultScenario())
	if res.Base.Rows != 1 {
		t.Fatalf("rule-rewritten row filtered out: rows = %d", res.Base.Rows)
	}

	f.RegrasJSON = ""
	res = Run(rows, f, DefaultScenario())
	if res.Base.Rows != 0 {
		t.Fatalf("unrewritten REVENDA row passed ATIVO filter: rows = %d", res.Base.Rows)
	}
}

func TestRunRuleShortCircuit(t *testing.T) {
	rows := []domain.Row{
		{Dhemi: "2026-01-20", VProd: "1000,00", CFOP: "1102", Movimento: "ENTRADA"},
	}

	f := testFilters()
	f.RegrasJSON = `[
		{"match":"cfop","value":"1102","perc_credit":0.2},
		{"match":"cfop_prefix","value":"11","perc_credit":0.9}
	]`

	res := Run(rows, f, DefaultScenario())

	// First match wins: 1000 * 0.098 * 0.2.
	approx(t, "creditos.potencial", res.Creditos.CreditoPotencial, 19.6)
}

func TestRunDatelessRowKeepsTotals(t *testing.T) {
	rows := []domain.Row{
		{Dhemi: "not-a-date", VProd: "1000,00", CFOP: "5102", Movimento: "SAIDA"},
	}

	res := Run(rows, testFilters(), DefaultScenario())

	if res.Base.Rows != 1 {
		t.Fatalf("rows = %d, want 1", res.Base.Rows)
	}
	approx(t, "reforma.carga_bruta", res.Reforma.CargaBruta, 98)
	if len(res.Series) != 0 {
		t.Errorf("dateless row produced series points: %+v", res.Series)
	}
}

func TestRunEmptyInput(t *testing.T) {
	res := Run(nil, testFilters(), DefaultScenario())

	if res.Base.Rows != 0 {
		t.Errorf("rows = %d, want 0", res.Base.Rows)
	}
	approx(t, "carga_bruta", res.Reforma.CargaBruta, 0)
	approx(t, "carga_liquida", res.Reforma.CargaLiquida, 0)

	if res.CreditLedger == nil {
		t.Error("credit_ledger must be present on empty input")
	} else {
		if res.CreditLedger.Aging != nil {
			t.Error("aging must be absent without credit events")
		}
		if len(res.CreditLedger.Series) != 0 {
			t.Errorf("ledger series = %+v, want empty", res.CreditLedger.Series)
		}
	}
	if res.CashLedger == nil {
		t.Error("cash_ledger must be present on empty input")
	}

	if len(res.BreakdownMovimento) != 2 {
		t.Fatalf("breakdown_movimento = %+v", res.BreakdownMovimento)
	}
	if res.BreakdownMovimento[0].Key != "SAIDA" || res.BreakdownMovimento[1].Key != "ENTRADA" {
		t.Errorf("breakdown_movimento order = %s, %s",
			res.BreakdownMovimento[0].Key, res.BreakdownMovimento[1].Key)
	}
}

func TestRunBreakdownFinalidadeOrder(t *testing.T) {
	rows := []domain.Row{
		{Dhemi: "2026-01-05", VProd: "100,00", CFOP: "1102", Movimento: "ENTRADA"},
		{Dhemi: "2026-01-06", VProd: "900,00", CFOP: "1556", Produto: "MATERIAL DE USO E CONSUMO", Movimento: "ENTRADA"},
	}

	res := Run(rows, testFilters(), DefaultScenario())

	if len(res.BreakdownFinalidade) != 2 {
		t.Fatalf("breakdown_finalidade = %+v", res.BreakdownFinalidade)
	}
	if res.BreakdownFinalidade[0].Finalidade != "CONSUMO" {
		t.Errorf("largest entrada_base first: got %s", res.BreakdownFinalidade[0].Finalidade)
	}
	if res.BreakdownFinalidade[0].EntradaBase < res.BreakdownFinalidade[1].EntradaBase {
		t.Error("breakdown_finalidade not sorted by entrada_base desc")
	}
}

func TestRunTopRollups(t *testing.T) {
	rows := []domain.Row{
		{Dhemi: "2026-01-05", VProd: "100,00", NCM: "1001.10", CFOP: "1102", Produto: "TRIGO", Movimento: "ENTRADA"},
		{Dhemi: "2026-01-06", VProd: "300,00", NCM: "22030000", CFOP: "1102", Produto: "CERVEJA", Movimento: "ENTRADA"},
	}

	res := Run(rows, testFilters(), DefaultScenario())

	if len(res.CreditLedger.TopNCM) != 2 {
		t.Fatalf("top_ncm = %+v", res.CreditLedger.TopNCM)
	}
	if res.CreditLedger.TopNCM[0].Key != "22030000" {
		t.Errorf("top_ncm[0] = %s, want 22030000", res.CreditLedger.TopNCM[0].Key)
	}
	// NCM keys are digit-normalized.
	if res.CreditLedger.TopNCM[1].Key != "100110" {
		t.Errorf("top_ncm[1] = %s, want 100110", res.CreditLedger.TopNCM[1].Key)
	}
	if res.CreditLedger.TopProduto[0].Key != "CERVEJA" {
		t.Errorf("top_produto[0] = %s, want CERVEJA", res.CreditLedger.TopProduto[0].Key)
	}
}
