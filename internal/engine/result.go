package engine

// Result is the full simulation output. The JSON shape is the stable wire
// contract: downstream consumers bind to these keys positionally, so field
// names and nesting must not change.
type Result struct {
	Base     BaseBlock     `json:"base"`
	Atual    AtualBlock    `json:"atual"`
	Reforma  ReformaBlock  `json:"reforma"`
	Creditos CreditosBlock `json:"creditos"`
	Caixa    CaixaBlock    `json:"caixa"`

	BreakdownMovimento  []BreakdownItem  `json:"breakdown_movimento"`
	BreakdownFinalidade []FinalidadeItem `json:"breakdown_finalidade"`
	Series              []SeriesPoint    `json:"series"`

	CreditLedger *CreditLedger `json:"credit_ledger"`
	CashLedger   *CashLedger   `json:"cash_ledger"`
}

// BaseBlock counts the rows that survived filtering and their gross values.
type BaseBlock struct {
	Rows         int     `json:"rows"`
	SaidaReceita float64 `json:"saida_receita"`
	EntradaBase  float64 `json:"entrada_base"`
}

// AtualBlock totals the three current-regime taxes.
type AtualBlock struct {
	ICMS       float64 `json:"icms"`
	PIS        float64 `json:"pis"`
	Cofins     float64 `json:"cofins"`
	CargaTotal float64 `json:"carga_total"`
}

// ReformaBlock totals the reform taxes. CargaLiquida subtracts only credit
// appropriated into months visible in Series; credit landing outside the
// queried window is excluded from this KPI even when generated by in-window
// rows. The credit ledger's saldo_a_apropriar deliberately uses the opposite
// (window-free) convention.
type ReformaBlock struct {
	CBS          float64 `json:"cbs"`
	IBS          float64 `json:"ibs"`
	IS           float64 `json:"is"`
	CargaBruta   float64 `json:"carga_bruta"`
	CargaLiquida float64 `json:"carga_liquida"`
}

// CreditosBlock summarizes input-credit generation and appropriation.
type CreditosBlock struct {
	CreditoPotencial           float64 `json:"credito_potencial"`
	Glosa                      float64 `json:"glosa"`
	CreditoAproveitado         float64 `json:"credito_aproveitado"`
	CreditoApropriadoNoPeriodo float64 `json:"credito_apropriado_no_periodo"`
}

// CaixaBlock carries the coarse cash estimate. ImpactoCaixaEstimado is the
// legacy figure (net liability x prazo/30), superseded by CashLedger but
// kept for contract stability.
type CaixaBlock struct {
	PrazoMedioDias       int     `json:"prazo_medio_dias"`
	ImpactoCaixaEstimado float64 `json:"impacto_caixa_estimado"`
}

// BreakdownItem is a generic (key, value) aggregation row.
type BreakdownItem struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// FinalidadeItem is the per-purpose credit breakdown.
type FinalidadeItem struct {
	Finalidade                 string  `json:"finalidade"`
	EntradaBase                float64 `json:"entrada_base"`
	CreditoPotencial           float64 `json:"credito_potencial"`
	Glosa                      float64 `json:"glosa"`
	CreditoAproveitado         float64 `json:"credito_aproveitado"`
	CreditoApropriadoNoPeriodo float64 `json:"credito_apropriado_no_periodo"`
}

// SeriesPoint is one month of the accrual (competência) series.
type SeriesPoint struct {
	Period string `json:"period"`

	SaidaReceita float64 `json:"saida_receita"`
	EntradaBase  float64 `json:"entrada_base"`

	AtualTotal float64 `json:"atual_total"`

	ReformaBruta         float64 `json:"reforma_bruta"`
	CreditoAproveitado   float64 `json:"credito_aproveitado"`
	ReformaLiquida       float64 `json:"reforma_liquida"`
	ImpactoCaixaEstimado float64 `json:"impacto_caixa_estimado"`
}

// CreditLedger tracks credit generation, disallowance and appropriation over
// time. Aging and the top rollups are present only when the run produced
// credit events (i.e. at least one dated inbound row).
type CreditLedger struct {
	Summary      CreditLedgerSummary             `json:"summary"`
	ByFinalidade map[string]CreditLedgerByPurpose `json:"by_finalidade"`
	Series       []CreditSeriesPoint             `json:"series"`

	Aging      *AgingBuckets   `json:"aging,omitempty"`
	TopNCM     []BreakdownItem `json:"top_ncm,omitempty"`
	TopCFOP    []BreakdownItem `json:"top_cfop,omitempty"`
	TopProduto []BreakdownItem `json:"top_produto,omitempty"`
}

// CreditLedgerSummary totals the ledger. SaldoAApropriar = net - appropriated
// across all months, a "remaining future appropriation" figure that is exact
// when the window covers the full amortization tail.
type CreditLedgerSummary struct {
	CreditoGerado    float64 `json:"credito_gerado"`
	Glosa            float64 `json:"glosa"`
	CreditoAposGlosa float64 `json:"credito_apos_glosa"`

	CreditoApropriado float64 `json:"credito_apropriado"`
	SaldoAApropriar   float64 `json:"saldo_a_apropriar"`
}

// CreditLedgerByPurpose is the ledger view of one finalidade bucket.
type CreditLedgerByPurpose struct {
	CreditoGerado              float64 `json:"credito_gerado"`
	Glosa                      float64 `json:"glosa"`
	CreditoAposGlosa           float64 `json:"credito_apos_glosa"`
	CreditoApropriadoNoPeriodo float64 `json:"credito_apropriado_no_periodo"`
}

// CreditSeriesPoint is one month of appropriated credit.
type CreditSeriesPoint struct {
	Period            string  `json:"period"`
	CreditoApropriado float64 `json:"credito_apropriado"`
}

// AgingBuckets bands the un-appropriated balance by age in months between
// emission and the period-end cutoff.
type AgingBuckets struct {
	Months0To3   float64 `json:"0_3"`
	Months3To6   float64 `json:"3_6"`
	Months6To12  float64 `json:"6_12"`
	Months12Plus float64 `json:"12_plus"`
}

// CashLedger re-buckets the accrual series into estimated payment months.
type CashLedger struct {
	Summary CashLedgerSummary `json:"summary"`
	Series  []CashSeriesPoint `json:"series"`
}

// CashLedgerSummary echoes the timing parameters and totals the cash view.
type CashLedgerSummary struct {
	PrazoMedioDias            int     `json:"prazo_medio_dias"`
	DelayDays                 int     `json:"delay_days"`
	SplitPercent              float64 `json:"split_percent"`
	ResidualInstallments      int     `json:"residual_installments"`
	ResidualStartOffsetMonths int     `json:"residual_start_offset_months"`

	TotalCaixa    float64 `json:"total_caixa"`
	TotalSplit    float64 `json:"total_split"`
	TotalResidual float64 `json:"total_residual"`

	PicoCaixa CashPeak `json:"pico_caixa"`
}

// CashPeak is the heaviest single cash month. Period is empty when every
// month is zero.
type CashPeak struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// CashSeriesPoint is one month of the cash view, with the competency figures
// for the same period carried alongside for comparison.
type CashSeriesPoint struct {
	Period string `json:"period"`

	CompetenciaBruta   float64 `json:"competencia_bruta"`
	CompetenciaLiquida float64 `json:"competencia_liquida"`

	CaixaSplit    float64 `json:"caixa_split"`
	CaixaResidual float64 `json:"caixa_residual"`
	CaixaTotal    float64 `json:"caixa_total"`

	DeltaCaixaMenosCompetencia float64 `json:"delta_caixa_menos_competencia"`
}
