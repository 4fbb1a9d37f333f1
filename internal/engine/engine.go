package engine

import (
	"sort"

	"github.com/mpaiva/fiscalsim/internal/classifier"
	"github.com/mpaiva/fiscalsim/internal/domain"
	"github.com/mpaiva/fiscalsim/internal/money"
)

// monthBucket accumulates one month of the accrual series. CreditoAproveitado
// is filled after the row loop from the allocation map, because capital-asset
// credit lands across months, not where the row sits.
type monthBucket struct {
	SaidaReceita       float64
	EntradaBase        float64
	AtualTotal         float64
	ReformaBruta       float64
	CreditoAproveitado float64
}

// finBucket accumulates the per-purpose credit table.
type finBucket struct {
	EntradaBase                float64
	CreditoPotencial           float64
	Glosa                      float64
	CreditoAproveitado         float64
	CreditoApropriadoNoPeriodo float64
}

// Run executes one simulation over rows already dimensionally filtered by the
// dataset store. Movimento and finalidade are re-filtered here: the CSV
// movimento tag is the source of truth (classifier fallback for invalid
// tags), and finalidade can be rewritten by rules, so the finalidade filter
// must apply to the post-rule value.
//
// Capital-asset (ATIVO) appropriation is aggregated by emission month during
// the loop and distributed 1/N afterwards, so a 48-month amortization does
// not cost 48 iterations per row.
func Run(rows []domain.Row, f Filters, c Scenario) *Result {
	rules := ParseRulesJSON(f.RegrasJSON)

	movFilter, movFilterOK := classifier.SafeMovimento(f.Movimento)
	finFilter, finFilterOK := classifier.SafeFinalidade(f.Finalidade)

	bucketMonth := map[string]*monthBucket{}
	bucketMov := map[classifier.Movimento]float64{classifier.Entrada: 0, classifier.Saida: 0}
	bucketFin := map[classifier.Finalidade]*finBucket{}

	// Credit appropriated per month, after ATIVO distribution.
	creditAllocMonth := map[string]float64{}

	// Net credit pooled by emission month, distributed after the loop.
	ativoCreditByEmissionMonth := map[string]float64{}

	var creditEvents []CreditEvent

	var (
		rowsFiltradas int
		saidaReceita  float64
		entradaBase   float64

		icms, pis, cofins float64
		cbs, ibs, isel    float64

		creditoPotencial           float64
		glosaTotal                 float64
		creditoAproveitadoTotal    float64
		creditoApropriadoNoPeriodo float64
	)

	aliqCBS := c.AliquotaCBS
	aliqIBS := c.AliquotaIBS
	aliqIS := c.AliquotaIS
	aliqTotal := aliqCBS + aliqIBS + aliqIS

	ativoMeses := c.AtivoMeses
	if ativoMeses < 1 {
		ativoMeses = 1
	}

	for _, r := range rows {
		mov, ok := classifier.SafeMovimento(r.MovimentoTag())
		if !ok {
			mov = classifier.Direction(r)
		}

		finBase := classifier.Purpose(r)

		if movFilterOK && mov != movFilter {
			continue
		}

		finEff, percCredit, percGlosa := ApplyRules(r, finBase, c, rules)

		if finFilterOK && finEff != finFilter {
			continue
		}

		rowsFiltradas++

		vprod := money.Parse(r.VProd)
		icmsI := money.Parse(r.VICMS)
		pisI := money.Parse(r.VPIS)
		cofinsI := money.Parse(r.VCofins)

		icms += icmsI
		pis += pisI
		cofins += cofinsI

		emission, hasDate := domain.ParseDate(r.EmissionDate())
		var mk string
		if hasDate {
			mk = MonthKey(emission)
			if _, exists := bucketMonth[mk]; !exists {
				bucketMonth[mk] = &monthBucket{}
			}
			bucketMonth[mk].AtualTotal += icmsI + pisI + cofinsI
		}

		if mov == classifier.Saida {
			saidaReceita += vprod
			bucketMov[classifier.Saida] += vprod

			cbs += vprod * aliqCBS
			ibs += vprod * aliqIBS
			isel += vprod * aliqIS

			if hasDate {
				bucketMonth[mk].SaidaReceita += vprod
				bucketMonth[mk].ReformaBruta += vprod * aliqTotal
			}
			continue
		}

		entradaBase += vprod
		bucketMov[classifier.Entrada] += vprod

		baseTrib := vprod * aliqTotal
		credPot := baseTrib * percCredit
		gl := credPot * percGlosa
		credAp := max0(credPot - gl)

		creditoPotencial += credPot
		glosaTotal += gl
		creditoAproveitadoTotal += credAp

		creditEvents = appendCreditEvents(creditEvents, r, finEff, emission, hasDate, credPot, gl, credAp, ativoMeses)

		fb := bucketFin[finEff]
		if fb == nil {
			fb = &finBucket{}
			bucketFin[finEff] = fb
		}
		fb.EntradaBase += vprod
		fb.CreditoPotencial += credPot
		fb.Glosa += gl
		fb.CreditoAproveitado += credAp

		if hasDate {
			bucketMonth[mk].EntradaBase += vprod

			if finEff == classifier.Ativo {
				ativoCreditByEmissionMonth[mk] += credAp
			} else {
				creditAllocMonth[mk] += credAp
				fb.CreditoApropriadoNoPeriodo += credAp
			}
		}
	}

	// Distribute pooled ATIVO credit over the amortization horizon.
	if len(ativoCreditByEmissionMonth) > 0 {
		for mkEmit, total := range ativoCreditByEmissionMonth {
			baseMonth, ok := firstDayFromPeriod(mkEmit)
			if !ok {
				continue
			}
			portion := total / float64(ativoMeses)
			for i := 0; i < ativoMeses; i++ {
				mm := MonthKey(AddMonthsFirstDay(baseMonth, i))
				creditAllocMonth[mm] += portion
			}
		}

		if ab := bucketFin[classifier.Ativo]; ab != nil {
			for mm, val := range creditAllocMonth {
				if _, visible := bucketMonth[mm]; visible {
					ab.CreditoApropriadoNoPeriodo += val
				}
			}
		}
	}

	// Period-scoped KPI: only allocations landing in visible months count.
	for mk, val := range creditAllocMonth {
		if b, visible := bucketMonth[mk]; visible {
			b.CreditoAproveitado += val
			creditoApropriadoNoPeriodo += val
		}
	}

	cargaAtual := icms + pis + cofins
	cargaBruta := cbs + ibs + isel
	cargaLiquida := max0(cargaBruta - creditoApropriadoNoPeriodo)

	prazoFactor := 0.0
	if c.PrazoMedioDias != 0 {
		prazoFactor = float64(c.PrazoMedioDias) / 30.0
	}
	impactoCaixa := cargaLiquida * prazoFactor

	breakdownMov := []BreakdownItem{
		{Key: string(classifier.Saida), Value: bucketMov[classifier.Saida]},
		{Key: string(classifier.Entrada), Value: bucketMov[classifier.Entrada]},
	}

	breakdownFin := make([]FinalidadeItem, 0, len(bucketFin))
	for fin, it := range bucketFin {
		breakdownFin = append(breakdownFin, FinalidadeItem{
			Finalidade:                 string(fin),
			EntradaBase:                it.EntradaBase,
			CreditoPotencial:           it.CreditoPotencial,
			Glosa:                      it.Glosa,
			CreditoAproveitado:         it.CreditoAproveitado,
			CreditoApropriadoNoPeriodo: it.CreditoApropriadoNoPeriodo,
		})
	}
	sort.SliceStable(breakdownFin, func(i, j int) bool {
		if breakdownFin[i].EntradaBase != breakdownFin[j].EntradaBase {
			return breakdownFin[i].EntradaBase > breakdownFin[j].EntradaBase
		}
		return breakdownFin[i].Finalidade < breakdownFin[j].Finalidade
	})

	periods := make([]string, 0, len(bucketMonth))
	for mk := range bucketMonth {
		periods = append(periods, mk)
	}
	sort.Strings(periods)

	series := make([]SeriesPoint, 0, len(periods))
	for _, period := range periods {
		m := bucketMonth[period]
		liq := max0(m.ReformaBruta - m.CreditoAproveitado)
		series = append(series, SeriesPoint{
			Period:               period,
			SaidaReceita:         m.SaidaReceita,
			EntradaBase:          m.EntradaBase,
			AtualTotal:           m.AtualTotal,
			ReformaBruta:         m.ReformaBruta,
			CreditoAproveitado:   m.CreditoAproveitado,
			ReformaLiquida:       liq,
			ImpactoCaixaEstimado: liq * prazoFactor,
		})
	}

	ledger := buildCreditLedger(creditAllocMonth, bucketFin)
	if len(creditEvents) > 0 {
		endMonth := MonthKey(f.PeriodoFim)
		aging := agingSaldoAApropriar(creditEvents, endMonth)
		ledger.Aging = &aging
		ledger.TopNCM = topBy(creditEvents, func(e CreditEvent) string { return e.NCM }, topLimit)
		ledger.TopCFOP = topBy(creditEvents, func(e CreditEvent) string { return e.CFOP }, topLimit)
		ledger.TopProduto = topBy(creditEvents, func(e CreditEvent) string { return e.Produto }, topLimit)
	}

	cash := buildCashLedger(series, cashConfig{
		PrazoMedioDias:            c.PrazoMedioDias,
		SplitPercent:              c.SplitPercent,
		DelayDays:                 c.DelayDays,
		ResidualInstallments:      c.ResidualInstallments,
		ResidualStartOffsetMonths: c.ResidualStartOffsetMonths,
	})

	return &Result{
		Base: BaseBlock{
			Rows:         rowsFiltradas,
			SaidaReceita: saidaReceita,
			EntradaBase:  entradaBase,
		},
		Atual: AtualBlock{
			ICMS:       icms,
			PIS:        pis,
			Cofins:     cofins,
			CargaTotal: cargaAtual,
		},
		Reforma: ReformaBlock{
			CBS:          cbs,
			IBS:          ibs,
			IS:           isel,
			CargaBruta:   cargaBruta,
			CargaLiquida: cargaLiquida,
		},
		Creditos: CreditosBlock{
			CreditoPotencial:           creditoPotencial,
			Glosa:                      glosaTotal,
			CreditoAproveitado:         creditoAproveitadoTotal,
			CreditoApropriadoNoPeriodo: creditoApropriadoNoPeriodo,
		},
		Caixa: CaixaBlock{
			PrazoMedioDias:       c.PrazoMedioDias,
			ImpactoCaixaEstimado: impactoCaixa,
		},
		BreakdownMovimento:  breakdownMov,
		BreakdownFinalidade: breakdownFin,
		Series:              series,
		CreditLedger:        ledger,
		CashLedger:          cash,
	}
}
