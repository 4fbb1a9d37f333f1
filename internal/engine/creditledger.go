package engine

import (
	"sort"

	"github.com/mpaiva/fiscalsim/internal/classifier"
)

// topLimit caps the per-dimension rollups in the credit ledger.
const topLimit = 15

// buildCreditLedger summarizes appropriation per month and per finalidade
// from the engine's own buckets. Summary figures are window-free: the
// allocation map includes months past the queried window, so saldo_a_apropriar
// means "remaining future appropriation" on short windows.
func buildCreditLedger(allocByMonth map[string]float64, finBuckets map[classifier.Finalidade]*finBucket) *CreditLedger {
	var totalGerado, totalGlosa, totalLiquido float64

	byFin := make(map[string]CreditLedgerByPurpose, len(finBuckets))
	for fin, it := range finBuckets {
		totalGerado += it.CreditoPotencial
		totalGlosa += it.Glosa
		totalLiquido += it.CreditoAproveitado

		byFin[string(fin)] = CreditLedgerByPurpose{
			CreditoGerado:              it.CreditoPotencial,
			Glosa:                      it.Glosa,
			CreditoAposGlosa:           it.CreditoAproveitado,
			CreditoApropriadoNoPeriodo: it.CreditoApropriadoNoPeriodo,
		}
	}

	months := make([]string, 0, len(allocByMonth))
	for m := range allocByMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	var apropriadoTotal float64
	series := make([]CreditSeriesPoint, 0, len(months))
	for _, m := range months {
		series = append(series, CreditSeriesPoint{Period: m, CreditoApropriado: allocByMonth[m]})
		apropriadoTotal += allocByMonth[m]
	}

	return &CreditLedger{
		Summary: CreditLedgerSummary{
			CreditoGerado:     totalGerado,
			Glosa:             totalGlosa,
			CreditoAposGlosa:  totalLiquido,
			CreditoApropriado: apropriadoTotal,
			SaldoAApropriar:   max0(totalLiquido - apropriadoTotal),
		},
		ByFinalidade: byFin,
		Series:       series,
	}
}

// topBy ranks events by appropriated credit along one dimension. Ties keep
// key order so the output is deterministic.
func topBy(events []CreditEvent, key func(CreditEvent) string, limit int) []BreakdownItem {
	buckets := map[string]float64{}
	for _, e := range events {
		buckets[key(e)] += e.CreditoApropriado
	}

	items := make([]BreakdownItem, 0, len(buckets))
	for k, v := range buckets {
		items = append(items, BreakdownItem{Key: k, Value: v})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value > items[j].Value
		}
		return items[i].Key < items[j].Key
	})

	if limit < 0 {
		limit = 0
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// agingSaldoAApropriar bands the un-appropriated balance at the endMonth
// cutoff by age since emission.
//
// Per emission month: net credit total minus everything appropriated up to
// the cutoff, floored at zero. Non-ATIVO items appropriate in their emission
// month and so contribute nothing; the bands expose the capital-asset tail.
func agingSaldoAApropriar(events []CreditEvent, endMonth string) AgingBuckets {
	liquidoByEmit := map[string]float64{}
	apropriadoByEmit := map[string]float64{}

	for _, e := range events {
		liquidoByEmit[e.EmitMonth] += e.CreditoAposGlosa
		if monthDiff(e.AppropriationMonth, endMonth) >= 0 {
			apropriadoByEmit[e.EmitMonth] += e.CreditoApropriado
		}
	}

	var b AgingBuckets
	for em, liq := range liquidoByEmit {
		saldo := max0(liq - apropriadoByEmit[em])
		if saldo <= 0 {
			continue
		}
		switch age := monthDiff(em, endMonth); {
		case age < 3:
			b.Months0To3 += saldo
		case age < 6:
			b.Months3To6 += saldo
		case age < 12:
			b.Months6To12 += saldo
		default:
			b.Months12Plus += saldo
		}
	}
	return b
}
