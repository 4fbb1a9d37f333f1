package engine

import (
	"time"

	"github.com/mpaiva/fiscalsim/internal/classifier"
	"github.com/mpaiva/fiscalsim/internal/domain"
)

// CreditEvent is one credit appropriation for one item in one month.
//
// Grain:
//   - non-ATIVO items emit exactly one event, appropriated in the emission
//     month;
//   - ATIVO items emit one event per amortization month, each carrying 1/N
//     of the item's generated/glosa/net/appropriated amounts.
//
// Events are generated once per row and never merged, so dimensional
// rollups and aging stay traceable to items.
type CreditEvent struct {
	EmitMonth          string
	AppropriationMonth string
	Finalidade         classifier.Finalidade

	UFOrigem string
	UFDest   string
	CFOP     string
	NCM      string
	Produto  string

	CreditoGerado    float64 // before glosa
	Glosa            float64
	CreditoAposGlosa float64 // net, floored at zero

	CreditoApropriado float64 // appropriated in this event's month
}

// appendCreditEvents expands one inbound item into its credit events.
//
// A row without a parseable emission date emits nothing, mirroring the
// engine's monthly-series policy. For ATIVO the glosa is split pro rata with
// the credit (gerado/N, glosa/N), each portion's net floored independently.
func appendCreditEvents(
	out []CreditEvent,
	row domain.Row,
	fin classifier.Finalidade,
	emission time.Time,
	hasDate bool,
	credPot, glosa, credAp float64,
	ativoMeses int,
) []CreditEvent {
	if !hasDate {
		return out
	}

	emitMonth := MonthKey(emission)
	ufOrigem := row.OriginUF()
	ufDest := row.DestUF()
	cfop := row.CFOPDigits()
	ncm := row.NCMDigits()
	produto := row.ProductDesc()

	if fin == classifier.Ativo {
		n := ativoMeses
		if n < 1 {
			n = 1
		}
		baseMonth := time.Date(emission.Year(), emission.Month(), 1, 0, 0, 0, 0, time.UTC)

		gerPortion := credPot / float64(n)
		glPortion := glosa / float64(n)
		apPortion := credAp / float64(n)

		for i := 0; i < n; i++ {
			mm := MonthKey(AddMonthsFirstDay(baseMonth, i))
			out = append(out, CreditEvent{
				EmitMonth:          emitMonth,
				AppropriationMonth: mm,
				Finalidade:         fin,
				UFOrigem:           ufOrigem,
				UFDest:             ufDest,
				CFOP:               cfop,
				NCM:                ncm,
				Produto:            produto,
				CreditoGerado:      gerPortion,
				Glosa:              glPortion,
				CreditoAposGlosa:   max0(gerPortion - glPortion),
				CreditoApropriado:  apPortion,
			})
		}
		return out
	}

	if fin == "" {
		fin = classifier.Outras
	}
	return append(out, CreditEvent{
		EmitMonth:          emitMonth,
		AppropriationMonth: emitMonth,
		Finalidade:         fin,
		UFOrigem:           ufOrigem,
		UFDest:             ufDest,
		CFOP:               cfop,
		NCM:                ncm,
		Produto:            produto,
		CreditoGerado:      credPot,
		Glosa:              glosa,
		CreditoAposGlosa:   max0(credPot - glosa),
		CreditoApropriado:  credAp,
	})
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
