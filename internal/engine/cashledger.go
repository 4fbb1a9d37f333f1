package engine

import (
	"sort"
	"time"
)

// cashConfig carries the payment-timing knobs for the cash projection.
//
// SplitPercent is the fraction of each month's net liability collected at
// payment via split; the residual is paid by the taxpayer in
// ResidualInstallments monthly portions starting ResidualStartOffsetMonths
// after the split month. DelayDays stretches the payment date past the
// average collection term (prazo) as a proxy for reconciliation slack.
type cashConfig struct {
	PrazoMedioDias            int
	SplitPercent              float64
	DelayDays                 int
	ResidualInstallments      int
	ResidualStartOffsetMonths int
}

func (cfg cashConfig) normalized() cashConfig {
	if cfg.PrazoMedioDias < 0 {
		cfg.PrazoMedioDias = 0
	}
	if cfg.DelayDays < 0 {
		cfg.DelayDays = 0
	}
	if cfg.SplitPercent < 0 {
		cfg.SplitPercent = 0
	}
	if cfg.SplitPercent > 1 {
		cfg.SplitPercent = 1
	}
	if cfg.ResidualInstallments < 1 {
		cfg.ResidualInstallments = 1
	}
	if cfg.ResidualStartOffsetMonths < 0 {
		cfg.ResidualStartOffsetMonths = 0
	}
	return cfg
}

// buildCashLedger re-buckets the accrual series into estimated payment
// months. This is an estimate, not reconciliation against real payment
// events: each competency month's net liability is deemed paid
// prazo+delay days after the first of the month, split collected there and
// the residual installed from the offset.
func buildCashLedger(competencia []SeriesPoint, cfg cashConfig) *CashLedger {
	cfg = cfg.normalized()

	compBruta := map[string]float64{}
	compLiq := map[string]float64{}
	for _, p := range competencia {
		if p.Period == "" {
			continue
		}
		compBruta[p.Period] += p.ReformaBruta
		compLiq[p.Period] += p.ReformaLiquida
	}

	cashSplit := map[string]float64{}
	cashResidual := map[string]float64{}

	compPeriods := make([]string, 0, len(compBruta))
	for per := range compBruta {
		compPeriods = append(compPeriods, per)
	}
	sort.Strings(compPeriods)

	for _, per := range compPeriods {
		d0, ok := firstDayFromPeriod(per)
		if !ok {
			continue
		}
		payDay := d0.AddDate(0, 0, cfg.PrazoMedioDias+cfg.DelayDays)
		splitMonth := MonthKey(payDay)

		dueLiq := compLiq[per]
		splitAmt := dueLiq * cfg.SplitPercent
		residual := max0(dueLiq - splitAmt)

		if splitAmt != 0 {
			cashSplit[splitMonth] += splitAmt
		}
		if residual != 0 {
			portion := residual / float64(cfg.ResidualInstallments)
			splitFirst := time.Date(payDay.Year(), payDay.Month(), 1, 0, 0, 0, 0, time.UTC)
			start := AddMonthsFirstDay(splitFirst, cfg.ResidualStartOffsetMonths)
			for i := 0; i < cfg.ResidualInstallments; i++ {
				mm := MonthKey(AddMonthsFirstDay(start, i))
				cashResidual[mm] += portion
			}
		}
	}

	allSet := map[string]struct{}{}
	for per := range compBruta {
		allSet[per] = struct{}{}
	}
	for per := range cashSplit {
		allSet[per] = struct{}{}
	}
	for per := range cashResidual {
		allSet[per] = struct{}{}
	}
	allPeriods := make([]string, 0, len(allSet))
	for per := range allSet {
		allPeriods = append(allPeriods, per)
	}
	sort.Strings(allPeriods)

	series := make([]CashSeriesPoint, 0, len(allPeriods))
	var totalCash, totalSplit, totalResidual float64
	var peak CashPeak

	for _, per := range allPeriods {
		cl := compLiq[per]
		xs := cashSplit[per]
		xr := cashResidual[per]
		xt := xs + xr

		series = append(series, CashSeriesPoint{
			Period:                     per,
			CompetenciaBruta:           compBruta[per],
			CompetenciaLiquida:         cl,
			CaixaSplit:                 xs,
			CaixaResidual:              xr,
			CaixaTotal:                 xt,
			DeltaCaixaMenosCompetencia: xt - cl,
		})

		totalCash += xt
		totalSplit += xs
		totalResidual += xr

		if xt > peak.Value {
			peak = CashPeak{Period: per, Value: xt}
		}
	}

	return &CashLedger{
		Summary: CashLedgerSummary{
			PrazoMedioDias:            cfg.PrazoMedioDias,
			DelayDays:                 cfg.DelayDays,
			SplitPercent:              cfg.SplitPercent,
			ResidualInstallments:      cfg.ResidualInstallments,
			ResidualStartOffsetMonths: cfg.ResidualStartOffsetMonths,
			TotalCaixa:                totalCash,
			TotalSplit:                totalSplit,
			TotalResidual:             totalResidual,
			PicoCaixa:                 peak,
		},
		Series: series,
	}
}
