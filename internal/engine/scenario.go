package engine

import (
	"time"

	"github.com/mpaiva/fiscalsim/internal/classifier"
)

// Scenario carries the reform parameters for one simulation run. It is built
// once at the boundary (rate-registry lookups, preset resolution and bounds
// validation all happen there) and never mutated mid-run.
type Scenario struct {
	Nome string `json:"nome" yaml:"nome"`

	// Reform rates, decimal form (0.088 = 8.8%).
	AliquotaCBS float64 `json:"aliquota_cbs" yaml:"aliquota_cbs"`
	AliquotaIBS float64 `json:"aliquota_ibs" yaml:"aliquota_ibs"`
	AliquotaIS  float64 `json:"aliquota_is" yaml:"aliquota_is"`

	// Credit percentage per finalidade.
	PercCreditRevenda  float64 `json:"perc_credit_revenda" yaml:"perc_credit_revenda"`
	PercCreditConsumo  float64 `json:"perc_credit_consumo" yaml:"perc_credit_consumo"`
	PercCreditAtivo    float64 `json:"perc_credit_ativo" yaml:"perc_credit_ativo"`
	PercCreditTransfer float64 `json:"perc_credit_transfer" yaml:"perc_credit_transfer"`
	PercCreditOutras   float64 `json:"perc_credit_outras" yaml:"perc_credit_outras"`

	// Global disallowance percentage applied to generated credit.
	PercGlosa float64 `json:"perc_glosa" yaml:"perc_glosa"`

	// Capital-asset credit is appropriated over this many months.
	AtivoMeses int `json:"ativo_meses" yaml:"ativo_meses"`

	// Cash-timing parameters.
	PrazoMedioDias            int     `json:"prazo_medio_dias" yaml:"prazo_medio_dias"`
	SplitPercent              float64 `json:"split_percent" yaml:"split_percent"`
	DelayDays                 int     `json:"delay_days" yaml:"delay_days"`
	ResidualInstallments      int     `json:"residual_installments" yaml:"residual_installments"`
	ResidualStartOffsetMonths int     `json:"residual_start_offset_months" yaml:"residual_start_offset_months"`
}

// DefaultScenario is the MVP baseline: 2027+ reference rates, full credit on
// resale and consumption, 50% on capital assets over 48 months.
func DefaultScenario() Scenario {
	return Scenario{
		Nome:                 "Cenário Base Reforma",
		AliquotaCBS:          0.088,
		AliquotaIBS:          0.010,
		AliquotaIS:           0.0,
		PercCreditRevenda:    1.0,
		PercCreditConsumo:    1.0,
		PercCreditAtivo:      0.5,
		PercCreditTransfer:   0.0,
		PercCreditOutras:     0.0,
		PercGlosa:            0.0,
		AtivoMeses:           48,
		PrazoMedioDias:       30,
		SplitPercent:         0.0,
		DelayDays:            0,
		ResidualInstallments: 1,
	}
}

// CreditPercentFor returns the scenario's default credit percentage for a
// finalidade. Unknown values map to the "outras" bucket.
func (c Scenario) CreditPercentFor(fin classifier.Finalidade) float64 {
	switch fin {
	case classifier.Revenda:
		return c.PercCreditRevenda
	case classifier.Consumo:
		return c.PercCreditConsumo
	case classifier.Ativo:
		return c.PercCreditAtivo
	case classifier.Transferencia:
		return c.PercCreditTransfer
	default:
		return c.PercCreditOutras
	}
}

// Filters narrows which rows and periods a run looks at. The dataset store
// applies the dimensional filters; Movimento/Finalidade are re-checked per
// row here because rules can rewrite finalidade.
type Filters struct {
	PeriodoInicio time.Time
	PeriodoFim    time.Time

	UFOrigem  string
	UFDestino string
	NCM       string
	Produto   string
	CFOP      string

	Movimento  string
	Finalidade string

	RegrasJSON string
}
