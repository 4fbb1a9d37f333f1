package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mpaiva/fiscalsim/internal/api/middleware"
	"github.com/mpaiva/fiscalsim/internal/dataset"
	"github.com/mpaiva/fiscalsim/internal/domain"
	"github.com/mpaiva/fiscalsim/internal/engine"
	"github.com/mpaiva/fiscalsim/internal/scenarios"
	"github.com/mpaiva/fiscalsim/internal/taxparams"
)

// RateSource resolves registry rates into scenario defaults at the API
// boundary. *taxparams.Registry satisfies it; a nil source means "use the
// preset values as-is".
type RateSource interface {
	GetRate(ano int, tipo, uf string, def float64) (float64, error)
}

// SimulatorHandler runs full simulations against the local dataset.
type SimulatorHandler struct {
	store   *dataset.Store
	rates   RateSource
	presets *scenarios.Library
	log     zerolog.Logger
}

// NewSimulatorHandler creates a new simulator handler.
func NewSimulatorHandler(store *dataset.Store, rates RateSource, presets *scenarios.Library, log zerolog.Logger) *SimulatorHandler {
	return &SimulatorHandler{store: store, rates: rates, presets: presets, log: log}
}

// runResponse echoes the request context around the engine result, keeping
// the original wire contract.
type runResponse struct {
	Status  dataset.Status    `json:"status"`
	Filtros map[string]string `json:"filtros"`
	Cenario engine.Scenario   `json:"cenario"`
	*engine.Result
}

// Run handles GET /api/simulator/run
func (h *SimulatorHandler) Run(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters, err := parseRunFilters(q)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	scenario, err := h.buildScenario(q, filters)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.store.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read dataset status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read dataset status")
		return
	}

	var rows []domain.Row
	if status.Exists {
		rows, err = h.store.Query(dataset.Filters{
			PeriodoInicio: filters.PeriodoInicio,
			PeriodoFim:    filters.PeriodoFim,
			UFOrigem:      filters.UFOrigem,
			UFDestino:     filters.UFDestino,
			NCM:           filters.NCM,
			Produto:       filters.Produto,
			CFOP:          filters.CFOP,
		})
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to query dataset")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to query dataset")
			return
		}
	}

	result := engine.Run(rows, filters, scenario)

	middleware.WriteJSON(w, http.StatusOK, runResponse{
		Status:  status,
		Filtros: echoFilters(q),
		Cenario: scenario,
		Result:  result,
	})
}

// parseRunFilters extracts the simulation filters from query parameters.
// Absent dates fall back to an effectively unbounded period.
func parseRunFilters(q url.Values) (engine.Filters, error) {
	f := engine.Filters{
		PeriodoInicio: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodoFim:    time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC),
		UFOrigem:      q.Get("uf_origem"),
		UFDestino:     q.Get("uf_destino"),
		NCM:           q.Get("ncm"),
		Produto:       q.Get("produto"),
		CFOP:          q.Get("cfop"),
		Movimento:     q.Get("movimento"),
		Finalidade:    q.Get("finalidade"),
		RegrasJSON:    q.Get("regras_json"),
	}

	if s := q.Get("periodo_inicio"); s != "" {
		dt, ok := domain.ParseDate(s)
		if !ok {
			return f, fmt.Errorf("invalid periodo_inicio %q", s)
		}
		f.PeriodoInicio = dt
	}
	if s := q.Get("periodo_fim"); s != "" {
		dt, ok := domain.ParseDate(s)
		if !ok {
			return f, fmt.Errorf("invalid periodo_fim %q", s)
		}
		f.PeriodoFim = dt
	}
	return f, nil
}

// buildScenario resolves the effective scenario: preset, then registry rates
// for the simulated year, then explicit query-parameter overrides.
func (h *SimulatorHandler) buildScenario(q url.Values, filters engine.Filters) (engine.Scenario, error) {
	sc := h.presets.Default()
	if name := q.Get("cenario"); name != "" {
		preset, ok := h.presets.Get(name)
		if !ok {
			return sc, fmt.Errorf("unknown scenario preset %q", name)
		}
		sc = preset
	}

	if h.rates != nil {
		ano := filters.PeriodoFim.Year()
		if s := q.Get("ano_reforma"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return sc, fmt.Errorf("invalid ano_reforma %q", s)
			}
			ano = v
		}
		uf := filters.UFOrigem
		if v, err := h.rates.GetRate(ano, taxparams.TipoCBSPadrao, uf, sc.AliquotaCBS); err == nil {
			sc.AliquotaCBS = v
		}
		if v, err := h.rates.GetRate(ano, taxparams.TipoIBSPadrao, uf, sc.AliquotaIBS); err == nil {
			sc.AliquotaIBS = v
		}
	}

	if s := q.Get("nome"); s != "" {
		sc.Nome = s
	}

	var err error
	if sc.AliquotaCBS, err = floatParam(q, "aliquota_cbs", sc.AliquotaCBS); err != nil {
		return sc, err
	}
	if sc.AliquotaIBS, err = floatParam(q, "aliquota_ibs", sc.AliquotaIBS); err != nil {
		return sc, err
	}
	if sc.AliquotaIS, err = floatParam(q, "aliquota_is", sc.AliquotaIS); err != nil {
		return sc, err
	}
	if sc.PercCreditRevenda, err = floatParam(q, "perc_credit_revenda", sc.PercCreditRevenda); err != nil {
		return sc, err
	}
	if sc.PercCreditConsumo, err = floatParam(q, "perc_credit_consumo", sc.PercCreditConsumo); err != nil {
		return sc, err
	}
	if sc.PercCreditAtivo, err = floatParam(q, "perc_credit_ativo", sc.PercCreditAtivo); err != nil {
		return sc, err
	}
	if sc.PercCreditTransfer, err = floatParam(q, "perc_credit_transfer", sc.PercCreditTransfer); err != nil {
		return sc, err
	}
	if sc.PercCreditOutras, err = floatParam(q, "perc_credit_outras", sc.PercCreditOutras); err != nil {
		return sc, err
	}
	if sc.PercGlosa, err = floatParam(q, "perc_glosa", sc.PercGlosa); err != nil {
		return sc, err
	}
	if sc.SplitPercent, err = floatParam(q, "split_percent", sc.SplitPercent); err != nil {
		return sc, err
	}
	if sc.AtivoMeses, err = intParam(q, "ativo_meses", sc.AtivoMeses); err != nil {
		return sc, err
	}
	if sc.PrazoMedioDias, err = intParam(q, "prazo_medio_dias", sc.PrazoMedioDias); err != nil {
		return sc, err
	}
	if sc.DelayDays, err = intParam(q, "delay_days", sc.DelayDays); err != nil {
		return sc, err
	}
	if sc.ResidualInstallments, err = intParam(q, "residual_installments", sc.ResidualInstallments); err != nil {
		return sc, err
	}
	if sc.ResidualStartOffsetMonths, err = intParam(q, "residual_start_offset_months", sc.ResidualStartOffsetMonths); err != nil {
		return sc, err
	}
	return sc, nil
}

// echoFilters returns the non-empty request filters for the response echo.
func echoFilters(q url.Values) map[string]string {
	out := map[string]string{}
	for _, key := range []string{
		"periodo_inicio", "periodo_fim", "uf_origem", "uf_destino",
		"ncm", "produto", "cfop", "movimento", "finalidade", "cenario",
	} {
		if v := q.Get(key); v != "" {
			out[key] = v
		}
	}
	return out
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}
