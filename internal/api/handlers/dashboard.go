package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mpaiva/fiscalsim/internal/api/middleware"
	"github.com/mpaiva/fiscalsim/internal/compare"
	"github.com/mpaiva/fiscalsim/internal/dataset"
	"github.com/mpaiva/fiscalsim/internal/domain"
	"github.com/mpaiva/fiscalsim/internal/suggest"
	"github.com/mpaiva/fiscalsim/internal/taxtable"
)

// DashboardHandler serves the comparison and suggestion endpoints.
type DashboardHandler struct {
	store *dataset.Store
	rates RateSource
	log   zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(store *dataset.Store, rates RateSource, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, rates: rates, log: log}
}

// Compare handles GET /api/dashboard/compare?ano_reforma=
func (h *DashboardHandler) Compare(w http.ResponseWriter, r *http.Request) {
	anoStr := r.URL.Query().Get("ano_reforma")
	ano := taxtable.Years()[0]
	if anoStr != "" {
		v, err := strconv.Atoi(anoStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid ano_reforma")
			return
		}
		ano = v
	}
	if _, err := taxtable.ForYear(ano); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.store.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read dataset status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read dataset status")
		return
	}
	if !st.Exists {
		middleware.WriteJSON(w, http.StatusOK, compare.Empty(ano))
		return
	}

	// ReadAll, not Query: dateless rows still count toward the totals and
	// land in the SEM_DATA timeseries bucket.
	rows, err := h.store.ReadAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read dataset")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read dataset")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, compare.Build(rows, ano, h.rates))
}

// Suggest handles GET /api/dashboard/suggest?field=&q=
func (h *DashboardHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	field, err := suggest.ParseField(q.Get("field"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := suggest.Options{
		Query:     q.Get("q"),
		UFOrigem:  q.Get("uf_origem"),
		UFDestino: q.Get("uf_destino"),
	}
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			opts.Limit = v
		}
	}
	if s := q.Get("periodo_inicio"); s != "" {
		if dt, ok := domain.ParseDate(s); ok {
			opts.PeriodoInicio = dt
		}
	}
	if s := q.Get("periodo_fim"); s != "" {
		if dt, ok := domain.ParseDate(s); ok {
			opts.PeriodoFim = dt
		}
	}

	st, err := h.store.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read dataset status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read dataset status")
		return
	}

	var values []string
	if st.Exists {
		rows, err := h.store.ReadAll()
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to read dataset")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to read dataset")
			return
		}
		values = suggest.Values(rows, field, opts)
	}
	if values == nil {
		values = []string{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"field":  string(field),
		"values": values,
	})
}

// ScheduleHandler serves the static transition schedule.
type ScheduleHandler struct {
	log zerolog.Logger
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(log zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{log: log}
}

// Years handles GET /api/tax-schedule/years
func (h *ScheduleHandler) Years(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"years": taxtable.Years(),
	})
}

// Year handles GET /api/tax-schedule/{year}
func (h *ScheduleHandler) Year(w http.ResponseWriter, r *http.Request, yearStr string) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
		return
	}

	rates, err := taxtable.ForYear(year)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	timeline, err := taxtable.Timeline(year)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"year":      year,
		"rates":     rates,
		"tributos":  timeline,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
