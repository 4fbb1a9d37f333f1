package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mpaiva/fiscalsim/internal/api/middleware"
	"github.com/mpaiva/fiscalsim/internal/taxparams"
)

// TaxParamsHandler exposes the editable rate registry.
type TaxParamsHandler struct {
	registry *taxparams.Registry
	log      zerolog.Logger
}

// NewTaxParamsHandler creates a new tax-params handler.
func NewTaxParamsHandler(registry *taxparams.Registry, log zerolog.Logger) *TaxParamsHandler {
	return &TaxParamsHandler{registry: registry, log: log}
}

// List handles GET /api/tax-params
func (h *TaxParamsHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := h.registry.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tax params")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list tax params")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"params": params,
		"count":  len(params),
	})
}

// Create handles POST /api/tax-params
// An existing (ano, uf, tipo) entry is updated in place.
func (h *TaxParamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taxparams.Param
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.registry.Create(req)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/tax-params/{id}
func (h *TaxParamsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Aliquota  *float64 `json:"aliquota"`
		Descricao *string  `json:"descricao"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.registry.Update(id, req.Aliquota, req.Descricao)
	if errors.Is(err, taxparams.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Tax param not found")
		return
	}
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/tax-params/{id}
func (h *TaxParamsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.registry.Delete(id)
	if errors.Is(err, taxparams.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Tax param not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete tax param")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete tax param")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
