package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mpaiva/fiscalsim/internal/api/middleware"
	"github.com/mpaiva/fiscalsim/internal/scenarios"
)

// ScenariosHandler lists the available simulation presets.
type ScenariosHandler struct {
	presets *scenarios.Library
	log     zerolog.Logger
}

// NewScenariosHandler creates a new scenarios handler.
func NewScenariosHandler(presets *scenarios.Library, log zerolog.Logger) *ScenariosHandler {
	return &ScenariosHandler{presets: presets, log: log}
}

// List handles GET /api/scenarios
func (h *ScenariosHandler) List(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"default":   scenarios.DefaultName,
		"names":     h.presets.List(),
		"scenarios": h.presets.All(),
	})
}
