package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mpaiva/fiscalsim/internal/api/middleware"
	"github.com/mpaiva/fiscalsim/internal/dataset"
	"github.com/mpaiva/fiscalsim/internal/gcsio"
	"github.com/mpaiva/fiscalsim/internal/jobs"
)

// maxImportBytes caps synchronous CSV uploads. Bigger ledgers go through the
// async import-url path.
const maxImportBytes = 256 << 20

// DatabaseHandler manages the local dataset store over HTTP.
type DatabaseHandler struct {
	store     *dataset.Store
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewDatabaseHandler creates a new database handler.
func NewDatabaseHandler(store *dataset.Store, publisher jobs.Publisher, log zerolog.Logger) *DatabaseHandler {
	return &DatabaseHandler{store: store, publisher: publisher, log: log}
}

// ImportCSV handles POST /api/database/import-csv
// The CSV comes either as a multipart "file" field or as the raw body.
func (h *DatabaseHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = http.MaxBytesReader(w, r.Body, maxImportBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Multipart field 'file' is required")
			return
		}
		defer file.Close()
		src = file
	}

	rows, err := h.store.Import(src)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to import dataset")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "imported",
		"rows":   rows,
	})
}

// ImportURL handles POST /api/database/import-url
// It enqueues an async job that fetches the CSV (gs:// URI) and imports it.
func (h *DatabaseHandler) ImportURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceURI string `json:"source_uri"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SourceURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source_uri is required")
		return
	}
	if !gcsio.IsURI(req.SourceURI) {
		middleware.WriteError(w, http.StatusBadRequest, "source_uri must be a gs:// URI")
		return
	}

	job := &jobs.ImportDatasetJob{SourceURI: req.SourceURI}
	if err := h.publisher.PublishImportDataset(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source_uri", req.SourceURI).Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"source_uri": req.SourceURI,
		"status":     string(job.Status),
	})
}

// Status handles GET /api/database/status
func (h *DatabaseHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read dataset status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read dataset status")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, st)
}

// Summary handles GET /api/database/summary
func (h *DatabaseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.Summary()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize dataset")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to summarize dataset")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sum)
}

// Template handles GET /api/database/template
func (h *DatabaseHandler) Template(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="template_dataset.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dataset.TemplateCSV())
}

// Clear handles DELETE /api/database
func (h *DatabaseHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		h.log.Error().Err(err).Msg("Failed to clear dataset")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear dataset")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
