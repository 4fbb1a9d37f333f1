package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mpaiva/fiscalsim/internal/api/handlers"
	"github.com/mpaiva/fiscalsim/internal/api/middleware"
	"github.com/mpaiva/fiscalsim/internal/dataset"
	"github.com/mpaiva/fiscalsim/internal/gcsio"
	"github.com/mpaiva/fiscalsim/internal/jobs"
	"github.com/mpaiva/fiscalsim/internal/jobs/inmemory"
	"github.com/mpaiva/fiscalsim/internal/logger"
	"github.com/mpaiva/fiscalsim/internal/scenarios"
	"github.com/mpaiva/fiscalsim/internal/taxparams"
)

func main() {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	// Parse command-line flags
	var (
		port          = flag.String("port", envOr("PORT", "8080"), "HTTP server port")
		dataDir       = flag.String("data-dir", envOr("DATA_DIR", "./data"), "Directory holding the dataset CSV and cache")
		paramsDB      = flag.String("params-db", os.Getenv("TAX_PARAMS_DB"), "Path to the tax-params bbolt file (default <data-dir>/tax_params.db)")
		scenariosFile = flag.String("scenarios", os.Getenv("SCENARIOS_FILE"), "Optional YAML file with scenario presets")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *paramsDB == "" {
		*paramsDB = filepath.Join(*dataDir, "tax_params.db")
	}

	store, err := dataset.New(*dataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open dataset store")
	}

	registry, err := taxparams.Open(*paramsDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open tax-params registry")
	}
	defer registry.Close()

	presets, err := scenarios.Load(*scenariosFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load scenario presets")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process import jobs
	ctx := context.Background()
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := jobs.NewImportHandler(store, gcsio.NewClient(), log)

	go func() {
		log.Info().Msg("Starting import job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	simulatorHandler := handlers.NewSimulatorHandler(store, registry, presets, log)
	databaseHandler := handlers.NewDatabaseHandler(store, jobQueue, log)
	taxParamsHandler := handlers.NewTaxParamsHandler(registry, log)
	scheduleHandler := handlers.NewScheduleHandler(log)
	dashboardHandler := handlers.NewDashboardHandler(store, registry, log)
	scenariosHandler := handlers.NewScenariosHandler(presets, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/simulator/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			simulatorHandler.Run(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Database endpoints
	mux.HandleFunc("/api/database", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			databaseHandler.Clear(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/database/import-csv", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			databaseHandler.ImportCSV(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/database/import-url", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			databaseHandler.ImportURL(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/database/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			databaseHandler.Status(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/database/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			databaseHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/database/template", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			databaseHandler.Template(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Tax-params endpoints
	mux.HandleFunc("/api/tax-params", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			taxParamsHandler.List(w, r)
		case http.MethodPost:
			taxParamsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/tax-params/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/tax-params/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Param ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			taxParamsHandler.Update(w, r, id)
		case http.MethodDelete:
			taxParamsHandler.Delete(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transition schedule endpoints
	mux.HandleFunc("/api/tax-schedule/years", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			scheduleHandler.Years(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/tax-schedule/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			year := strings.TrimPrefix(r.URL.Path, "/api/tax-schedule/")
			if year == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Year is required")
				return
			}
			scheduleHandler.Year(w, r, year)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Dashboard endpoints
	mux.HandleFunc("/api/dashboard/compare", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Compare(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/dashboard/suggest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Suggest(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Scenario presets
	mux.HandleFunc("/api/scenarios", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			scenariosHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("data_dir", *dataDir).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight imports
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
