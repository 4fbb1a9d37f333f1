package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mpaiva/fiscalsim/internal/dataset"
	"github.com/mpaiva/fiscalsim/internal/gcsio"
	infraBQ "github.com/mpaiva/fiscalsim/internal/infra/bigquery"
	"github.com/mpaiva/fiscalsim/internal/logger"
)

func main() {
	_ = godotenv.Load()

	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	source := flag.String("source", "", "CSV source: local path or gs://bucket/object")
	dataDir := flag.String("data-dir", envOr("DATA_DIR", "./data"), "Directory holding the dataset CSV and cache")
	backend := flag.String("backend", "local", "Row backend: local (CSV store) or bigquery (also mirror rows)")
	project := flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project ID (backend=bigquery)")
	bqDataset := flag.String("bq-dataset", envOr("BQ_DATASET", "fiscalsim"), "BigQuery dataset ID (backend=bigquery)")
	flag.Parse()

	if *source == "" {
		log.Fatal().Msg("Error: --source is required")
	}

	// Create context with timeout so the one-shot import doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("source", *source).Msg("Starting dataset import")

	var data []byte
	var err error
	if gcsio.IsURI(*source) {
		data, err = gcsio.Fetch(ctx, *source)
	} else {
		data, err = os.ReadFile(*source)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read CSV source")
	}

	store, err := dataset.New(*dataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open dataset store")
	}

	rows, err := store.Import(bytes.NewReader(data))
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	log.Info().Int("rows", rows).Str("path", store.Path()).Msg("Dataset imported")

	if *backend == "bigquery" {
		if *project == "" {
			log.Fatal().Msg("Error: --project is required with --backend=bigquery")
		}

		repo, err := infraBQ.NewRepository(ctx, *project, *bqDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()

		all, err := store.ReadAll()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to re-read imported dataset")
		}
		if err := repo.InsertRows(ctx, all); err != nil {
			log.Fatal().Err(err).Msg("Failed to mirror rows into BigQuery")
		}
		log.Info().Int("rows", len(all)).Str("project", *project).Msg("Rows mirrored into BigQuery")
	}

	fmt.Printf("Imported %d rows into %s\n", rows, store.Path())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
