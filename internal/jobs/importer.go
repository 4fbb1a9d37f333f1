package jobs

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/mpaiva/fiscalsim/internal/dataset"
	"github.com/mpaiva/fiscalsim/internal/gcsio"
)

// NewImportHandler builds the JobHandler that executes ImportDatasetJob:
// fetch the CSV (GCS for gs:// URIs, the filesystem otherwise) and import it
// into the dataset store. The returned error drives the queue's retry logic.
func NewImportHandler(store *dataset.Store, fetcher gcsio.Fetcher, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job Job) error {
		importJob, ok := job.(*ImportDatasetJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", importJob.JobID).
			Str("source_uri", importJob.SourceURI).
			Msg("Processing import job")

		var data []byte
		var err error
		if gcsio.IsURI(importJob.SourceURI) {
			data, err = fetcher.Fetch(ctx, importJob.SourceURI)
		} else {
			data, err = os.ReadFile(importJob.SourceURI)
		}
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", importJob.JobID).
				Str("source_uri", importJob.SourceURI).
				Msg("Failed to fetch CSV")
			return fmt.Errorf("fetch %q: %w", importJob.SourceURI, err)
		}

		rows, err := store.Import(bytes.NewReader(data))
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", importJob.JobID).
				Msg("Failed to import CSV")
			return fmt.Errorf("import %q: %w", importJob.SourceURI, err)
		}

		importJob.ImportedRows = rows

		log.Info().
			Str("job_id", importJob.JobID).
			Int("rows", rows).
			Msg("Import job completed")

		return nil
	}
}
