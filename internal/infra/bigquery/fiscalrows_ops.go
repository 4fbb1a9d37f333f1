// Package bigquery is the optional warehouse backend: imported fiscal line
// items mirrored into a BigQuery table for ad-hoc SQL and larger-than-memory
// history. The local CSV store stays the source of truth for simulations.
package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/mpaiva/fiscalsim/internal/domain"
)

const (
	fiscalRowsTable = "fiscal_rows"
	dateFormat      = "2006-01-02"
)

// Repository wraps a BigQuery client scoped to one project/dataset.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewRepository creates a Repository with its own BigQuery client.
// Application Default Credentials are assumed.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return NewRepositoryWithClient(client, projectID, datasetID), nil
}

// NewRepositoryWithClient creates a Repository around an existing client.
// The caller keeps ownership of the client's lifecycle in this case.
func NewRepositoryWithClient(client *bigquery.Client, projectID, datasetID string) *Repository {
	return &Repository{client: client, projectID: projectID, datasetID: datasetID}
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

// InsertRows mirrors a batch of dataset rows into the warehouse table.
// Each row gets a fresh item ID and the shared ingestion timestamp.
func (r *Repository) InsertRows(ctx context.Context, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}

	ingestedTS := time.Now().UTC()
	batch := make([]*FiscalRow, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, FromDomain(uuid.New().String(), row, ingestedTS))
	}

	// Use fully qualified table name to avoid project ID issues
	table := r.client.DatasetInProject(r.projectID, r.datasetID).Table(fiscalRowsTable)
	if err := table.Inserter().Put(ctx, batch); err != nil {
		return fmt.Errorf("InsertRows: inserting rows: %w", err)
	}
	return nil
}

// RowFilter narrows a warehouse query. Zero times and empty strings mean no
// constraint; the date range is inclusive on both ends.
type RowFilter struct {
	Start  time.Time
	End    time.Time
	UF     string
	UFDest string
	NCM    string
	CFOP   string
}

// QueryRows fetches line items matching the filter, oldest first, converted
// back to the raw-string form the engine consumes.
func (r *Repository) QueryRows(ctx context.Context, f RowFilter) ([]domain.Row, error) {
	conds := []string{"TRUE"}
	var params []bigquery.QueryParameter

	if !f.Start.IsZero() {
		conds = append(conds, "emission_date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: f.Start.Format(dateFormat)})
	}
	if !f.End.IsZero() {
		conds = append(conds, "emission_date <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: f.End.Format(dateFormat)})
	}
	if f.UF != "" {
		conds = append(conds, "uf = @uf")
		params = append(params, bigquery.QueryParameter{Name: "uf", Value: strings.ToUpper(f.UF)})
	}
	if f.UFDest != "" {
		conds = append(conds, "uf_dest = @uf_dest")
		params = append(params, bigquery.QueryParameter{Name: "uf_dest", Value: strings.ToUpper(f.UFDest)})
	}
	if f.NCM != "" {
		conds = append(conds, "ncm = @ncm")
		params = append(params, bigquery.QueryParameter{Name: "ncm", Value: f.NCM})
	}
	if f.CFOP != "" {
		conds = append(conds, "cfop = @cfop")
		params = append(params, bigquery.QueryParameter{Name: "cfop", Value: f.CFOP})
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT
			item_id,
			emission_date,
			uf,
			uf_dest,
			vprod,
			vicms_icms,
			vpis,
			vcofins,
			ncm,
			produto,
			cfop,
			movimento,
			ingested_ts
		FROM %s.%s
		WHERE %s
		ORDER BY emission_date, ingested_ts
	`, r.datasetID, fiscalRowsTable, strings.Join(conds, " AND ")))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryRows: query read: %w", err)
	}

	var out []domain.Row
	for {
		var row FiscalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryRows: iter next: %w", err)
		}
		out = append(out, row.ToDomain())
	}
	return out, nil
}
