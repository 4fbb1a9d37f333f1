package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/mpaiva/fiscalsim/internal/domain"
	"github.com/mpaiva/fiscalsim/internal/money"
)

// FiscalRow is one invoice line item as stored in the warehouse table.
// The dataset store keeps raw strings; here values are typed for BigQuery.
type FiscalRow struct {
	ItemID string `bigquery:"item_id"` // REQUIRED

	EmissionDate bigquery.NullDate `bigquery:"emission_date"` // NULLABLE (dateless rows exist)

	UF     string `bigquery:"uf"`      // REQUIRED
	UFDest string `bigquery:"uf_dest"` // REQUIRED

	VProd   *big.Rat `bigquery:"vprod"`      // REQUIRED NUMERIC
	VICMS   *big.Rat `bigquery:"vicms_icms"` // REQUIRED NUMERIC
	VPIS    *big.Rat `bigquery:"vpis"`       // REQUIRED NUMERIC
	VCofins *big.Rat `bigquery:"vcofins"`    // REQUIRED NUMERIC

	NCM       bigquery.NullString `bigquery:"ncm"`       // NULLABLE
	Produto   bigquery.NullString `bigquery:"produto"`   // NULLABLE
	CFOP      bigquery.NullString `bigquery:"cfop"`      // NULLABLE
	Movimento bigquery.NullString `bigquery:"movimento"` // NULLABLE

	IngestedTS time.Time `bigquery:"ingested_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

// ToDomain converts a warehouse row back to the raw-string form the engine
// and dataset layers consume. Money values are rendered with two decimals.
func (r *FiscalRow) ToDomain() domain.Row {
	out := domain.Row{
		UF:        r.UF,
		UFDest:    r.UFDest,
		NCM:       r.NCM.StringVal,
		Produto:   r.Produto.StringVal,
		CFOP:      r.CFOP.StringVal,
		Movimento: r.Movimento.StringVal,
	}
	if r.EmissionDate.Valid {
		out.Dhemi = r.EmissionDate.Date.String()
	}
	if r.VProd != nil {
		out.VProd = r.VProd.FloatString(2)
	}
	if r.VICMS != nil {
		out.VICMS = r.VICMS.FloatString(2)
	}
	if r.VPIS != nil {
		out.VPIS = r.VPIS.FloatString(2)
	}
	if r.VCofins != nil {
		out.VCofins = r.VCofins.FloatString(2)
	}
	return out
}

// FromDomain converts a raw dataset row into a warehouse row. itemID must be
// unique; money strings are parsed with the same leniency as the engine.
func FromDomain(itemID string, row domain.Row, ingestedTS time.Time) *FiscalRow {
	out := &FiscalRow{
		ItemID:     itemID,
		UF:         row.OriginUF(),
		UFDest:     row.DestUF(),
		VProd:      moneyRat(row.VProd),
		VICMS:      moneyRat(row.VICMS),
		VPIS:       moneyRat(row.VPIS),
		VCofins:    moneyRat(row.VCofins),
		NCM:        nullString(row.NCMDigits()),
		Produto:    nullString(row.ProductDesc()),
		CFOP:       nullString(row.CFOPDigits()),
		Movimento:  nullString(row.MovimentoTag()),
		IngestedTS: ingestedTS,
	}
	if dt, ok := domain.ParseDate(row.EmissionDate()); ok {
		out.EmissionDate = bigquery.NullDate{Date: civil.DateOf(dt), Valid: true}
	}
	return out
}

func moneyRat(raw string) *big.Rat {
	v := money.Parse(raw)
	return new(big.Rat).SetFloat64(v)
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
