// Package suggest offers distinct-value completion for filter fields,
// backed by the imported dataset.
package suggest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mpaiva/fiscalsim/internal/domain"
)

// DefaultLimit caps suggestions when the caller does not set one.
const DefaultLimit = 10

// Field is a suggestible filter dimension.
type Field string

const (
	FieldProduto Field = "produto"
	FieldNCM     Field = "ncm"
	FieldCFOP    Field = "cfop"
)

// ParseField validates a field name from the query string.
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case FieldProduto:
		return FieldProduto, nil
	case FieldNCM:
		return FieldNCM, nil
	case FieldCFOP:
		return FieldCFOP, nil
	}
	return "", fmt.Errorf("suggest: invalid field %q (use produto, ncm or cfop)", s)
}

// Options narrows which rows feed the suggestions. Zero times and empty
// strings mean no constraint.
type Options struct {
	Query string
	Limit int

	PeriodoInicio time.Time
	PeriodoFim    time.Time
	UFOrigem      string
	UFDestino     string
}

// Values returns the sorted distinct values of field across rows, filtered
// by a case-insensitive contains on the typed text.
func Values(rows []domain.Row, field Field, opts Options) []string {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := strings.ToUpper(strings.TrimSpace(opts.Query))
	ufOr := strings.ToUpper(strings.TrimSpace(opts.UFOrigem))
	ufDe := strings.ToUpper(strings.TrimSpace(opts.UFDestino))

	seen := map[string]struct{}{}
	for _, r := range rows {
		if !opts.PeriodoInicio.IsZero() || !opts.PeriodoFim.IsZero() {
			dt, ok := domain.ParseDate(r.EmissionDate())
			if !ok {
				continue
			}
			if !opts.PeriodoInicio.IsZero() && dt.Before(opts.PeriodoInicio) {
				continue
			}
			if !opts.PeriodoFim.IsZero() && dt.After(opts.PeriodoFim) {
				continue
			}
		}
		if ufOr != "" && r.OriginUF() != ufOr {
			continue
		}
		if ufDe != "" && r.DestUF() != ufDe {
			continue
		}

		var v string
		switch field {
		case FieldProduto:
			v = strings.TrimSpace(r.Produto)
		case FieldNCM:
			v = strings.TrimSpace(r.NCM)
		case FieldCFOP:
			v = strings.TrimSpace(r.CFOP)
		}
		if v == "" {
			continue
		}
		if q != "" && !strings.Contains(strings.ToUpper(v), q) {
			continue
		}
		seen[v] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
