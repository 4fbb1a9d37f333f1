package dataset

import (
	"strings"
	"time"

	"github.com/mpaiva/fiscalsim/internal/domain"
)

// Filters narrows a dataset query. The period bounds are inclusive; the
// dimensional filters are ANDed and empty strings mean "no constraint".
type Filters struct {
	PeriodoInicio time.Time
	PeriodoFim    time.Time

	UFOrigem  string // exact, case-insensitive
	UFDestino string // exact, case-insensitive
	NCM       string // exact, trimmed
	Produto   string // substring, case-insensitive
	CFOP      string // exact, trimmed
}

// Query returns the rows matching f. Raw field values are preserved as
// strings; numeric parsing stays with the simulation engine.
func (s *Store) Query(f Filters) ([]domain.Row, error) {
	all, err := s.loadRows()
	if err != nil {
		return nil, err
	}

	ufOr := strings.ToUpper(strings.TrimSpace(f.UFOrigem))
	ufDe := strings.ToUpper(strings.TrimSpace(f.UFDestino))
	ncm := strings.TrimSpace(f.NCM)
	prod := strings.ToUpper(strings.TrimSpace(f.Produto))
	cfop := strings.TrimSpace(f.CFOP)

	out := make([]domain.Row, 0, len(all))
	for _, r := range all {
		dt, ok := domain.ParseDate(r.EmissionDate())
		if !ok {
			continue
		}
		if dt.Before(f.PeriodoInicio) || dt.After(f.PeriodoFim) {
			continue
		}

		if ufOr != "" && r.OriginUF() != ufOr {
			continue
		}
		if ufDe != "" && r.DestUF() != ufDe {
			continue
		}
		if ncm != "" && strings.TrimSpace(r.NCM) != ncm {
			continue
		}
		if prod != "" && !strings.Contains(strings.ToUpper(r.Produto), prod) {
			continue
		}
		if cfop != "" && strings.TrimSpace(r.CFOP) != cfop {
			continue
		}

		out = append(out, r)
	}
	return out, nil
}

