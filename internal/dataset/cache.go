package dataset

import (
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mpaiva/fiscalsim/internal/domain"
)

// The parsed cache is a gob-encoded row slice beside the CSV, guarded by a
// fingerprint meta file. Any cache failure falls back to reparsing the CSV;
// only the CSV itself is authoritative.

type fileFingerprint struct {
	MtimeNs int64 `json:"mtime_ns"`
	Size    int64 `json:"size"`
}

type cacheMeta struct {
	CSV   fileFingerprint `json:"csv"`
	Cache struct {
		Gob      bool `json:"gob"`
		WroteAny bool `json:"wrote_any"`
	} `json:"cache"`
}

func (s *Store) cachePath() string { return s.Path() + ".gob" }
func (s *Store) metaPath() string  { return s.Path() + ".meta.json" }

func fingerprint(path string) (fileFingerprint, error) {
	st, err := os.Stat(path)
	if err != nil {
		return fileFingerprint{}, err
	}
	return fileFingerprint{MtimeNs: st.ModTime().UnixNano(), Size: st.Size()}, nil
}

func (s *Store) cacheIsFresh() bool {
	raw, err := os.ReadFile(s.metaPath())
	if err != nil {
		return false
	}
	var meta cacheMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return false
	}
	current, err := fingerprint(s.Path())
	if err != nil {
		return false
	}
	return meta.CSV == current
}

func (s *Store) readCache() ([]domain.Row, error) {
	f, err := os.Open(s.cachePath())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []domain.Row
	if err := gob.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return rows, nil
}

func (s *Store) writeCache(rows []domain.Row) bool {
	f, err := os.Create(s.cachePath())
	if err != nil {
		s.log.Warn().Err(err).Msg("dataset cache write skipped")
		return false
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(rows); err != nil {
		s.log.Warn().Err(err).Msg("dataset cache encode failed")
		os.Remove(s.cachePath())
		return false
	}
	return true
}

func (s *Store) writeMeta(wrote bool) {
	fp, err := fingerprint(s.Path())
	if err != nil {
		return
	}
	var meta cacheMeta
	meta.CSV = fp
	meta.Cache.Gob = wrote
	meta.Cache.WroteAny = wrote

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(s.metaPath(), raw, 0o644); err != nil {
		s.log.Warn().Err(err).Msg("dataset cache meta write skipped")
	}
}

// loadRows returns the parsed dataset, using the cache when fresh and
// rebuilding it otherwise. Rows without a parseable emission date are dropped
// here: every query is date-ranged, so a dateless row can never match.
func (s *Store) loadRows() ([]domain.Row, error) {
	if _, err := os.Stat(s.Path()); os.IsNotExist(err) {
		return nil, ErrNoDataset
	} else if err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}

	if s.cacheIsFresh() {
		if rows, err := s.readCache(); err == nil {
			return rows, nil
		}
	}

	all, err := s.parseCSV()
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Row, 0, len(all))
	for _, r := range all {
		if _, ok := domain.ParseDate(r.EmissionDate()); ok {
			rows = append(rows, r)
		}
	}

	wrote := s.writeCache(rows)
	s.writeMeta(wrote)
	return rows, nil
}

// ReadAll parses the canonical CSV without the cache or the dateless-row
// drop. Dashboard aggregations use it so rows without a valid date still
// count toward totals.
func (s *Store) ReadAll() ([]domain.Row, error) {
	if _, err := os.Stat(s.Path()); os.IsNotExist(err) {
		return nil, ErrNoDataset
	} else if err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	return s.parseCSV()
}

func (s *Store) parseCSV() ([]domain.Row, error) {
	f, err := os.Open(s.Path())
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[normalizeHeader(h)] = i
	}
	field := func(row []string, col string) string {
		if i, ok := idx[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var rows []domain.Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset: %w", err)
		}

		r := domain.Row{
			Dhemi:     field(rec, "dhemi"),
			DtEmi:     field(rec, "dtemi"),
			DtEmissao: field(rec, "dt_emissao"),
			UF:        field(rec, "uf"),
			UFDest:    field(rec, "uf_dest"),
			VProd:     field(rec, "vprod"),
			VICMS:     field(rec, "vicms_icms"),
			VPIS:      field(rec, "vpis"),
			VCofins:   field(rec, "vcofins"),
			NCM:       field(rec, "ncm"),
			Produto:   field(rec, "produto"),
			CFOP:      field(rec, "cfop"),
			Movimento: field(rec, "movimento"),
		}
		rows = append(rows, r)
	}
	return rows, nil
}
