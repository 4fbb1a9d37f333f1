package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mpaiva/fiscalsim/internal/domain"
	"github.com/mpaiva/fiscalsim/internal/money"
)

// ErrNoDataset is returned when no CSV has been imported yet.
var ErrNoDataset = errors.New("dataset: no CSV imported")

// datasetFile is the canonical on-disk name inside the store directory.
const datasetFile = "dataset.csv"

// requiredColumns must all be present (after header normalization) for an
// import to be accepted.
var requiredColumns = []string{
	"dhemi",
	"uf",
	"uf_dest",
	"vprod",
	"vicms_icms",
	"vpis",
	"vcofins",
}

var optionalColumns = []string{"ncm", "produto", "cfop", "movimento"}

// Store keeps the imported invoice-item dataset as a canonical
// semicolon-delimited CSV, with a parsed cache beside it.
type Store struct {
	dir string
	log zerolog.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %q: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Path returns the canonical CSV location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, datasetFile)
}

// Import reads a CSV in any supported delimiter, validates the header and
// rewrites the dataset in canonical form (normalized lowercase header,
// semicolon delimiter, fixed column order). Returns the number of imported
// rows. A successful import invalidates the parsed cache implicitly via the
// file fingerprint.
func (s *Store) Import(r io.Reader) (int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read upload: %w", err)
	}

	text := stripBOM(string(raw))
	delim := sniffDelimiter(text)

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("csv header: %w", err)
	}

	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = normalizeHeader(h)
	}
	if missing := missingColumns(norm); len(missing) > 0 {
		return 0, fmt.Errorf("invalid CSV, missing required columns: %s", strings.Join(missing, ", "))
	}

	colIndex := map[string]int{}
	for i, h := range norm {
		if _, dup := colIndex[h]; !dup {
			colIndex[h] = i
		}
	}

	outFields := append(append([]string{}, requiredColumns...), optionalColumns...)

	tmp, err := os.CreateTemp(s.dir, "import-*.csv")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	cw := csv.NewWriter(bw)
	cw.Comma = ';'

	if err := cw.Write(outFields); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write header: %w", err)
	}

	imported := 0
	record := make([]string, len(outFields))
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			tmp.Close()
			return 0, fmt.Errorf("read csv row %d: %w", imported+1, err)
		}

		for i, col := range outFields {
			record[i] = ""
			if idx, ok := colIndex[col]; ok && idx < len(row) {
				record[i] = strings.TrimSpace(row[idx])
			}
		}
		if err := cw.Write(record); err != nil {
			tmp.Close()
			return 0, fmt.Errorf("write csv row: %w", err)
		}
		imported++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("flush buffer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return 0, fmt.Errorf("install dataset: %w", err)
	}

	s.log.Info().Int("rows", imported).Str("path", s.Path()).Msg("dataset imported")
	return imported, nil
}

// Clear removes the dataset and its cache artifacts.
func (s *Store) Clear() error {
	for _, p := range []string{s.Path(), s.cachePath(), s.metaPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %q: %w", p, err)
		}
	}
	return nil
}

// Status reports whether a dataset exists and how many data rows it holds.
type Status struct {
	Exists bool   `json:"exists"`
	Path   string `json:"path"`
	Rows   int    `json:"rows"`
}

func (s *Store) Status() (Status, error) {
	st := Status{Path: s.Path()}

	f, err := os.Open(s.Path())
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines++
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("scan dataset: %w", err)
	}

	st.Exists = true
	if lines > 0 {
		st.Rows = lines - 1
	}
	return st, nil
}

// Summary aggregates the raw dataset: date span, UF sets, revenue and
// current-regime tax totals. It reads the CSV directly rather than the
// parsed cache so dateless rows still count toward rows and totals.
type Summary struct {
	Exists bool   `json:"exists"`
	Path   string `json:"path"`
	Rows   int    `json:"rows"`

	MinDate string `json:"min_date,omitempty"`
	MaxDate string `json:"max_date,omitempty"`

	UFsOrigem  []string `json:"ufs_origem"`
	UFsDestino []string `json:"ufs_destino"`

	ReceitaTotal float64 `json:"receita_total"`
	ICMSTotal    float64 `json:"icms_total"`
	PISTotal     float64 `json:"pis_total"`
	CofinsTotal  float64 `json:"cofins_total"`
}

func (s *Store) Summary() (Summary, error) {
	sum := Summary{Path: s.Path(), UFsOrigem: []string{}, UFsDestino: []string{}}

	f, err := os.Open(s.Path())
	if os.IsNotExist(err) {
		return sum, nil
	}
	if err != nil {
		return sum, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return sum, nil
	}
	if err != nil {
		return sum, fmt.Errorf("csv header: %w", err)
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

	var minDt, maxDt time.Time
	ufsO := map[string]struct{}{}
	ufsD := map[string]struct{}{}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read dataset: %w", err)
		}
		sum.Rows++

		if dt, ok := domain.ParseDate(field(row, "dhemi")); ok {
			if minDt.IsZero() || dt.Before(minDt) {
				minDt = dt
			}
			if maxDt.IsZero() || dt.After(maxDt) {
				maxDt = dt
			}
		}

		if uf := strings.ToUpper(strings.TrimSpace(field(row, "uf"))); uf != "" {
			ufsO[uf] = struct{}{}
		}
		if uf := strings.ToUpper(strings.TrimSpace(field(row, "uf_dest"))); uf != "" {
			ufsD[uf] = struct{}{}
		}

		sum.ReceitaTotal += money.Parse(field(row, "vprod"))
		sum.ICMSTotal += money.Parse(field(row, "vicms_icms"))
		sum.PISTotal += money.Parse(field(row, "vpis"))
		sum.CofinsTotal += money.Parse(field(row, "vcofins"))
	}

	sum.Exists = true
	if !minDt.IsZero() {
		sum.MinDate = minDt.Format("2006-01-02")
		sum.MaxDate = maxDt.Format("2006-01-02")
	}
	sum.UFsOrigem = sortedKeys(ufsO)
	sum.UFsDestino = sortedKeys(ufsD)
	return sum, nil
}

// TemplateCSV is the canonical import template with one example row.
func TemplateCSV() []byte {
	header := append(append([]string{}, requiredColumns...), optionalColumns...)
	var b strings.Builder
	b.WriteString(strings.Join(header, ";"))
	b.WriteString("\n")
	b.WriteString("2024-01-01;AM;SP;1000.00;180.00;16.50;76.00;12345678;PRODUTO X;5102;SAIDA\n")
	return []byte(b.String())
}

func missingColumns(normalized []string) []string {
	present := map[string]bool{}
	for _, h := range normalized {
		present[h] = true
	}
	var missing []string
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(stripBOM(h)))
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

// sniffDelimiter picks the candidate delimiter most frequent in the header
// line. Semicolon is the project's canonical fallback.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	best := ';'
	bestCount := 0
	for _, cand := range []rune{',', ';', '\t'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
