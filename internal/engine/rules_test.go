package engine

import (
	"testing"

	"github.com/mpaiva/fiscalsim/internal/classifier"
	"github.com/mpaiva/fiscalsim/internal/domain"
)

func TestParseRulesJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"empty", "", 0},
		{"not json", "{broken", 0},
		{"not a list", `{"match":"cfop","value":"1102"}`, 0},
		{"one rule", `[{"match":"cfop","value":"1102"}]`, 1},
		{"unknown matcher skipped", `[{"match":"uf","value":"SP"},{"match":"ncm","value":"2203"}]`, 1},
		{"empty value skipped", `[{"match":"cfop","value":"abc"}]`, 0},
		{"value digits kept", `[{"match":"ncm_prefix","value":"2203.00"}]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRulesJSON(tt.raw)
			if len(got) != tt.want {
				t.Errorf("ParseRulesJSON(%q) = %d rules, want %d", tt.raw, len(got), tt.want)
			}
		})
	}
}

func TestParseMatchKind(t *testing.T) {
	tests := []struct {
		in   string
		want MatchKind
		ok   bool
	}{
		{"cfop", MatchCFOP, true},
		{"CFOP_PREFIX", MatchCFOPPrefix, true},
		{" ncm ", MatchNCM, true},
		{"ncm_prefix", MatchNCMPrefix, true},
		{"uf", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseMatchKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMatchKind(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestApplyRules(t *testing.T) {
	c := DefaultScenario()
	row := domain.Row{CFOP: "1102", NCM: "22030000"}
	pc := func(v float64) *float64 { return &v }

	tests := []struct {
		name       string
		rules      []Rule
		wantFin    classifier.Finalidade
		wantCredit float64
		wantGlosa  float64
	}{
		{
			name:       "no rules keeps defaults",
			rules:      nil,
			wantFin:    classifier.Revenda,
			wantCredit: 1.0,
			wantGlosa:  0,
		},
		{
			name: "no match keeps defaults",
			rules: []Rule{
				{Kind: MatchCFOP, Value: "5102", PercCredit: pc(0.1)},
			},
			wantFin:    classifier.Revenda,
			wantCredit: 1.0,
			wantGlosa:  0,
		},
		{
			name: "finalidade override pulls its scenario percentage",
			rules: []Rule{
				{Kind: MatchNCMPrefix, Value: "2203", Finalidade: "ATIVO"},
			},
			wantFin:    classifier.Ativo,
			wantCredit: 0.5,
			wantGlosa:  0,
		},
		{
			name: "explicit percentages win",
			rules: []Rule{
				{Kind: MatchCFOP, Value: "1102", Finalidade: "CONSUMO", PercCredit: pc(0.25), PercGlosa: pc(0.1)},
			},
			wantFin:    classifier.Consumo,
			wantCredit: 0.25,
			wantGlosa:  0.1,
		},
		{
			name: "bad finalidade token keeps classified purpose",
			rules: []Rule{
				{Kind: MatchCFOP, Value: "1102", Finalidade: "NOPE", PercGlosa: pc(0.2)},
			},
			wantFin:    classifier.Revenda,
			wantCredit: 1.0,
			wantGlosa:  0.2,
		},
		{
			name: "first match wins",
			rules: []Rule{
				{Kind: MatchCFOPPrefix, Value: "11", PercCredit: pc(0.3)},
				{Kind: MatchCFOP, Value: "1102", PercCredit: pc(0.9)},
			},
			wantFin:    classifier.Revenda,
			wantCredit: 0.3,
			wantGlosa:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fin, credit, glosa := ApplyRules(row, classifier.Revenda, c, tt.rules)
			if fin != tt.wantFin {
				t.Errorf("fin = %v, want %v", fin, tt.wantFin)
			}
			approx(t, "credit", credit, tt.wantCredit)
			approx(t, "glosa", glosa, tt.wantGlosa)
		})
	}
}
