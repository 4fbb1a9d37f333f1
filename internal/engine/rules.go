package engine

import (
	"encoding/json"
	"strings"

	"github.com/mpaiva/fiscalsim/internal/classifier"
	"github.com/mpaiva/fiscalsim/internal/domain"
)

// MatchKind is the closed set of rule matchers. Keeping it an enum (instead
// of dispatching on the raw string) makes an invalid matcher a
// construction-time failure, so the run loop never sees one.
type MatchKind int

const (
	MatchCFOP MatchKind = iota + 1
	MatchCFOPPrefix
	MatchNCM
	MatchNCMPrefix
)

// ParseMatchKind maps the wire names used by rule payloads onto MatchKind.
func ParseMatchKind(s string) (MatchKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cfop":
		return MatchCFOP, true
	case "cfop_prefix":
		return MatchCFOPPrefix, true
	case "ncm":
		return MatchNCM, true
	case "ncm_prefix":
		return MatchNCMPrefix, true
	}
	return 0, false
}

// Rule overrides classification for rows whose CFOP or NCM matches. Rules
// are evaluated in list order and the first match wins.
type Rule struct {
	Kind  MatchKind
	Value string // digits-only match value

	// Optional overrides. Finalidade empty means "keep classified purpose";
	// nil percentages mean "use the scenario default for the (possibly
	// overridden) purpose".
	Finalidade string
	PercCredit *float64
	PercGlosa  *float64
}

// ruleJSON is the wire form of one rule entry.
type ruleJSON struct {
	Match      string   `json:"match"`
	Value      string   `json:"value"`
	Finalidade string   `json:"finalidade"`
	PercCredit *float64 `json:"perc_credit"`
	PercGlosa  *float64 `json:"perc_glosa"`
}

// ParseRulesJSON decodes the regras_json query payload into rules. Malformed
// input (not a JSON list, entries with unknown matchers or empty values) is
// silently dropped; a bad rule must never abort a simulation.
func ParseRulesJSON(raw string) []Rule {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var entries []ruleJSON
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}

	out := make([]Rule, 0, len(entries))
	for _, e := range entries {
		kind, ok := ParseMatchKind(e.Match)
		if !ok {
			continue
		}
		value := digits(e.Value)
		if value == "" {
			continue
		}
		out = append(out, Rule{
			Kind:       kind,
			Value:      value,
			Finalidade: e.Finalidade,
			PercCredit: e.PercCredit,
			PercGlosa:  e.PercGlosa,
		})
	}
	return out
}

func digits(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func (r Rule) matches(cfopDigits, ncmDigits string) bool {
	switch r.Kind {
	case MatchCFOP:
		return cfopDigits == r.Value
	case MatchCFOPPrefix:
		return cfopDigits != "" && strings.HasPrefix(cfopDigits, r.Value)
	case MatchNCM:
		return ncmDigits == r.Value
	case MatchNCMPrefix:
		return ncmDigits != "" && strings.HasPrefix(ncmDigits, r.Value)
	}
	return false
}

// ApplyRules resolves the effective finalidade, credit percentage and glosa
// percentage for one row. Without a matching rule the scenario defaults
// apply. On the first match: a finalidade override is canonicalized (an
// unrecognized token keeps the classified purpose), the credit percentage is
// the rule's explicit value or the scenario default for the effective
// finalidade, and a glosa override replaces the global one. Evaluation stops
// at the first match.
func ApplyRules(row domain.Row, base classifier.Finalidade, c Scenario, rules []Rule) (classifier.Finalidade, float64, float64) {
	fin := base
	percCredit := c.CreditPercentFor(fin)
	percGlosa := c.PercGlosa

	if len(rules) == 0 {
		return fin, percCredit, percGlosa
	}

	cfopD := row.CFOPDigits()
	ncmD := row.NCMDigits()

	for _, rule := range rules {
		if !rule.matches(cfopD, ncmD) {
			continue
		}

		if rule.Finalidade != "" {
			if f, ok := classifier.SafeFinalidade(rule.Finalidade); ok {
				fin = f
			}
		}

		if rule.PercCredit != nil {
			percCredit = *rule.PercCredit
		} else {
			percCredit = c.CreditPercentFor(fin)
		}

		if rule.PercGlosa != nil {
			percGlosa = *rule.PercGlosa
		}

		break
	}

	return fin, percCredit, percGlosa
}
