package money

import (
	"strconv"
	"strings"
)

// Parse converts a raw monetary string to a float64. It accepts the formats
// seen in customer CSV exports:
//
//	1000.00
//	1,000.00
//	1000,00
//	1.234,56
//	R$ 1.234,56
//
// When both separators are present the comma is treated as the decimal mark
// (pt-BR convention) unless the dot comes last. Anything unparseable yields
// 0.0: malformed values degrade instead of aborting a run.
func Parse(v string) float64 {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0
	}

	s = strings.TrimPrefix(s, "R$")
	s = strings.Join(strings.Fields(s), "")

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			// 1,234.56: comma is the thousands separator
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// 1.234,56 (pt-BR)
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
	case hasComma:
		// 1234,56
		s = strings.ReplaceAll(s, ",", ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
