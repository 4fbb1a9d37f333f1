package domain

import "strings"

// Row is one fiscal line item (an NFe item) as it comes out of the dataset
// store: every field is a raw string exactly as imported. Numeric and date
// parsing happen downstream so that the lenient-parsing policy lives in one
// place.
type Row struct {
	// Emission date. Dhemi is the canonical column; DtEmi and DtEmissao are
	// accepted aliases seen in customer exports.
	Dhemi     string `json:"dhemi"`
	DtEmi     string `json:"dtemi,omitempty"`
	DtEmissao string `json:"dt_emissao,omitempty"`

	UF     string `json:"uf"`
	UFDest string `json:"uf_dest"`

	VProd   string `json:"vprod"`
	VICMS   string `json:"vicms_icms"`
	VPIS    string `json:"vpis"`
	VCofins string `json:"vcofins"`

	NCM       string `json:"ncm,omitempty"`
	Produto   string `json:"produto,omitempty"`
	CFOP      string `json:"cfop,omitempty"`
	Movimento string `json:"movimento,omitempty"`
}

// EmissionDate returns the first non-empty emission date field.
func (r Row) EmissionDate() string {
	if s := strings.TrimSpace(r.Dhemi); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.DtEmi); s != "" {
		return s
	}
	return strings.TrimSpace(r.DtEmissao)
}

// OriginUF returns the origin jurisdiction, trimmed and upper-cased.
func (r Row) OriginUF() string { return strings.ToUpper(strings.TrimSpace(r.UF)) }

// DestUF returns the destination jurisdiction, trimmed and upper-cased.
func (r Row) DestUF() string { return strings.ToUpper(strings.TrimSpace(r.UFDest)) }

// ProductDesc returns the product description, trimmed.
func (r Row) ProductDesc() string { return strings.TrimSpace(r.Produto) }

// CFOPDigits returns the operation code with everything but digits removed.
func (r Row) CFOPDigits() string { return onlyDigits(r.CFOP) }

// NCMDigits returns the tariff code with everything but digits removed.
func (r Row) NCMDigits() string { return onlyDigits(r.NCM) }

// MovimentoTag returns the explicit direction tag, trimmed and upper-cased.
// It may be empty or invalid; callers fall back to classification.
func (r Row) MovimentoTag() string { return strings.ToUpper(strings.TrimSpace(r.Movimento)) }

func onlyDigits(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
