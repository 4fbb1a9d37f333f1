// Package classifier assigns fiscal rows a direction (entrada/saida) and a
// purpose (finalidade). It is a deterministic MVP: keyword matching on the
// product description with a CFOP-prefix fallback. Purpose can later be
// refined with per-CFOP/NCM rules in the simulation engine.
package classifier

import (
	"strings"

	"github.com/mpaiva/fiscalsim/internal/domain"
)

// Movimento is the transaction direction.
type Movimento string

const (
	Entrada Movimento = "ENTRADA" // purchase side
	Saida   Movimento = "SAIDA"   // sale side
)

// Finalidade categorizes what an inbound item is for, which drives its
// credit eligibility.
type Finalidade string

const (
	Revenda       Finalidade = "REVENDA"
	Consumo       Finalidade = "CONSUMO"
	Ativo         Finalidade = "ATIVO"
	Transferencia Finalidade = "TRANSFERENCIA"
	Outras        Finalidade = "OUTRAS"
)

var (
	transferKeywords = []string{"TRANSFER", "REMESSA", "RETORNO", "CONSIGN", "BONIFIC", "BRINDE"}
	ativoKeywords    = []string{"IMOB", "IMOBILIZ", "ATIVO", "MAQUIN", "EQUIP", "VEICUL", "COMPUT", "SERVIDOR"}
	revendaKeywords  = []string{"REVENDA", "MERCADORIA", "MERCADORIAS"}
	consumoKeywords  = []string{"USO", "CONSUMO", "INSUM", "MATERIAL", "EMBAL", "PECAS", "PEÇAS", "MANUT", "LUBRIF"}
)

// Direction classifies a row as ENTRADA or SAIDA.
//
// Priority:
//  1. explicit movimento column, when it holds a valid value
//  2. CFOP first digit: 1/2/3 entrada, 5/6/7 saida
//  3. fallback: SAIDA
func Direction(row domain.Row) Movimento {
	switch Movimento(row.MovimentoTag()) {
	case Entrada:
		return Entrada
	case Saida:
		return Saida
	}

	if cfop := row.CFOPDigits(); cfop != "" {
		switch cfop[0] {
		case '1', '2', '3':
			return Entrada
		case '5', '6', '7':
			return Saida
		}
	}

	return Saida
}

// Purpose classifies an item's finalidade from its product description, with
// a CFOP-prefix heuristic as fallback. It does not try to be fiscally
// perfect; it exists to unlock the simulation engine.
func Purpose(row domain.Row) Finalidade {
	produto := strings.ToUpper(row.ProductDesc())

	if containsAny(produto, transferKeywords) {
		return Transferencia
	}
	if containsAny(produto, ativoKeywords) {
		return Ativo
	}
	if containsAny(produto, revendaKeywords) {
		return Revenda
	}
	if containsAny(produto, consumoKeywords) {
		return Consumo
	}

	cfop := row.CFOPDigits()
	switch {
	case hasAnyPrefix(cfop, "11", "21"):
		return Revenda
	case hasAnyPrefix(cfop, "12", "22", "13", "23"):
		return Consumo
	}

	return Outras
}

// SafeFinalidade canonicalizes a free-text finalidade token, accepting common
// synonyms. The second return is false for empty or unrecognized input,
// which callers treat as "no filter".
func SafeFinalidade(v string) (Finalidade, bool) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if s == "" {
		return "", false
	}
	switch Finalidade(s) {
	case Revenda, Consumo, Ativo, Transferencia, Outras:
		return Finalidade(s), true
	}
	switch s {
	case "INSUMO", "CONSUMO/INSUMO", "CONSUMO_INSUMO":
		return Consumo, true
	case "TRANSF", "TRANSFER":
		return Transferencia, true
	}
	return "", false
}

// SafeMovimento canonicalizes a free-text movimento token. The second return
// is false for empty or unrecognized input.
func SafeMovimento(v string) (Movimento, bool) {
	s := strings.ToUpper(strings.TrimSpace(v))
	switch Movimento(s) {
	case Entrada, Saida:
		return Movimento(s), true
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	if s == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
