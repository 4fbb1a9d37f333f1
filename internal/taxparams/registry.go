// Package taxparams persists editable tax rates keyed by (ano, uf, tipo).
// Rates live in a bbolt bucket so edits survive restarts without an external
// database; the simulation engine never reads the registry directly, the
// API boundary resolves rates into a scenario before running.
package taxparams

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Tipo identifies which tax a parameter configures.
const (
	TipoCBSPadrao   = "CBS_PADRAO"
	TipoIBSPadrao   = "IBS_PADRAO"
	TipoICMSAtual   = "ICMS_ATUAL"
	TipoPISAtual    = "PIS_ATUAL"
	TipoCofinsAtual = "COFINS_ATUAL"
)

var validTipos = map[string]bool{
	TipoCBSPadrao:   true,
	TipoIBSPadrao:   true,
	TipoICMSAtual:   true,
	TipoPISAtual:    true,
	TipoCofinsAtual: true,
}

var (
	ErrNotFound    = errors.New("taxparams: parameter not found")
	ErrInvalidTipo = errors.New("taxparams: unknown tipo")
)

var bucketName = []byte("tax_params")

// Param is one stored rate. An empty UF means the parameter applies to every
// jurisdiction not covered by a UF-specific one.
type Param struct {
	ID        string  `json:"id"`
	Ano       int     `json:"ano"`
	UF        string  `json:"uf,omitempty"`
	Tipo      string  `json:"tipo"`
	Aliquota  float64 `json:"aliquota"`
	Descricao string  `json:"descricao,omitempty"`
}

func (p Param) validate() error {
	if p.Ano < 2000 || p.Ano > 2100 {
		return fmt.Errorf("taxparams: ano %d out of range [2000, 2100]", p.Ano)
	}
	if !validTipos[p.Tipo] {
		return fmt.Errorf("%w: %q", ErrInvalidTipo, p.Tipo)
	}
	if p.Aliquota < 0 || p.Aliquota > 1 {
		return fmt.Errorf("taxparams: aliquota %v out of range [0, 1]", p.Aliquota)
	}
	return nil
}

// Registry is the bbolt-backed parameter store.
type Registry struct {
	db *bolt.DB
}

// Open opens (or creates) the registry database at path.
func Open(path string) (*Registry, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open tax params db %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tax params bucket: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close releases the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Create inserts a parameter, or updates the aliquota/descricao of the
// existing one when (ano, uf, tipo) is already present. The stored parameter
// is returned either way.
func (r *Registry) Create(p Param) (Param, error) {
	if err := p.validate(); err != nil {
		return Param{}, err
	}

	var out Param
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)

		var existing *Param
		if err := b.ForEach(func(_, v []byte) error {
			var it Param
			if err := json.Unmarshal(v, &it); err != nil {
				return fmt.Errorf("decode stored param: %w", err)
			}
			if it.Ano == p.Ano && it.UF == p.UF && it.Tipo == p.Tipo {
				existing = &it
			}
			return nil
		}); err != nil {
			return err
		}

		if existing != nil {
			existing.Aliquota = p.Aliquota
			existing.Descricao = p.Descricao
			out = *existing
		} else {
			p.ID = uuid.NewString()
			out = p
		}

		raw, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("encode param: %w", err)
		}
		return b.Put([]byte(out.ID), raw)
	})
	if err != nil {
		return Param{}, err
	}
	return out, nil
}

// Update changes the aliquota and/or descricao of an existing parameter.
// Nil fields are left untouched.
func (r *Registry) Update(id string, aliquota *float64, descricao *string) (Param, error) {
	if aliquota != nil && (*aliquota < 0 || *aliquota > 1) {
		return Param{}, fmt.Errorf("taxparams: aliquota %v out of range [0, 1]", *aliquota)
	}

	var out Param
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode stored param: %w", err)
		}
		if aliquota != nil {
			out.Aliquota = *aliquota
		}
		if descricao != nil {
			out.Descricao = *descricao
		}
		enc, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("encode param: %w", err)
		}
		return b.Put([]byte(id), enc)
	})
	if err != nil {
		return Param{}, err
	}
	return out, nil
}

// Delete removes a parameter by id.
func (r *Registry) Delete(id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// List returns every stored parameter, ordered by (ano, tipo, uf).
func (r *Registry) List() ([]Param, error) {
	var out []Param
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(_, v []byte) error {
			var it Param
			if err := json.Unmarshal(v, &it); err != nil {
				return fmt.Errorf("decode stored param: %w", err)
			}
			out = append(out, it)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Ano != out[j].Ano {
			return out[i].Ano < out[j].Ano
		}
		if out[i].Tipo != out[j].Tipo {
			return out[i].Tipo < out[j].Tipo
		}
		return out[i].UF < out[j].UF
	})
	return out, nil
}

// GetRate resolves the rate for (ano, tipo, uf): a UF-specific parameter
// wins, then a general (empty-UF) one, then def.
func (r *Registry) GetRate(ano int, tipo, uf string, def float64) (float64, error) {
	items, err := r.List()
	if err != nil {
		return def, err
	}

	if uf != "" {
		for _, it := range items {
			if it.Ano == ano && it.Tipo == tipo && it.UF == uf {
				return it.Aliquota, nil
			}
		}
	}
	for _, it := range items {
		if it.Ano == ano && it.Tipo == tipo && it.UF == "" {
			return it.Aliquota, nil
		}
	}
	return def, nil
}
