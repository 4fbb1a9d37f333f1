// Package scenarios loads named simulation presets from a YAML file and
// always carries the built-in baseline.
package scenarios

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mpaiva/fiscalsim/internal/engine"
)

// DefaultName is the preset returned when no scenario is requested.
const DefaultName = "default"

// Library is an immutable set of presets, keyed by name.
type Library struct {
	presets map[string]engine.Scenario
}

type presetsFile struct {
	Scenarios map[string]engine.Scenario `yaml:"scenarios"`
}

// Builtin returns a library with only the baseline preset.
func Builtin() *Library {
	return &Library{presets: map[string]engine.Scenario{
		DefaultName: engine.DefaultScenario(),
	}}
}

// Load reads presets from a YAML file and merges them over the builtin
// baseline. A missing file is not an error: the builtin library is returned.
// File entries named "default" replace the baseline.
func Load(path string) (*Library, error) {
	lib := Builtin()
	if path == "" {
		return lib, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scenarios file %q: %w", path, err)
	}

	var f presetsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scenarios file %q: %w", path, err)
	}

	for name, sc := range f.Scenarios {
		if sc.Nome == "" {
			sc.Nome = name
		}
		lib.presets[name] = sc
	}
	return lib, nil
}

// Get returns a preset by name.
func (l *Library) Get(name string) (engine.Scenario, bool) {
	sc, ok := l.presets[name]
	return sc, ok
}

// Default returns the baseline preset.
func (l *Library) Default() engine.Scenario {
	return l.presets[DefaultName]
}

// List returns the preset names in sorted order.
func (l *Library) List() []string {
	out := make([]string, 0, len(l.presets))
	for name := range l.presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns every preset keyed by name, for the scenarios endpoint.
func (l *Library) All() map[string]engine.Scenario {
	out := make(map[string]engine.Scenario, len(l.presets))
	for k, v := range l.presets {
		out[k] = v
	}
	return out
}
