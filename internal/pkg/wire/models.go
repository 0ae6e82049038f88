package wire

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
)

// ModelJSON is one models.json entry (spec.md §6): a method signature plus
// its per-access-path taint entries for each of the four Model components
// this wire format carries seed data for.
type ModelJSON struct {
	Method           string                       `json:"method"`
	Generations      map[string][]TaintConfigJSON `json:"generations,omitempty"`
	ParameterSources map[string][]TaintConfigJSON `json:"parameter_sources,omitempty"`
	Sinks            map[string][]TaintConfigJSON `json:"sinks,omitempty"`
	Propagations     map[string][]TaintConfigJSON `json:"propagations,omitempty"`
}

// populateModel parses each access-path-keyed entry in entries (via
// accesspath.Parse) and feeds the path plus its joined Taint to add, the
// method generic to all four of Model's Add* setters.
func populateModel(method string, entries map[string][]TaintConfigJSON, add func(accesspath.AccessPath, frame.Taint)) error {
	for key, configs := range entries {
		path, err := accesspath.Parse(key)
		if err != nil {
			return fmt.Errorf("wire: model %q: access path %q: %w", method, key, err)
		}
		taint, err := DecodeTaintList(configs)
		if err != nil {
			return fmt.Errorf("wire: model %q: access path %q: %w", method, key, err)
		}
		add(path, taint)
	}
	return nil
}

// ToModel decodes m into a *model.Model.
func (m ModelJSON) ToModel() (*model.Model, error) {
	result := model.New()

	if err := populateModel(m.Method, m.Generations, result.AddGeneration); err != nil {
		return nil, err
	}
	if err := populateModel(m.Method, m.ParameterSources, result.AddParameterSource); err != nil {
		return nil, err
	}
	if err := populateModel(m.Method, m.Sinks, result.AddSink); err != nil {
		return nil, err
	}
	if err := populateModel(m.Method, m.Propagations, result.AddPropagation); err != nil {
		return nil, err
	}

	return result, nil
}

// LoadModels reads a models.json file and returns a map from method
// signature to decoded *model.Model.
func LoadModels(path string) (map[string]*model.Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wire: reading models file %s: %w", path, err)
	}

	var entries []ModelJSON
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("wire: decoding models file %s: %w", path, err)
	}

	out := make(map[string]*model.Model, len(entries))
	for _, entry := range entries {
		m, err := entry.ToModel()
		if err != nil {
			return nil, err
		}
		out[entry.Method] = m
	}
	return out, nil
}
