// Package options holds the fully enumerated analysis configuration of
// spec.md §4.7/§6: heuristics, timeouts, iteration caps, dump flags and
// input/output paths, loaded once from a --config file and merged with
// command-line flags. Grounded on
// internal/pkg/config/config.go's ReadConfig sync.Once-cached-singleton
// pattern, generalized from "regex matcher config" to "analysis Options".
package options

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
)

// FlagSet is shared by cmd/trenchcheck so the --config flag has one
// definition, the way config.FlagSet does for the teacher's analyzers.
var FlagSet flag.FlagSet

var configPath string

func init() {
	FlagSet.StringVar(&configPath, "config", "", "path to analysis configuration file (JSON or YAML)")
}

// Options is the full set of knobs spec.md §4.7/§5 names: resource-bounding
// Heuristics, per-method and whole-run cancellation limits, dump flags for
// auxiliary artifacts, and the input/output paths named in spec.md §6.
type Options struct {
	Heuristics model.Heuristics `json:"heuristics"`

	// MaximumMethodAnalysisTime is the configured per-method time budget. It
	// is loaded and carried in Options, but no analysis stage reads it: a
	// method's intraprocedural fixpoint is degraded to taint-through only
	// when it exceeds the transfer package's fixed iteration budget.
	MaximumMethodAnalysisTime time.Duration `json:"maximum_method_analysis_time"`

	// Threads caps how many methods the interprocedural driver analyzes
	// concurrently per iteration; zero means unbounded (spec.md §5).
	Threads int `json:"threads"`

	DumpClassHierarchies bool `json:"dump_class_hierarchies"`
	DumpOverrides        bool `json:"dump_overrides"`
	DumpCallGraph        bool `json:"dump_call_graph"`
	DumpDependencies     bool `json:"dump_dependencies"`

	RulesPath        string `json:"rules_path"`
	ModelsPath       string `json:"models_path"`
	FieldModelsPath  string `json:"field_models_path"`
	LifecyclesPath   string `json:"lifecycles_path"`
	ShimsPath        string `json:"shims_path"`
	OutputDirectory  string `json:"output_directory"`
	OutputBatchSize  int    `json:"output_batch_size"`
}

// Default returns the Options a run uses absent any --config file: no
// output-size limiting heuristics, a generous per-method timeout, and the
// conventional input/output file names spec.md §6 lists.
func Default() Options {
	return Options{
		Heuristics: model.Heuristics{
			MaxNumberIterations:   150,
			MaxSourceSinkDistance: 10,
		},
		MaximumMethodAnalysisTime: 5 * time.Minute,
		RulesPath:                 "rules.json",
		ModelsPath:                "models.json",
		FieldModelsPath:           "field_models.json",
		LifecyclesPath:            "lifecycles.json",
		ShimsPath:                 "shims.json",
		OutputDirectory:           ".",
		OutputBatchSize:           1000,
	}
}

// Load reads path, accepting either JSON or YAML (sigs.k8s.io/yaml accepts
// both, since JSON is valid YAML), and merges it over Default(), the way
// the original CLI "merges this object with the command-line boost
// options" (spec.md §6). An empty path returns Default() unchanged.
func Load(path string) (Options, error) {
	opts := Default()
	if path == "" {
		return opts, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("options: reading config %s: %w", path, err)
	}

	normalized, err := yaml.YAMLToJSON(raw)
	if err != nil {
		return Options{}, fmt.Errorf("options: parsing config %s: %w", path, err)
	}
	if err := json.Unmarshal(normalized, &opts); err != nil {
		return Options{}, fmt.Errorf("options: decoding config %s: %w", path, err)
	}
	return opts, nil
}

var once sync.Once
var cached Options
var cachedErr error

// FromFlags loads the Options named by the --config flag exactly once per
// process, caching the result for subsequent calls — mirrors
// config.ReadConfig's sync.Once guard.
func FromFlags() (Options, error) {
	once.Do(func() {
		cached, cachedErr = Load(configPath)
	})
	return cached, cachedErr
}
