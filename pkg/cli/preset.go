package cli

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/probeworks/scout/pkg/usecase/research"
	"gopkg.in/yaml.v3"
)

// preset is a named bundle of budgets and tunables. Built-in presets cover
// the common cases; a YAML file can add or override them.
type preset struct {
	MaxQueries            int     `yaml:"max_queries"`
	MaxResultsPerQuery    int     `yaml:"max_results_per_query"`
	MaxReflections        int     `yaml:"max_reflections"`
	CompletenessThreshold float64 `yaml:"completeness_threshold"`
	RoundQuota            int     `yaml:"round_quota"`
	MaxConcurrent         int     `yaml:"max_concurrent"`
	// QueryTimeout is a Go duration string such as "15s".
	QueryTimeout string `yaml:"query_timeout"`
}

var builtinPresets = map[string]preset{
	"quick": {
		MaxQueries:         3,
		MaxResultsPerQuery: 2,
		MaxReflections:     1,
	},
	"balanced": {
		MaxQueries:         6,
		MaxResultsPerQuery: 3,
		MaxReflections:     2,
	},
	"thorough": {
		MaxQueries:         10,
		MaxResultsPerQuery: 5,
		MaxReflections:     3,
	},
}

// loadPreset resolves a preset by name, preferring entries from the given
// YAML file over the built-ins.
func loadPreset(name, path string) (preset, error) {
	presets := map[string]preset{}
	for k, v := range builtinPresets {
		presets[k] = v
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return preset{}, goerr.Wrap(err, "failed to read preset file", goerr.V("path", path))
		}
		var fromFile map[string]preset
		if err := yaml.Unmarshal(raw, &fromFile); err != nil {
			return preset{}, goerr.Wrap(err, "failed to parse preset file", goerr.V("path", path))
		}
		for k, v := range fromFile {
			presets[k] = v
		}
	}

	p, ok := presets[name]
	if !ok {
		return preset{}, goerr.New("unknown preset", goerr.V("preset", name))
	}
	return p, nil
}

// applyPreset overlays non-zero preset values on the config.
func applyPreset(cfg research.Config, p preset) (research.Config, error) {
	if p.MaxQueries > 0 {
		cfg.Budgets.MaxQueries = p.MaxQueries
	}
	if p.MaxResultsPerQuery > 0 {
		cfg.Budgets.MaxResultsPerQuery = p.MaxResultsPerQuery
	}
	if p.MaxReflections > 0 {
		cfg.Budgets.MaxReflections = p.MaxReflections
	}
	if p.CompletenessThreshold > 0 {
		cfg.CompletenessThreshold = p.CompletenessThreshold
	}
	if p.RoundQuota > 0 {
		cfg.RoundQuota = p.RoundQuota
	}
	if p.MaxConcurrent > 0 {
		cfg.MaxConcurrent = p.MaxConcurrent
	}
	if p.QueryTimeout != "" {
		d, err := time.ParseDuration(p.QueryTimeout)
		if err != nil {
			return cfg, goerr.Wrap(err, "invalid query_timeout in preset", goerr.V("value", p.QueryTimeout))
		}
		cfg.QueryTimeout = d
	}
	return cfg, nil
}
