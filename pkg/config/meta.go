package config

import (
	"time"

	"github.com/macropower/sweep/pkg/sweep"
)

const (
	defaultRefreshInterval = 60 // Seconds.
	defaultHistoryFile     = "run_data.csv"
)

// Meta is the metadata sub-document under the reserved `meta` key.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Meta struct {
	// HistoryFile is the name of the completed-run record inside LogDir.
	HistoryFile string `json:"history_file,omitempty" jsonschema:"title=History File" yaml:"history_file"`
	// ExcludeConfigs lists partial-match rules; a run configuration matching
	// every key of any rule is removed from the sweep.
	ExcludeConfigs []map[string]any `json:"exclude_configs,omitempty" jsonschema:"title=Exclusion Rules" yaml:"exclude_configs"`
	// ExcludeMatching lists CEL expressions over the `config` variable; a run
	// configuration for which any expression is true is removed from the sweep.
	ExcludeMatching []string `json:"exclude_matching,omitempty" jsonschema:"title=Exclusion Expressions" yaml:"exclude_matching"`
	// RefreshInterval is the watcher poll interval in seconds.
	RefreshInterval int `json:"refresh_interval,omitempty" jsonschema:"title=Refresh Interval" yaml:"refresh_interval"`
}

func (m *Meta) EnsureDefaults() {
	if m.RefreshInterval <= 0 {
		m.RefreshInterval = defaultRefreshInterval
	}

	if m.HistoryFile == "" {
		m.HistoryFile = defaultHistoryFile
	}

	if m.ExcludeConfigs == nil {
		m.ExcludeConfigs = []map[string]any{}
	}

	if m.ExcludeMatching == nil {
		m.ExcludeMatching = []string{}
	}
}

// Interval returns the refresh interval as a [time.Duration].
func (m *Meta) Interval() time.Duration {
	return time.Duration(m.RefreshInterval) * time.Second
}

// Exclusions compiles the exclusion rules and expressions.
func (m *Meta) Exclusions() (*sweep.Exclusions, error) {
	return sweep.NewExclusions(m.ExcludeConfigs, m.ExcludeMatching)
}
