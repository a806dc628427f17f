// Package poolconfig loads the externally tunable subset of connpool.Config
// from a YAML file, the way internal/config loads the proxy's YAML
// configuration.
package poolconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sinhashubham95/connpool"
)

// File mirrors the on-disk YAML shape. Not every connpool.Config field is
// reasonable to externalize: the connector, disconnector and
// PermanentClassifier are Go values supplied by the embedding program, not
// configuration.
type File struct {
	MaxCapacity          int           `yaml:"max_capacity"`
	MaxConnectRetries    int           `yaml:"max_connect_retries"`
	MinIdleBeforeGC      time.Duration `yaml:"min_idle_before_gc"`
	StatsCollectInterval time.Duration `yaml:"stats_collect_interval"`
}

// Load reads and parses path, returning a connpool.Config with the loaded
// fields applied and the rest left at their zero value for
// Config.ValidateAndDefault to fill in.
func Load(path string) (connpool.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return connpool.Config{}, fmt.Errorf("poolconfig: reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return connpool.Config{}, fmt.Errorf("poolconfig: parsing %s: %w", path, err)
	}

	cfg := connpool.Config{
		MaxCapacity:          f.MaxCapacity,
		MaxConnectRetries:    f.MaxConnectRetries,
		MinIdleTimeBeforeGC:  f.MinIdleBeforeGC,
		StatsCollectInterval: f.StatsCollectInterval,
	}
	return cfg, nil
}
