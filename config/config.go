package config

import (
	"fmt"
	"time"
)

// Config represents a palisade.yaml configuration file.
// All values are optional and act as defaults for palisade run flags.
// CLI flags always override config values.
type Config struct {
	Input      string   `yaml:"input"`
	Workers    int      `yaml:"workers"`
	Rate       int      `yaml:"rate"`
	Batch      int      `yaml:"batch"`
	RunTime    int      `yaml:"run_time"` // seconds, 0 = single pass
	DB         string   `yaml:"db"`
	Metrics    string   `yaml:"metrics"`
	Interval   Duration `yaml:"interval"`
	Report     string   `yaml:"report"`
	PromListen string   `yaml:"prom_listen"`

	Alerts AlertConfig  `yaml:"alerts"`
	Notify NotifyConfig `yaml:"notify"`
}

// AlertConfig holds alert-engine defaults from the config file.
type AlertConfig struct {
	Window    Duration `yaml:"window"`
	Threshold int      `yaml:"threshold"`
}

// NotifyConfig holds alert notifier defaults from the config file.
// Type selects the notifier: "webhook", "redis", or empty for none.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
