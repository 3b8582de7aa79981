package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"vedad/pkg/types"
)

// BudgetConfig mirrors types.ComputeBudget for config files. Nil fields
// mean unconstrained.
type BudgetConfig struct {
	P95LatencyMs         *float64 `json:"p95_latency_ms" yaml:"p95_latency_ms" toml:"p95_latency_ms"`
	BatteryDrainPer10Min *float64 `json:"battery_drain_per_10min" yaml:"battery_drain_per_10min" toml:"battery_drain_per_10min"`
	MaxThermalLevel      *int     `json:"max_thermal_level" yaml:"max_thermal_level" toml:"max_thermal_level"`
	MemoryCeilingMB      *float64 `json:"memory_ceiling_mb" yaml:"memory_ceiling_mb" toml:"memory_ceiling_mb"`
	AdaptiveProfile      string   `json:"adaptive_profile" yaml:"adaptive_profile" toml:"adaptive_profile"`
}

// ToBudget converts the section into the scheduler's budget contract.
func (b BudgetConfig) ToBudget() types.ComputeBudget {
	return types.ComputeBudget{
		P95LatencyMs:         b.P95LatencyMs,
		BatteryDrainPer10Min: b.BatteryDrainPer10Min,
		MaxThermalLevel:      b.MaxThermalLevel,
		MemoryCeilingMB:      b.MemoryCeilingMB,
		AdaptiveProfile:      types.AdaptiveProfile(b.AdaptiveProfile),
	}
}

// ProfileConfig is one adaptive-profile row; the multiplier table is
// deployment policy, not code.
type ProfileConfig struct {
	LatencyFactor  float64 `json:"latency_factor" yaml:"latency_factor" toml:"latency_factor"`
	DrainFactor    float64 `json:"drain_factor" yaml:"drain_factor" toml:"drain_factor"`
	ThermalCeiling int     `json:"thermal_ceiling" yaml:"thermal_ceiling" toml:"thermal_ceiling"`
}

// PolicyConfig tunes the QoS state machine. Zero values take package
// defaults.
type PolicyConfig struct {
	CooldownSeconds int                      `json:"cooldown_seconds" yaml:"cooldown_seconds" toml:"cooldown_seconds"`
	DegradeThermal  int                      `json:"degrade_thermal" yaml:"degrade_thermal" toml:"degrade_thermal"`
	PauseThermal    int                      `json:"pause_thermal" yaml:"pause_thermal" toml:"pause_thermal"`
	LowBattery      float64                  `json:"low_battery" yaml:"low_battery" toml:"low_battery"`
	MinHeadroomMB   float64                  `json:"min_headroom_mb" yaml:"min_headroom_mb" toml:"min_headroom_mb"`
	PauseHeadroomMB float64                  `json:"pause_headroom_mb" yaml:"pause_headroom_mb" toml:"pause_headroom_mb"`
	Profiles        map[string]ProfileConfig `json:"profiles" yaml:"profiles" toml:"profiles"`
}

// SamplerConfig tunes the platform sampling pump cadences in seconds.
type SamplerConfig struct {
	BatterySeconds int `json:"battery_seconds" yaml:"battery_seconds" toml:"battery_seconds"`
	MemorySeconds  int `json:"memory_seconds" yaml:"memory_seconds" toml:"memory_seconds"`
}

// Config holds runtime parameters for the daemon. Zero values mean
// "unspecified" and are replaced by defaults at construction.
type Config struct {
	Addr          string        `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel      string        `json:"log_level" yaml:"log_level" toml:"log_level"`
	EventLog      string        `json:"event_log" yaml:"event_log" toml:"event_log"`
	CORSEnabled   bool          `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins   []string      `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	WarmupSamples int           `json:"warmup_samples" yaml:"warmup_samples" toml:"warmup_samples"`
	Budget        BudgetConfig  `json:"budget" yaml:"budget" toml:"budget"`
	Policy        PolicyConfig  `json:"policy" yaml:"policy" toml:"policy"`
	Sampler       SamplerConfig `json:"sampler" yaml:"sampler" toml:"sampler"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
