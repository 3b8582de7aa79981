package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: :9090
log_level: debug
budget:
  p95_latency_ms: 150
  adaptive_profile: balanced
policy:
  cooldown_seconds: 30
  profiles:
    balanced:
      latency_factor: 1.5
      drain_factor: 1.0
      thermal_ceiling: 2
sampler:
  battery_seconds: 60
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Budget.P95LatencyMs == nil || *cfg.Budget.P95LatencyMs != 150 {
		t.Fatalf("unexpected budget: %+v", cfg.Budget)
	}
	if cfg.Policy.CooldownSeconds != 30 || cfg.Policy.Profiles["balanced"].ThermalCeiling != 2 {
		t.Fatalf("unexpected policy: %+v", cfg.Policy)
	}
	if cfg.Sampler.BatterySeconds != 60 {
		t.Fatalf("unexpected sampler: %+v", cfg.Sampler)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","budget":{"memory_ceiling_mb":2048,"max_thermal_level":2}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.Budget.MemoryCeilingMB == nil || *cfg.Budget.MemoryCeilingMB != 2048 {
		t.Fatalf("unexpected memory ceiling: %+v", cfg.Budget)
	}
	if cfg.Budget.MaxThermalLevel == nil || *cfg.Budget.MaxThermalLevel != 2 {
		t.Fatalf("unexpected thermal ceiling: %+v", cfg.Budget)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\n[budget]\nadaptive_profile=\"conservative\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.Budget.AdaptiveProfile != "conservative" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestToBudgetPreservesNilFields(t *testing.T) {
	var b BudgetConfig
	out := b.ToBudget()
	if out.P95LatencyMs != nil || out.BatteryDrainPer10Min != nil || out.MaxThermalLevel != nil || out.MemoryCeilingMB != nil {
		t.Fatalf("absent fields must stay unconstrained: %+v", out)
	}
	if out.Adaptive() {
		t.Fatalf("empty profile must not read as adaptive")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
