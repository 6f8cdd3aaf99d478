package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventDays != 3 {
		t.Fatalf("event_days = %d, want default 3", cfg.EventDays)
	}
	if len(cfg.DimensionPriority) != 6 {
		t.Fatalf("dimension priority = %v", cfg.DimensionPriority)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.yaml")
	raw := `
event_days: 5
plan_freshness_hours: 48
xp_catalog:
  quiz_done: 30
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventDays != 5 {
		t.Fatalf("event_days = %d, want 5", cfg.EventDays)
	}
	if cfg.PlanFreshnessHours != 48 {
		t.Fatalf("plan_freshness_hours = %d, want 48", cfg.PlanFreshnessHours)
	}
	if cfg.XPCatalog["quiz_done"] != 30 {
		t.Fatalf("xp_catalog = %v", cfg.XPCatalog)
	}
	// Unset fields keep defaults.
	if cfg.ProjectionFreshnessHours != 24 {
		t.Fatalf("projection_freshness_hours = %d, want default 24", cfg.ProjectionFreshnessHours)
	}
}

func TestLoadRejectsBadPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.yaml")
	raw := `
dimension_priority: [inspiracao, inspiracao, preparacao, apresentacao, conversao, transformacao]
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Fatalf("duplicate dimension accepted")
	}
}
