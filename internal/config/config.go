package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vendalab/impact-backend/internal/logger"
)

// EventConfig holds the static event parameters that must be tunable without
// a rebuild. Everything has a default so the service boots with no file.
type EventConfig struct {
	EventDays                 int            `yaml:"event_days"`
	DimensionPriority         []string       `yaml:"dimension_priority"`
	PlanFreshnessHours        int            `yaml:"plan_freshness_hours"`
	ProjectionFreshnessHours  int            `yaml:"projection_freshness_hours"`
	XPCatalog                 map[string]int `yaml:"xp_catalog"`
	NotificationListLimit     int            `yaml:"notification_list_limit"`
	InteractionHistoryEntries int            `yaml:"interaction_history_entries"`
}

// DefaultDimensionPriority is the canonical IMPACT tie-break order: when two
// dimensions share the minimum mean, the one earliest in this list wins.
var DefaultDimensionPriority = []string{
	"inspiracao",
	"motivacao",
	"preparacao",
	"apresentacao",
	"conversao",
	"transformacao",
}

func Default() EventConfig {
	return EventConfig{
		EventDays:                 3,
		DimensionPriority:         append([]string(nil), DefaultDimensionPriority...),
		PlanFreshnessHours:        7 * 24,
		ProjectionFreshnessHours:  24,
		XPCatalog:                 map[string]int{},
		NotificationListLimit:     50,
		InteractionHistoryEntries: 10,
	}
}

// Load reads the event config from path. A missing file is not an error; a
// malformed one is.
func Load(path string, log *logger.Logger) (EventConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if log != nil {
				log.Info("Event config file not found, using defaults", "path", path)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("read event config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse event config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	if log != nil {
		log.Info("Event config loaded", "path", path, "event_days", cfg.EventDays)
	}
	return cfg, nil
}

func (c *EventConfig) validate() error {
	if c.EventDays <= 0 {
		return fmt.Errorf("event_days must be positive")
	}
	if c.PlanFreshnessHours <= 0 || c.ProjectionFreshnessHours <= 0 {
		return fmt.Errorf("freshness windows must be positive")
	}
	if len(c.DimensionPriority) != len(DefaultDimensionPriority) {
		return fmt.Errorf("dimension_priority must list all %d dimensions", len(DefaultDimensionPriority))
	}
	known := map[string]bool{}
	for _, d := range DefaultDimensionPriority {
		known[d] = true
	}
	seen := map[string]bool{}
	for _, d := range c.DimensionPriority {
		if !known[d] {
			return fmt.Errorf("unknown dimension %q in dimension_priority", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicate dimension %q in dimension_priority", d)
		}
		seen[d] = true
	}
	if c.XPCatalog == nil {
		c.XPCatalog = map[string]int{}
	}
	if c.NotificationListLimit <= 0 {
		c.NotificationListLimit = 50
	}
	if c.InteractionHistoryEntries <= 0 {
		c.InteractionHistoryEntries = 10
	}
	return nil
}

func (c EventConfig) PlanFreshness() time.Duration {
	return time.Duration(c.PlanFreshnessHours) * time.Hour
}

func (c EventConfig) ProjectionFreshness() time.Duration {
	return time.Duration(c.ProjectionFreshnessHours) * time.Hour
}
