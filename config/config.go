package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/rota/core/metrics"
	"github.com/kilianp07/rota/core/roster"
	"github.com/kilianp07/rota/infra/monitoring"
	"github.com/kilianp07/rota/infra/mqtt"
)

// EnvPrefix marks environment overrides; "__" separates levels, as in
// ROTA_ENGINE__STAFF_MAX=3.
const EnvPrefix = "ROTA_"

type Config struct {
	Engine  roster.Config     `json:"engine"`
	Logging LoggingConfig     `json:"logging"`
	Metrics metrics.Config    `json:"metrics"`
	Store   StoreConfig       `json:"store"`
	MQTT    mqtt.Config       `json:"mqtt"`
	Sentry  monitoring.Config `json:"sentry"`
}

// StoreConfig locates the run archive.
type StoreConfig struct {
	// Path is the SQLite file; empty disables persistence.
	Path string `json:"path"`
}

// Enabled reports whether runs are persisted.
func (c StoreConfig) Enabled() bool { return c.Path != "" }

// Load reads the configuration file at path, applies environment overrides
// and validates the result. An empty path yields the defaults plus the
// environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults() {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaults are loaded below the file so that partially configured sections
// keep the remaining defaults.
func defaults() map[string]any {
	e := roster.DefaultConfig()
	w := e.Weights
	return map[string]any{
		"engine.staff_min":                       e.StaffMin,
		"engine.staff_max":                       e.StaffMax,
		"engine.separation_candidates":           e.SeparationCandidates,
		"engine.balance_alpha":                   e.BalanceAlpha,
		"engine.lex_tolerance":                   e.LexTolerance,
		"engine.weekly_baseline":                 e.WeeklyBaseline,
		"engine.solver":                          e.Solver,
		"engine.weights.disliked_day":            w.DislikedDay,
		"engine.weights.missed_liked_day":        w.MissedLikedDay,
		"engine.weights.excess_weekly_shifts":    w.ExcessWeeklyShifts,
		"engine.weights.repeated_weekday":        w.RepeatedWeekday,
		"engine.weights.repeated_pairing":        w.RepeatedPairing,
		"engine.weights.monthly_balance":         w.MonthlyBalance,
		"engine.weights.shift_limit_violation":   w.ShiftLimitViolation,
		"engine.weights.weekend_limit_violation": w.WeekendLimitViolation,
		"logging.level":                          "info",
	}
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Engine.SetDefaults()
	c.Logging.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	return nil
}
