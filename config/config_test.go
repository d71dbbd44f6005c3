package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rota/core/roster"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `engine:
  staff_min: 1
  staff_max: 2
  separation_candidates: [2, 1]
  weighted_sum: true
  solve_timeout_seconds: 30
  weights:
    repeated_pairing: 50
logging:
  level: debug
  format: console
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":9090"
store:
  path: "rota.db"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  topic_prefix: "oncall"
  qos: 1
sentry:
  dsn: "https://key@sentry.example.com/2"
  environment: "staging"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"staff_min", cfg.Engine.StaffMin, 1},
		{"staff_max", cfg.Engine.StaffMax, 2},
		{"weighted_sum", cfg.Engine.WeightedSum, true},
		{"solve_timeout_seconds", cfg.Engine.SolveTimeoutSeconds, 30},
		{"repeated_pairing", cfg.Engine.Weights.RepeatedPairing, 50.0},
		{"monthly_balance default", cfg.Engine.Weights.MonthlyBalance, 60.0},
		{"balance_alpha default", cfg.Engine.BalanceAlpha, 1.0},
		{"weekly_baseline default", cfg.Engine.WeeklyBaseline, 2},
		{"lex_tolerance default", cfg.Engine.LexTolerance, 1e-6},
		{"solver default", cfg.Engine.Solver, roster.SolverGLPK},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"logging.format", cfg.Logging.Format, "console"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9090"},
		{"store.path", cfg.Store.Path, "rota.db"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.client_id", cfg.MQTT.ClientID, "cli"},
		{"mqtt.topic_prefix", cfg.MQTT.TopicPrefix, "oncall"},
		{"mqtt.qos", cfg.MQTT.QoS, byte(1)},
		{"mqtt.max_retries default", cfg.MQTT.MaxRetries, 3},
		{"sentry.environment", cfg.Sentry.Environment, "staging"},
		{"sentry enabled", cfg.Sentry.Enabled(), true},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
	assert.Equal(t, []int{2, 1}, cfg.Engine.SeparationCandidates)
	assert.True(t, cfg.Store.Enabled())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, roster.DefaultConfig(), cfg.Engine)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Store.Enabled())
	assert.False(t, cfg.MQTT.Enabled())
	assert.Empty(t, cfg.Metrics.Sinks)
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	path := writeConfig(t, "config.yaml", `engine:
  balance_alpha: 0
  weekly_baseline: 0
  lex_tolerance: 0
  solver: branch_and_bound
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Engine.BalanceAlpha)
	assert.Zero(t, cfg.Engine.WeeklyBaseline)
	assert.Zero(t, cfg.Engine.LexTolerance)
	assert.Equal(t, roster.SolverBranchAndBound, cfg.Engine.Solver)

	_, err = Load(writeConfig(t, "config.yaml", "engine:\n  solver: simplex\n"))
	assert.ErrorIs(t, err, roster.ErrConfiguration)
}

func TestLoadJSONWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "config.json", `{"engine": {"staff_max": 3}, "store": {"path": "a.db"}}`)
	t.Setenv("ROTA_ENGINE__STAFF_MAX", "4")
	t.Setenv("ROTA_STORE__PATH", "b.db")
	t.Setenv("ROTA_ENGINE__WEIGHTS__DISLIKED_DAY", "12.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Engine.StaffMin)
	assert.Equal(t, 4, cfg.Engine.StaffMax)
	assert.Equal(t, "b.db", cfg.Store.Path)
	assert.Equal(t, 12.5, cfg.Engine.Weights.DislikedDay)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "config.yaml", "engine:\n  separation_candidates: [1, 2]\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, roster.ErrConfiguration)

	_, err = Load(writeConfig(t, "config.yaml", "engine:\n  weights:\n    disliked_day: -1\n"))
	assert.ErrorIs(t, err, roster.ErrConfiguration)

	_, err = Load(writeConfig(t, "config.yaml", "logging:\n  format: xml\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "config.yaml", "mqtt:\n  broker: tcp://x:1883\n  qos: 3\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "config.yaml", "sentry:\n  sample_rate: 1.5\n"))
	assert.ErrorContains(t, err, "sentry")
}

func TestLoggingOptions(t *testing.T) {
	c := LoggingConfig{File: "logs/rota.log"}
	c.SetDefaults()
	o := c.Options()
	assert.Equal(t, "info", o.Level)
	assert.Equal(t, "logs/rota.log", o.File)
	assert.Equal(t, 10, o.MaxSizeMB)
}
