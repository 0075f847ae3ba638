package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Enabled: true,
			Jobs: []JobConfig{{
				Name:     "cleanup",
				Handler:  "noop",
				Triggers: []TriggerConfig{{Schedule: "5m"}},
			}},
		},
	}
}

func TestValidateOK(t *testing.T) {
	t.Parallel()
	require.NoError(t, Validate(validConfig()))
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing job name", func(c *Config) { c.Engine.Jobs[0].Name = "" }, "name is required"},
		{"missing handler", func(c *Config) { c.Engine.Jobs[0].Handler = "" }, "handler is required"},
		{"no triggers", func(c *Config) { c.Engine.Jobs[0].Triggers = nil }, "at least one trigger"},
		{"empty schedule", func(c *Config) { c.Engine.Jobs[0].Triggers[0].Schedule = "" }, "schedule is required"},
		{"bad end_after", func(c *Config) { c.Engine.Jobs[0].Triggers[0].EndAfter = "soon" }, "invalid duration"},
		{"bad timezone", func(c *Config) { c.Engine.Timezone = "Mars/Olympus" }, "engine.timezone"},
		{"duplicate job", func(c *Config) { c.Engine.Jobs = append(c.Engine.Jobs, c.Engine.Jobs[0]) }, "duplicate job"},
		{"negative refresh", func(c *Config) { c.Monitor = &MonitorConfig{RefreshPerMin: -1} }, "refresh_per_min"},
		{"bad monitor interval", func(c *Config) { c.Monitor = &MonitorConfig{Interval: "often"} }, "invalid duration"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := validConfig()
	newCfg := validConfig()
	newCfg.Logging.Level = "debug"
	newCfg.Monitor = &MonitorConfig{Enabled: true, Interval: "10s"}

	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	assert.Equal(t, []string{"logging", "monitor"}, changed)
	assert.NotEmpty(t, attrs)

	changed, _ = SummarizeConfigChange(oldCfg, validConfig())
	assert.Empty(t, changed)
}
