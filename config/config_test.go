package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty universe", func(c *Config) { c.Universe = nil }},
		{"blank instrument", func(c *Config) { c.Universe = []string{"AAPL", ""} }},
		{"bad open interval", func(c *Config) { c.Schedule.OpenInterval = "soon" }},
		{"position pct above one", func(c *Config) { c.Risk.MaxPositionPct = 1.5 }},
		{"zero leverage", func(c *Config) { c.Risk.MaxLeverage = 0 }},
		{"kelly above one", func(c *Config) { c.Risk.KellyScale = 2 }},
		{"negative pdt floor", func(c *Config) { c.Compliance.PDTEquityFloor = -1 }},
		{"zero wash window", func(c *Config) { c.Compliance.WashSaleDays = 0 }},
		{"bad report time", func(c *Config) { c.Compliance.ReportTime = "late" }},
		{"report hour out of range", func(c *Config) { c.Compliance.ReportTime = "25:00" }},
		{"zero chunks", func(c *Config) { c.Execution.AdaptiveChunks = 0 }},
		{"bad chunk delay", func(c *Config) { c.Execution.ChunkDelay = "fast" }},
		{"unknown broker", func(c *Config) { c.Broker.Type = "etrade" }},
		{"missing db path", func(c *Config) { c.Journal.DBPath = "" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
universe: [TSLA, AMD]
schedule:
  open_interval: 30s
  closed_interval: 10m
broker:
  type: sim
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA", "AMD"}, cfg.Universe)
	assert.Equal(t, "sim", cfg.Broker.Type)

	// Unset sections keep defaults.
	assert.Equal(t, 25000.0, cfg.Compliance.PDTEquityFloor)
	assert.Equal(t, 5, cfg.Execution.AdaptiveChunks)

	oc := cfg.OrchestratorConfig()
	assert.Equal(t, 30*time.Second, oc.OpenInterval)
	assert.Equal(t, 10*time.Minute, oc.ClosedInterval)
}

func TestLoadFromFileJSONRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Universe = []string{"SPY"}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromFileInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("universe: []\n"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestBindings(t *testing.T) {
	t.Parallel()

	cfg := Default()

	limits := cfg.RiskLimits()
	assert.Equal(t, 0.10, limits.MaxPositionPct)
	assert.Equal(t, 3, limits.ConcentrationTopN)
	assert.Equal(t, 0.25, limits.KellyScale)

	cc := cfg.ComplianceConfig()
	assert.Equal(t, 16, cc.ReportHour)
	assert.Equal(t, 30, cc.ReportMinute)
	assert.Equal(t, 30*24*time.Hour, cc.WashSaleWindow)

	ec := cfg.ExecutionConfig()
	assert.Equal(t, 2*time.Second, ec.ChunkDelay)
	assert.Equal(t, int64(1000), ec.PassiveSizeThreshold)
}

func TestCredentialsFallBackToEnv(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "env-secret")

	b := BrokerConfig{}
	key, secret := b.Credentials()
	assert.Equal(t, "env-key", key)
	assert.Equal(t, "env-secret", secret)

	b = BrokerConfig{KeyID: "file-key", SecretKey: "file-secret"}
	key, secret = b.Credentials()
	assert.Equal(t, "file-key", key)
	assert.Equal(t, "file-secret", secret)
}
