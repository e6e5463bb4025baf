// Package config loads and validates the pipeline configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete pipeline configuration.
type Config struct {
	Universe   []string         `json:"universe" yaml:"universe"`
	Schedule   ScheduleConfig   `json:"schedule" yaml:"schedule"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	Compliance ComplianceConfig `json:"compliance" yaml:"compliance"`
	Execution  ExecutionConfig  `json:"execution" yaml:"execution"`
	Broker     BrokerConfig     `json:"broker" yaml:"broker"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// ScheduleConfig controls the cycle cadence.
type ScheduleConfig struct {
	OpenInterval   string `json:"open_interval" yaml:"open_interval"`     // e.g. "1m"
	ClosedInterval string `json:"closed_interval" yaml:"closed_interval"` // e.g. "5m"
	ExtendedHours  bool   `json:"extended_hours" yaml:"extended_hours"`
}

// ParseOpenInterval converts the open-market cadence to a duration.
func (s ScheduleConfig) ParseOpenInterval() (time.Duration, error) {
	return time.ParseDuration(s.OpenInterval)
}

// ParseClosedInterval converts the closed-market cadence to a duration.
func (s ScheduleConfig) ParseClosedInterval() (time.Duration, error) {
	return time.ParseDuration(s.ClosedInterval)
}

// RiskConfig contains portfolio sizing limits.
type RiskConfig struct {
	MaxPositionPct    float64 `json:"max_position_pct" yaml:"max_position_pct"`
	MaxLeverage       float64 `json:"max_leverage" yaml:"max_leverage"`
	LeverageSoftRatio float64 `json:"leverage_soft_ratio" yaml:"leverage_soft_ratio"`
	LeverageScale     float64 `json:"leverage_scale" yaml:"leverage_scale"`
	MaxConcentration  float64 `json:"max_concentration" yaml:"max_concentration"`
	MaxPositions      int     `json:"max_positions" yaml:"max_positions"`
	MinConfidence     float64 `json:"min_confidence" yaml:"min_confidence"`
	MinNotional       float64 `json:"min_notional" yaml:"min_notional"`
	BuyingPowerPct    float64 `json:"buying_power_pct" yaml:"buying_power_pct"`
	KellyScale        float64 `json:"kelly_scale" yaml:"kelly_scale"`
	RewardRiskRatio   float64 `json:"reward_risk_ratio" yaml:"reward_risk_ratio"`
	AnnualVolatility  float64 `json:"annual_volatility" yaml:"annual_volatility"`
}

// ComplianceConfig contains regulatory policy parameters.
type ComplianceConfig struct {
	PDTEquityFloor float64 `json:"pdt_equity_floor" yaml:"pdt_equity_floor"`
	MaxPositionPct float64 `json:"max_position_pct" yaml:"max_position_pct"`
	WashSaleDays   int     `json:"wash_sale_days" yaml:"wash_sale_days"`
	TradeLogSize   int     `json:"trade_log_size" yaml:"trade_log_size"`
	ReportTime     string  `json:"report_time" yaml:"report_time"` // "HH:MM"
}

// ParseReportTime splits the "HH:MM" report time.
func (c ComplianceConfig) ParseReportTime() (hour, minute int, err error) {
	if _, err := fmt.Sscanf(c.ReportTime, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("parse report_time %q: %w", c.ReportTime, err)
	}
	return hour, minute, nil
}

// ExecutionConfig contains strategy selection thresholds.
type ExecutionConfig struct {
	AggressiveConfidence float64 `json:"aggressive_confidence" yaml:"aggressive_confidence"`
	PassiveSizeThreshold int64   `json:"passive_size_threshold" yaml:"passive_size_threshold"`
	AdaptiveChunks       int     `json:"adaptive_chunks" yaml:"adaptive_chunks"`
	ChunkDelay           string  `json:"chunk_delay" yaml:"chunk_delay"` // e.g. "2s"
	PassiveOffsetBps     float64 `json:"passive_offset_bps" yaml:"passive_offset_bps"`
}

// ParseChunkDelay converts the inter-chunk pause to a duration.
func (e ExecutionConfig) ParseChunkDelay() (time.Duration, error) {
	return time.ParseDuration(e.ChunkDelay)
}

// BrokerConfig selects and credentials the brokerage backend.
type BrokerConfig struct {
	Type      string `json:"type" yaml:"type"` // "alpaca" or "sim"
	Paper     bool   `json:"paper" yaml:"paper"`
	KeyID     string `json:"key_id,omitempty" yaml:"key_id,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
}

// Credentials resolves the API key pair, preferring the config file over
// the APCA_API_KEY_ID / APCA_API_SECRET_KEY environment variables.
func (b BrokerConfig) Credentials() (keyID, secret string) {
	keyID, secret = b.KeyID, b.SecretKey
	if keyID == "" {
		keyID = os.Getenv("APCA_API_KEY_ID")
	}
	if secret == "" {
		secret = os.Getenv("APCA_API_SECRET_KEY")
	}
	return keyID, secret
}

// JournalConfig contains audit trail parameters.
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON. Omitted fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, choosing the format by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if len(c.Universe) == 0 {
		return fmt.Errorf("universe must list at least one instrument")
	}
	for _, instrument := range c.Universe {
		if instrument == "" {
			return fmt.Errorf("universe contains an empty instrument")
		}
	}
	if _, err := c.Schedule.ParseOpenInterval(); err != nil {
		return fmt.Errorf("schedule.open_interval: %w", err)
	}
	if _, err := c.Schedule.ParseClosedInterval(); err != nil {
		return fmt.Errorf("schedule.closed_interval: %w", err)
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be between 0 and 1")
	}
	if c.Risk.MaxLeverage <= 0 {
		return fmt.Errorf("risk.max_leverage must be positive")
	}
	if c.Risk.KellyScale <= 0 || c.Risk.KellyScale > 1 {
		return fmt.Errorf("risk.kelly_scale must be between 0 and 1")
	}
	if c.Compliance.PDTEquityFloor < 0 {
		return fmt.Errorf("compliance.pdt_equity_floor must not be negative")
	}
	if c.Compliance.WashSaleDays <= 0 {
		return fmt.Errorf("compliance.wash_sale_days must be positive")
	}
	if hour, minute, err := c.Compliance.ParseReportTime(); err != nil {
		return err
	} else if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("compliance.report_time out of range")
	}
	if c.Execution.AggressiveConfidence <= 0 || c.Execution.AggressiveConfidence > 1 {
		return fmt.Errorf("execution.aggressive_confidence must be between 0 and 1")
	}
	if c.Execution.AdaptiveChunks < 1 {
		return fmt.Errorf("execution.adaptive_chunks must be at least 1")
	}
	if _, err := c.Execution.ParseChunkDelay(); err != nil {
		return fmt.Errorf("execution.chunk_delay: %w", err)
	}
	if c.Broker.Type != "alpaca" && c.Broker.Type != "sim" {
		return fmt.Errorf("broker.type must be 'alpaca' or 'sim'")
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	return nil
}

// Default returns a configuration with sensible paper-trading defaults.
func Default() *Config {
	return &Config{
		Universe: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"},
		Schedule: ScheduleConfig{
			OpenInterval:   "1m",
			ClosedInterval: "5m",
			ExtendedHours:  true,
		},
		Risk: RiskConfig{
			MaxPositionPct:    0.10,
			MaxLeverage:       2.0,
			LeverageSoftRatio: 0.8,
			LeverageScale:     0.5,
			MaxConcentration:  0.3,
			MaxPositions:      3,
			MinConfidence:     0.6,
			MinNotional:       100,
			BuyingPowerPct:    0.9,
			KellyScale:        0.25,
			RewardRiskRatio:   2.0,
			AnnualVolatility:  0.15,
		},
		Compliance: ComplianceConfig{
			PDTEquityFloor: 25000,
			MaxPositionPct: 0.25,
			WashSaleDays:   30,
			TradeLogSize:   10000,
			ReportTime:     "16:30",
		},
		Execution: ExecutionConfig{
			AggressiveConfidence: 0.8,
			PassiveSizeThreshold: 1000,
			AdaptiveChunks:       5,
			ChunkDelay:           "2s",
			PassiveOffsetBps:     1,
		},
		Broker: BrokerConfig{
			Type:  "alpaca",
			Paper: true,
		},
		Journal: JournalConfig{
			DBPath: "./quantpipe.sqlite",
		},
	}
}
