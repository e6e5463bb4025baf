package config

import (
	"time"

	"github.com/quantpipe/quantpipe/compliance"
	"github.com/quantpipe/quantpipe/execution"
	"github.com/quantpipe/quantpipe/market"
	"github.com/quantpipe/quantpipe/orchestrator"
	"github.com/quantpipe/quantpipe/risk"
)

// RiskLimits maps the risk section onto the risk engine's policy.
func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MaxPositionPct:      c.Risk.MaxPositionPct,
		MaxLeverage:         c.Risk.MaxLeverage,
		LeverageSoftRatio:   c.Risk.LeverageSoftRatio,
		LeverageScaleFactor: c.Risk.LeverageScale,
		MaxConcentration:    c.Risk.MaxConcentration,
		ConcentrationTopN:   c.Risk.MaxPositions,
		MinConfidence:       c.Risk.MinConfidence,
		MinOrderNotional:    c.Risk.MinNotional,
		BuyingPowerBuffer:   c.Risk.BuyingPowerPct,
		KellyScale:          c.Risk.KellyScale,
		RewardRiskRatio:     c.Risk.RewardRiskRatio,
		AnnualVolatility:    c.Risk.AnnualVolatility,
	}
}

// ComplianceConfig maps the compliance section onto the compliance engine's
// policy. Call after Validate; the report time must parse.
func (c *Config) ComplianceConfig() compliance.Config {
	hour, minute, err := c.Compliance.ParseReportTime()
	if err != nil {
		def := compliance.DefaultConfig()
		hour, minute = def.ReportHour, def.ReportMinute
	}
	return compliance.Config{
		PDTEquityFloor:   c.Compliance.PDTEquityFloor,
		MaxPositionPct:   c.Compliance.MaxPositionPct,
		WashSaleWindow:   time.Duration(c.Compliance.WashSaleDays) * 24 * time.Hour,
		TradeLogCapacity: c.Compliance.TradeLogSize,
		ReportHour:       hour,
		ReportMinute:     minute,
	}
}

// ExecutionConfig maps the execution section onto the execution engine's
// tuning. Call after Validate; the chunk delay must parse.
func (c *Config) ExecutionConfig() execution.Config {
	delay, err := c.Execution.ParseChunkDelay()
	if err != nil {
		delay = execution.DefaultConfig().ChunkDelay
	}
	return execution.Config{
		AggressiveConfidence: c.Execution.AggressiveConfidence,
		PassiveSizeThreshold: c.Execution.PassiveSizeThreshold,
		AdaptiveChunks:       c.Execution.AdaptiveChunks,
		ChunkDelay:           delay,
		PassiveOffsetBps:     c.Execution.PassiveOffsetBps,
	}
}

// OrchestratorConfig maps the schedule section onto the cycle loop.
func (c *Config) OrchestratorConfig() orchestrator.Config {
	cfg := orchestrator.DefaultConfig()
	cfg.Universe = append([]string(nil), c.Universe...)
	if d, err := c.Schedule.ParseOpenInterval(); err == nil {
		cfg.OpenInterval = d
	}
	if d, err := c.Schedule.ParseClosedInterval(); err == nil {
		cfg.ClosedInterval = d
	}
	if c.Schedule.ExtendedHours {
		cfg.Hours = market.ExtendedUS()
	} else {
		cfg.Hours = market.RegularUS()
	}
	return cfg
}
