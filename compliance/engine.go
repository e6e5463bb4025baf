// Package compliance runs pre-trade veto checks and post-trade
// surveillance over a bounded trade log.
package compliance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/journal"
	"github.com/quantpipe/quantpipe/market"
	"github.com/quantpipe/quantpipe/trade"
)

// Violation codes surfaced by pre-trade checks.
const (
	CodePatternDayTrading  = "PATTERN_DAY_TRADING"
	CodeConcentrationLimit = "CONCENTRATION_LIMIT"
	CodeWashSale           = "WASH_SALE"
	CodeAccountUnavailable = "ACCOUNT_UNAVAILABLE"
)

// Violation is one independently evaluated compliance finding.
type Violation struct {
	Code    string
	Message string
}

// Config is the compliance policy.
type Config struct {
	// PDTEquityFloor is the regulatory equity threshold below which a
	// flagged pattern day trader may not trade.
	PDTEquityFloor float64

	// MaxPositionPct caps one order's notional as a fraction of equity.
	MaxPositionPct float64

	// WashSaleWindow is the trailing period in which a sell blocks a buy of
	// the same instrument.
	WashSaleWindow time.Duration

	// TradeLogCapacity bounds the in-memory surveillance log.
	TradeLogCapacity int

	// ReportHour and ReportMinute define the daily regulatory reporting
	// window (local wall clock).
	ReportHour   int
	ReportMinute int
}

// DefaultConfig returns the standard policy.
func DefaultConfig() Config {
	return Config{
		PDTEquityFloor:   25000,
		MaxPositionPct:   0.25,
		WashSaleWindow:   30 * 24 * time.Hour,
		TradeLogCapacity: 10000,
		ReportHour:       16,
		ReportMinute:     30,
	}
}

// LogEntry is one surveilled execution with the market conditions captured
// at logging time.
type LogEntry struct {
	Time       time.Time
	Result     trade.Result
	Conditions MarketConditions
}

// MarketConditions is a coarse snapshot of the market phase at trade time.
type MarketConditions struct {
	Phase string // "regular" or "extended"
	Time  time.Time
}

// PatternChecker is the manipulation-surveillance extension point. It runs
// after each logged execution; findings are advisory.
type PatternChecker interface {
	Check(entries []LogEntry)
}

// Engine evaluates pre-trade checks and records post-trade surveillance.
type Engine struct {
	cfg     Config
	broker  broker.Broker
	hours   market.Hours
	log     *zap.Logger
	journal journal.Journal // optional
	checker PatternChecker  // optional

	now func() time.Time

	mu         sync.Mutex
	entries    []LogEntry
	lastReport time.Time
}

// NewEngine creates a compliance engine. jnl and checker may be nil.
func NewEngine(b broker.Broker, cfg Config, hours market.Hours, jnl journal.Journal, log *zap.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		broker:  b,
		hours:   hours,
		log:     log.Named("compliance"),
		journal: jnl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetPatternChecker installs the manipulation-pattern hook.
func (e *Engine) SetPatternChecker(c PatternChecker) { e.checker = c }

// PreTradeCheck evaluates every check independently and returns whether the
// order may proceed along with all violations found. A failing order is
// skipped for the cycle, never retried automatically.
func (e *Engine) PreTradeCheck(ctx context.Context, o trade.Order) (bool, []Violation) {
	var violations []Violation

	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		violations = append(violations, Violation{
			Code:    CodeAccountUnavailable,
			Message: fmt.Sprintf("account snapshot unavailable: %v", err),
		})
	} else {
		if v, ok := e.checkPatternDayTrading(account); !ok {
			violations = append(violations, v)
		}
		if v, ok := e.checkConcentration(o, account); !ok {
			violations = append(violations, v)
		}
	}

	if v, ok := e.checkWashSale(o); !ok {
		violations = append(violations, v)
	}

	for _, v := range violations {
		e.log.Warn("pre-trade violation",
			zap.String("order_id", o.ID),
			zap.String("instrument", o.Instrument),
			zap.String("code", v.Code),
			zap.String("message", v.Message))
		e.journalCompliance(o, v)
	}
	return len(violations) == 0, violations
}

func (e *Engine) checkPatternDayTrading(account broker.Account) (Violation, bool) {
	if account.PatternDayTrader && account.Equity < e.cfg.PDTEquityFloor {
		return Violation{
			Code: CodePatternDayTrading,
			Message: fmt.Sprintf("equity %.2f below PDT floor %.2f for flagged account",
				account.Equity, e.cfg.PDTEquityFloor),
		}, false
	}
	return Violation{}, true
}

func (e *Engine) checkConcentration(o trade.Order, account broker.Account) (Violation, bool) {
	if e.cfg.MaxPositionPct <= 0 || account.Equity <= 0 {
		return Violation{}, true
	}
	notional := float64(o.Quantity) * o.Signal.Price
	if notional/account.Equity > e.cfg.MaxPositionPct {
		return Violation{
			Code: CodeConcentrationLimit,
			Message: fmt.Sprintf("order notional %.2f exceeds %.0f%% of equity",
				notional, 100*e.cfg.MaxPositionPct),
		}, false
	}
	return Violation{}, true
}

// journalCompliance mirrors a violation into the audit journal. Write
// failures are logged, never surfaced: a journal outage must not veto or
// pass trades.
func (e *Engine) journalCompliance(o trade.Order, v Violation) {
	if e.journal == nil {
		return
	}
	err := e.journal.RecordCompliance(journal.ComplianceRecord{
		OrderID:    o.ID,
		Instrument: o.Instrument,
		Code:       v.Code,
		Message:    v.Message,
		Time:       e.now(),
	})
	if err != nil {
		e.log.Error("journal write failed", zap.Error(err))
	}
}

// checkWashSale flags a buy when the trailing trade log holds a sell of the
// same instrument inside the wash-sale window.
func (e *Engine) checkWashSale(o trade.Order) (Violation, bool) {
	if o.Side != broker.Buy {
		return Violation{}, true
	}

	cutoff := e.now().Add(-e.cfg.WashSaleWindow)
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.entries) - 1; i >= 0; i-- {
		entry := e.entries[i]
		if entry.Time.Before(cutoff) {
			break
		}
		if entry.Result.Instrument == o.Instrument && entry.Result.Side == broker.Sell {
			return Violation{
				Code: CodeWashSale,
				Message: fmt.Sprintf("sell of %s at %s inside trailing window",
					o.Instrument, entry.Time.Format(time.RFC3339)),
			}, false
		}
	}
	return Violation{}, true
}

// PostTradeSurveillance appends the execution to the trade log, runs the
// manipulation hook, and emits the periodic regulatory report. These are
// fire-and-forget side effects: failures are logged, never returned.
func (e *Engine) PostTradeSurveillance(ctx context.Context, res trade.Result) {
	now := e.now()
	entry := LogEntry{
		Time:   now,
		Result: res,
		Conditions: MarketConditions{
			Phase: e.marketPhase(now),
			Time:  now,
		},
	}

	e.mu.Lock()
	e.entries = append(e.entries, entry)
	if e.cfg.TradeLogCapacity > 0 && len(e.entries) > e.cfg.TradeLogCapacity {
		e.entries = e.entries[len(e.entries)-e.cfg.TradeLogCapacity:]
	}
	recent := make([]LogEntry, len(e.entries))
	copy(recent, e.entries)
	e.mu.Unlock()

	if e.checker != nil {
		e.checker.Check(recent)
	}

	if e.journal != nil {
		err := e.journal.RecordExecution(journal.ExecutionRecord{
			OrderID:       res.OrderID,
			Instrument:    res.Instrument,
			Side:          string(res.Side),
			Quantity:      res.Quantity,
			Status:        string(res.Status),
			Strategy:      string(res.Strategy),
			BrokerOrderID: res.BrokerOrderID,
			Error:         res.Error,
			Chunks:        res.Chunks,
			Time:          now,
		})
		if err != nil {
			e.log.Error("journal write failed", zap.Error(err))
		}
	}

	if e.inReportingWindow(now) {
		e.generateRegulatoryReport(recent, now)
	}
}

// TradeLog returns a copy of the surveillance log, oldest first.
func (e *Engine) TradeLog() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

func (e *Engine) marketPhase(t time.Time) string {
	if e.hours.Contains(t) {
		return "regular"
	}
	return "extended"
}

// inReportingWindow fires once per day when the wall clock enters the
// configured reporting minute.
func (e *Engine) inReportingWindow(t time.Time) bool {
	loc := e.hours.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if local.Hour() != e.cfg.ReportHour || local.Minute() != e.cfg.ReportMinute {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.lastReport.IsZero() && local.Sub(e.lastReport) < time.Hour {
		return false
	}
	e.lastReport = local
	return true
}

func (e *Engine) generateRegulatoryReport(entries []LogEntry, now time.Time) {
	var submitted, failed int
	for _, entry := range entries {
		if entry.Result.OK() {
			submitted++
		} else {
			failed++
		}
	}
	e.log.Info("regulatory report",
		zap.Time("at", now),
		zap.Int("trades_logged", len(entries)),
		zap.Int("submitted", submitted),
		zap.Int("failed", failed))
}
