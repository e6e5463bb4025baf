// Package journal persists execution and compliance records for
// surveillance review. The in-memory trade log stays authoritative; the
// journal is a write-behind audit trail.
package journal

import "time"

// ExecutionRecord is one executed (or failed) order.
type ExecutionRecord struct {
	ID            string
	OrderID       string
	Instrument    string
	Side          string
	Quantity      int64
	Status        string
	Strategy      string
	BrokerOrderID string
	Error         string
	Chunks        int
	Time          time.Time
}

// ComplianceRecord is one pre-trade violation or surveillance event.
type ComplianceRecord struct {
	ID         string
	OrderID    string
	Instrument string
	Code       string
	Message    string
	Time       time.Time
}

type Journal interface {
	RecordExecution(ExecutionRecord) error
	RecordCompliance(ComplianceRecord) error
	ListExecutionsSince(t time.Time) ([]ExecutionRecord, error)
	Close() error
}
