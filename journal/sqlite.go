package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordExecution(r ExecutionRecord) error {
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	_, err := j.db.Exec(`
		INSERT INTO executions
		(id, order_id, instrument, side, quantity, status, strategy, broker_order_id, error, chunks, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrderID, r.Instrument, r.Side, r.Quantity,
		r.Status, r.Strategy, r.BrokerOrderID, r.Error, r.Chunks, r.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordCompliance(r ComplianceRecord) error {
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	_, err := j.db.Exec(`
		INSERT INTO compliance_events
		(id, order_id, instrument, code, message, time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrderID, r.Instrument, r.Code, r.Message, r.Time,
	)
	return err
}

func (j *SQLiteJournal) ListExecutionsSince(t time.Time) ([]ExecutionRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, order_id, instrument, side, quantity, status, strategy, broker_order_id, error, chunks, time
		FROM executions WHERE time >= ? ORDER BY time ASC`, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		var r ExecutionRecord
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Instrument, &r.Side, &r.Quantity,
			&r.Status, &r.Strategy, &r.BrokerOrderID, &r.Error, &r.Chunks, &r.Time); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
