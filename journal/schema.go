package journal

const Schema = `
CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	status TEXT NOT NULL,
	strategy TEXT NOT NULL,
	broker_order_id TEXT NOT NULL,
	error TEXT NOT NULL,
	chunks INTEGER NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_time ON executions(time);
CREATE INDEX IF NOT EXISTS idx_executions_instrument ON executions(instrument);

CREATE TABLE IF NOT EXISTS compliance_events (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	code TEXT NOT NULL,
	message TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_compliance_time ON compliance_events(time);
`
