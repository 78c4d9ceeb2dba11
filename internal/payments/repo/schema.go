package repo

func (d Dialect) schema() []string {
	switch d.name {
	case DriverPostgres:
		return []string{`
CREATE TABLE IF NOT EXISTS payments (
    id VARCHAR(36) PRIMARY KEY,
    payable_type VARCHAR(64) NOT NULL,
    payable_id BIGINT NOT NULL,
    reference VARCHAR(128) NOT NULL,
    amount BIGINT NOT NULL,
    currency VARCHAR(8) NOT NULL,
    provider VARCHAR(64) NOT NULL,
    status VARCHAR(16) NOT NULL,
    channel VARCHAR(64) NOT NULL DEFAULT '',
    session_id VARCHAR(255) NULL,
    response_code VARCHAR(64) NOT NULL DEFAULT '',
    response_message TEXT NULL,
    customer_email VARCHAR(255) NOT NULL DEFAULT '',
    customer_first_name VARCHAR(255) NOT NULL DEFAULT '',
    customer_last_name VARCHAR(255) NOT NULL DEFAULT '',
    customer_phone VARCHAR(32) NOT NULL DEFAULT '',
    expires_at TIMESTAMPTZ NULL,
    meta_json TEXT NULL,
    live_key VARCHAR(191) NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ NULL,
    CONSTRAINT uniq_payments_reference UNIQUE (reference),
    CONSTRAINT uniq_payments_live_key UNIQUE (live_key)
)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_session ON payments (session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_payable ON payments (payable_type, payable_id)`,
		}
	case DriverSQLite:
		return []string{`
CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    payable_type TEXT NOT NULL,
    payable_id INTEGER NOT NULL,
    reference TEXT NOT NULL,
    amount INTEGER NOT NULL,
    currency TEXT NOT NULL,
    provider TEXT NOT NULL,
    status TEXT NOT NULL,
    channel TEXT NOT NULL DEFAULT '',
    session_id TEXT NULL,
    response_code TEXT NOT NULL DEFAULT '',
    response_message TEXT NULL,
    customer_email TEXT NOT NULL DEFAULT '',
    customer_first_name TEXT NOT NULL DEFAULT '',
    customer_last_name TEXT NOT NULL DEFAULT '',
    customer_phone TEXT NOT NULL DEFAULT '',
    expires_at DATETIME NULL,
    meta_json TEXT NULL,
    live_key TEXT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    completed_at DATETIME NULL
)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_payments_reference ON payments (reference)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_payments_live_key ON payments (live_key)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_session ON payments (session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_payable ON payments (payable_type, payable_id)`,
		}
	}
	return []string{`
CREATE TABLE IF NOT EXISTS payments (
    id VARCHAR(36) NOT NULL,
    payable_type VARCHAR(64) NOT NULL,
    payable_id BIGINT NOT NULL,
    reference VARCHAR(128) NOT NULL,
    amount BIGINT NOT NULL,
    currency VARCHAR(8) NOT NULL,
    provider VARCHAR(64) NOT NULL,
    status VARCHAR(16) NOT NULL,
    channel VARCHAR(64) NOT NULL DEFAULT '',
    session_id VARCHAR(255) NULL,
    response_code VARCHAR(64) NOT NULL DEFAULT '',
    response_message TEXT NULL,
    customer_email VARCHAR(255) NOT NULL DEFAULT '',
    customer_first_name VARCHAR(255) NOT NULL DEFAULT '',
    customer_last_name VARCHAR(255) NOT NULL DEFAULT '',
    customer_phone VARCHAR(32) NOT NULL DEFAULT '',
    expires_at DATETIME(6) NULL,
    meta_json TEXT NULL,
    live_key VARCHAR(191) NULL,
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL,
    completed_at DATETIME(6) NULL,
    PRIMARY KEY (id),
    UNIQUE KEY uniq_payments_reference (reference),
    UNIQUE KEY uniq_payments_live_key (live_key),
    KEY idx_payments_session (session_id),
    KEY idx_payments_payable (payable_type, payable_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`}
}
