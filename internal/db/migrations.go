package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tracked_markets (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    outcome_type TEXT NOT NULL,
    url TEXT NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    is_resolved INTEGER NOT NULL DEFAULT 0,
    resolution TEXT,
    close_time INTEGER NOT NULL,
    created_time INTEGER NOT NULL,
    first_seen_at TEXT NOT NULL DEFAULT (datetime('now')),
    last_updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    market_id TEXT NOT NULL REFERENCES tracked_markets(id),
    eligible INTEGER NOT NULL,
    outcome_kind TEXT,
    outcome TEXT,
    error TEXT,
    decided_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_decisions_market_time ON decisions(market_id, decided_at);

CREATE TABLE IF NOT EXISTS resolution_attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    decision_id TEXT NOT NULL REFERENCES decisions(id),
    market_id TEXT NOT NULL REFERENCES tracked_markets(id),
    outcome TEXT NOT NULL,
    success INTEGER NOT NULL,
    status_code INTEGER,
    error TEXT,
    attempted_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_attempts_market ON resolution_attempts(market_id);

CREATE TABLE IF NOT EXISTS market_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id TEXT NOT NULL REFERENCES tracked_markets(id),
    probability REAL,
    answer_probs TEXT,
    is_resolved INTEGER NOT NULL DEFAULT 0,
    snapshot_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_snapshots_market_time ON market_snapshots(market_id, snapshot_at);
`
