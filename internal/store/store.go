package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for persisted resolution rounds.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
-- Round tables

CREATE TABLE IF NOT EXISTS rounds (
  id              INTEGER PRIMARY KEY,
  input_hash      TEXT NOT NULL,
  created_at      TIMESTAMP,
  failed          BOOLEAN DEFAULT FALSE,
  errors          INTEGER DEFAULT 0,
  warnings        INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS manifests (
  id              INTEGER PRIMARY KEY,
  round_id        INTEGER NOT NULL REFERENCES rounds(id),
  path            TEXT NOT NULL,
  hash            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

-- Graph tables

CREATE TABLE IF NOT EXISTS components (
  id              INTEGER PRIMARY KEY,
  round_id        INTEGER NOT NULL REFERENCES rounds(id),
  parent_id       INTEGER REFERENCES components(id),
  path            TEXT NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  scopes          TEXT
);

CREATE TABLE IF NOT EXISTS bindings (
  id              INTEGER PRIMARY KEY,
  component_id    INTEGER NOT NULL REFERENCES components(id),
  key             TEXT NOT NULL,
  kind            TEXT NOT NULL,
  owned           BOOLEAN DEFAULT TRUE,
  target_id       INTEGER REFERENCES bindings(id),
  scope           TEXT,
  module          TEXT,
  element         TEXT,
  declaration     TEXT,
  nullable        BOOLEAN DEFAULT FALSE,
  signature_hash  TEXT
);

CREATE TABLE IF NOT EXISTS dependencies (
  id              INTEGER PRIMARY KEY,
  binding_id      INTEGER NOT NULL REFERENCES bindings(id),
  target_id       INTEGER REFERENCES bindings(id),
  key             TEXT NOT NULL,
  request_kind    TEXT NOT NULL,
  element         TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS strategies (
  id              INTEGER PRIMARY KEY,
  binding_id      INTEGER NOT NULL UNIQUE REFERENCES bindings(id),
  factory         TEXT NOT NULL,
  caching         TEXT NOT NULL,
  access          TEXT NOT NULL,
  requests        INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  round_id        INTEGER NOT NULL REFERENCES rounds(id),
  kind            TEXT NOT NULL,
  severity        TEXT NOT NULL,
  component       TEXT,
  key             TEXT,
  element         TEXT,
  message         TEXT NOT NULL,
  chain           TEXT
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_rounds_hash ON rounds(input_hash);
CREATE INDEX IF NOT EXISTS idx_manifests_round ON manifests(round_id);
CREATE INDEX IF NOT EXISTS idx_components_round ON components(round_id);
CREATE INDEX IF NOT EXISTS idx_components_parent ON components(parent_id);
CREATE INDEX IF NOT EXISTS idx_components_path ON components(path);
CREATE INDEX IF NOT EXISTS idx_bindings_component ON bindings(component_id);
CREATE INDEX IF NOT EXISTS idx_bindings_key ON bindings(key);
CREATE INDEX IF NOT EXISTS idx_bindings_target ON bindings(target_id);
CREATE INDEX IF NOT EXISTS idx_bindings_hash ON bindings(signature_hash);
CREATE INDEX IF NOT EXISTS idx_dependencies_binding ON dependencies(binding_id);
CREATE INDEX IF NOT EXISTS idx_dependencies_target ON dependencies(target_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_round ON diagnostics(round_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_kind ON diagnostics(kind);
`

// DeleteRound transactionally removes a round and everything recorded for
// it. Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteRound(roundID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	bindingsOfRound := `SELECT b.id FROM bindings b
		JOIN components c ON c.id = b.component_id
		WHERE c.round_id = ?`

	for _, q := range []string{
		"DELETE FROM strategies WHERE binding_id IN (" + bindingsOfRound + ")",
		"DELETE FROM dependencies WHERE binding_id IN (" + bindingsOfRound + ")",
		// References point at owners in ancestor components; clear them
		// before the owners go.
		"UPDATE bindings SET target_id = NULL WHERE component_id IN (SELECT id FROM components WHERE round_id = ?)",
		"DELETE FROM bindings WHERE component_id IN (SELECT id FROM components WHERE round_id = ?)",
		"UPDATE components SET parent_id = NULL WHERE round_id = ?",
		"DELETE FROM components WHERE round_id = ?",
		"DELETE FROM diagnostics WHERE round_id = ?",
		"DELETE FROM manifests WHERE round_id = ?",
		"DELETE FROM rounds WHERE id = ?",
	} {
		if _, err := tx.Exec(q, roundID); err != nil {
			return fmt.Errorf("delete round %d: %w", roundID, err)
		}
	}
	return tx.Commit()
}
