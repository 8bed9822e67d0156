package store

import (
	"database/sql"
	"fmt"
)

// --- Round operations ---

func (s *Store) InsertRound(r *Round) (int64, error) {
	id, err := lastID(s.db.Exec(
		"INSERT INTO rounds (input_hash, created_at, failed, errors, warnings) VALUES (?, ?, ?, ?, ?)",
		r.InputHash, r.CreatedAt, r.Failed, r.Errors, r.Warnings,
	))
	if err != nil {
		return 0, fmt.Errorf("insert round: %w", err)
	}
	r.ID = id
	return id, nil
}

// FinishRound records the outcome of a round's validation.
func (s *Store) FinishRound(roundID int64, failed bool, errors, warnings int) error {
	_, err := s.db.Exec(
		"UPDATE rounds SET failed = ?, errors = ?, warnings = ? WHERE id = ?",
		failed, errors, warnings, roundID,
	)
	if err != nil {
		return fmt.Errorf("finish round %d: %w", roundID, err)
	}
	return nil
}

const roundCols = "id, input_hash, created_at, failed, errors, warnings"

func scanRound(sc scanner) (*Round, error) {
	r := &Round{}
	if err := sc.Scan(&r.ID, &r.InputHash, &r.CreatedAt, &r.Failed, &r.Errors, &r.Warnings); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) queryRound(query string, args ...any) (*Round, error) {
	r, err := scanRound(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// Round returns the round with the given ID, or nil.
func (s *Store) Round(id int64) (*Round, error) {
	r, err := s.queryRound("SELECT "+roundCols+" FROM rounds WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", id, err)
	}
	return r, nil
}

// RoundByHash returns the most recent round computed from the given input
// hash, or nil.
func (s *Store) RoundByHash(hash string) (*Round, error) {
	r, err := s.queryRound("SELECT "+roundCols+" FROM rounds WHERE input_hash = ? ORDER BY id DESC LIMIT 1", hash)
	if err != nil {
		return nil, fmt.Errorf("round by hash: %w", err)
	}
	return r, nil
}

// LatestRound returns the most recent round, or nil on an empty database.
func (s *Store) LatestRound() (*Round, error) {
	r, err := s.queryRound("SELECT " + roundCols + " FROM rounds ORDER BY id DESC LIMIT 1")
	if err != nil {
		return nil, fmt.Errorf("latest round: %w", err)
	}
	return r, nil
}

// Rounds returns every round, oldest first.
func (s *Store) Rounds() ([]*Round, error) {
	rows, err := s.db.Query("SELECT " + roundCols + " FROM rounds ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("rounds: %w", err)
	}
	defer rows.Close()
	var out []*Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Manifest operations ---

func (s *Store) InsertManifest(m *Manifest) (int64, error) {
	id, err := lastID(s.db.Exec(
		"INSERT INTO manifests (round_id, path, hash) VALUES (?, ?, ?)",
		m.RoundID, m.Path, m.Hash,
	))
	if err != nil {
		return 0, fmt.Errorf("insert manifest: %w", err)
	}
	m.ID = id
	return id, nil
}

func (s *Store) ManifestsByRound(roundID int64) ([]*Manifest, error) {
	rows, err := s.db.Query("SELECT id, round_id, path, hash FROM manifests WHERE round_id = ? ORDER BY id", roundID)
	if err != nil {
		return nil, fmt.Errorf("manifests by round: %w", err)
	}
	defer rows.Close()
	var out []*Manifest
	for rows.Next() {
		m := &Manifest{}
		if err := rows.Scan(&m.ID, &m.RoundID, &m.Path, &m.Hash); err != nil {
			return nil, fmt.Errorf("scan manifest: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Metadata operations ---

// SetMetadata upserts a metadata value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// Metadata returns a metadata value and whether it was set.
func (s *Store) Metadata(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("metadata %q: %w", key, err)
	}
	return v, true, nil
}
