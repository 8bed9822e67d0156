package store

import "fmt"

// PruneRounds deletes all but the newest keep rounds and returns the IDs it
// removed, oldest first.
func (s *Store) PruneRounds(keep int) ([]int64, error) {
	if keep < 0 {
		keep = 0
	}
	rows, err := s.db.Query("SELECT id FROM rounds ORDER BY id DESC LIMIT -1 OFFSET ?", keep)
	if err != nil {
		return nil, fmt.Errorf("prune rounds: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan round id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prune rounds: %w", err)
	}

	// Oldest first so a failure leaves the newest rounds intact.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	for _, id := range ids {
		if err := s.DeleteRound(id); err != nil {
			return nil, fmt.Errorf("prune rounds: %w", err)
		}
	}
	return ids, nil
}

// CountRows returns the number of rows of each round-scoped table for a
// round.
func (s *Store) CountRows(roundID int64) (map[string]int, error) {
	queries := map[string]string{
		"components":   "SELECT COUNT(*) FROM components WHERE round_id = ?",
		"bindings":     "SELECT COUNT(*) FROM bindings b JOIN components c ON c.id = b.component_id WHERE c.round_id = ?",
		"dependencies": "SELECT COUNT(*) FROM dependencies d JOIN bindings b ON b.id = d.binding_id JOIN components c ON c.id = b.component_id WHERE c.round_id = ?",
		"strategies":   "SELECT COUNT(*) FROM strategies st JOIN bindings b ON b.id = st.binding_id JOIN components c ON c.id = b.component_id WHERE c.round_id = ?",
		"diagnostics":  "SELECT COUNT(*) FROM diagnostics WHERE round_id = ?",
		"manifests":    "SELECT COUNT(*) FROM manifests WHERE round_id = ?",
	}
	out := make(map[string]int, len(queries))
	for table, q := range queries {
		var n int
		if err := s.db.QueryRow(q, roundID).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}
