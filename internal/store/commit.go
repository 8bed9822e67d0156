package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive, AUTOINCREMENT) IDs, and all FK references within the batch
// are rewritten using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Components (depend on round_id, which is already real, and parent_id)
//  2. Bindings (depend on component_id and target_id)
//  3. Dependencies (depend on binding_id and target_id)
//  4. Strategies (depend on binding_id)
//  5. Diagnostics (depend on round_id only)
//
// Writers must insert a parent component before its children and an owning
// binding before the references to it.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id *int64) error {
		if id == nil || *id >= 0 {
			return nil
		}
		realID, ok := fakeToReal[*id]
		if !ok {
			return fmt.Errorf("id %d not in fakeToReal map", *id)
		}
		*id = realID
		return nil
	}

	// 1. Components
	for _, c := range batch.Components {
		if c.ParentID != nil {
			parent := *c.ParentID
			c.ParentID = &parent
			if err := remap(c.ParentID); err != nil {
				return fmt.Errorf("commit batch: component %q parent: %w", c.Path, err)
			}
		}
		realID, err := insertComponentTx(tx, &c)
		if err != nil {
			return fmt.Errorf("commit batch: component %q: %w", c.Path, err)
		}
		fakeToReal[c.ID] = realID
	}

	// 2. Bindings
	for _, b := range batch.Bindings {
		if err := remap(&b.ComponentID); err != nil {
			return fmt.Errorf("commit batch: binding %q component: %w", b.Key, err)
		}
		if b.TargetID != nil {
			target := *b.TargetID
			b.TargetID = &target
			if err := remap(b.TargetID); err != nil {
				return fmt.Errorf("commit batch: binding %q target: %w", b.Key, err)
			}
		}
		realID, err := insertBindingTx(tx, &b)
		if err != nil {
			return fmt.Errorf("commit batch: binding %q: %w", b.Key, err)
		}
		fakeToReal[b.ID] = realID
	}

	// 3. Dependencies
	for _, d := range batch.Dependencies {
		if err := remap(&d.BindingID); err != nil {
			return fmt.Errorf("commit batch: dependency %q: %w", d.Key, err)
		}
		if d.TargetID != nil {
			target := *d.TargetID
			d.TargetID = &target
			if err := remap(d.TargetID); err != nil {
				return fmt.Errorf("commit batch: dependency %q target: %w", d.Key, err)
			}
		}
		realID, err := insertDependencyTx(tx, &d)
		if err != nil {
			return fmt.Errorf("commit batch: dependency %q: %w", d.Key, err)
		}
		fakeToReal[d.ID] = realID
	}

	// 4. Strategies
	for _, st := range batch.Strategies {
		if err := remap(&st.BindingID); err != nil {
			return fmt.Errorf("commit batch: strategy: %w", err)
		}
		realID, err := insertStrategyTx(tx, &st)
		if err != nil {
			return fmt.Errorf("commit batch: strategy: %w", err)
		}
		fakeToReal[st.ID] = realID
	}

	// 5. Diagnostics
	for _, d := range batch.Diagnostics {
		realID, err := insertDiagnosticTx(tx, &d)
		if err != nil {
			return fmt.Errorf("commit batch: diagnostic %q: %w", d.Kind, err)
		}
		fakeToReal[d.ID] = realID
	}

	return tx.Commit()
}

// --- Insert helpers ---
// Shared by the Store insert methods (with s.db) and CommitBatch (with a tx).

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func lastID(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func insertComponentTx(ex execer, c *Component) (int64, error) {
	return lastID(ex.Exec(
		"INSERT INTO components (round_id, parent_id, path, name, kind, scopes) VALUES (?, ?, ?, ?, ?, ?)",
		c.RoundID, c.ParentID, c.Path, c.Name, c.Kind, marshalStrings(c.Scopes),
	))
}

func insertBindingTx(ex execer, b *Binding) (int64, error) {
	return lastID(ex.Exec(
		`INSERT INTO bindings (component_id, key, kind, owned, target_id, scope, module,
			element, declaration, nullable, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ComponentID, b.Key, b.Kind, b.Owned, b.TargetID, b.Scope, b.Module,
		b.Element, b.Declaration, b.Nullable, b.SignatureHash,
	))
}

func insertDependencyTx(ex execer, d *Dependency) (int64, error) {
	return lastID(ex.Exec(
		"INSERT INTO dependencies (binding_id, target_id, key, request_kind, element, ordinal) VALUES (?, ?, ?, ?, ?, ?)",
		d.BindingID, d.TargetID, d.Key, d.RequestKind, d.Element, d.Ordinal,
	))
}

func insertStrategyTx(ex execer, st *Strategy) (int64, error) {
	return lastID(ex.Exec(
		"INSERT INTO strategies (binding_id, factory, caching, access, requests) VALUES (?, ?, ?, ?, ?)",
		st.BindingID, st.Factory, st.Caching, st.Access, st.Requests,
	))
}

func insertDiagnosticTx(ex execer, d *Diagnostic) (int64, error) {
	return lastID(ex.Exec(
		`INSERT INTO diagnostics (round_id, kind, severity, component, key, element, message, chain)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RoundID, d.Kind, d.Severity, d.Component, d.Key, d.Element, d.Message, marshalStrings(d.Chain),
	))
}
