package store

import (
	"database/sql"
	"fmt"
)

// --- Component operations ---

func (s *Store) InsertComponent(c *Component) (int64, error) {
	id, err := insertComponentTx(s.db, c)
	if err != nil {
		return 0, fmt.Errorf("insert component: %w", err)
	}
	c.ID = id
	return id, nil
}

const componentCols = "id, round_id, parent_id, path, name, kind, scopes"

func scanComponent(sc scanner) (*Component, error) {
	c := &Component{}
	var scopes sql.NullString
	if err := sc.Scan(&c.ID, &c.RoundID, &c.ParentID, &c.Path, &c.Name, &c.Kind, &scopes); err != nil {
		return nil, err
	}
	c.Scopes = unmarshalStrings(scopes.String)
	return c, nil
}

func (s *Store) queryComponents(query string, args ...any) ([]*Component, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ComponentsByRound returns a round's components in insertion (pre-) order.
func (s *Store) ComponentsByRound(roundID int64) ([]*Component, error) {
	return s.queryComponents("SELECT "+componentCols+" FROM components WHERE round_id = ? ORDER BY id", roundID)
}

// ComponentByPath returns the component at path in a round, or nil.
func (s *Store) ComponentByPath(roundID int64, path string) (*Component, error) {
	cs, err := s.queryComponents("SELECT "+componentCols+" FROM components WHERE round_id = ? AND path = ?", roundID, path)
	if err != nil {
		return nil, fmt.Errorf("component by path: %w", err)
	}
	if len(cs) == 0 {
		return nil, nil
	}
	return cs[0], nil
}

// --- Binding operations ---

func (s *Store) InsertBinding(b *Binding) (int64, error) {
	id, err := insertBindingTx(s.db, b)
	if err != nil {
		return 0, fmt.Errorf("insert binding: %w", err)
	}
	b.ID = id
	return id, nil
}

// BindingCols is the column list for binding queries, exported for use by
// QueryBuilder.
const BindingCols = `id, component_id, key, kind, owned, target_id, scope, module,
	element, declaration, nullable, signature_hash`

// ScanBindingRow scans a single row into a Binding. Exported for use by
// QueryBuilder.
func ScanBindingRow(sc scanner) (*Binding, error) {
	b := &Binding{}
	var scope, module, element, decl, hash sql.NullString
	err := sc.Scan(&b.ID, &b.ComponentID, &b.Key, &b.Kind, &b.Owned, &b.TargetID,
		&scope, &module, &element, &decl, &b.Nullable, &hash)
	if err != nil {
		return nil, err
	}
	b.Scope, b.Module, b.Element, b.Declaration, b.SignatureHash =
		scope.String, module.String, element.String, decl.String, hash.String
	return b, nil
}

func (s *Store) queryBindings(query string, args ...any) ([]*Binding, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Binding
	for rows.Next() {
		b, err := ScanBindingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Binding returns the binding row with the given ID, or nil.
func (s *Store) Binding(id int64) (*Binding, error) {
	bs, err := s.queryBindings("SELECT "+BindingCols+" FROM bindings WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("binding %d: %w", id, err)
	}
	if len(bs) == 0 {
		return nil, nil
	}
	return bs[0], nil
}

// BindingsByIDs returns the binding rows with the given IDs, sorted by ID.
func (s *Store) BindingsByIDs(ids []int64) ([]*Binding, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryBindings(
		"SELECT "+BindingCols+" FROM bindings WHERE id IN ("+placeholderList(len(ids))+") ORDER BY id",
		int64sToArgs(ids)...,
	)
}

// BindingsByComponent returns every node of a component's graph sorted by
// key.
func (s *Store) BindingsByComponent(componentID int64) ([]*Binding, error) {
	return s.queryBindings("SELECT "+BindingCols+" FROM bindings WHERE component_id = ? ORDER BY key", componentID)
}

// BindingsByKey returns the nodes for key across every component of a round.
func (s *Store) BindingsByKey(roundID int64, key string) ([]*Binding, error) {
	return s.queryBindings(
		`SELECT b.`+bindingColsQualified+` FROM bindings b
		 JOIN components c ON c.id = b.component_id
		 WHERE c.round_id = ? AND b.key = ? ORDER BY c.id`,
		roundID, key,
	)
}

// BindingsByRound returns every node of a round.
func (s *Store) BindingsByRound(roundID int64) ([]*Binding, error) {
	return s.queryBindings(
		`SELECT b.`+bindingColsQualified+` FROM bindings b
		 JOIN components c ON c.id = b.component_id
		 WHERE c.round_id = ? ORDER BY c.id, b.key`,
		roundID,
	)
}

const bindingColsQualified = `id, b.component_id, b.key, b.kind, b.owned, b.target_id, b.scope, b.module,
	b.element, b.declaration, b.nullable, b.signature_hash`

// --- Dependency operations ---

func (s *Store) InsertDependency(d *Dependency) (int64, error) {
	id, err := insertDependencyTx(s.db, d)
	if err != nil {
		return 0, fmt.Errorf("insert dependency: %w", err)
	}
	d.ID = id
	return id, nil
}

const dependencyCols = "id, binding_id, target_id, key, request_kind, element, ordinal"

func (s *Store) queryDependencies(query string, args ...any) ([]*Dependency, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Dependency
	for rows.Next() {
		d := &Dependency{}
		var element sql.NullString
		if err := rows.Scan(&d.ID, &d.BindingID, &d.TargetID, &d.Key, &d.RequestKind, &element, &d.Ordinal); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		d.Element = element.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// DependenciesOf returns the requests a binding makes, in declaration order.
func (s *Store) DependenciesOf(bindingID int64) ([]*Dependency, error) {
	return s.queryDependencies("SELECT "+dependencyCols+" FROM dependencies WHERE binding_id = ? ORDER BY ordinal", bindingID)
}

// DependentsOf returns the requests that resolved to the given binding row.
func (s *Store) DependentsOf(bindingID int64) ([]*Dependency, error) {
	return s.queryDependencies("SELECT "+dependencyCols+" FROM dependencies WHERE target_id = ? ORDER BY binding_id, ordinal", bindingID)
}

// DependenciesByRound bulk-loads every dependency edge of a round.
func (s *Store) DependenciesByRound(roundID int64) ([]*Dependency, error) {
	return s.queryDependencies(
		`SELECT d.id, d.binding_id, d.target_id, d.key, d.request_kind, d.element, d.ordinal
		 FROM dependencies d
		 JOIN bindings b ON b.id = d.binding_id
		 JOIN components c ON c.id = b.component_id
		 WHERE c.round_id = ? ORDER BY d.binding_id, d.ordinal`,
		roundID,
	)
}

// --- Strategy operations ---

func (s *Store) InsertStrategy(st *Strategy) (int64, error) {
	id, err := insertStrategyTx(s.db, st)
	if err != nil {
		return 0, fmt.Errorf("insert strategy: %w", err)
	}
	st.ID = id
	return id, nil
}

func (s *Store) queryStrategies(query string, args ...any) ([]*Strategy, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Strategy
	for rows.Next() {
		st := &Strategy{}
		if err := rows.Scan(&st.ID, &st.BindingID, &st.Factory, &st.Caching, &st.Access, &st.Requests); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// StrategyByBinding returns the strategy of an owned binding, or nil.
func (s *Store) StrategyByBinding(bindingID int64) (*Strategy, error) {
	sts, err := s.queryStrategies(
		"SELECT id, binding_id, factory, caching, access, requests FROM strategies WHERE binding_id = ?", bindingID)
	if err != nil {
		return nil, fmt.Errorf("strategy by binding: %w", err)
	}
	if len(sts) == 0 {
		return nil, nil
	}
	return sts[0], nil
}

// StrategiesByRound returns every strategy of a round.
func (s *Store) StrategiesByRound(roundID int64) ([]*Strategy, error) {
	return s.queryStrategies(
		`SELECT st.id, st.binding_id, st.factory, st.caching, st.access, st.requests
		 FROM strategies st
		 JOIN bindings b ON b.id = st.binding_id
		 JOIN components c ON c.id = b.component_id
		 WHERE c.round_id = ? ORDER BY c.id, b.key`,
		roundID,
	)
}

// --- Diagnostic operations ---

func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	id, err := insertDiagnosticTx(s.db, d)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	d.ID = id
	return id, nil
}

// DiagnosticsByRound returns a round's diagnostics in report order. An empty
// kind matches every kind.
func (s *Store) DiagnosticsByRound(roundID int64, kind string) ([]*Diagnostic, error) {
	query := "SELECT id, round_id, kind, severity, component, key, element, message, chain FROM diagnostics WHERE round_id = ?"
	args := []any{roundID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	rows, err := s.db.Query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by round: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		var component, key, element, chain sql.NullString
		if err := rows.Scan(&d.ID, &d.RoundID, &d.Kind, &d.Severity, &component, &key, &element, &d.Message, &chain); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Component, d.Key, d.Element = component.String, key.String, element.String
		d.Chain = unmarshalStrings(chain.String)
		out = append(out, d)
	}
	return out, rows.Err()
}
