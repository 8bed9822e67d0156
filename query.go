package graft

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jward/graft/internal/store"
)

// QueryBuilder provides read access to persisted rounds.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder wraps an open Store. Use it to query a database without
// creating an Engine.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// LatestRound returns the round most recently resolved or reused by an
// engine, or nil on an empty database.
func (q *QueryBuilder) LatestRound() (*RoundRecord, error) {
	v, ok, err := q.store.Metadata(latestRoundKey)
	if err != nil {
		return nil, fmt.Errorf("latest round: %w", err)
	}
	if ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			r, err := q.store.Round(id)
			if err != nil {
				return nil, fmt.Errorf("latest round: %w", err)
			}
			if r != nil {
				return r, nil
			}
		}
	}
	r, err := q.store.LatestRound()
	if err != nil {
		return nil, fmt.Errorf("latest round: %w", err)
	}
	return r, nil
}

// Round returns the round with the given ID, or nil.
func (q *QueryBuilder) Round(id int64) (*RoundRecord, error) {
	return q.store.Round(id)
}

// Rounds returns every stored round, oldest first.
func (q *QueryBuilder) Rounds() ([]*RoundRecord, error) {
	return q.store.Rounds()
}

// Manifests returns the manifests a round was computed from, in merge order.
func (q *QueryBuilder) Manifests(roundID int64) ([]*ManifestRecord, error) {
	return q.store.ManifestsByRound(roundID)
}

// Components returns a round's components, parents before children.
func (q *QueryBuilder) Components(roundID int64) ([]*ComponentRecord, error) {
	cs, err := q.store.ComponentsByRound(roundID)
	if err != nil {
		return nil, fmt.Errorf("components: %w", err)
	}
	return cs, nil
}

// Bindings returns every node of the component at path ("App/Session"),
// sorted by key. Returns nil, nil if the component does not exist.
func (q *QueryBuilder) Bindings(roundID int64, path string) ([]*BindingRecord, error) {
	c, err := q.store.ComponentByPath(roundID, path)
	if err != nil {
		return nil, fmt.Errorf("bindings: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	bs, err := q.store.BindingsByComponent(c.ID)
	if err != nil {
		return nil, fmt.Errorf("bindings: %w", err)
	}
	return bs, nil
}

// Binding returns the node with the given ID, or nil.
func (q *QueryBuilder) Binding(id int64) (*BindingRecord, error) {
	b, err := q.store.Binding(id)
	if err != nil {
		return nil, fmt.Errorf("binding: %w", err)
	}
	return b, nil
}

// BindingsByIDs returns the nodes with the given IDs, sorted by ID.
func (q *QueryBuilder) BindingsByIDs(ids []int64) ([]*BindingRecord, error) {
	bs, err := q.store.BindingsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("bindings by ids: %w", err)
	}
	return bs, nil
}

// BindingFor returns the node for a rendered key in the component at path,
// or nil. The node may be a reference; see Owner.
func (q *QueryBuilder) BindingFor(roundID int64, path, key string) (*BindingRecord, error) {
	bs, err := q.Bindings(roundID, path)
	if err != nil {
		return nil, fmt.Errorf("binding for: %w", err)
	}
	for _, b := range bs {
		if b.Key == key {
			return b, nil
		}
	}
	return nil, nil
}

// BindingsByKey returns the nodes for a rendered key in every component of
// a round.
func (q *QueryBuilder) BindingsByKey(roundID int64, key string) ([]*BindingRecord, error) {
	bs, err := q.store.BindingsByKey(roundID, key)
	if err != nil {
		return nil, fmt.Errorf("bindings by key: %w", err)
	}
	return bs, nil
}

// Owner returns the node that owns b's binding: b itself, or the ancestor
// node a reference points at.
func (q *QueryBuilder) Owner(b *BindingRecord) (*BindingRecord, error) {
	if b.TargetID == nil {
		return b, nil
	}
	owner, err := q.store.Binding(*b.TargetID)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	return owner, nil
}

// Dependencies returns the requests a binding makes, in declaration order.
// References have none; query their owner.
func (q *QueryBuilder) Dependencies(bindingID int64) ([]*DependencyRecord, error) {
	ds, err := q.store.DependenciesOf(bindingID)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	return ds, nil
}

// Dependents returns the bindings that request the given binding, sorted by
// ID. Requests always resolve to the owning node, so a reference has no
// dependents of its own.
func (q *QueryBuilder) Dependents(bindingID int64) ([]*BindingRecord, error) {
	ds, err := q.store.DependentsOf(bindingID)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	seen := make(map[int64]bool, len(ds))
	var ids []int64
	for _, d := range ds {
		if !seen[d.BindingID] {
			seen[d.BindingID] = true
			ids = append(ids, d.BindingID)
		}
	}
	bs, err := q.store.BindingsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	return bs, nil
}

// Strategy returns the strategy of an owned binding, or nil.
func (q *QueryBuilder) Strategy(bindingID int64) (*StrategyRecord, error) {
	s, err := q.store.StrategyByBinding(bindingID)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	return s, nil
}

// Strategies returns every strategy of a round.
func (q *QueryBuilder) Strategies(roundID int64) ([]*StrategyRecord, error) {
	ss, err := q.store.StrategiesByRound(roundID)
	if err != nil {
		return nil, fmt.Errorf("strategies: %w", err)
	}
	return ss, nil
}

// Diagnostics returns a round's diagnostics in report order. An empty kind
// matches every kind.
func (q *QueryBuilder) Diagnostics(roundID int64, kind string) ([]*DiagnosticRecord, error) {
	ds, err := q.store.DiagnosticsByRound(roundID, kind)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	return ds, nil
}

// roundOfBinding returns the round a binding row belongs to, or 0 if the
// binding does not exist.
func (q *QueryBuilder) roundOfBinding(bindingID int64) (int64, error) {
	var roundID int64
	err := q.store.DB().QueryRow(
		`SELECT c.round_id FROM bindings b
		 JOIN components c ON c.id = b.component_id
		 WHERE b.id = ?`, bindingID,
	).Scan(&roundID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return roundID, nil
}
