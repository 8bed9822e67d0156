package graft

import (
	"fmt"
	"sort"
)

// Change kinds reported by ChangedBindings.
const (
	ChangeAdded    = "added"
	ChangeRemoved  = "removed"
	ChangeModified = "modified"
)

// BindingChange is one owned binding that differs between two rounds.
type BindingChange struct {
	Component string
	Key       string
	Change    string
	From      *BindingRecord // nil when added
	To        *BindingRecord // nil when removed
}

// ChangedBindings compares the owned bindings of two rounds by component
// path and key. A binding is modified when its signature hash differs: its
// kind, scope, declaration or requests changed. Results are sorted by
// component then key.
func (q *QueryBuilder) ChangedBindings(fromRound, toRound int64) ([]BindingChange, error) {
	before, err := q.ownedBindings(fromRound)
	if err != nil {
		return nil, fmt.Errorf("changed bindings: %w", err)
	}
	after, err := q.ownedBindings(toRound)
	if err != nil {
		return nil, fmt.Errorf("changed bindings: %w", err)
	}

	var changes []BindingChange
	for id, b := range after {
		prev, ok := before[id]
		switch {
		case !ok:
			changes = append(changes, BindingChange{Component: id.path, Key: id.key, Change: ChangeAdded, To: b})
		case prev.SignatureHash != b.SignatureHash:
			changes = append(changes, BindingChange{Component: id.path, Key: id.key, Change: ChangeModified, From: prev, To: b})
		}
	}
	for id, b := range before {
		if _, ok := after[id]; !ok {
			changes = append(changes, BindingChange{Component: id.path, Key: id.key, Change: ChangeRemoved, From: b})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Component != changes[j].Component {
			return changes[i].Component < changes[j].Component
		}
		return changes[i].Key < changes[j].Key
	})
	return changes, nil
}

type bindingIdentity struct {
	path string
	key  string
}

func (q *QueryBuilder) ownedBindings(roundID int64) (map[bindingIdentity]*BindingRecord, error) {
	cs, err := q.store.ComponentsByRound(roundID)
	if err != nil {
		return nil, err
	}
	paths := make(map[int64]string, len(cs))
	for _, c := range cs {
		paths[c.ID] = c.Path
	}
	bs, err := q.store.BindingsByRound(roundID)
	if err != nil {
		return nil, err
	}
	out := make(map[bindingIdentity]*BindingRecord, len(bs))
	for _, b := range bs {
		if !b.Owned {
			continue
		}
		out[bindingIdentity{path: paths[b.ComponentID], key: b.Key}] = b
	}
	return out, nil
}
