package graft

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/manifest"
	"github.com/jward/graft/internal/store"
)

// persist writes a computed round. Graph rows go through a BatchedStore and
// are committed in one transaction, so a failed write leaves no partial
// graph behind.
func (e *Engine) persist(round *Round, files []*manifest.File) error {
	rec := &store.Round{InputHash: round.InputHash, CreatedAt: time.Now()}
	roundID, err := e.store.InsertRound(rec)
	if err != nil {
		return err
	}
	round.ID = roundID

	for _, f := range files {
		if _, err := e.store.InsertManifest(&store.Manifest{RoundID: roundID, Path: f.Path, Hash: f.Hash}); err != nil {
			return err
		}
	}

	batch := store.NewBatchedStore()
	if err := writeRound(batch, roundID, round); err != nil {
		return err
	}
	if err := e.store.CommitBatch(batch); err != nil {
		return err
	}
	if err := e.store.FinishRound(roundID, round.Failed, round.Errors, round.Warnings); err != nil {
		return err
	}
	return e.store.SetMetadata(latestRoundKey, strconv.FormatInt(roundID, 10))
}

// writeRound records the forest, plan and report of a round. Graphs are
// written in pre-order so parents and reference targets always precede the
// rows that point at them.
func writeRound(ds store.DataStore, roundID int64, round *Round) error {
	componentIDs := make(map[*graph.BindingGraph]int64)
	nodeIDs := make(map[*graph.Node]int64)

	for _, g := range round.Forest.Graphs() {
		c := &store.Component{
			RoundID: roundID,
			Path:    g.Path.String(),
			Name:    g.Component.Name,
			Kind:    string(g.Component.Kind),
			Scopes:  g.Component.Scopes,
		}
		if g.Parent != nil {
			parentID := componentIDs[g.Parent]
			c.ParentID = &parentID
		}
		cid, err := ds.InsertComponent(c)
		if err != nil {
			return fmt.Errorf("component %s: %w", c.Path, err)
		}
		componentIDs[g] = cid

		for _, n := range g.Nodes() {
			b := nodeRecord(cid, n)
			if !n.Owned() {
				targetID, ok := nodeIDs[n.Target]
				if !ok {
					return fmt.Errorf("reference %s: target not written", n.ID())
				}
				b.TargetID = &targetID
			} else {
				b.SignatureHash = store.ComputeSignatureHash(c.Path, b.Key, b.Kind, b.Scope, b.Declaration, dependencyRecords(n))
			}
			id, err := ds.InsertBinding(b)
			if err != nil {
				return fmt.Errorf("binding %s: %w", n.ID(), err)
			}
			nodeIDs[n] = id
		}
	}

	for _, g := range round.Forest.Graphs() {
		for _, n := range g.OwnedNodes() {
			for _, d := range dependencyRecords(n) {
				d.BindingID = nodeIDs[n]
				if to, ok := g.Lookup(n.Binding.Dependencies[d.Ordinal].Key); ok {
					if id, ok := nodeIDs[to]; ok {
						d.TargetID = &id
					}
				}
				if _, err := ds.InsertDependency(d); err != nil {
					return fmt.Errorf("dependency %s -> %s: %w", n.ID(), d.Key, err)
				}
			}
			s, ok := round.Plan.For(n)
			if !ok {
				continue
			}
			_, err := ds.InsertStrategy(&store.Strategy{
				BindingID: nodeIDs[n],
				Factory:   s.Factory.String(),
				Caching:   s.Caching.String(),
				Access:    s.Access.String(),
				Requests:  s.Requests,
			})
			if err != nil {
				return fmt.Errorf("strategy %s: %w", n.ID(), err)
			}
		}
	}

	for _, d := range round.Report.Diagnostics {
		var chain []string
		for _, r := range d.Chain {
			chain = append(chain, r.Element)
		}
		_, err := ds.InsertDiagnostic(&store.Diagnostic{
			RoundID:   roundID,
			Kind:      string(d.Kind),
			Severity:  d.Severity.String(),
			Component: d.Component,
			Key:       d.Key,
			Element:   d.Element,
			Message:   d.Message,
			Chain:     chain,
		})
		if err != nil {
			return fmt.Errorf("diagnostic: %w", err)
		}
	}
	return nil
}

func nodeRecord(componentID int64, n *graph.Node) *store.Binding {
	b := &store.Binding{
		ComponentID: componentID,
		Key:         n.Key.String(),
		Owned:       n.Owned(),
	}
	switch {
	case n.Conflict():
		b.Kind = store.KindConflict
		decls := make([]string, len(n.Conflicts))
		for i, c := range n.Conflicts {
			decls[i] = c.Declaration()
		}
		b.Declaration = strings.Join(decls, "; ")
	case n.Missing || n.Binding == nil:
		b.Kind = store.KindMissing
	default:
		b.Kind = n.Binding.Kind.String()
		b.Scope = n.Binding.Scope
		b.Module = n.Binding.Module
		b.Element = n.Binding.Element
		b.Declaration = n.Binding.Declaration()
		b.Nullable = n.Binding.Nullable
	}
	return b
}

// dependencyRecords renders the requests of an owned, bound node in
// declaration order.
func dependencyRecords(n *graph.Node) []*store.Dependency {
	if n.Binding == nil || n.Conflict() || !n.Owned() {
		return nil
	}
	out := make([]*store.Dependency, len(n.Binding.Dependencies))
	for i, r := range n.Binding.Dependencies {
		out[i] = &store.Dependency{
			Key:         r.Key.String(),
			RequestKind: r.Kind.String(),
			Element:     r.Element,
			Ordinal:     i,
		}
	}
	return out
}
