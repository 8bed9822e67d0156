package graft

import (
	"fmt"
	"sort"
)

const maxGraphDepth = 100

// DependencyGraph is the part of a round's graph reachable from one
// binding. Edges are bulk-loaded once and traversed in memory with BFS.
type DependencyGraph struct {
	Root  int64                 // owning binding the traversal started from
	Nodes []DependencyGraphNode // root first, then by depth and ID
	Edges []DependencyGraphEdge // edges between visited nodes
	Depth int                   // actual max depth reached
}

// DependencyGraphNode is a binding with its distance from the root.
type DependencyGraphNode struct {
	Binding BindingRecord
	Depth   int
}

// DependencyGraphEdge is one request between two bindings.
type DependencyGraphEdge struct {
	FromID      int64
	ToID        int64
	Key         string
	RequestKind string
	Element     string
}

type dependencyGraphData struct {
	forward map[int64][]*DependencyRecord // requester -> requests
	reverse map[int64][]*DependencyRecord // target -> requests reaching it
}

// buildDependencyGraph bulk-loads every request of a round. Requests
// without a target row are skipped.
func (q *QueryBuilder) buildDependencyGraph(roundID int64) (*dependencyGraphData, error) {
	deps, err := q.store.DependenciesByRound(roundID)
	if err != nil {
		return nil, fmt.Errorf("build dependency graph: %w", err)
	}
	data := &dependencyGraphData{
		forward: make(map[int64][]*DependencyRecord),
		reverse: make(map[int64][]*DependencyRecord),
	}
	for _, d := range deps {
		if d.TargetID == nil {
			continue
		}
		data.forward[d.BindingID] = append(data.forward[d.BindingID], d)
		data.reverse[*d.TargetID] = append(data.reverse[*d.TargetID], d)
	}
	return data, nil
}

// TransitiveDependencies returns everything a binding needs, directly or
// indirectly, up to maxDepth. A reference starts from its owner.
// maxDepth of 0 returns only the root. Negative returns an error; values
// above 100 are capped. Returns nil, nil if the binding does not exist.
func (q *QueryBuilder) TransitiveDependencies(bindingID int64, maxDepth int) (*DependencyGraph, error) {
	g, err := q.traverse(bindingID, maxDepth, false)
	if err != nil {
		return nil, fmt.Errorf("transitive dependencies: %w", err)
	}
	return g, nil
}

// TransitiveDependents returns every binding that needs the given binding,
// directly or indirectly, up to maxDepth. Same depth rules as
// TransitiveDependencies.
func (q *QueryBuilder) TransitiveDependents(bindingID int64, maxDepth int) (*DependencyGraph, error) {
	g, err := q.traverse(bindingID, maxDepth, true)
	if err != nil {
		return nil, fmt.Errorf("transitive dependents: %w", err)
	}
	return g, nil
}

func (q *QueryBuilder) traverse(bindingID int64, maxDepth int, reverse bool) (*DependencyGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("maxDepth must be non-negative, got %d", maxDepth)
	}
	if maxDepth > maxGraphDepth {
		maxDepth = maxGraphDepth
	}

	root, err := q.store.Binding(bindingID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	if root, err = q.Owner(root); err != nil {
		return nil, err
	}

	result := &DependencyGraph{
		Root:  root.ID,
		Nodes: []DependencyGraphNode{{Binding: *root}},
		Edges: []DependencyGraphEdge{},
	}
	if maxDepth == 0 {
		return result, nil
	}

	roundID, err := q.roundOfBinding(root.ID)
	if err != nil {
		return nil, err
	}
	data, err := q.buildDependencyGraph(roundID)
	if err != nil {
		return nil, err
	}
	adjacency, other := data.forward, func(d *DependencyRecord) int64 { return *d.TargetID }
	if reverse {
		adjacency, other = data.reverse, func(d *DependencyRecord) int64 { return d.BindingID }
	}

	visited := map[int64]int{root.ID: 0}
	type bfsEntry struct {
		id    int64
		depth int
	}
	queue := []bfsEntry{{id: root.ID}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxDepth {
			continue
		}
		for _, d := range adjacency[current.id] {
			next := other(d)
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = current.depth + 1
			result.Depth = max(result.Depth, current.depth+1)
			queue = append(queue, bfsEntry{id: next, depth: current.depth + 1})
		}
	}

	ids := make([]int64, 0, len(visited)-1)
	for id := range visited {
		if id != root.ID {
			ids = append(ids, id)
		}
	}
	bs, err := q.store.BindingsByIDs(ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bs, func(i, j int) bool { return visited[bs[i].ID] < visited[bs[j].ID] })
	for _, b := range bs {
		result.Nodes = append(result.Nodes, DependencyGraphNode{Binding: *b, Depth: visited[b.ID]})
	}

	// Edges between visited nodes, in requester order.
	var from []int64
	for id := range visited {
		from = append(from, id)
	}
	sort.Slice(from, func(i, j int) bool { return from[i] < from[j] })
	for _, id := range from {
		for _, d := range data.forward[id] {
			if _, ok := visited[*d.TargetID]; !ok {
				continue
			}
			result.Edges = append(result.Edges, DependencyGraphEdge{
				FromID:      d.BindingID,
				ToID:        *d.TargetID,
				Key:         d.Key,
				RequestKind: d.RequestKind,
				Element:     d.Element,
			})
		}
	}
	return result, nil
}
