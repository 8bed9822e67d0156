package graph

import (
	"sort"

	"github.com/jward/graft/internal/key"
)

// Cycles returns the strongly connected components of g's owned nodes that
// contain a cycle, following only edges whose request passes keep. A node
// that depends on itself forms a single-node cycle. Components and their
// members are in a stable order.
func (g *BindingGraph) Cycles(keep func(key.DependencyRequest) bool) [][]*Node {
	t := &tarjan{
		keep:  keep,
		index: make(map[*Node]int),
		low:   make(map[*Node]int),
		on:    make(map[*Node]bool),
	}
	for _, n := range g.OwnedNodes() {
		if _, seen := t.index[n]; !seen {
			t.visit(n)
		}
	}
	var out [][]*Node
	for _, scc := range t.out {
		local := true
		for _, n := range scc {
			if n.Graph != g {
				local = false
				break
			}
		}
		if !local {
			continue
		}
		sort.Slice(scc, func(i, j int) bool { return key.Compare(scc[i].Key, scc[j].Key) < 0 })
		out = append(out, scc)
	}
	sort.SliceStable(out, func(i, j int) bool { return key.Compare(out[i][0].Key, out[j][0].Key) < 0 })
	return out
}

// Cycles returns the cycles of every graph in the forest.
func (f *Forest) Cycles(keep func(key.DependencyRequest) bool) [][]*Node {
	var out [][]*Node
	for _, g := range f.Graphs() {
		out = append(out, g.Cycles(keep)...)
	}
	return out
}

type tarjan struct {
	keep  func(key.DependencyRequest) bool
	next  int
	index map[*Node]int
	low   map[*Node]int
	on    map[*Node]bool
	stack []*Node
	out   [][]*Node
}

func (t *tarjan) visit(n *Node) {
	t.index[n] = t.next
	t.low[n] = t.next
	t.next++
	t.stack = append(t.stack, n)
	t.on[n] = true

	selfLoop := false
	for _, e := range n.Graph.Dependencies(n) {
		if !t.keep(e.Request) {
			continue
		}
		if e.To == n {
			selfLoop = true
		}
		if _, seen := t.index[e.To]; !seen {
			t.visit(e.To)
			t.low[n] = min(t.low[n], t.low[e.To])
		} else if t.on[e.To] {
			t.low[n] = min(t.low[n], t.index[e.To])
		}
	}

	if t.low[n] != t.index[n] {
		return
	}
	var scc []*Node
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.on[top] = false
		scc = append(scc, top)
		if top == n {
			break
		}
	}
	if len(scc) > 1 || selfLoop {
		t.out = append(t.out, scc)
	}
}

// InstanceOnly keeps edges that need the target value to exist.
func InstanceOnly(r key.DependencyRequest) bool { return !r.Kind.Deferred() }

// AllEdges keeps every edge.
func AllEdges(key.DependencyRequest) bool { return true }
