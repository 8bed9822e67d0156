package main

import (
	"time"

	"github.com/jward/graft"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIRound is a JSON-friendly round.
type CLIRound struct {
	ID        int64     `json:"id"`
	InputHash string    `json:"input_hash"`
	CreatedAt time.Time `json:"created_at"`
	Failed    bool      `json:"failed"`
	Errors    int       `json:"errors"`
	Warnings  int       `json:"warnings"`
}

// CLIResolveSummary is the outcome of the resolve command.
type CLIResolveSummary struct {
	Round       CLIRound        `json:"round"`
	Skipped     bool            `json:"skipped"`
	Components  int             `json:"components"`
	Manifests   []CLIManifest   `json:"manifests"`
	Diagnostics []CLIDiagnostic `json:"diagnostics"`
}

// CLIManifest is a JSON-friendly manifest reference.
type CLIManifest struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// CLIComponent is a JSON-friendly component.
type CLIComponent struct {
	ID       int64    `json:"id"`
	Path     string   `json:"path"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Scopes   []string `json:"scopes,omitempty"`
	ParentID *int64   `json:"parent_id,omitempty"`
}

// CLIBinding is a JSON-friendly graph node.
type CLIBinding struct {
	ID          int64  `json:"id"`
	Component   string `json:"component,omitempty"`
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	Owned       bool   `json:"owned"`
	TargetID    *int64 `json:"target_id,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Module      string `json:"module,omitempty"`
	Element     string `json:"element,omitempty"`
	Declaration string `json:"declaration,omitempty"`
	Nullable    bool   `json:"nullable,omitempty"`
}

// CLIDependency is a JSON-friendly dependency request.
type CLIDependency struct {
	BindingID   int64  `json:"binding_id"`
	Key         string `json:"key"`
	RequestKind string `json:"request_kind"`
	Element     string `json:"element"`
	TargetID    *int64 `json:"target_id,omitempty"`
}

// CLIStrategy is a JSON-friendly binding strategy.
type CLIStrategy struct {
	BindingID int64  `json:"binding_id"`
	Component string `json:"component"`
	Key       string `json:"key"`
	Factory   string `json:"factory"`
	Caching   string `json:"caching"`
	Access    string `json:"access"`
	Requests  int    `json:"requests"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	Kind      string   `json:"kind"`
	Severity  string   `json:"severity"`
	Component string   `json:"component"`
	Key       string   `json:"key,omitempty"`
	Element   string   `json:"element,omitempty"`
	Message   string   `json:"message"`
	Chain     []string `json:"chain,omitempty"`
}

// CLIDependencyGraph is a JSON-friendly transitive dependency graph.
type CLIDependencyGraph struct {
	Root     int64                    `json:"root"`
	Nodes    []CLIDependencyGraphNode `json:"nodes"`
	Edges    []CLIDependencyGraphEdge `json:"edges"`
	MaxDepth int                      `json:"max_depth"`
}

// CLIDependencyGraphNode is a node in a transitive dependency graph.
type CLIDependencyGraphNode struct {
	Binding CLIBinding `json:"binding"`
	Depth   int        `json:"depth"`
}

// CLIDependencyGraphEdge is an edge in a transitive dependency graph.
type CLIDependencyGraphEdge struct {
	FromID      int64  `json:"from_id"`
	ToID        int64  `json:"to_id"`
	Key         string `json:"key"`
	RequestKind string `json:"request_kind"`
	Element     string `json:"element,omitempty"`
}

// CLIChange is a binding that differs between two rounds.
type CLIChange struct {
	Component string `json:"component"`
	Key       string `json:"key"`
	Change    string `json:"change"`
	FromID    *int64 `json:"from_id,omitempty"`
	ToID      *int64 `json:"to_id,omitempty"`
}

func roundToCLI(r *graft.RoundRecord) CLIRound {
	return CLIRound{
		ID:        r.ID,
		InputHash: r.InputHash,
		CreatedAt: r.CreatedAt,
		Failed:    r.Failed,
		Errors:    r.Errors,
		Warnings:  r.Warnings,
	}
}

func componentToCLI(c *graft.ComponentRecord) CLIComponent {
	return CLIComponent{
		ID:       c.ID,
		Path:     c.Path,
		Name:     c.Name,
		Kind:     c.Kind,
		Scopes:   c.Scopes,
		ParentID: c.ParentID,
	}
}

func bindingToCLI(b *graft.BindingRecord, component string) CLIBinding {
	return CLIBinding{
		ID:          b.ID,
		Component:   component,
		Key:         b.Key,
		Kind:        b.Kind,
		Owned:       b.Owned,
		TargetID:    b.TargetID,
		Scope:       b.Scope,
		Module:      b.Module,
		Element:     b.Element,
		Declaration: b.Declaration,
		Nullable:    b.Nullable,
	}
}

func dependencyToCLI(d *graft.DependencyRecord) CLIDependency {
	return CLIDependency{
		BindingID:   d.BindingID,
		Key:         d.Key,
		RequestKind: d.RequestKind,
		Element:     d.Element,
		TargetID:    d.TargetID,
	}
}

func diagnosticToCLI(d *graft.DiagnosticRecord) CLIDiagnostic {
	return CLIDiagnostic{
		Kind:      d.Kind,
		Severity:  d.Severity,
		Component: d.Component,
		Key:       d.Key,
		Element:   d.Element,
		Message:   d.Message,
		Chain:     d.Chain,
	}
}

func dependencyGraphToCLI(g *graft.DependencyGraph, paths map[int64]string) CLIDependencyGraph {
	out := CLIDependencyGraph{
		Root:     g.Root,
		Nodes:    make([]CLIDependencyGraphNode, len(g.Nodes)),
		Edges:    make([]CLIDependencyGraphEdge, len(g.Edges)),
		MaxDepth: g.Depth,
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = CLIDependencyGraphNode{
			Binding: bindingToCLI(&n.Binding, paths[n.Binding.ComponentID]),
			Depth:   n.Depth,
		}
	}
	for i, e := range g.Edges {
		out.Edges[i] = CLIDependencyGraphEdge{
			FromID:      e.FromID,
			ToID:        e.ToID,
			Key:         e.Key,
			RequestKind: e.RequestKind,
			Element:     e.Element,
		}
	}
	return out
}

func changeToCLI(c graft.BindingChange) CLIChange {
	out := CLIChange{Component: c.Component, Key: c.Key, Change: c.Change}
	if c.From != nil {
		out.FromID = &c.From.ID
	}
	if c.To != nil {
		out.ToID = &c.To.ID
	}
	return out
}
