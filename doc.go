// Package graft resolves dependency-injection declarations into validated
// binding graphs and picks a code-generation strategy for every binding.
//
// # Pipeline
//
// A round runs four phases over a set of YAML manifests:
//
//  1. Load: decode and schema-check every manifest, then merge them into one
//     declaration set.
//
//  2. Resolve: build a binding graph for every component, from each root
//     component down through its subcomponents. A key bound by an ancestor
//     is referenced rather than re-resolved.
//
//  3. Validate: run the built-in checks (binding shape, map keys, missing
//     and duplicate bindings, dependency cycles, scopes) followed by the
//     configured Risor validator scripts. Problems are diagnostics, not
//     errors.
//
//  4. Plan: choose factory kind, caching and access strategy per binding.
//
// The round's graphs, strategies and diagnostics are written to SQLite.
//
// # Usage
//
//	e, err := graft.New("graft.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	round, err := e.Resolve(ctx, "app.yaml", "network.yaml")
//	if round.Failed { ... }
//
//	q := e.Query()
//	deps, err := q.TransitiveDependencies(bindingID, 3)
//
// # Incremental Rounds
//
// [Engine.Resolve] hashes its input (manifests, validator scripts and
// options). When a stored round has the same hash the round is skipped and
// the stored result is returned. [QueryBuilder.ChangedBindings] compares two
// rounds binding by binding.
//
// # Scripts
//
// Validator scripts live under validate/ in the scripts filesystem. The
// bundled nullable check is embedded from the scripts package. See the
// internal/runtime package for the globals exposed to scripts.
package graft
