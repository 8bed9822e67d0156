package graft

import "github.com/jward/graft/internal/store"

// Public type aliases for the persisted round records returned by the
// QueryBuilder API.

type Store = store.Store
type RoundRecord = store.Round
type ManifestRecord = store.Manifest
type ComponentRecord = store.Component
type BindingRecord = store.Binding
type DependencyRecord = store.Dependency
type StrategyRecord = store.Strategy
type DiagnosticRecord = store.Diagnostic
