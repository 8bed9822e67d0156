package store

// DataStore is the interface for writing a round's graph. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// writers) implement this interface.
type DataStore interface {
	// Graph inserts. Each returns the assigned ID.
	InsertComponent(c *Component) (int64, error)
	InsertBinding(b *Binding) (int64, error)
	InsertDependency(d *Dependency) (int64, error)
	InsertStrategy(st *Strategy) (int64, error)
	InsertDiagnostic(d *Diagnostic) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
