package store

import "sync"

// BatchedStore buffers graph inserts in memory using fake (negative) IDs.
// It implements DataStore so round writers can fill it without knowing
// whether they're hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends,
// so one batch can be shared by writers of several root components.
type BatchedStore struct {
	mu sync.Mutex

	// Buffered graph data.
	Components   []Component
	Bindings     []Binding
	Dependencies []Dependency
	Strategies   []Strategy
	Diagnostics  []Diagnostic

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertComponent(c *Component) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Components = append(b.Components, *c)
	return fakeID, nil
}

func (b *BatchedStore) InsertBinding(bd *Binding) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	bd.ID = fakeID
	b.Bindings = append(b.Bindings, *bd)
	return fakeID, nil
}

func (b *BatchedStore) InsertDependency(d *Dependency) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Dependencies = append(b.Dependencies, *d)
	return fakeID, nil
}

func (b *BatchedStore) InsertStrategy(st *Strategy) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	st.ID = fakeID
	b.Strategies = append(b.Strategies, *st)
	return fakeID, nil
}

func (b *BatchedStore) InsertDiagnostic(d *Diagnostic) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Diagnostics = append(b.Diagnostics, *d)
	return fakeID, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Components) + len(b.Bindings) + len(b.Dependencies) + len(b.Strategies) + len(b.Diagnostics)
}
