package binding

// Arena memoizes descriptors by name for the duration of one round. Entries
// are allocated before they are built, so a build that recursively asks for
// its own name (or any name still being built) receives the in-flight value
// instead of recursing.
type Arena[T any] struct {
	entries map[string]*arenaEntry[T]
	order   []string
	stats   ArenaStats
}

type arenaEntry[T any] struct {
	value      *T
	inProgress bool
}

// ArenaStats counts arena lookups.
type ArenaStats struct {
	Builds    int
	Hits      int
	Reentrant int
}

// NewArena returns an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{entries: make(map[string]*arenaEntry[T])}
}

// Get returns the value for name, calling build to populate it on first use.
// build receives the allocated value; when it recursively calls Get for a
// name that is still in progress, that call returns the partially built value.
func (a *Arena[T]) Get(name string, build func(*T)) *T {
	if e, ok := a.entries[name]; ok {
		if e.inProgress {
			a.stats.Reentrant++
		} else {
			a.stats.Hits++
		}
		return e.value
	}
	e := &arenaEntry[T]{value: new(T), inProgress: true}
	a.entries[name] = e
	a.order = append(a.order, name)
	a.stats.Builds++
	build(e.value)
	e.inProgress = false
	return e.value
}

// Lookup returns an already-built or in-flight value without building.
func (a *Arena[T]) Lookup(name string) (*T, bool) {
	e, ok := a.entries[name]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// InProgress reports whether name is currently being built.
func (a *Arena[T]) InProgress(name string) bool {
	e, ok := a.entries[name]
	return ok && e.inProgress
}

// Len returns the number of entries.
func (a *Arena[T]) Len() int { return len(a.entries) }

// Names returns entry names in creation order.
func (a *Arena[T]) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Stats returns lookup counters.
func (a *Arena[T]) Stats() ArenaStats { return a.stats }

// Reset drops every entry.
func (a *Arena[T]) Reset() {
	a.entries = make(map[string]*arenaEntry[T])
	a.order = nil
	a.stats = ArenaStats{}
}
