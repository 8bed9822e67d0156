package store

import "time"

// Round domain types

type Round struct {
	ID        int64
	InputHash string
	CreatedAt time.Time
	Failed    bool
	Errors    int
	Warnings  int
}

type Manifest struct {
	ID      int64
	RoundID int64
	Path    string
	Hash    string
}

// Graph domain types

type Component struct {
	ID       int64
	RoundID  int64
	ParentID *int64
	Path     string
	Name     string
	Kind     string
	Scopes   []string
}

// Binding is one node of a component's graph. Kind is the binding kind, or
// "missing" / "conflict" for nodes without a single binding. References to
// an ancestor's binding have Owned false and TargetID set.
type Binding struct {
	ID            int64
	ComponentID   int64
	Key           string
	Kind          string
	Owned         bool
	TargetID      *int64
	Scope         string
	Module        string
	Element       string
	Declaration   string
	Nullable      bool
	SignatureHash string
}

type Dependency struct {
	ID          int64
	BindingID   int64
	TargetID    *int64
	Key         string
	RequestKind string
	Element     string
	Ordinal     int
}

type Strategy struct {
	ID        int64
	BindingID int64
	Factory   string
	Caching   string
	Access    string
	Requests  int
}

type Diagnostic struct {
	ID        int64
	RoundID   int64
	Kind      string
	Severity  string
	Component string
	Key       string
	Element   string
	Message   string
	Chain     []string
}

const (
	KindMissing  = "missing"
	KindConflict = "conflict"
)
