package binding

// Policy holds extraction choices that are not fixed by the binding model.
type Policy struct {
	// DropCompanionDuplicates drops a companion-module binding whose method
	// descriptor matches a binding already captured from the enclosing
	// module. When false both are kept and surface as a duplicate binding.
	DropCompanionDuplicates bool
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{DropCompanionDuplicates: true}
}
