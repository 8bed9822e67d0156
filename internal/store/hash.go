package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeSignatureHash computes a deterministic hash from a binding's
// semantic identity: component path, key, kind, scope, declaration and its
// ordered dependency requests. Diagnostics and strategies do NOT affect the
// hash, so equal hashes across rounds mean the binding itself is unchanged.
func ComputeSignatureHash(path, key, kind, scope, declaration string, deps []*Dependency) string {
	h := sha256.New()

	fmt.Fprintf(h, "path:%s\n", path)
	fmt.Fprintf(h, "key:%s\n", key)
	fmt.Fprintf(h, "kind:%s\n", kind)
	fmt.Fprintf(h, "scope:%s\n", scope)
	fmt.Fprintf(h, "decl:%s\n", declaration)

	// Dependency order is part of the declaration, so it is not sorted.
	for _, d := range deps {
		fmt.Fprintf(h, "dep:%d:%s:%s\n", d.Ordinal, d.RequestKind, d.Key)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
