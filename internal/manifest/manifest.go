// Package manifest loads declaration manifests: YAML documents describing the
// modules, injectable types and components of one compilation round.
//
// A manifest looks like:
//
//	schemaVersion: 1.0.0
//	classpath:
//	  producers: false
//	modules:
//	  - name: AppModule
//	    members:
//	      - name: provideFoo
//	        roles: [provides]
//	        returns: Foo
//	        params:
//	          - {name: bar, type: Bar}
//	components:
//	  - name: App
//	    modules: [AppModule]
//	    entryPoints:
//	      - {method: foo, returns: Foo}
package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	mm "github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/key"
)

// SupportedSchema is the range of schema versions this loader understands.
const SupportedSchema = ">=1.0.0 <2.0.0"

var (
	// ErrUnsupportedSchema is returned for a missing or out-of-range
	// schemaVersion.
	ErrUnsupportedSchema = errors.New("manifest: unsupported schema version")
	// ErrDuplicateDeclaration is returned when two manifests declare the
	// same module, component, injectable type or scope alias.
	ErrDuplicateDeclaration = errors.New("manifest: duplicate declaration")
)

var supported = mustConstraint(SupportedSchema)

func mustConstraint(raw string) *mm.Constraints {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// File is one decoded manifest.
type File struct {
	Path          string   `yaml:"-"`
	Hash          string   `yaml:"-"`
	SchemaVersion string   `yaml:"schemaVersion"`
	Set           decl.Set `yaml:",inline"`
}

// Decode reads one manifest. Unknown fields are rejected, the schema version
// is checked and every type expression must parse.
func Decode(r io.Reader, path string) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return DecodeBytes(data, path)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte, path string) (*File, error) {
	f := &File{Path: path, Hash: HashBytes(data)}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s: empty document: %w", path, ErrUnsupportedSchema)
		}
		return nil, fmt.Errorf("manifest: decode %s: %w", path, err)
	}
	if err := checkSchema(f.SchemaVersion); err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	if err := Validate(&f.Set); err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return f, nil
}

// Load reads and decodes the manifest at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return DecodeBytes(data, path)
}

func checkSchema(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: schemaVersion is required", ErrUnsupportedSchema)
	}
	v, err := mm.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedSchema, raw, err)
	}
	if !supported.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedSchema, v, SupportedSchema)
	}
	return nil
}

// Validate checks that every type expression in set parses. All problems are
// returned joined.
func Validate(set *decl.Set) error {
	var errs []error
	check := func(where, expr string) {
		if _, err := key.ParseType(expr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}
	params := func(owner string, ps []decl.Param) {
		for _, p := range ps {
			check(owner+"("+p.Name+")", p.Type)
		}
	}
	var module func(m *decl.Module)
	module = func(m *decl.Module) {
		for _, mem := range m.Members {
			where := m.Name + "." + mem.Name
			check(where, mem.Returns)
			params(where, mem.Params)
		}
		if m.Companion != nil {
			module(m.Companion)
		}
	}
	for i := range set.Modules {
		module(&set.Modules[i])
	}
	for _, inj := range set.Injectables {
		check(inj.Type, inj.Type)
		params(inj.Type, inj.Params)
		params(inj.Type, inj.Members)
	}
	for _, c := range set.Components {
		for _, d := range c.Dependencies {
			check(c.Name+" dependency", d.Type)
			for _, p := range d.Provisions {
				check(d.Type+"."+p.Method+"()", p.Returns)
			}
		}
		for _, ep := range c.EntryPoints {
			check(c.Name+"."+ep.Method+"()", ep.Returns)
		}
	}
	return errors.Join(errs...)
}

// Merge combines manifests into one declaration set. A name declared by
// more than one manifest fails with ErrDuplicateDeclaration; the classpath
// is the union of every manifest's classpath.
func Merge(files ...*File) (*decl.Set, error) {
	out := &decl.Set{}
	seen := make(map[string]string)
	claim := func(kind, name, path string) error {
		id := kind + " " + name
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s declared in %s and %s", ErrDuplicateDeclaration, id, prev, path)
		}
		seen[id] = path
		return nil
	}

	var errs []error
	for _, f := range files {
		s := f.Set
		out.Classpath.Producers = out.Classpath.Producers || s.Classpath.Producers
		for _, m := range s.Modules {
			if err := claim("module", m.Name, f.Path); err != nil {
				errs = append(errs, err)
				continue
			}
			out.Modules = append(out.Modules, m)
		}
		for _, inj := range s.Injectables {
			name := inj.Type
			if t, err := key.ParseType(inj.Type); err == nil {
				name = t.String()
			}
			if err := claim("injectable", name, f.Path); err != nil {
				errs = append(errs, err)
				continue
			}
			out.Injectables = append(out.Injectables, inj)
		}
		for _, c := range s.Components {
			if err := claim("component", c.Name, f.Path); err != nil {
				errs = append(errs, err)
				continue
			}
			out.Components = append(out.Components, c)
		}
		for _, a := range s.ScopeAliases {
			if err := claim("scope alias", a.Alias, f.Path); err != nil {
				errs = append(errs, err)
				continue
			}
			out.ScopeAliases = append(out.ScopeAliases, a)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// HashBytes returns the hex SHA-256 of a manifest's bytes.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SetHash combines the hashes of several manifests, in order, into one
// identity for a round's input.
func SetHash(files []*File) string {
	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.Hash))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
