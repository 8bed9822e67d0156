package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft/internal/validate"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

// resolveDBPath reads package flags and the environment, so these tests do
// not run in parallel.
func TestResolveDBPath(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(t.TempDir(), "abs.db")

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"default", "", "", filepath.Join(root, ".graft", "graft.db")},
		{"env relative", "", "state/g.db", filepath.Join(root, "state", "g.db")},
		{"env absolute", "", abs, abs},
		{"flag wins over env", "flag.db", abs, filepath.Join(root, "flag.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envDB, tt.env)
			flagDB = tt.flag
			t.Cleanup(func() { flagDB = "" })

			assert.Equal(t, tt.want, resolveDBPath(root))
		})
	}
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	require.NoError(t, validateFormat("json"))
	require.NoError(t, validateFormat("text"))
	err := validateFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json or text")
}

func TestValidateOptions(t *testing.T) {
	t.Parallel()

	opts, err := validateOptions([]string{"nullable=warning", "dependency_cycle=error"}, "runtime")
	require.NoError(t, err)
	assert.Equal(t, validate.Warning, opts.Severity[validate.KindNullable])
	assert.Equal(t, validate.Error, opts.Severity[validate.KindCycle])
	assert.Equal(t, validate.DeferToRuntime, opts.MapKeyCollision)

	_, err = validateOptions([]string{"nullable"}, "")
	require.Error(t, err)
	_, err = validateOptions([]string{"bogus=error"}, "")
	require.Error(t, err)
	_, err = validateOptions([]string{"nullable=fatal"}, "")
	require.Error(t, err)
	_, err = validateOptions(nil, "sometimes")
	require.Error(t, err)
}

func TestParseRoundArg(t *testing.T) {
	t.Parallel()
	n, err := parseRoundArg("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseRoundArg(bad)
		assert.Error(t, err, bad)
	}
}

// paginate reads --limit and --offset.
func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	t.Cleanup(func() { flagLimit, flagOffset = 0, 0 })

	flagLimit, flagOffset = 0, 0
	page, total := paginate(items)
	assert.Equal(t, items, page)
	assert.Equal(t, 5, total)

	flagLimit, flagOffset = 2, 1
	page, total = paginate(items)
	assert.Equal(t, []int{2, 3}, page)
	assert.Equal(t, 5, total)

	flagLimit, flagOffset = 0, 9
	page, _ = paginate(items)
	assert.Empty(t, page)
}

// =============================================================================
// Text output
// =============================================================================

func TestOutputResultText_Bindings(t *testing.T) {
	t.Parallel()
	target := int64(1)
	total := 3
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{
		Command: "bindings",
		Results: []CLIBinding{
			{ID: 1, Component: "App", Key: "Foo", Kind: "provision", Scope: "@Singleton", Declaration: "@Provides Foo AppModule.provideFoo(Bar)"},
			{ID: 2, Component: "App/Screen", Key: "Foo", Kind: "provision", TargetID: &target},
		},
		TotalCount: &total,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "@Provides Foo")
	assert.Contains(t, out, "-> #1")
	assert.Contains(t, out, "Showing 2 of 3 results")
}

func TestOutputResultText_Diagnostics(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{
		Command: "diagnostics",
		Results: []CLIDiagnostic{{
			Kind:      "missing_binding",
			Severity:  "error",
			Component: "App",
			Message:   "Ghost cannot be provided without an @Inject constructor",
			Chain:     []string{"App.foo()", "Foo(ghost)"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"[error] missing_binding App: Ghost cannot be provided without an @Inject constructor\n"+
			"    at App.foo()\n"+
			"    at Foo(ghost)\n",
		buf.String())
}

func TestOutputResultText_Graph(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{
		Command: "deps",
		Results: CLIDependencyGraph{
			Root: 1,
			Nodes: []CLIDependencyGraphNode{
				{Binding: CLIBinding{ID: 1, Component: "App", Key: "Foo"}},
				{Binding: CLIBinding{ID: 2, Component: "App", Key: "Bar"}, Depth: 1},
			},
			Edges:    []CLIDependencyGraphEdge{{FromID: 1, ToID: 2, Key: "Bar", RequestKind: "instance", Element: "AppModule.provideFoo(bar)"}},
			MaxDepth: 1,
		},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Root: #1 (depth 1)")
	assert.Contains(t, out, "\n  Bar [App] #2\n")
	assert.Contains(t, out, "AppModule.provideFoo(bar)")
}

func TestOutputResultText_Nil(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, outputResultText(&buf, CLIResult{Command: "deps"}))
	assert.Empty(t, buf.String())
}

func TestOutputResultText_Unsupported(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{Command: "x", Results: 42})
	require.Error(t, err)
}

func TestShortHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", shortHash("abc"))
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
}
