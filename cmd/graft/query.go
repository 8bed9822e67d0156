package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/graft"
	"github.com/jward/graft/internal/store"
)

var (
	flagRound  int64
	flagLimit  int
	flagOffset int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored resolution rounds",
	Long:  "Run queries against the rounds stored by 'graft resolve'. Commands read the latest round unless --round is given.",
}

func init() {
	queryCmd.PersistentFlags().Int64Var(&flagRound, "round", 0, "round ID (default: latest round)")
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 0, "pagination limit (0 returns everything)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")

	queryCmd.AddCommand(roundsCmd)
	queryCmd.AddCommand(manifestsCmd)
	queryCmd.AddCommand(componentsCmd)
	queryCmd.AddCommand(bindingsCmd)
	queryCmd.AddCommand(depsCmd)
	queryCmd.AddCommand(dependentsCmd)
	queryCmd.AddCommand(strategiesCmd)
	queryCmd.AddCommand(diagnosticsCmd)
	queryCmd.AddCommand(changesCmd)
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'graft resolve' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// selectRound returns --round when set, else the latest round.
func selectRound(qb *graft.QueryBuilder) (*graft.RoundRecord, error) {
	var (
		r   *graft.RoundRecord
		err error
	)
	if flagRound != 0 {
		r, err = qb.Round(flagRound)
	} else {
		r, err = qb.LatestRound()
	}
	if err != nil {
		return nil, err
	}
	if r == nil {
		if flagRound != 0 {
			return nil, fmt.Errorf("round %d not found", flagRound)
		}
		return nil, fmt.Errorf("no rounds stored (run 'graft resolve' first)")
	}
	return r, nil
}

// componentPaths maps component IDs of a round to their paths.
func componentPaths(qb *graft.QueryBuilder, roundID int64) (map[int64]string, error) {
	cs, err := qb.Components(roundID)
	if err != nil {
		return nil, err
	}
	paths := make(map[int64]string, len(cs))
	for _, c := range cs {
		paths[c.ID] = c.Path
	}
	return paths, nil
}

// lookupBinding resolves the <component> <key> arguments of a command.
func lookupBinding(qb *graft.QueryBuilder, roundID int64, path, key string) (*graft.BindingRecord, error) {
	b, err := qb.BindingFor(roundID, path, key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("no binding for %s in %s", key, path)
	}
	return b, nil
}

// parseRoundArg parses a positional round ID.
func parseRoundArg(value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid round %q: must be a positive integer", value)
	}
	return n, nil
}

// paginate applies --limit and --offset to a result slice and returns the
// page and the unpaginated count.
func paginate[T any](items []T) ([]T, int) {
	total := len(items)
	if flagOffset > 0 {
		if flagOffset >= total {
			return []T{}, total
		}
		items = items[flagOffset:]
	}
	if flagLimit > 0 && flagLimit < len(items) {
		items = items[:flagLimit]
	}
	return items, total
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// roundSummary gathers what the resolve command reports about a round.
func roundSummary(qb *graft.QueryBuilder, round *graft.Round) (CLIResolveSummary, error) {
	rec, err := qb.Round(round.ID)
	if err != nil {
		return CLIResolveSummary{}, err
	}
	if rec == nil {
		return CLIResolveSummary{}, fmt.Errorf("round %d not stored", round.ID)
	}
	out := CLIResolveSummary{
		Round:       roundToCLI(rec),
		Skipped:     round.Skipped,
		Manifests:   []CLIManifest{},
		Diagnostics: []CLIDiagnostic{},
	}

	cs, err := qb.Components(round.ID)
	if err != nil {
		return out, err
	}
	out.Components = len(cs)

	ms, err := qb.Manifests(round.ID)
	if err != nil {
		return out, err
	}
	for _, m := range ms {
		out.Manifests = append(out.Manifests, CLIManifest{Path: m.Path, Hash: m.Hash})
	}

	ds, err := qb.Diagnostics(round.ID, "")
	if err != nil {
		return out, err
	}
	for _, d := range ds {
		out.Diagnostics = append(out.Diagnostics, diagnosticToCLI(d))
	}
	return out, nil
}

// --- Commands ---

var roundsCmd = &cobra.Command{
	Use:   "rounds",
	Short: "List stored rounds, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runRounds,
}

var manifestsCmd = &cobra.Command{
	Use:   "manifests",
	Short: "List the manifests a round was computed from",
	Args:  cobra.NoArgs,
	RunE:  runManifests,
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the components of a round, parents first",
	Args:  cobra.NoArgs,
	RunE:  runComponents,
}

var bindingsCmd = &cobra.Command{
	Use:   "bindings <component>",
	Short: "List the graph nodes of a component",
	Long:  "Lists every node of the component's binding graph, sorted by key. The component is given by path, e.g. App/Session.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBindings,
}

var depsCmd = &cobra.Command{
	Use:   "deps <component> <key>",
	Short: "Show what a binding requests",
	Long:  "Shows the requests of a binding in declaration order. With --transitive, returns the dependency graph up to --max-depth. A reference is answered for the binding it points at.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDeps,
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <component> <key>",
	Short: "Show which bindings request a binding",
	Long:  "Lists the bindings that request the given binding. With --transitive, returns the dependent graph up to --max-depth.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDependents,
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the strategy chosen for every owned binding",
	Args:  cobra.NoArgs,
	RunE:  runStrategies,
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "List the diagnostics of a round",
	Args:  cobra.NoArgs,
	RunE:  runDiagnostics,
}

var changesCmd = &cobra.Command{
	Use:   "changes [<from> <to>]",
	Short: "Compare the owned bindings of two rounds",
	Long:  "Reports bindings added, removed or modified between two rounds. Without arguments, compares the latest round with the one before it.",
	Args:  cobra.RangeArgs(0, 2),
	RunE:  runChanges,
}

var (
	flagKind       string
	flagComponent  string
	flagTransitive bool
	flagMaxDepth   int
)

func init() {
	diagnosticsCmd.Flags().StringVar(&flagKind, "kind", "", "filter by diagnostic kind (e.g. missing_binding)")
	strategiesCmd.Flags().StringVar(&flagComponent, "component", "", "filter by component path")

	for _, c := range []*cobra.Command{depsCmd, dependentsCmd} {
		c.Flags().BoolVar(&flagTransitive, "transitive", false, "follow requests transitively")
		c.Flags().IntVar(&flagMaxDepth, "max-depth", 5, "maximum traversal depth (0-100)")
	}
}

func runRounds(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("rounds", err)
	}
	defer s.Close()

	rs, err := graft.NewQueryBuilder(s).Rounds()
	if err != nil {
		return outputError("rounds", err)
	}
	out := make([]CLIRound, len(rs))
	for i, r := range rs {
		out[i] = roundToCLI(r)
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "rounds", Results: page, TotalCount: &total})
}

func runManifests(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("manifests", err)
	}
	defer s.Close()

	qb := graft.NewQueryBuilder(s)
	round, err := selectRound(qb)
	if err != nil {
		return outputError("manifests", err)
	}
	ms, err := qb.Manifests(round.ID)
	if err != nil {
		return outputError("manifests", err)
	}
	out := make([]CLIManifest, len(ms))
	for i, m := range ms {
		out[i] = CLIManifest{Path: m.Path, Hash: m.Hash}
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "manifests", Results: page, TotalCount: &total})
}

func runComponents(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("components", err)
	}
	defer s.Close()

	qb := graft.NewQueryBuilder(s)
	round, err := selectRound(qb)
	if err != nil {
		return outputError("components", err)
	}
	cs, err := qb.Components(round.ID)
	if err != nil {
		return outputError("components", err)
	}
	out := make([]CLIComponent, len(cs))
	for i, c := range cs {
		out[i] = componentToCLI(c)
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "components", Results: page, TotalCount: &total})
}

func runBindings(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("bindings", err)
	}
	defer s.Close()

	qb := graft.NewQueryBuilder(s)
	round, err := selectRound(qb)
	if err != nil {
		return outputError("bindings", err)
	}
	bs, err := qb.Bindings(round.ID, args[0])
	if err != nil {
		return outputError("bindings", err)
	}
	if bs == nil {
		return outputError("bindings", fmt.Errorf("no component %s in round %d", args[0], round.ID))
	}
	out := make([]CLIBinding, len(bs))
	for i, b := range bs {
		out[i] = bindingToCLI(b, args[0])
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "bindings", Results: page, TotalCount: &total})
}

func runDeps(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("deps", err)
	}
	defer s.Close()

	qb := graft.NewQueryBuilder(s)
	round, err := selectRound(qb)
	if err != nil {
		return outputError("deps", err)
	}
	b, err := lookupBinding(qb, round.ID, args[0], args[1])
	if err != nil {
		return outputError("deps", err)
	}

	if flagTransitive {
		return outputGraph("deps", qb, round.ID, func() (*graft.DependencyGraph, error) {
			return qb.TransitiveDependencies(b.ID, flagMaxDepth)
		})
	}

	owner, err := qb.Owner(b)
	if err != nil {
		return outputError("deps", err)
	}
	ds, err := qb.Dependencies(owner.ID)
	if err != nil {
		return outputError("deps", err)
	}
	out := make([]CLIDependency, len(ds))
	for i, d := range ds {
		out[i] = dependencyToCLI(d)
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "deps", Results: page, TotalCount: &total})
}

func runDependents(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("dependents", err)
	}
	defer s.Close()

	qb := graft.NewQueryBuilder(s)
	round, err := selectRound(qb)
	if err != nil {
		return outputError("dependents", err)
	}
	b, err := lookupBinding(qb, round.ID, args[0], args[1])
	if err != nil {
		return outputError("dependents", err)
	}

	if flagTransitive {
		return outputGraph("dependents", qb, round.ID, func() (*graft.DependencyGraph, error) {
			return qb.TransitiveDependents(b.ID, flagMaxDepth)
		})
	}

	owner, err := qb.Owner(b)
	if err != nil {
		return outputError("dependents", err)
	}
	bs, err := qb.Dependents(owner.ID)
	if err != nil {
		return outputError("dependents", err)
	}
	paths, err := componentPaths(qb, round.ID)
	if err != nil {
		return outputError("dependents", err)
	}
	out := make([]CLIBinding, len(bs))
	for i, d := range bs {
		out[i] = bindingToCLI(d, paths[d.ComponentID])
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "dependents", Results: page, TotalCount: &total})
}

// outputGraph runs a transitive query and writes the graph.
func outputGraph(command string, qb *graft.QueryBuilder, roundID int64, query func() (*graft.DependencyGraph, error)) error {
	g, err := query()
	if err != nil {
		return outputError(command, err)
	}
	if g == nil {
		return outputResult(CLIResult{Command: command, Results: nil})
	}
	paths, err := componentPaths(qb, roundID)
	if err != nil {
		return outputError(command, err)
	}
	one := 1
	return outputResult(CLIResult{Command: command, Results: dependencyGraphToCLI(g, paths), TotalCount: &one})
}

func runStrategies(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("strategies", err)
	}
	defer s.Close()

	qb := graft.NewQueryBuilder(s)
	round, err := selectRound(qb)
	if err != nil {
		return outputError("strategies", err)
	}
	ss, err := qb.Strategies(round.ID)
	if err != nil {
		return outputError("strategies", err)
	}
	paths, err := componentPaths(qb, round.ID)
	if err != nil {
		return outputError("strategies", err)
	}
	ids := make([]int64, len(ss))
	for i, st := range ss {
		ids[i] = st.BindingID
	}
	bs, err := qb.BindingsByIDs(ids)
	if err != nil {
		return outputError("strategies", err)
	}
	byID := make(map[int64]*graft.BindingRecord, len(bs))
	for _, b := range bs {
		byID[b.ID] = b
	}

	out := []CLIStrategy{}
	for _, st := range ss {
		b := byID[st.BindingID]
		if b == nil {
			continue
		}
		path := paths[b.ComponentID]
		if flagComponent != "" && path != flagComponent {
			continue
		}
		out = append(out, CLIStrategy{
			BindingID: st.BindingID,
			Component: path,
			Key:       b.Key,
			Factory:   st.Factory,
			Caching:   st.Caching,
			Access:    st.Access,
			Requests:  st.Requests,
		})
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "strategies", Results: page, TotalCount: &total})
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("diagnostics", err)
	}
	defer s.Close()

	qb := graft.NewQueryBuilder(s)
	round, err := selectRound(qb)
	if err != nil {
		return outputError("diagnostics", err)
	}
	ds, err := qb.Diagnostics(round.ID, flagKind)
	if err != nil {
		return outputError("diagnostics", err)
	}
	out := make([]CLIDiagnostic, len(ds))
	for i, d := range ds {
		out[i] = diagnosticToCLI(d)
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "diagnostics", Results: page, TotalCount: &total})
}

func runChanges(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("changes", err)
	}
	defer s.Close()

	qb := graft.NewQueryBuilder(s)
	from, to, err := changeRounds(qb, args)
	if err != nil {
		return outputError("changes", err)
	}
	cs, err := qb.ChangedBindings(from, to)
	if err != nil {
		return outputError("changes", err)
	}
	out := make([]CLIChange, len(cs))
	for i, c := range cs {
		out[i] = changeToCLI(c)
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "changes", Results: page, TotalCount: &total})
}

// changeRounds picks the rounds to compare: both arguments, or the two
// newest rounds.
func changeRounds(qb *graft.QueryBuilder, args []string) (int64, int64, error) {
	switch len(args) {
	case 2:
		from, err := parseRoundArg(args[0])
		if err != nil {
			return 0, 0, err
		}
		to, err := parseRoundArg(args[1])
		if err != nil {
			return 0, 0, err
		}
		return from, to, nil
	case 0:
		rs, err := qb.Rounds()
		if err != nil {
			return 0, 0, err
		}
		if len(rs) < 2 {
			return 0, 0, fmt.Errorf("need two rounds to compare, have %d", len(rs))
		}
		return rs[len(rs)-2].ID, rs[len(rs)-1].ID, nil
	}
	return 0, 0, fmt.Errorf("requires both <from> and <to> rounds, or neither")
}
