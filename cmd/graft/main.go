package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/graft"
	"github.com/jward/graft/internal/validate"
)

const envDB = "GRAFT_DB"

var (
	flagDB      string
	flagFormat  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	// A missing .env file is fine; flags and the environment still apply.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "graft",
	Short:         "Resolve and validate dependency injection binding graphs",
	Long:          "Graft reads component and module manifests, resolves the binding graph of every component, validates it and records each resolution round in a SQLite database for queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: $GRAFT_DB or .graft/graft.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log round progress to stderr")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(queryCmd)
}

var (
	flagForce      bool
	flagScriptsDir string
	flagScripts    []string
	flagNoScripts  bool
	flagSeverity   []string
	flagMapKeys    string
	flagKeepRounds int
	flagSerial     bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [dir | manifest...]",
	Short: "Resolve a set of manifests into a new round",
	Long:  "Decodes the manifests, resolves and validates every component graph, selects binding strategies and stores the round. A directory argument is walked for .yaml and .yml files. Exits non-zero when the round has error diagnostics.",
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and start from scratch")
	resolveCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load validator scripts from disk instead of the bundled scripts")
	resolveCmd.Flags().StringSliceVar(&flagScripts, "script", nil, "validator scripts to run, by name (default: nullable)")
	resolveCmd.Flags().BoolVar(&flagNoScripts, "no-scripts", false, "run only the built-in validators")
	resolveCmd.Flags().StringSliceVar(&flagSeverity, "severity", nil, "override a diagnostic severity, as kind=error|warning")
	resolveCmd.Flags().StringVar(&flagMapKeys, "map-keys", "resolution", "map key collision policy: resolution|runtime")
	resolveCmd.Flags().IntVar(&flagKeepRounds, "keep-rounds", 0, "keep only the newest N rounds (0 keeps all)")
	resolveCmd.Flags().BoolVar(&flagSerial, "serial", false, "decode manifests on a single goroutine")
}

func runResolve(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cwd, err := os.Getwd()
	if err != nil {
		return outputError("resolve", fmt.Errorf("getting cwd: %w", err))
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return outputError("resolve", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
	}
	if flagForce {
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return outputError("resolve", fmt.Errorf("removing database for --force: %w", err))
			}
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	logger, err := newLogger()
	if err != nil {
		return outputError("resolve", err)
	}
	defer logger.Sync() //nolint:errcheck

	opts, err := engineOptions(logger)
	if err != nil {
		return outputError("resolve", err)
	}
	engine, err := graft.New(dbPath, opts...)
	if err != nil {
		return outputError("resolve", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	ctx := context.Background()
	round, err := resolveArgs(ctx, engine, args)
	if err != nil {
		return outputError("resolve", err)
	}

	summary, err := roundSummary(engine.Query(), round)
	if err != nil {
		return outputError("resolve", err)
	}
	one := 1
	if err := outputResult(CLIResult{Command: "resolve", Results: summary, TotalCount: &one}); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Round %d in %s (errors: %d, warnings: %d)\n",
		round.ID, time.Since(start).Round(time.Millisecond), round.Errors, round.Warnings)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	if round.Failed {
		errorHandled = true
		return fmt.Errorf("round %d failed with %d error(s)", round.ID, round.Errors)
	}
	return nil
}

// resolveArgs runs a round over a directory (default ".") or an explicit
// list of manifest files.
func resolveArgs(ctx context.Context, e *graft.Engine, args []string) (*graft.Round, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return nil, fmt.Errorf("not found: %s", args[0])
		}
		if info.IsDir() {
			return e.ResolveDir(ctx, args[0])
		}
	}
	return e.Resolve(ctx, args...)
}

// engineOptions builds engine options from the resolve flags.
func engineOptions(logger *zap.Logger) ([]graft.Option, error) {
	opts := []graft.Option{
		graft.WithLogger(logger),
		graft.WithRegisterer(prometheus.NewRegistry()),
		graft.WithKeepRounds(flagKeepRounds),
		graft.WithParallel(!flagSerial),
	}
	if flagScriptsDir != "" {
		opts = append(opts, graft.WithScriptsDir(flagScriptsDir))
	}
	switch {
	case flagNoScripts:
		opts = append(opts, graft.WithValidatorScripts())
	case len(flagScripts) > 0:
		opts = append(opts, graft.WithValidatorScripts(flagScripts...))
	}

	vopts, err := validateOptions(flagSeverity, flagMapKeys)
	if err != nil {
		return nil, err
	}
	return append(opts, graft.WithValidateOptions(vopts)), nil
}

// validateOptions parses --severity kind=level pairs and the --map-keys
// policy on top of the defaults.
func validateOptions(severities []string, mapKeys string) (validate.Options, error) {
	opts := validate.DefaultOptions()
	policy, err := validate.ParseMapKeyCollisionPolicy(mapKeys)
	if err != nil {
		return opts, err
	}
	opts.MapKeyCollision = policy

	known := make(map[validate.Kind]bool, len(validate.Kinds))
	for _, k := range validate.Kinds {
		known[k] = true
	}
	for _, pair := range severities {
		kind, level, ok := strings.Cut(pair, "=")
		if !ok {
			return opts, fmt.Errorf("invalid severity %q: want kind=error|warning", pair)
		}
		if !known[validate.Kind(kind)] {
			return opts, fmt.Errorf("invalid severity %q: unknown kind %q", pair, kind)
		}
		s, err := validate.ParseSeverity(level)
		if err != nil {
			return opts, fmt.Errorf("invalid severity %q: %w", pair, err)
		}
		opts.Severity[validate.Kind(kind)] = s
	}
	return opts, nil
}

// newLogger returns a development logger with --verbose, else a no-op.
func newLogger() (*zap.Logger, error) {
	if !flagVerbose {
		return zap.NewNop(), nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return l, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from --db, $GRAFT_DB or the
// default, in that order. Relative paths are taken from repoRoot.
func resolveDBPath(repoRoot string) string {
	p := flagDB
	if p == "" {
		p = os.Getenv(envDB)
	}
	if p == "" {
		return filepath.Join(repoRoot, ".graft", "graft.db")
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}
