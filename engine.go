package graft

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/manifest"
	"github.com/jward/graft/internal/metrics"
	"github.com/jward/graft/internal/runtime"
	"github.com/jward/graft/internal/store"
	"github.com/jward/graft/internal/strategy"
	"github.com/jward/graft/internal/validate"
	"github.com/jward/graft/scripts"
)

const (
	defaultCacheSize = 256
	latestRoundKey   = "latest_round"
)

// Engine orchestrates resolution rounds: manifest loading, graph resolution,
// validation, strategy selection and persistence.
type Engine struct {
	store   *store.Store
	runtime *runtime.Runtime
	logger  *zap.Logger
	metrics *metrics.Metrics
	cache   *lru.Cache[string, *manifest.File]

	registerer   prometheus.Registerer
	scriptsDir   string
	scriptsFS    fs.FS
	scriptNames  []string
	validateOpts validate.Options
	policy       binding.Policy
	keepRounds   int
	cacheSize    int

	// useParallel enables the parallel manifest decoding pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRegisterer registers the engine's Prometheus collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// WithScriptsFS loads validator scripts from fsys instead of the bundled
// scripts.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
		e.scriptsDir = ""
	}
}

// WithScriptsDir loads validator scripts from a directory on disk instead of
// the bundled scripts.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
		e.scriptsFS = nil
	}
}

// WithValidatorScripts sets the validator scripts run after the built-in
// checks, by name (validate/<name>.risor). The default runs the nullable
// check only; no names disables scripts entirely.
func WithValidatorScripts(names ...string) Option {
	return func(e *Engine) {
		e.scriptNames = append([]string(nil), names...)
	}
}

// WithValidateOptions sets diagnostic severities and the map key collision
// policy.
func WithValidateOptions(opts validate.Options) Option {
	return func(e *Engine) {
		e.validateOpts = opts
	}
}

// WithPolicy sets the declaration extraction policy.
func WithPolicy(p binding.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithParallel controls parallel manifest decoding. When true (default),
// manifests are decoded by a worker pool and merged serially in argument
// order.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithKeepRounds bounds the number of rounds kept in the database. Zero
// (default) keeps every round.
func WithKeepRounds(n int) Option {
	return func(e *Engine) {
		e.keepRounds = n
	}
}

// WithCacheSize sets the number of decoded manifests kept in memory.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Script loading priority:
//  1. WithScriptsDir or WithScriptsFS, whichever was applied last
//  2. Otherwise, the scripts bundled with graft
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:       zap.NewNop(),
		scriptsFS:    scripts.FS,
		scriptNames:  []string{runtime.NullableScript},
		validateOpts: validate.DefaultOptions(),
		policy:       binding.DefaultPolicy(),
		cacheSize:    defaultCacheSize,
		useParallel:  true,
	}
	for _, opt := range opts {
		opt(e)
	}

	cache, err := lru.New[string, *manifest.File](max(e.cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("graft: create manifest cache: %w", err)
	}
	e.cache = cache

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("graft: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("graft: migrate: %w", err)
	}
	e.store = s
	e.metrics = metrics.New(e.registerer)

	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(e.scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// Round is the outcome of one resolution round.
type Round struct {
	ID        int64
	InputHash string
	// Skipped is set when a stored round had the same input hash. Only the
	// stored counts are filled in; Forest, Plan and Report are nil.
	Skipped  bool
	Failed   bool
	Errors   int
	Warnings int

	Forest *graph.Forest
	Plan   *strategy.Plan
	Report *validate.Report
}

// Resolve runs a round over the manifests at paths, in order.
func (e *Engine) Resolve(ctx context.Context, paths ...string) (*Round, error) {
	files, err := e.loadManifests(ctx, paths)
	if err != nil {
		return nil, err
	}
	return e.ResolveFiles(ctx, files)
}

// ResolveDir runs a round over every .yaml and .yml manifest under root,
// sorted by path.
func (e *Engine) ResolveDir(ctx context.Context, root string) (*Round, error) {
	paths, err := listManifests(root)
	if err != nil {
		return nil, err
	}
	return e.Resolve(ctx, paths...)
}

// ResolveFiles runs a round over already decoded manifests.
func (e *Engine) ResolveFiles(ctx context.Context, files []*manifest.File) (*Round, error) {
	start := time.Now()
	hash := e.inputHash(files)

	prev, err := e.store.RoundByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("graft: %w", err)
	}
	if prev != nil {
		e.logger.Info("round skipped: input unchanged",
			zap.Int64("round", prev.ID), zap.String("input_hash", hash))
		e.metrics.ObserveRound(metrics.OutcomeSkipped, time.Since(start))
		if err := e.store.SetMetadata(latestRoundKey, strconv.FormatInt(prev.ID, 10)); err != nil {
			return nil, fmt.Errorf("graft: %w", err)
		}
		return &Round{
			ID:        prev.ID,
			InputHash: hash,
			Skipped:   true,
			Failed:    prev.Failed,
			Errors:    prev.Errors,
			Warnings:  prev.Warnings,
		}, nil
	}

	set, err := manifest.Merge(files...)
	if err != nil {
		e.metrics.ObserveRound(metrics.OutcomeAborted, time.Since(start))
		return nil, fmt.Errorf("graft: %w", err)
	}

	round, err := e.compute(ctx, set)
	if err != nil {
		e.metrics.ObserveRound(metrics.OutcomeAborted, time.Since(start))
		e.logger.Error("round aborted", zap.Error(err))
		return nil, err
	}
	round.InputHash = hash

	if err := e.persist(round, files); err != nil {
		e.metrics.ObserveRound(metrics.OutcomeAborted, time.Since(start))
		return nil, fmt.Errorf("graft: persist round: %w", err)
	}
	if e.keepRounds > 0 {
		pruned, err := e.store.PruneRounds(e.keepRounds)
		if err != nil {
			return nil, fmt.Errorf("graft: %w", err)
		}
		if len(pruned) > 0 {
			e.logger.Debug("pruned rounds", zap.Int64s("rounds", pruned))
		}
	}

	outcome := metrics.OutcomeOK
	if round.Failed {
		outcome = metrics.OutcomeFailed
	}
	e.metrics.ObserveRound(outcome, time.Since(start))
	e.logger.Info("round resolved",
		zap.Int64("round", round.ID),
		zap.Int("components", len(round.Forest.Graphs())),
		zap.Int("strategies", len(round.Plan.Strategies)),
		zap.Int("errors", round.Errors),
		zap.Int("warnings", round.Warnings),
		zap.Duration("elapsed", time.Since(start)))
	return round, nil
}

// compute resolves, validates and plans one declaration set. Internal
// invariant violations panic inside the pipeline; they abort the round and
// come back as an error.
func (e *Engine) compute(ctx context.Context, set *decl.Set) (round *Round, err error) {
	defer func() {
		if r := recover(); r != nil {
			round = nil
			err = fmt.Errorf("graft: round aborted: %v", r)
		}
	}()

	validators := validate.Builtin(e.validateOpts)
	for _, name := range e.scriptNames {
		s, err := e.runtime.LoadValidator(name)
		if err != nil {
			return nil, fmt.Errorf("graft: validator %s: %w", name, err)
		}
		validators = append(validators, e.runtime.Validator(ctx, s))
	}

	catalog := binding.NewCatalog(set, e.policy)
	defer catalog.Reset()

	forest := graph.Resolve(catalog)
	forest.Freeze()
	e.logger.Debug("resolved forest",
		zap.Int("graphs", len(forest.Graphs())),
		zap.Any("arenas", catalog.Stats()))

	report := validate.Run(forest, validators, e.validateOpts)
	for _, d := range report.Diagnostics {
		e.metrics.ObserveDiagnostic(string(d.Kind), d.Severity.String())
	}

	plan := strategy.Select(forest)

	owned := 0
	for _, g := range forest.Graphs() {
		owned += len(g.OwnedNodes())
	}
	e.metrics.SetSize(len(forest.Graphs()), owned)

	return &Round{
		Failed:   report.Failed(),
		Errors:   report.Errors(),
		Warnings: report.Warnings(),
		Forest:   forest,
		Plan:     plan,
		Report:   report,
	}, nil
}

// inputHash identifies a round's input: the manifests in order, the
// validator scripts and every option that changes the outcome.
func (e *Engine) inputHash(files []*manifest.File) string {
	h := sha256.New()
	fmt.Fprintf(h, "manifests:%s\n", manifest.SetHash(files))
	fmt.Fprintf(h, "scripts:%s\n", e.scriptsHash())
	fmt.Fprintf(h, "policy:%t\n", e.policy.DropCompanionDuplicates)
	fmt.Fprintf(h, "map_keys:%s\n", e.validateOpts.MapKeyCollision)

	kinds := make([]string, 0, len(e.validateOpts.Severity))
	for k := range e.validateOpts.Severity {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(h, "severity:%s=%s\n", k, e.validateOpts.Severity[validate.Kind(k)])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// scriptsHash hashes the configured validator scripts, by name and source.
// A script that cannot be loaded hashes as its name only; the round reports
// the load error.
func (e *Engine) scriptsHash() string {
	h := sha256.New()
	for _, name := range e.scriptNames {
		h.Write([]byte(name))
		h.Write([]byte{0})
		if src, err := e.runtime.LoadScript(runtime.ValidatorScriptPath(name)); err == nil {
			h.Write([]byte(src))
		}
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// listManifests discovers manifests by walking root. Hidden directories are
// skipped.
func listManifests(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("graft: walk directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// readManifest decodes the manifest at path, reusing a cached decode of
// identical content.
func (e *Engine) readManifest(path string) (*manifest.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graft: read manifest: %w", err)
	}
	hash := manifest.HashBytes(data)
	if cached, ok := e.cache.Get(hash); ok {
		e.metrics.CacheLookup(true)
		f := *cached
		f.Path = path
		return &f, nil
	}
	e.metrics.CacheLookup(false)

	f, err := manifest.DecodeBytes(data, path)
	if err != nil {
		return nil, err
	}
	e.cache.Add(hash, f)
	return f, nil
}
