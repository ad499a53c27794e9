// Package pipeline implements the four-stage invocation flow spec.md §4.9
// and §5 describe: ResolveStage turns a runtime name and version spec into
// an ExecutionPlan, EnsureStage installs whatever the plan needs that isn't
// already in the store, PrepareStage builds the PATH/env the command will
// run with, and ExecuteStage hands off to the resolved binary. cmd/vx calls
// the four stages in order; each is independently testable because none
// depend on package-level state.
package pipeline

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/semaphore"

	"github.com/loonghao/vx/internal/cliutil"
	"github.com/loonghao/vx/internal/installer/command"
	"github.com/loonghao/vx/internal/installer/download"
	"github.com/loonghao/vx/internal/provider"
	"github.com/loonghao/vx/internal/resolve"
	"github.com/loonghao/vx/internal/script"
	"github.com/loonghao/vx/internal/store"
	"github.com/loonghao/vx/internal/verify"
)

// defaultMaxConcurrentInstalls bounds EnsureStage's parallel installs, per
// spec.md §5's default concurrency budget.
const defaultMaxConcurrentInstalls = 4

// RuntimeLookup resolves a runtime name to its declared Runtime object,
// backed by a registry.Registry in production and a fixed map in tests.
type RuntimeLookup func(name string) (*provider.Runtime, bool)

// ScriptLookup returns the loaded script.Provider backing a SourceScript
// runtime's install/prepare hooks, if any. Manifest and builtin runtimes
// return (nil, false) and are installed through their Hooks instead.
type ScriptLookup func(name string) (*script.Provider, bool)

// Options configures a Pipeline. Runtimes and Store are required; the rest
// fall back to sensible defaults so tests can construct a minimal Pipeline.
type Options struct {
	Runtimes    RuntimeLookup
	Scripts     ScriptLookup
	Store       *store.Store
	Resolver    *resolve.Resolver
	Downloader  download.Downloader
	Executor    *command.Executor
	Verifier    verify.Verifier
	VXBinary    string
	ShimsDir    string
	ProjectRoot string
	Logger      *slog.Logger
	MaxParallel int
	// Reporter renders EnsureStage's per-runtime install progress. Left
	// nil, Ensure runs silently (the default for non-interactive callers
	// like tests); cmd/vx supplies cliutil.NewReporter(os.Stderr).
	Reporter *cliutil.Reporter
}

// Pipeline wires the four stages to one set of concrete dependencies built
// once at startup and shared across every `vx` invocation in-process.
type Pipeline struct {
	runtimes    RuntimeLookup
	scripts     ScriptLookup
	store       *store.Store
	resolver    *resolve.Resolver
	downloader  download.Downloader
	executor    *command.Executor
	verifier    verify.Verifier
	vxBinary    string
	shimsDir    string
	projectRoot string
	logger      *slog.Logger
	sem         *semaphore.Weighted
	reporter    *cliutil.Reporter
}

// New builds a Pipeline from opts, filling in a noop verifier, the default
// HTTP downloader, a command executor rooted at ProjectRoot, and a text
// logger writing to stderr where the caller left a field zero.
func New(opts Options) *Pipeline {
	if opts.Downloader == nil {
		opts.Downloader = download.NewDownloader()
	}
	if opts.Executor == nil {
		opts.Executor = command.NewExecutor(opts.ProjectRoot)
	}
	if opts.Verifier == nil {
		opts.Verifier = verify.NewNoopVerifier("no signature policy configured")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxConcurrentInstalls
	}

	return &Pipeline{
		runtimes:    opts.Runtimes,
		scripts:     opts.Scripts,
		store:       opts.Store,
		resolver:    opts.Resolver,
		downloader:  opts.Downloader,
		executor:    opts.Executor,
		verifier:    opts.Verifier,
		vxBinary:    opts.VXBinary,
		shimsDir:    opts.ShimsDir,
		projectRoot: opts.ProjectRoot,
		logger:      opts.Logger,
		sem:         semaphore.NewWeighted(int64(opts.MaxParallel)),
		reporter:    opts.Reporter,
	}
}

// Run executes all four stages for one invocation: resolve cfg.Runtime and
// its dependency graph, install anything missing, build the child process
// environment, and exec it. It returns the child's exit code (0 on success)
// and a non-nil error only when a stage before Execute failed outright.
func (p *Pipeline) Run(ctx context.Context, req ResolveRequest) (int, error) {
	plan, err := p.Resolve(ctx, req)
	if err != nil {
		return -1, err
	}
	if err := p.Ensure(ctx, plan); err != nil {
		return -1, err
	}
	prepared, err := p.Prepare(ctx, plan)
	if err != nil {
		return -1, err
	}
	return p.Execute(ctx, prepared)
}
