// Package loader discovers and evaluates the transitive closure of projects
// reachable from a set of entry projects.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/microsoft/slngen-sub001/msbuild"
	"github.com/microsoft/slngen-sub001/observability"
)

// Mode selects the loading strategy.
type Mode string

const (
	// ModeAuto uses the graph strategy when the evaluator supports it, otherwise recursive.
	ModeAuto Mode = "auto"
	// ModeRecursive starts a goroutine per discovered project.
	ModeRecursive Mode = "recursive"
	// ModeGraph evaluates the project graph one level at a time.
	ModeGraph Mode = "graph"
)

// ParseMode parses a --loader value.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAuto, "":
		return ModeAuto, nil
	case ModeRecursive:
		return ModeRecursive, nil
	case ModeGraph:
		return ModeGraph, nil
	}
	return "", fmt.Errorf("unknown loader %q (expected auto, recursive or graph)", s)
}

// ConcurrencyTracker optionally tracks concurrent evaluations.
type ConcurrencyTracker interface {
	// Enter is called when an evaluation starts (after acquiring a slot).
	Enter()
	// Exit is called when an evaluation finishes (before releasing the slot).
	Exit()
}

// Settings configures a Loader for one generation run.
type Settings struct {
	// Evaluator evaluates individual projects (required)
	Evaluator msbuild.Evaluator

	// LoadSettings is passed to every evaluation
	LoadSettings msbuild.LoadSettings

	// MaxParallelism bounds concurrent evaluations (default runtime.NumCPU())
	MaxParallelism int

	// Mode selects the strategy (default ModeAuto)
	Mode Mode

	// Preloaded are already evaluated projects, e.g. the caller's own project.
	// They are marked seen and their references followed without re-evaluation.
	Preloaded []msbuild.Project

	// BuildLogger receives evaluation errors (default discards)
	BuildLogger observability.BuildLogger

	// Logger receives progress messages (default discards)
	Logger observability.Logger

	// Tracker is notified around each evaluation
	Tracker ConcurrencyTracker
}

// Result is the outcome of a load.
type Result struct {
	// Projects are the successfully evaluated projects, sorted by path
	Projects []msbuild.Project

	// Elapsed is the wall-clock time of the whole load
	Elapsed time.Duration

	// Count is the number of projects in Projects
	Count int

	// Statistics holds per-project evaluation times
	Statistics *Statistics

	// Graph maps each project's normalized path to the normalized paths it references
	Graph map[string][]string

	// Mode is the strategy that performed the load
	Mode Mode
}

// Loader loads project closures.
type Loader struct {
	settings Settings
	strategy strategy
	mode     Mode
}

// strategy walks the project graph using a loadContext.
type strategy interface {
	load(ctx context.Context, lc *loadContext, entries []string) error
}

// New creates a loader, resolving ModeAuto against the evaluator's capabilities.
func New(settings Settings) (*Loader, error) {
	if settings.Evaluator == nil {
		return nil, errors.New("loader requires an evaluator")
	}
	if settings.MaxParallelism <= 0 {
		settings.MaxParallelism = runtime.NumCPU()
	}
	if settings.BuildLogger == nil {
		settings.BuildLogger = observability.NewBuildLogger(nil)
	}
	if settings.Logger == nil {
		settings.Logger = observability.NewNullLogger()
	}

	mode := settings.Mode
	if mode == "" || mode == ModeAuto {
		mode = ModeRecursive
		if gc, ok := settings.Evaluator.(msbuild.GraphCapable); ok && gc.SupportsGraph() {
			mode = ModeGraph
		}
	}

	l := &Loader{settings: settings, mode: mode}
	switch mode {
	case ModeRecursive:
		l.strategy = &recursiveStrategy{}
	case ModeGraph:
		l.strategy = &graphStrategy{}
	default:
		return nil, fmt.Errorf("unknown loader mode %q", mode)
	}
	return l, nil
}

// Mode returns the resolved strategy.
func (l *Loader) Mode() Mode { return l.mode }

// Load evaluates the entry projects and everything they reference. Evaluation
// failures are reported to the build logger and the failing project is left out;
// only cancellation is returned as an error.
func (l *Loader) Load(ctx context.Context, entryPaths []string, globalProperties map[string]string) (*Result, error) {
	start := time.Now()

	ctx, span := observability.StartLoadSpan(ctx, string(l.mode), len(entryPaths))

	lc := newLoadContext(l.settings, globalProperties)

	entries := make([]string, 0, len(entryPaths))
	for _, p := range entryPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		entries = append(entries, filepath.Clean(abs))
	}

	err := l.strategy.load(ctx, lc, entries)
	observability.EndSpanWithError(span, err)
	if err != nil {
		return nil, err
	}

	projects := lc.sortedProjects()
	result := &Result{
		Projects:   projects,
		Elapsed:    time.Since(start),
		Count:      len(projects),
		Statistics: lc.stats,
		Graph:      lc.graph,
		Mode:       l.mode,
	}

	l.settings.Logger.Info("Loaded {ProjectCount} project(s) in {Elapsed} using the {Loader} loader",
		result.Count, result.Elapsed.Round(time.Millisecond), string(l.mode))
	return result, nil
}

// loadContext is the state shared by the goroutines of one load.
type loadContext struct {
	settings Settings
	global   map[string]string
	seen     *seenSet
	stats    *Statistics
	slots    chan struct{}

	mu       sync.Mutex
	projects []msbuild.Project
	graph    map[string][]string
}

func newLoadContext(settings Settings, global map[string]string) *loadContext {
	return &loadContext{
		settings: settings,
		global:   global,
		seen:     newSeenSet(),
		stats:    NewStatistics(),
		slots:    make(chan struct{}, settings.MaxParallelism),
		graph:    make(map[string][]string),
	}
}

// preloaded marks the preloaded projects seen and returns their references.
func (lc *loadContext) preloaded() []string {
	var next []string
	for _, project := range lc.settings.Preloaded {
		if !lc.seen.tryAdd(project.FullPath()) {
			continue
		}
		lc.add(project)
		for _, child := range lc.references(project) {
			if lc.seen.tryAdd(child) {
				next = append(next, child)
			}
		}
	}
	return next
}

// evaluate evaluates one project, bounded by the shared slots. Failures are
// reported and return ok=false.
func (lc *loadContext) evaluate(ctx context.Context, path string) (msbuild.Project, bool) {
	select {
	case lc.slots <- struct{}{}:
		defer func() { <-lc.slots }()
	case <-ctx.Done():
		return nil, false
	}

	if lc.settings.Tracker != nil {
		lc.settings.Tracker.Enter()
		defer lc.settings.Tracker.Exit()
	}

	ctx, span := observability.StartEvaluateSpan(ctx, path)
	start := time.Now()
	project, err := lc.settings.Evaluator.Evaluate(ctx, path, lc.global, lc.settings.LoadSettings)
	elapsed := time.Since(start)
	observability.EndSpanWithError(span, err)

	observability.ProjectEvaluationDuration.WithLabelValues(strings.ToLower(filepath.Ext(path))).Observe(elapsed.Seconds())
	lc.stats.Record(path, elapsed)

	if err != nil {
		observability.ProjectEvaluationsTotal.WithLabelValues("failure").Inc()
		if ctx.Err() == nil {
			lc.settings.BuildLogger.Error(diagnosticFor(path, err))
		}
		return nil, false
	}

	observability.ProjectEvaluationsTotal.WithLabelValues("success").Inc()
	lc.settings.Logger.Debug("Evaluated {ProjectPath} in {Elapsed}", path, elapsed)
	lc.add(project)
	return project, true
}

func (lc *loadContext) add(project msbuild.Project) {
	lc.mu.Lock()
	lc.projects = append(lc.projects, project)
	lc.mu.Unlock()
}

// references returns the projects referenced by project, and records the edges.
func (lc *loadContext) references(project msbuild.Project) []string {
	dir := filepath.Dir(project.FullPath())

	items := project.GetItems(msbuild.ItemProjectReference)
	if msbuild.IsTrue(project.GetPropertyValue(msbuild.PropertyIsTraversal)) {
		items = append(items, project.GetItems(msbuild.ItemProjectFile)...)
	}

	paths := make([]string, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		spec := strings.TrimSpace(item.EvaluatedInclude)
		if spec == "" {
			continue
		}
		path := msbuild.ToSystemPath(spec)
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		path = filepath.Clean(path)
		paths = append(paths, path)
		keys = append(keys, msbuild.NormalizePath(path))
	}

	lc.mu.Lock()
	lc.graph[msbuild.NormalizePath(project.FullPath())] = keys
	lc.mu.Unlock()

	return paths
}

func (lc *loadContext) sortedProjects() []msbuild.Project {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	projects := append([]msbuild.Project(nil), lc.projects...)
	sort.Slice(projects, func(i, j int) bool {
		return strings.ToLower(projects[i].FullPath()) < strings.ToLower(projects[j].FullPath())
	})
	return projects
}

// diagnosticFor converts an evaluation failure into a structured diagnostic.
func diagnosticFor(path string, err error) observability.Diagnostic {
	var evalErr *msbuild.EvaluationError
	if errors.As(err, &evalErr) {
		return observability.Diagnostic{
			Code:    evalErr.Code,
			File:    evalErr.File,
			Line:    evalErr.Line,
			Column:  evalErr.Column,
			Message: evalErr.Message,
		}
	}
	return observability.Diagnostic{File: path, Message: err.Error()}
}
