// Package generator turns a set of entry projects into a Visual Studio
// solution: it loads the project closure, converts each project into a
// solution entry, derives the folder hierarchy, writes the file and optionally
// launches Visual Studio.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/microsoft/slngen-sub001/loader"
	"github.com/microsoft/slngen-sub001/msbuild"
	"github.com/microsoft/slngen-sub001/observability"
	"github.com/microsoft/slngen-sub001/solution"
)

// ErrLoggedErrors is returned when errors were logged while loading projects.
// Nothing is written in that case.
var ErrLoggedErrors = errors.New("one or more errors occurred while loading projects, no solution was generated")

// CodeDuplicateProjectGUID is the diagnostic code of a regenerated project GUID.
const CodeDuplicateProjectGUID = "SLNGEN1001"

// CodeProjectNotInSolution is the diagnostic code of a project missing from a filtered solution.
const CodeProjectNotInSolution = "SLNGEN1002"

// Console interface for output (injected from CLI).
type Console interface {
	Printf(format string, args ...any)
	Error(format string, args ...any)
	Warning(format string, args ...any)
}

// Result describes a completed run.
type Result struct {
	// Path is the solution or solution filter that was written
	Path string

	// IsFilter is true when Path is a solution filter
	IsFilter bool

	// Projects are the solution entries in write order
	Projects []*solution.SlnProject

	// FolderCount is the number of solution folders written
	FolderCount int

	// Load is the result of loading the project closure
	Load *loader.Result
}

// Run generates a solution for the projects in args (or the single project in
// the working directory).
func Run(ctx context.Context, args []string, opts *Options, console Console) error {
	_, err := Generate(ctx, args, opts, console)
	return err
}

// Generate is Run returning the details of the generated solution.
func Generate(ctx context.Context, args []string, opts *Options, console Console) (result *Result, err error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	buildLogger := opts.BuildLogger
	if buildLogger == nil {
		buildLogger = observability.NewBuildLogger(logger)
	}
	quiet := strings.HasPrefix(strings.ToLower(opts.Verbosity), "q")

	ctx, span := observability.StartGenerateSpan(ctx, len(args))
	defer func() { observability.EndSpanWithError(span, err) }()

	entries, err := entryProjects(args, opts.WorkingDir)
	if err != nil {
		return nil, err
	}

	evaluator, err := opts.evaluator(logger)
	if err != nil {
		return nil, err
	}
	mode, err := loader.ParseMode(opts.Loader)
	if err != nil {
		return nil, err
	}
	typeGUIDs, err := solution.NormalizeProjectTypeGUIDs(opts.ProjectTypeGUIDs)
	if err != nil {
		return nil, err
	}

	var preloaded []msbuild.Project
	if opts.Caller != nil {
		if project, ok := opts.Caller.CallerProject(); ok {
			preloaded = append(preloaded, project)
		}
	}

	l, err := loader.New(loader.Settings{
		Evaluator:      evaluator,
		LoadSettings:   msbuild.TolerantLoadSettings(),
		MaxParallelism: opts.MaxParallelism,
		Mode:           mode,
		Preloaded:      preloaded,
		BuildLogger:    buildLogger,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	if !quiet {
		console.Printf("Loading project references...\n")
	}
	loaded, err := l.Load(ctx, entries, opts.globalProperties())
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	if !quiet {
		console.Printf("Loaded %d project(s) in %s\n", loaded.Count, loaded.Elapsed.Round(time.Millisecond))
	}

	if opts.CollectStats {
		printStatistics(console, loaded.Statistics)
	}
	if opts.StatsFile != "" {
		if err := writeStatistics(opts.StatsFile, loaded.Statistics); err != nil {
			return nil, err
		}
	}

	projects := descriptors(loaded.Projects, entries, opts, typeGUIDs, buildLogger, logger)

	if buildLogger.HasLoggedErrors() {
		return nil, ErrLoggedErrors
	}
	if len(projects) == 0 {
		return nil, errors.New("none of the loaded projects can be added to a solution")
	}

	result = &Result{Projects: projects, Load: loaded}
	if opts.FilterSolution != "" {
		result.IsFilter = true
		result.Path, err = writeFilter(opts.FilterSolution, entries[0], projects, buildLogger)
		if err != nil {
			return nil, err
		}
		if !quiet {
			console.Printf("Created solution filter: %s\n", result.Path)
		}
	} else {
		result.Path, result.FolderCount, err = writeSolution(ctx, opts, entries[0], projects)
		if err != nil {
			return nil, err
		}
		if !quiet {
			console.Printf("Generated solution file: %s\n", result.Path)
		}
	}

	buildLogger.Telemetry(ctx, "SlnGen/Generate", map[string]string{
		"ProjectCount":      strconv.Itoa(len(projects)),
		"FolderCount":       strconv.Itoa(result.FolderCount),
		"EntryProjectCount": strconv.Itoa(len(entries)),
		"Loader":            string(loaded.Mode),
		"LoadMilliseconds":  strconv.FormatInt(loaded.Elapsed.Milliseconds(), 10),
		"Folders":           strconv.FormatBool(opts.Folders),
		"CollapseFolders":   strconv.FormatBool(opts.CollapseFolders),
		"Launch":            strconv.FormatBool(opts.Launch),
		"Filter":            strconv.FormatBool(result.IsFilter),
	})

	if opts.Launch {
		launcher := opts.Launcher
		if launcher == nil {
			launcher = NewLauncher(opts.DevEnvFullPath, opts.UseShellExecute)
		}
		if err := launcher.Launch(result.Path); err != nil {
			return result, fmt.Errorf("launch Visual Studio: %w", err)
		}
		logger.Info("Launched Visual Studio for {SolutionPath}", result.Path)
	}

	return result, nil
}

// entryProjects returns the absolute entry project paths. Without arguments the
// single project file of workingDir is used.
func entryProjects(args []string, workingDir string) ([]string, error) {
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		workingDir = wd
	}

	if len(args) == 0 {
		path, err := msbuild.FindProjectFile(workingDir)
		if err != nil {
			return nil, err
		}
		args = []string{path}
	}

	entries := make([]string, 0, len(args))
	for _, arg := range args {
		path := arg
		if !filepath.IsAbs(path) {
			path = filepath.Join(workingDir, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("project file not found: %s", arg)
		}
		if info.IsDir() {
			if path, err = msbuild.FindProjectFile(path); err != nil {
				return nil, err
			}
		}
		entries = append(entries, filepath.Clean(path))
	}
	return entries, nil
}

func (o *Options) evaluator(logger observability.Logger) (msbuild.Evaluator, error) {
	if o.Evaluator != nil {
		return o.Evaluator, nil
	}
	ec, err := msbuild.NewEvaluationContext(msbuild.ContextOptions{
		CacheSize:   o.CacheSize,
		Environment: o.Environment,
	})
	if err != nil {
		return nil, err
	}
	return msbuild.NewEvaluator(ec, logger), nil
}

// descriptors converts the loaded projects into solution entries: entry
// projects first in the order given, then the rest sorted by path. Duplicate
// project GUIDs are replaced with new ones.
func descriptors(projects []msbuild.Project, entries []string, opts *Options, typeGUIDs map[string]string, buildLogger observability.BuildLogger, logger observability.Logger) []*solution.SlnProject {
	entryIndex := make(map[string]int, len(entries))
	for i, e := range entries {
		entryIndex[msbuild.NormalizePath(e)] = i
	}

	defaults := solution.NewDefaults(opts.Configurations, opts.Platforms)

	type entryProject struct {
		index   int
		project *solution.SlnProject
	}
	var first []entryProject
	var rest []*solution.SlnProject
	owners := make(map[string]string)

	for _, project := range projects {
		if !solution.ShouldIncludeInSolution(project) {
			logger.Debug("Excluding {ProjectPath} from the solution", project.FullPath())
			continue
		}

		index, isEntry := entryIndex[msbuild.NormalizePath(project.FullPath())]
		p, err := solution.FromProject(project, typeGUIDs, isEntry && !opts.IgnoreMainProject, defaults)
		if err != nil {
			buildLogger.Error(observability.Diagnostic{File: project.FullPath(), Message: err.Error()})
			continue
		}
		if len(opts.Configurations) > 0 {
			p.Configurations = defaults.Configurations
		}
		if len(opts.Platforms) > 0 {
			p.Platforms = defaults.Platforms
		}

		if owner, dup := owners[p.ProjectGUID]; dup {
			guid := solution.NewGUID()
			buildLogger.Warning(observability.Diagnostic{
				Code:    CodeDuplicateProjectGUID,
				File:    p.FullPath,
				Message: fmt.Sprintf("The project GUID %s is already used by %s. A new GUID %s was assigned.", p.ProjectGUID, owner, guid),
			})
			p.ProjectGUID = guid
		}
		owners[p.ProjectGUID] = p.FullPath

		if isEntry {
			first = append(first, entryProject{index: index, project: p})
		} else {
			rest = append(rest, p)
		}
	}

	sort.SliceStable(first, func(i, j int) bool { return first[i].index < first[j].index })
	sort.SliceStable(rest, func(i, j int) bool {
		return strings.ToLower(rest[i].FullPath) < strings.ToLower(rest[j].FullPath)
	})

	out := make([]*solution.SlnProject, 0, len(first)+len(rest))
	for _, e := range first {
		out = append(out, e.project)
	}
	return append(out, rest...)
}

// solutionPath returns the solution to write: SolutionFile, or <entry name>.sln
// next to the first entry project.
func solutionPath(opts *Options, firstEntry string) (string, error) {
	if opts.SolutionFile != "" {
		path, err := filepath.Abs(opts.SolutionFile)
		if err != nil {
			return "", fmt.Errorf("resolve solution path: %w", err)
		}
		return path, nil
	}
	name := strings.TrimSuffix(filepath.Base(firstEntry), filepath.Ext(firstEntry))
	return filepath.Join(filepath.Dir(firstEntry), name+".sln"), nil
}

func writeSolution(ctx context.Context, opts *Options, firstEntry string, projects []*solution.SlnProject) (string, int, error) {
	path, err := solutionPath(opts, firstEntry)
	if err != nil {
		return "", 0, err
	}

	sln := solution.NewSlnFile()
	sln.VisualStudioVersion = opts.VisualStudioVersion
	sln.AddProjects(projects...)
	sln.AddSolutionItems(opts.SolutionItems...)
	if opts.Folders || opts.CollapseFolders {
		sln.SetHierarchy(solution.NewHierarchy(projects, opts.CollapseFolders))
	}

	folders := sln.FolderCount()
	_, span := observability.StartWriteSpan(ctx, path, len(projects), folders)
	err = sln.Write(path)
	observability.EndSpanWithError(span, err)
	if err != nil {
		return "", 0, err
	}

	observability.SolutionProjects.Set(float64(len(projects)))
	observability.SolutionFolders.Set(float64(folders))
	return path, folders, nil
}

// writeFilter writes <entry name>.slnf next to solutionPath listing the
// projects that solutionPath contains.
func writeFilter(solutionPath, firstEntry string, projects []*solution.SlnProject, buildLogger observability.BuildLogger) (string, error) {
	if err := solution.ValidateSolutionFile(solutionPath); err != nil {
		return "", err
	}
	if solution.GetSolutionFormat(solutionPath) == "slnf" {
		return "", fmt.Errorf("cannot filter a solution filter: %s", solutionPath)
	}

	sol, err := solution.ParseSolution(solutionPath)
	if err != nil {
		return "", fmt.Errorf("read solution to filter: %w", err)
	}

	var members []string
	for _, p := range projects {
		if _, ok := sol.GetProjectByPath(p.FullPath); ok {
			members = append(members, p.FullPath)
			continue
		}
		buildLogger.Warning(observability.Diagnostic{
			Code:    CodeProjectNotInSolution,
			File:    p.FullPath,
			Message: fmt.Sprintf("The project is not part of %s and was left out of the solution filter.", sol.FilePath),
		})
	}

	name := strings.TrimSuffix(filepath.Base(firstEntry), filepath.Ext(firstEntry))
	path := filepath.Join(sol.SolutionDir, name+".slnf")
	if err := solution.WriteFilter(path, sol.FilePath, members); err != nil {
		return "", err
	}
	return path, nil
}

func printStatistics(console Console, stats *loader.Statistics) {
	console.Printf("Project evaluation times:\n")
	for _, entry := range stats.Sorted() {
		console.Printf("  %10s  %s\n", entry.Duration.Round(time.Microsecond), entry.Path)
	}
	console.Printf("  %10s  total (%d projects)\n", stats.Total().Round(time.Microsecond), stats.Len())
}

type statisticsDocument struct {
	TotalMilliseconds float64              `json:"totalMilliseconds"`
	Projects          []statisticsDocEntry `json:"projects"`
}

type statisticsDocEntry struct {
	Path         string  `json:"path"`
	Milliseconds float64 `json:"milliseconds"`
}

func writeStatistics(path string, stats *loader.Statistics) error {
	doc := statisticsDocument{TotalMilliseconds: milliseconds(stats.Total())}
	for _, entry := range stats.Sorted() {
		doc.Projects = append(doc.Projects, statisticsDocEntry{Path: entry.Path, Milliseconds: milliseconds(entry.Duration)})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write statistics file: %w", err)
	}
	return nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
