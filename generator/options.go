package generator

import (
	"strings"

	"github.com/microsoft/slngen-sub001/msbuild"
	"github.com/microsoft/slngen-sub001/observability"
)

// Options configures one generation run. The exported flag fields map one to
// one onto slngen command line flags and slngen.toml keys.
type Options struct {
	// Launch opens the solution in Visual Studio after writing it
	Launch bool

	// Folders nests projects in solution folders that follow the directory tree
	Folders bool

	// CollapseFolders merges folders that contain a single folder and no projects
	CollapseFolders bool

	// SolutionFile is the solution path; default <dir of first entry>/<entry name>.sln
	SolutionFile string

	// SolutionItems are extra files shown under Solution Items
	SolutionItems []string

	// Properties are global properties applied to every evaluation
	Properties map[string]string

	// Configurations and Platforms replace the values declared by projects
	Configurations []string
	Platforms      []string

	// VisualStudioVersion adds the version header (e.g. 17.0.31903.59)
	VisualStudioVersion string

	// DevEnvFullPath is the devenv.exe to launch
	DevEnvFullPath string

	// UseShellExecute opens the solution with the OS file handler when devenv is not found
	UseShellExecute bool

	// Loader is auto, recursive or graph
	Loader string

	// MaxParallelism bounds concurrent evaluations (0 = number of CPUs)
	MaxParallelism int

	// CollectStats prints per-project evaluation times
	CollectStats bool

	// StatsFile writes per-project evaluation times as JSON
	StatsFile string

	// IgnoreMainProject treats the entry projects like any other project
	IgnoreMainProject bool

	// ProjectTypeGUIDs maps a project file extension to a project type GUID
	ProjectTypeGUIDs map[string]string

	// FilterSolution writes a solution filter for this existing solution instead of a new solution
	FilterSolution string

	// CacheSize bounds the shared import cache (0 = default)
	CacheSize int

	// Verbosity is quiet, normal, detailed or diagnostic
	Verbosity string

	// WorkingDir is searched for a project when no entry project is given (default: current directory)
	WorkingDir string

	// Environment is the environment used for property fallback (default os.Environ())
	Environment []string

	// Evaluator replaces the built-in XML evaluator
	Evaluator msbuild.Evaluator

	// Caller supplies an already evaluated caller project, if any
	Caller CallerContext

	// Logger receives structured log events (default discards)
	Logger observability.Logger

	// BuildLogger receives diagnostics (default collects and forwards to Logger)
	BuildLogger observability.BuildLogger

	// Launcher starts Visual Studio (default NewLauncher from the launch options)
	Launcher SolutionLauncher
}

// CallerContext is implemented by hosts that already evaluated the project
// invoking slngen, such as a build task running inside that project.
type CallerContext interface {
	CallerProject() (msbuild.Project, bool)
}

// globalProperties returns the global properties of every evaluation. A single
// requested configuration or platform is applied as a global property unless
// the property is set explicitly.
func (o *Options) globalProperties() map[string]string {
	global := make(map[string]string, len(o.Properties)+2)
	for k, v := range o.Properties {
		global[k] = v
	}
	setDefault := func(name string, values []string) {
		if len(values) != 1 {
			return
		}
		for k := range global {
			if strings.EqualFold(k, name) {
				return
			}
		}
		global[name] = values[0]
	}
	setDefault(msbuild.PropertyConfiguration, o.Configurations)
	setDefault(msbuild.PropertyPlatform, o.Platforms)
	if strings.EqualFold(global[msbuild.PropertyPlatform], "Any CPU") {
		global[msbuild.PropertyPlatform] = "AnyCPU"
	}
	return global
}
