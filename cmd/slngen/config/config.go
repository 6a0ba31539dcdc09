// Package config loads slngen settings from slngen.toml and the command line.
//
// Settings are resolved in three layers: Defaults, then the nearest slngen.toml
// found walking up from the working directory, then flags set explicitly on the
// command line.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/microsoft/slngen-sub001/cmd/slngen/output"
	"github.com/microsoft/slngen-sub001/generator"
	"github.com/microsoft/slngen-sub001/loader"
	"github.com/microsoft/slngen-sub001/msbuild"
	"github.com/microsoft/slngen-sub001/solution"
)

// FileName is the configuration file looked up from the working directory upward.
const FileName = "slngen.toml"

// Flag names shared by the command line and ApplyFlags.
const (
	FlagLaunch            = "launch"
	FlagFolders           = "folders"
	FlagCollapseFolders   = "collapse-folders"
	FlagSolutionFile      = "solution-file"
	FlagSolutionItem      = "solution-item"
	FlagProperty          = "property"
	FlagConfiguration     = "configuration"
	FlagPlatform          = "platform"
	FlagVSVersion         = "vs-version"
	FlagDevEnv            = "devenv"
	FlagUseShellExecute   = "use-shell-execute"
	FlagLoader            = "loader"
	FlagMaxParallelism    = "max-parallelism"
	FlagCollectStats      = "collect-stats"
	FlagStatsFile         = "stats-file"
	FlagIgnoreMainProject = "ignore-main-project"
	FlagProjectTypeGUID   = "project-type-guid"
	FlagFilterSolution    = "filter-solution"
	FlagCacheSize         = "cache-size"
	FlagVerbosity         = "verbosity"
	FlagTraceExporter     = "trace-exporter"
	FlagOTLPEndpoint      = "otlp-endpoint"
	FlagMetricsFile       = "metrics-file"
)

// Config holds every slngen setting.
type Config struct {
	Launch              bool              `toml:"launch"`
	Folders             bool              `toml:"folders"`
	CollapseFolders     bool              `toml:"collapse_folders"`
	SolutionFile        string            `toml:"solution_file"`
	SolutionItems       []string          `toml:"solution_items"`
	Properties          map[string]string `toml:"properties"`
	Configurations      []string          `toml:"configurations"`
	Platforms           []string          `toml:"platforms"`
	VisualStudioVersion string            `toml:"vs_version"`
	DevEnv              string            `toml:"devenv"`
	UseShellExecute     bool              `toml:"use_shell_execute"`
	Loader              string            `toml:"loader"`
	MaxParallelism      int               `toml:"max_parallelism"`
	CollectStats        bool              `toml:"collect_stats"`
	StatsFile           string            `toml:"stats_file"`
	IgnoreMainProject   bool              `toml:"ignore_main_project"`
	ProjectTypeGUIDs    map[string]string `toml:"project_type_guids"`
	CacheSize           int               `toml:"cache_size"`
	Verbosity           string            `toml:"verbosity"`
	TraceExporter       string            `toml:"trace_exporter"`
	OTLPEndpoint        string            `toml:"otlp_endpoint"`
	MetricsFile         string            `toml:"metrics_file"`

	// FilterSolution is only settable on the command line
	FilterSolution string `toml:"-"`

	// Path is the slngen.toml the settings were read from, if any
	Path string `toml:"-"`
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		Loader:        string(loader.ModeAuto),
		Verbosity:     "normal",
		TraceExporter: "none",
		OTLPEndpoint:  "localhost:4317",
	}
}

// Find returns the nearest slngen.toml in dir or one of its parents, or "".
func Find(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads path over Defaults. Relative paths in the file are resolved
// against the directory containing it.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown setting(s): %s", path, strings.Join(keys, ", "))
	}

	cfg.Path = path
	base := filepath.Dir(path)
	cfg.SolutionFile = resolve(base, cfg.SolutionFile)
	cfg.StatsFile = resolve(base, cfg.StatsFile)
	cfg.MetricsFile = resolve(base, cfg.MetricsFile)
	for i, item := range cfg.SolutionItems {
		cfg.SolutionItems[i] = resolve(base, item)
	}
	return cfg, nil
}

// LoadFrom loads the nearest slngen.toml above dir, or Defaults when there is none.
func LoadFrom(dir string) (*Config, error) {
	path := Find(dir)
	if path == "" {
		return Defaults(), nil
	}
	return Load(path)
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, msbuild.ToSystemPath(path))
}

// ApplyFlags overrides settings with the flags set explicitly in flags.
// Repeatable key=value flags are merged into the maps from the file.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		return err == nil && flags.Lookup(name) != nil && flags.Changed(name)
	}

	boolFlags := map[string]*bool{
		FlagLaunch:            &c.Launch,
		FlagFolders:           &c.Folders,
		FlagCollapseFolders:   &c.CollapseFolders,
		FlagUseShellExecute:   &c.UseShellExecute,
		FlagCollectStats:      &c.CollectStats,
		FlagIgnoreMainProject: &c.IgnoreMainProject,
	}
	for name, target := range boolFlags {
		if changed(name) {
			*target, err = flags.GetBool(name)
		}
	}

	stringFlags := map[string]*string{
		FlagSolutionFile:   &c.SolutionFile,
		FlagVSVersion:      &c.VisualStudioVersion,
		FlagDevEnv:         &c.DevEnv,
		FlagLoader:         &c.Loader,
		FlagStatsFile:      &c.StatsFile,
		FlagFilterSolution: &c.FilterSolution,
		FlagVerbosity:      &c.Verbosity,
		FlagTraceExporter:  &c.TraceExporter,
		FlagOTLPEndpoint:   &c.OTLPEndpoint,
		FlagMetricsFile:    &c.MetricsFile,
	}
	for name, target := range stringFlags {
		if changed(name) {
			*target, err = flags.GetString(name)
		}
	}

	intFlags := map[string]*int{
		FlagMaxParallelism: &c.MaxParallelism,
		FlagCacheSize:      &c.CacheSize,
	}
	for name, target := range intFlags {
		if changed(name) {
			*target, err = flags.GetInt(name)
		}
	}

	listFlags := map[string]*[]string{
		FlagSolutionItem:  &c.SolutionItems,
		FlagConfiguration: &c.Configurations,
		FlagPlatform:      &c.Platforms,
	}
	for name, target := range listFlags {
		if !changed(name) {
			continue
		}
		var values []string
		if values, err = flags.GetStringArray(name); err == nil {
			*target = nil
			for _, v := range values {
				*target = append(*target, msbuild.SplitList(v)...)
			}
		}
	}
	if err != nil {
		return err
	}

	if changed(FlagProperty) {
		if c.Properties, err = mergePairs(flags, FlagProperty, c.Properties); err != nil {
			return err
		}
	}
	if changed(FlagProjectTypeGUID) {
		if c.ProjectTypeGUIDs, err = mergePairs(flags, FlagProjectTypeGUID, c.ProjectTypeGUIDs); err != nil {
			return err
		}
	}
	return nil
}

// mergePairs adds the key=value entries of a repeatable flag to m.
func mergePairs(flags *pflag.FlagSet, name string, m map[string]string) (map[string]string, error) {
	values, err := flags.GetStringArray(name)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]string, len(values))
	}
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --%s value %q (expected key=value)", name, v)
		}
		m[key] = strings.TrimSpace(value)
	}
	return m, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := loader.ParseMode(c.Loader); err != nil {
		return err
	}
	if _, err := output.ParseVerbosity(c.Verbosity); err != nil {
		return err
	}
	switch c.TraceExporter {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("invalid trace exporter %q (expected none, stdout or otlp)", c.TraceExporter)
	}
	if c.MaxParallelism < 0 {
		return fmt.Errorf("max parallelism must not be negative: %d", c.MaxParallelism)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative: %d", c.CacheSize)
	}
	for ext, guid := range c.ProjectTypeGUIDs {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("project type extension %q must start with '.'", ext)
		}
		if _, ok := solution.FormatGUID(guid); !ok {
			return fmt.Errorf("project type GUID %q for %s is not a valid GUID", guid, ext)
		}
	}
	if _, err := solution.NormalizeProjectTypeGUIDs(c.ProjectTypeGUIDs); err != nil {
		return err
	}
	if c.FilterSolution != "" && c.SolutionFile != "" {
		return fmt.Errorf("--%s and --%s cannot be combined", FlagFilterSolution, FlagSolutionFile)
	}
	return nil
}

// GeneratorOptions converts the settings into generator options.
func (c *Config) GeneratorOptions() *generator.Options {
	return &generator.Options{
		Launch:              c.Launch,
		Folders:             c.Folders,
		CollapseFolders:     c.CollapseFolders,
		SolutionFile:        c.SolutionFile,
		SolutionItems:       c.SolutionItems,
		Properties:          c.Properties,
		Configurations:      c.Configurations,
		Platforms:           c.Platforms,
		VisualStudioVersion: c.VisualStudioVersion,
		DevEnvFullPath:      c.DevEnv,
		UseShellExecute:     c.UseShellExecute,
		Loader:              c.Loader,
		MaxParallelism:      c.MaxParallelism,
		CollectStats:        c.CollectStats,
		StatsFile:           c.StatsFile,
		IgnoreMainProject:   c.IgnoreMainProject,
		ProjectTypeGUIDs:    c.ProjectTypeGUIDs,
		FilterSolution:      c.FilterSolution,
		CacheSize:           c.CacheSize,
		Verbosity:           c.Verbosity,
	}
}
