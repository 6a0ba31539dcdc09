package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("slngen", pflag.ContinueOnError)
	flags.Bool(FlagFolders, false, "")
	flags.Bool(FlagLaunch, true, "")
	flags.String(FlagLoader, "auto", "")
	flags.String(FlagVerbosity, "normal", "")
	flags.Int(FlagMaxParallelism, 0, "")
	flags.StringArray(FlagConfiguration, nil, "")
	flags.StringArray(FlagProperty, nil, "")
	flags.StringArray(FlagProjectTypeGUID, nil, "")
	return flags
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "auto", cfg.Loader)
	assert.Equal(t, "normal", cfg.Verbosity)
	assert.Equal(t, "none", cfg.TraceExporter)
	assert.False(t, cfg.Folders)
	require.NoError(t, cfg.Validate())
}

func TestFind_WalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "folders = true\n")
	nested := filepath.Join(root, "src", "App")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, path, Find(nested))
	assert.Equal(t, path, Find(root))
}

func TestFind_NearestWins(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "folders = true\n")
	inner := writeConfig(t, filepath.Join(root, "src"), "folders = false\n")

	assert.Equal(t, inner, Find(filepath.Join(root, "src")))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `folders = true
collapse_folders = true
solution_file = "out/All.sln"
solution_items = ["README.md", "/abs/build.props"]
configurations = ["Debug", "Release", "Checked"]
platforms = ["x64"]
vs_version = "17.0.31903.59"
loader = "graph"
max_parallelism = 4

[properties]
Flavor = "Blue"

[project_type_guids]
".myproj" = "{9A19103F-16F7-4668-BE54-9A1E7A4F7556}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.True(t, cfg.Folders)
	assert.True(t, cfg.CollapseFolders)
	assert.Equal(t, filepath.Join(dir, "out", "All.sln"), cfg.SolutionFile)
	assert.Equal(t, []string{filepath.Join(dir, "README.md"), "/abs/build.props"}, cfg.SolutionItems)
	assert.Equal(t, []string{"Debug", "Release", "Checked"}, cfg.Configurations)
	assert.Equal(t, []string{"x64"}, cfg.Platforms)
	assert.Equal(t, "17.0.31903.59", cfg.VisualStudioVersion)
	assert.Equal(t, "graph", cfg.Loader)
	assert.Equal(t, 4, cfg.MaxParallelism)
	assert.Equal(t, map[string]string{"Flavor": "Blue"}, cfg.Properties)
	assert.Equal(t, "normal", cfg.Verbosity, "unset keys keep their defaults")
	require.NoError(t, cfg.Validate())
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "folder = true\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown setting")
	assert.Contains(t, err.Error(), "folder")
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "folders = \n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoadFrom_NoFile(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	cfg := Defaults()
	cfg.Folders = true
	cfg.Launch = false
	cfg.Loader = "graph"

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--max-parallelism", "2"}))
	require.NoError(t, cfg.ApplyFlags(flags))

	assert.True(t, cfg.Folders, "unset flag keeps file value")
	assert.False(t, cfg.Launch, "flag default does not override file value")
	assert.Equal(t, "graph", cfg.Loader)
	assert.Equal(t, 2, cfg.MaxParallelism)
}

func TestApplyFlags_ExplicitValuesWin(t *testing.T) {
	cfg := Defaults()
	cfg.Folders = true
	cfg.Configurations = []string{"Checked"}
	cfg.Properties = map[string]string{"Flavor": "Blue", "Keep": "1"}

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{
		"--folders=false",
		"--loader", "recursive",
		"--configuration", "Debug;Release",
		"--configuration", "Profile",
		"--property", "Flavor=Red",
		"--property", "Extra=a=b",
		"--project-type-guid", ".myproj={9A19103F-16F7-4668-BE54-9A1E7A4F7556}",
	}))
	require.NoError(t, cfg.ApplyFlags(flags))

	assert.False(t, cfg.Folders)
	assert.Equal(t, "recursive", cfg.Loader)
	assert.Equal(t, []string{"Debug", "Release", "Profile"}, cfg.Configurations)
	assert.Equal(t, map[string]string{"Flavor": "Red", "Keep": "1", "Extra": "a=b"}, cfg.Properties)
	assert.Equal(t, map[string]string{".myproj": "{9A19103F-16F7-4668-BE54-9A1E7A4F7556}"}, cfg.ProjectTypeGUIDs)
}

func TestApplyFlags_InvalidPair(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--property", "NoEquals"}))

	err := Defaults().ApplyFlags(flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key=value")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"unknown loader", func(c *Config) { c.Loader = "fast" }, "unknown loader"},
		{"unknown verbosity", func(c *Config) { c.Verbosity = "loud" }, "invalid verbosity"},
		{"unknown exporter", func(c *Config) { c.TraceExporter = "jaeger" }, "invalid trace exporter"},
		{"negative parallelism", func(c *Config) { c.MaxParallelism = -1 }, "max parallelism"},
		{"negative cache size", func(c *Config) { c.CacheSize = -5 }, "cache size"},
		{"extension without dot", func(c *Config) { c.ProjectTypeGUIDs = map[string]string{"myproj": "{9A19103F-16F7-4668-BE54-9A1E7A4F7556}"} }, "must start with"},
		{"bad guid", func(c *Config) { c.ProjectTypeGUIDs = map[string]string{".myproj": "nope"} }, "not a valid GUID"},
		{"conflicting extensions", func(c *Config) {
			c.ProjectTypeGUIDs = map[string]string{
				".myproj": "{9A19103F-16F7-4668-BE54-9A1E7A4F7556}",
				".MYPROJ": "{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}",
			}
		}, "conflict"},
		{"filter with solution file", func(c *Config) { c.FilterSolution = "a.sln"; c.SolutionFile = "b.sln" }, "cannot be combined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGeneratorOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Folders = true
	cfg.DevEnv = `C:\VS\devenv.exe`
	cfg.Configurations = []string{"Release"}
	cfg.FilterSolution = "All.sln"

	opts := cfg.GeneratorOptions()
	assert.True(t, opts.Folders)
	assert.Equal(t, `C:\VS\devenv.exe`, opts.DevEnvFullPath)
	assert.Equal(t, []string{"Release"}, opts.Configurations)
	assert.Equal(t, "All.sln", opts.FilterSolution)
	assert.Equal(t, "auto", opts.Loader)
}
