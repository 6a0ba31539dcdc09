package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/microsoft/slngen-sub001/cmd/slngen/cli"
	"github.com/microsoft/slngen-sub001/cmd/slngen/config"
	"github.com/microsoft/slngen-sub001/cmd/slngen/output"
	"github.com/microsoft/slngen-sub001/generator"
	"github.com/microsoft/slngen-sub001/observability"
)

// SetupGenerateCommand makes cmd generate a solution for its arguments.
// It is applied to the root command, so `slngen App.csproj` generates App.sln.
func SetupGenerateCommand(cmd *cobra.Command, console *output.Console) {
	cmd.Example = `  slngen
  slngen src/App/App.csproj
  slngen --folders --collapse-folders dirs.proj
  slngen -o all.sln --configuration Debug --platform x64 a.csproj b.csproj
  slngen --filter-solution All.sln src/App/App.csproj`

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, args, console)
	}

	flags := cmd.Flags()
	flags.Bool(config.FlagLaunch, false, "Open the solution in Visual Studio after generating it")
	flags.Bool(config.FlagFolders, false, "Nest projects in solution folders that follow the directory tree")
	flags.Bool(config.FlagCollapseFolders, false, "Merge folders that contain only a single folder (implies --folders)")
	flags.StringP(config.FlagSolutionFile, "o", "", "Solution file to write (default: <entry project name>.sln next to the first entry project)")
	flags.StringArray(config.FlagSolutionItem, nil, "File to list under Solution Items (repeatable)")
	flags.StringArrayP(config.FlagProperty, "p", nil, "Global property key=value applied to every project (repeatable)")
	flags.StringArray(config.FlagConfiguration, nil, "Solution configuration; replaces the configurations projects declare (repeatable)")
	flags.StringArray(config.FlagPlatform, nil, "Solution platform; replaces the platforms projects declare (repeatable)")
	flags.String(config.FlagVSVersion, "", "Visual Studio version written to the solution header, e.g. 17.0.31903.59")
	flags.String(config.FlagDevEnv, "", "Full path to devenv.exe used by --launch")
	flags.Bool(config.FlagUseShellExecute, false, "Open the solution with the registered file handler when devenv.exe is not found")
	flags.String(config.FlagLoader, "auto", "Project loader: auto, recursive or graph")
	flags.Int(config.FlagMaxParallelism, 0, "Maximum concurrent project evaluations (default: number of CPUs)")
	flags.Bool(config.FlagCollectStats, false, "Print per-project evaluation times")
	flags.String(config.FlagStatsFile, "", "Write per-project evaluation times as JSON to this file")
	flags.Bool(config.FlagIgnoreMainProject, false, "Treat entry projects like referenced projects")
	flags.StringArray(config.FlagProjectTypeGUID, nil, "Project type GUID for an extension, .ext=GUID (repeatable)")
	flags.String(config.FlagFilterSolution, "", "Write a solution filter (.slnf) for this existing solution instead of a new solution")
	flags.Int(config.FlagCacheSize, 0, "Number of parsed project and import files kept in memory")
	flags.StringP(config.FlagVerbosity, "v", "normal", "Verbosity level: q[uiet], m[inimal], n[ormal], d[etailed], or diag[nostic]")
	flags.String(config.FlagTraceExporter, "none", "Trace exporter: none, stdout or otlp")
	flags.String(config.FlagOTLPEndpoint, "localhost:4317", "OTLP collector endpoint used with --trace-exporter otlp")
	flags.String(config.FlagMetricsFile, "", "Write Prometheus metrics to this file after generating")
}

func runGenerate(cmd *cobra.Command, args []string, console *output.Console) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	searchDir := workingDir
	if len(args) > 0 {
		searchDir = filepath.Dir(args[0])
	}
	cfg, err := config.LoadFrom(searchDir)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	verbosity, _ := output.ParseVerbosity(cfg.Verbosity)
	console.SetVerbosity(verbosity)
	logger := observability.NewVerbosityLogger(cmd.ErrOrStderr(), cfg.Verbosity)
	if cfg.Path != "" {
		logger.Debug("Using settings from {ConfigPath}", cfg.Path)
	}

	tracerConfig := observability.DefaultTracerConfig()
	tracerConfig.ServiceVersion = cli.GetVersion()
	tracerConfig.ExporterType = cfg.TraceExporter
	tracerConfig.OTLPEndpoint = cfg.OTLPEndpoint
	tracerConfig.Writer = cmd.ErrOrStderr()
	tp, err := observability.SetupTracing(ctx, tracerConfig)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := observability.ShutdownTracing(context.Background(), tp); shutdownErr != nil {
			logger.Warn("Trace export failed: {Error}", shutdownErr)
		}
	}()

	buildLogger := observability.NewBuildLogger(logger)
	opts := cfg.GeneratorOptions()
	opts.WorkingDir = workingDir
	opts.Logger = logger
	opts.BuildLogger = buildLogger

	_, err = generator.Generate(ctx, args, opts, console)

	if cfg.MetricsFile != "" {
		if metricsErr := observability.WriteMetricsFile(cfg.MetricsFile); metricsErr != nil && err == nil {
			err = fmt.Errorf("write metrics file: %w", metricsErr)
		}
	}

	if errors.Is(err, generator.ErrLoggedErrors) {
		return fmt.Errorf("%d error(s) occurred while loading projects, no solution was generated", buildLogger.ErrorCount())
	}
	if err != nil {
		return err
	}
	if n := buildLogger.WarningCount(); n > 0 {
		console.Detail("%d warning(s)", n)
	}
	return nil
}
