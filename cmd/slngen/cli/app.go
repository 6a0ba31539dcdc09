package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/microsoft/slngen-sub001/cmd/slngen/output"
)

var rootCmd = &cobra.Command{
	Use:   "slngen [project...]",
	Short: "Generate Visual Studio solutions from MSBuild projects",
	Long: `slngen loads one or more entry projects and every project they reference,
then writes a Visual Studio solution (.sln) containing them.

Without arguments, the single project file in the current directory is used.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
}

// Console is the global console for CLI commands
var Console *output.Console

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	Console = output.DefaultConsole()
}

// RootCommand returns the root command, which generates a solution when no
// subcommand is given
func RootCommand() *cobra.Command {
	return rootCmd
}

// SetupVersion configures version information after variables are set
func SetupVersion() {
	rootCmd.SetVersionTemplate(GetFullVersion() + "\n")
	rootCmd.Version = GetVersion()
}

// AddCommand adds a command to the root command
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
