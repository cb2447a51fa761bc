package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command. With no subcommand it drops
// into the interactive REPL; `shellkit run <script>` and
// `shellkit serve` are the scripted entry points.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shellkit",
		Short: "A Bourne-lite shell kernel for orchestrating tools",
		Long: color.CyanString(`shellkit - a small shell kernel for tool orchestration

shellkit interprets a restricted, Bourne-lite script language whose
commands dispatch to builtin, user-defined, and remote (MCP) tools
instead of host executables.

Features:
  • Pipelines, jobs, and bounded-concurrency scatter/gather
  • A mountable virtual filesystem (memory, local, Redis-backed cache)
  • Session state persisted across restarts
  • An interactive REPL and a stdio/HTTP RPC server mode`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRepl,
	}

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewServeCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the shellkit version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Print("shellkit version: ")
			valueColor.Println(Version)

			titleColor.Print("Git commit: ")
			valueColor.Println(GitCommit)

			titleColor.Print("Build date: ")
			valueColor.Println(BuildDate)

			titleColor.Print("Go version: ")
			valueColor.Println(goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
