// Package cli provides the command-line interface for LeapSim.
package cli

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/leapsim/internal/cli/commands"
	"github.com/leapstack-labs/leapsim/internal/cli/config"
	scenario "github.com/leapstack-labs/leapsim/internal/config"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// skipScenario lists commands that run without a scenario.
var skipScenario = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leapsim",
		Short: "LeapSim - Lazy Simulation Orchestrator",
		Long: `LeapSim runs year-by-year simulations over lazily evaluated tables.

Tables, columns, injectables, broadcasts and models are registered from
Starlark scripts and a leapsim.yaml scenario. Models run in order for each
year; every value they ask for is computed on demand from its dependencies.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipScenario[cmd.Name()] {
				return nil
			}

			sc, err := scenario.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger, err := config.NewLogger(cmd.ErrOrStderr(), sc.LogLevel, sc.LogFormat)
			if err != nil {
				return err
			}
			if sc.File != "" {
				logger.Debug("using scenario file", "path", sc.File)
			}

			ctx := config.WithScenario(cmd.Context(), sc)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "scenario", "c", "", "scenario file (default: ./leapsim.yaml)")
	pf.String("scripts", "", "Path to scripts directory")
	pf.String("state", "", "Path to run history database")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (text|json)")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	pf.IntSlice("years", nil, "Years to run, overriding the scenario")
	pf.StringSlice("models", nil, "Models to run, overriding the scenario")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewMergeCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for LeapSim.

To load completions:

Bash:
  $ source <(leapsim completion bash)

Zsh:
  $ leapsim completion zsh > "${fpath[1]}/_leapsim"

Fish:
  $ leapsim completion fish | source

PowerShell:
  PS> leapsim completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
