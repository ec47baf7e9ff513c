package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	nikki "github.com/unowned-ai/nikki/pkg"
	pkgdb "github.com/unowned-ai/nikki/pkg/db"
)

var rootCmd = &cobra.Command{
	Use:               "nikki",
	Short:             "A local-first journal with fuzzy search, served over CLI, MCP and HTTP.",
	Version:           fmt.Sprintf("v%s", nikki.Version),
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for nikki.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.

Examples:

  Bash (current shell):
    $ source <(nikki completion bash)

  Zsh:
    $ nikki completion zsh > "${fpath[1]}/_nikki"

  Fish:
    $ nikki completion fish > ~/.config/fish/completions/nikki.fish

  PowerShell:
    PS> nikki completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	PersistentPreRunE:     func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the version number of nikki",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), nikki.Version)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the nikki database",
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Create the database or migrate it to the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, err := openHandle()
		if err != nil {
			return err
		}
		defer handle.Close()

		conn, err := handle.Open(cmd.Context())
		if err != nil {
			return err
		}
		version, err := pkgdb.GetSchemaVersion(conn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s is at schema version %d\n", handle.Path(), version)
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the database file and every entry in it",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to delete the database without --yes")
		}

		handle, err := openHandle()
		if err != nil {
			return err
		}
		if err := handle.Destroy(); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s removed\n", handle.Path())
		return nil
	},
}

func initCmd() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the database file (uses the configured or system-specific default if not provided)")
	rootCmd.PersistentFlags().BoolVar(&walMode, "wal", true, "Enable SQLite WAL (Write-Ahead Logging) mode")
	rootCmd.PersistentFlags().StringVar(&syncMode, "sync", "NORMAL", "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default: user config directory)")

	dbResetCmd.Flags().Bool("yes", false, "Confirm deletion of the database")
	dbCmd.AddCommand(dbUpgradeCmd, dbResetCmd)

	initEntriesCmd()
	initSearchCmd()
	initSummariesCmd()
	initServeCmd()
	rootCmd.AddCommand(completionCmd, versionCmd, dbCmd, entriesCmd, searchCmd, summariesCmd, mcpCmd, serveCmd)
}

func main() {
	initCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
