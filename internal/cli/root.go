// Package cli implements the smartsaver command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartsaver/smartsaver/internal/daemon"
)

// Version is set at build time.
var Version = "0.1.0"

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "smartsaver",
	Short: "A child's savings ledger with weekly allowance and interest",
	Long: `SmartSaver keeps a child's wallet and savings goals, pays a weekly
allowance with interest and no-spend streak bonuses, and unlocks badges
along the way. Data lives in a local SQLite file under ~/.smartsaver.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "data directory (default $SMARTSAVER_HOME or ~/.smartsaver)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func home() string {
	if homeDir != "" {
		return homeDir
	}
	return daemon.Home()
}

// openDaemon loads config and opens the ledger. Callers must Close it.
func openDaemon(ctx context.Context) (*daemon.Daemon, error) {
	h := home()
	cfg, err := daemon.LoadConfig(h)
	if err != nil {
		return nil, err
	}
	return daemon.New(ctx, cfg, h)
}

// withDaemon runs fn against an opened daemon.
func withDaemon(cmd *cobra.Command, fn func(d *daemon.Daemon) error) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d)
}

// ─── version ────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "smartsaver %s\n", Version)
	},
}

// ─── init ───────────────────────────────────────────────────────────────────

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := daemon.WriteDefault(home())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config at %s\n", path)
		return nil
	},
}
