package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartsaver/smartsaver/internal/daemon"
	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Goal Commands ──────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(goalCmd)
	goalCmd.AddCommand(goalAddCmd)
	goalCmd.AddCommand(goalDepositCmd)
	goalCmd.AddCommand(goalDeleteCmd)
	goalCmd.AddCommand(goalListCmd)

	goalAddCmd.Flags().String("image", "", "Image URL for the goal")
	goalDeleteCmd.Flags().String("password", "", passwordUsage)
}

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage savings goals",
	Long:  fmt.Sprintf("Manage savings goals. Up to %d goals can be held at once.", domain.MaxGoals),
}

var goalAddCmd = &cobra.Command{
	Use:   "add TARGET NAME...",
	Short: "Create a savings goal",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		image, _ := cmd.Flags().GetString("image")
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			g, err := d.Service.CreateGoal(cmd.Context(), strings.Join(args[1:], " "), target, image)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Goal %q created (id %s)\n", g.Name, g.ID)
			return nil
		})
	},
}

var goalDepositCmd = &cobra.Command{
	Use:   "deposit ID AMOUNT",
	Short: "Move wallet money into a goal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			completed, err := d.Service.DepositToGoal(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			if completed {
				fmt.Fprintln(cmd.OutOrStdout(), "Goal reached! 🎉")
			}
			return printBalance(cmd, d)
		})
	},
}

var goalDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a goal and refund its savings to the wallet (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(d *daemon.Daemon) error {
			refund, err := d.Service.DeleteGoal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Goal deleted, %s refunded\n", formatMoney(refund, d.Config.Display.Currency))
			return nil
		})
	},
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List savings goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			st, err := d.Service.State(cmd.Context())
			if err != nil {
				return err
			}
			if len(st.Goals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No goals yet.")
				return nil
			}
			printGoals(cmd.OutOrStdout(), st.Goals, d.Config.Display.Currency)
			return nil
		})
	},
}

func printGoals(w io.Writer, goals []domain.SavingsGoal, cur string) {
	for _, g := range goals {
		done := ""
		if g.IsCompleted {
			done = " ✓"
		}
		fmt.Fprintf(w, "  %s %s %3.0f%%  %s / %s  %s%s\n",
			g.ID[:min(8, len(g.ID))], progressBar(g.ProgressPct(), 20), g.ProgressPct(),
			formatMoney(g.CurrentAmount, cur), formatMoney(g.TargetAmount, cur), g.Name, done)
	}
}
