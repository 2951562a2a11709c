package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartsaver/smartsaver/internal/app/ledger"
	"github.com/smartsaver/smartsaver/internal/daemon"
	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Ledger Commands ────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(incomeCmd)
	rootCmd.AddCommand(spendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(badgesCmd)

	spendCmd.Flags().BoolP("yes", "y", false, "Confirm spending above the limit")
	historyCmd.Flags().String("filter", "ALL", "ALL, TRANSFERS or a transaction type")
	historyCmd.Flags().String("sort", "DATE_DESC", "DATE_DESC, DATE_ASC, AMOUNT_DESC or AMOUNT_ASC")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum rows (0 = all)")
}

// ─── status ─────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show balances, goals and streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			st, err := d.Service.State(cmd.Context())
			if err != nil {
				return err
			}
			cur := d.Config.Display.Currency
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "%s\n", st.AppName)
			printKV(w, "Total assets", formatMoney(st.TotalAssets, cur))
			printKV(w, "Wallet", formatMoney(st.WalletBalance, cur))
			printKV(w, "In goals", formatMoney(st.GoalsTotal(), cur))
			printKV(w, "Week", st.WeekCount)
			printKV(w, "Interest rate", formatRate(ledger.Rate(st.Config, st.TotalAssets)))
			printKV(w, "No-spend streak", fmt.Sprintf("%d week(s)", st.ConsecutiveWeeksNoSpend))
			if st.SpendingLimit.IsPositive() {
				printKV(w, "Spending limit", formatMoney(st.SpendingLimit, cur))
			}
			printKV(w, "Badges", fmt.Sprintf("%d/%d", len(st.Badges), len(domain.Badges)))
			printKV(w, "Data file", d.DB.Path())
			if st.StreakClose() && !st.HasSpentThisWeek {
				fmt.Fprintf(w, "\nOne more week without spending earns a %s bonus!\n", formatMoney(ledger.StreakBonus, cur))
			}
			if len(st.Goals) > 0 {
				fmt.Fprintln(w, "\nGoals:")
				printGoals(w, st.Goals, cur)
			}
			return nil
		})
	},
}

// ─── preview ────────────────────────────────────────────────────────────────

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what the next settlement would pay",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			b, err := d.Service.Preview(cmd.Context())
			if err != nil {
				return err
			}
			printBreakdown(cmd, b, d.Config.Display.Currency)
			return nil
		})
	},
}

func printBreakdown(cmd *cobra.Command, b ledger.Breakdown, cur string) {
	w := cmd.OutOrStdout()
	printKV(w, "Allowance", formatMoney(b.Allowance, cur))
	printKV(w, "Interest", fmt.Sprintf("%s (%s)", formatMoney(b.Interest, cur), formatRate(b.Rate)))
	printKV(w, "Streak bonus", formatMoney(b.Bonus, cur))
	printKV(w, "Total payout", formatMoney(b.Total, cur))
	printKV(w, "Assets", fmt.Sprintf("%s -> %s", formatMoney(b.PrevTotal, cur), formatMoney(b.NewTotal, cur)))
}

// ─── settle ─────────────────────────────────────────────────────────────────

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Apply the weekly settlement if it is due today",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			b, err := d.Service.CheckSettlement(cmd.Context())
			if err != nil {
				return err
			}
			if b == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No settlement due today.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Weekly settlement applied:")
			printBreakdown(cmd, *b, d.Config.Display.Currency)
			return nil
		})
	},
}

// ─── income / spend ─────────────────────────────────────────────────────────

var incomeCmd = &cobra.Command{
	Use:   "income AMOUNT REASON...",
	Short: "Record extra income",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			if err := d.Service.RecordIncome(cmd.Context(), amount, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			return printBalance(cmd, d)
		})
	},
}

var spendCmd = &cobra.Command{
	Use:   "spend AMOUNT REASON...",
	Short: "Record spending from the wallet",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			err := d.Service.RecordExpense(cmd.Context(), amount, strings.Join(args[1:], " "), yes)
			if errors.Is(err, domain.ErrConfirmationRequired) {
				return fmt.Errorf("%w\nRe-run with --yes to confirm", err)
			}
			if err != nil {
				return err
			}
			return printBalance(cmd, d)
		})
	},
}

func printBalance(cmd *cobra.Command, d *daemon.Daemon) error {
	st, err := d.Service.State(cmd.Context())
	if err != nil {
		return err
	}
	cur := d.Config.Display.Currency
	fmt.Fprintf(cmd.OutOrStdout(), "Wallet %s, total %s\n",
		formatMoney(st.WalletBalance, cur), formatMoney(st.TotalAssets, cur))
	return nil
}

// ─── history ────────────────────────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, _ := cmd.Flags().GetString("filter")
		ss, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")

		f, err := ledger.ParseFilter(fs)
		if err != nil {
			return err
		}
		o, err := ledger.ParseSortOrder(ss)
		if err != nil {
			return err
		}
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			txs, err := d.Service.History(cmd.Context(), f, o)
			if err != nil {
				return err
			}
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}
			w := cmd.OutOrStdout()
			if len(txs) == 0 {
				fmt.Fprintln(w, "No transactions.")
				return nil
			}
			cur := d.Config.Display.Currency
			for _, tx := range txs {
				fmt.Fprintf(w, "%s  %-12s %14s  %14s  %s\n",
					tx.Timestamp.Local().Format("2006-01-02 15:04"), tx.Kind,
					formatSigned(tx.Amount, cur), formatMoney(tx.BalanceSnapshot, cur), tx.Description)
			}
			return nil
		})
	},
}

// ─── badges ─────────────────────────────────────────────────────────────────

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "List achievement badges",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(cmd, func(d *daemon.Daemon) error {
			st, err := d.Service.State(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, b := range domain.Badges {
				mark := "  "
				if st.HasBadge(b.ID) {
					mark = "✓ "
				}
				fmt.Fprintf(w, "%s%s %s  %s\n", mark, b.Icon, b.Name, b.Description)
			}
			fmt.Fprintf(w, "\n%d of %d unlocked\n", len(st.Badges), len(domain.Badges))
			return nil
		})
	},
}
