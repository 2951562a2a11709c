package cli

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/smartsaver/smartsaver/internal/app/ledger"
	"github.com/smartsaver/smartsaver/internal/daemon"
	"github.com/smartsaver/smartsaver/internal/domain"
)

// ─── Admin Commands ─────────────────────────────────────────────────────────
// Every admin command needs the admin password, from --password or
// SMARTSAVER_ADMIN_PASSWORD.

// AdminPasswordEnv is read when --password is not given.
const AdminPasswordEnv = "SMARTSAVER_ADMIN_PASSWORD"

const passwordUsage = "admin password (default $" + AdminPasswordEnv + ")"

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminSetTotalCmd)
	adminCmd.AddCommand(adminSetLimitCmd)
	adminCmd.AddCommand(adminSettingsCmd)

	adminCmd.PersistentFlags().String("password", "", passwordUsage)

	f := adminSettingsCmd.Flags()
	f.String("app-name", "", "Application title")
	f.String("new-password", "", "New admin password")
	f.String("allowance", "", "Weekly allowance")
	f.String("mode", "", "Interest mode: FIXED or TIERED")
	f.String("fixed-rate", "", "Fixed weekly rate, e.g. 0.1")
	f.String("low-threshold", "", "Tiered: upper bound of the low bracket")
	f.String("high-threshold", "", "Tiered: upper bound of the middle bracket")
	f.String("low-rate", "", "Tiered: rate of the low bracket")
	f.String("mid-rate", "", "Tiered: rate of the middle bracket")
	f.String("high-rate", "", "Tiered: rate of the high bracket")
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Privileged ledger operations",
}

// withAdmin opens the daemon and checks the admin password first. cmd must
// carry a --password flag.
func withAdmin(cmd *cobra.Command, fn func(d *daemon.Daemon) error) error {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv(AdminPasswordEnv)
	}
	return withDaemon(cmd, func(d *daemon.Daemon) error {
		if err := d.Service.CheckAdmin(cmd.Context(), password); err != nil {
			return err
		}
		return fn(d)
	})
}

var adminSetTotalCmd = &cobra.Command{
	Use:   "set-total AMOUNT",
	Short: "Correct total assets; the wallet absorbs the difference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return withAdmin(cmd, func(d *daemon.Daemon) error {
			if err := d.Service.SetTotalAssets(cmd.Context(), amount); err != nil {
				return err
			}
			return printBalance(cmd, d)
		})
	},
}

var adminSetLimitCmd = &cobra.Command{
	Use:   "set-limit AMOUNT",
	Short: "Set the per-expense spending limit (0 = unlimited)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return withAdmin(cmd, func(d *daemon.Daemon) error {
			if err := d.Service.SetSpendingLimit(cmd.Context(), limit); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Spending limit set to %s\n", formatMoney(limit, d.Config.Display.Currency))
			return nil
		})
	},
}

var adminSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings",
	Long: `Without flags, prints the current settings. With flags, the changed
fields are merged into the current settings and saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(d *daemon.Daemon) error {
			set, err := d.Service.Settings(cmd.Context())
			if err != nil {
				return err
			}
			changed, err := applySettingsFlags(cmd, &set)
			if err != nil {
				return err
			}
			if changed {
				if err := d.Service.UpdateSettings(cmd.Context(), set); err != nil {
					return err
				}
				if set, err = d.Service.Settings(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings saved.")
			}
			printSettings(cmd, set, d.Config.Display.Currency)
			return nil
		})
	},
}

// applySettingsFlags merges explicitly set flags into set.
func applySettingsFlags(cmd *cobra.Command, set *ledger.Settings) (bool, error) {
	f := cmd.Flags()
	changed := false

	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
			changed = true
		}
	}
	dec := func(name string, dst *decimal.Decimal) error {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		d, err := parseAmount(v)
		if err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
		*dst = d
		changed = true
		return nil
	}

	str("app-name", &set.AppName)
	str("new-password", &set.AdminPassword)
	if f.Changed("mode") {
		v, _ := f.GetString("mode")
		mode, err := domain.ParseInterestMode(v)
		if err != nil {
			return false, fmt.Errorf("--mode %q: %w", v, err)
		}
		set.InterestMode = mode
		changed = true
	}
	for _, p := range []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"allowance", &set.WeeklyAllowance},
		{"fixed-rate", &set.FixedRate},
		{"low-threshold", &set.Tiered.LowThreshold},
		{"high-threshold", &set.Tiered.HighThreshold},
		{"low-rate", &set.Tiered.LowRate},
		{"mid-rate", &set.Tiered.MidRate},
		{"high-rate", &set.Tiered.HighRate},
	} {
		if err := dec(p.name, p.dst); err != nil {
			return false, err
		}
	}
	return changed, nil
}

func printSettings(cmd *cobra.Command, set ledger.Settings, cur string) {
	w := cmd.OutOrStdout()
	printKV(w, "App name", set.AppName)
	printKV(w, "Weekly allowance", formatMoney(set.WeeklyAllowance, cur))
	printKV(w, "Interest mode", set.InterestMode)
	printKV(w, "Fixed rate", formatRate(set.FixedRate))
	t := set.Tiered
	printKV(w, "Tiers", fmt.Sprintf("<=%s %s | <=%s %s | above %s",
		formatMoney(t.LowThreshold, cur), formatRate(t.LowRate),
		formatMoney(t.HighThreshold, cur), formatRate(t.MidRate),
		formatRate(t.HighRate)))
}
