package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"budgetbuddy/internal/aggregation"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/notify"
	"budgetbuddy/internal/services"
)

func recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute category spend and evaluate notifications",
		Long: `Recompute derives every category's spend from the owner's transactions,
writes back the values that changed and runs the budget threshold rules.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := requireOwner()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Recompute(cmd.Context(), owner)
			if err != nil {
				return err
			}
			writeReport(cmd.OutOrStdout(), res.Report, res.Deliveries)
			return res.Report.Err()
		},
	}
}

func summaryCmd() *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the owner's budget summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := requireOwner()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.svc.Summary(cmd.Context(), owner.ID, recent)
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", core.DefaultRecentTransactions, "number of recent transactions to list")
	return cmd
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Create the preset categories for an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := requireOwner()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.svc.AddPresetCategories(cmd.Context(), owner)
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d categories\n", len(created))
			return err
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget every notification sent to an owner",
		Long: `Reset removes the owner's notification history so every threshold and
large transaction alert can fire again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := requireOwner()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.svc.ResetNotifications(cmd.Context(), owner.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d notification records\n", n)
			return nil
		},
	}
}

func purgeCmd() *cobra.Command {
	var retention time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge notification records older than the retention",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if retention <= 0 {
				retention = a.cfg.DedupRetention
			}
			janitor := services.NewDedupJanitor(a.backend.Dedup, services.DedupJanitorConfig{Retention: retention})
			n, err := janitor.PurgeOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d notification records older than %s\n", n, retention)
			return nil
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", 0, "override DEDUP_RETENTION")
	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the owner's summary to Google Sheets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := requireOwner()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ref, err := a.svc.Export(cmd.Context(), owner.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Exported to "+ref))
			return nil
		},
	}
}

func writeReport(out io.Writer, r aggregation.Report, deliveries []notify.Delivery) {
	fmt.Fprintf(out, "Updated %d, unchanged %d, failed %d\n", r.Updated, r.Unchanged, len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(out, "  %s\n", overStyle.Render(fmt.Sprintf("%s (%s): %v", f.Name, f.CategoryID, f.Err)))
	}
	for _, d := range deliveries {
		fmt.Fprintf(out, "Notification %s: %s\n", d.Message.Subject, subtleStyle.Render(string(d.Status)))
	}
}

func writeSummary(out io.Writer, s core.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Category"),
		headerStyle.Render("Budget"),
		headerStyle.Render("Spent"),
		headerStyle.Render("Remaining"),
		headerStyle.Render("Usage"))
	for _, u := range s.Categories {
		c := u.Category
		usage := fmt.Sprintf("%.1f%%", c.UsagePercent())
		if c.OverBudget() {
			usage = overStyle.Render(usage)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Budget, c.Spent, c.Remaining(), usage)
	}
	fmt.Fprintf(w, "Total\t%s\t%s\t%s\t\n", s.TotalBudget, s.TotalSpent, s.Remaining)
	fmt.Fprintf(w, "\nIncome\t%s\n", s.TotalIncome)
	fmt.Fprintf(w, "Expenses\t%s\n", s.TotalExpenses)
	fmt.Fprintf(w, "Balance\t%s\n", s.Balance)

	if len(s.Recent) > 0 {
		fmt.Fprintf(w, "\n%s\t%s\t%s\n",
			headerStyle.Render("Date"),
			headerStyle.Render("Name"),
			headerStyle.Render("Amount"))
		for _, t := range s.Recent {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Date, t.Name, t.Amount)
		}
	}
}
