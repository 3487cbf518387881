package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/model"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show one day of decision and outcome activity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		date, _ := cmd.Flags().GetString("date")
		format, _ := cmd.Flags().GetString("format")

		summary, err := initLedger(st).GetDailySummary(ctx, date)
		if err != nil {
			return err
		}

		if format == "json" {
			return printJSON(summary)
		}
		formatSummary(os.Stdout, summary)
		return nil
	},
}

func init() {
	summaryCmd.Flags().String("date", "", "day to summarize (YYYY-MM-DD, default today)")
	summaryCmd.Flags().String("format", "table", "output format (table, json)")
	rootCmd.AddCommand(summaryCmd)
}

// formatSummary writes a human-readable daily summary to out.
func formatSummary(out io.Writer, s *model.DailySummary) {
	fmt.Fprintf(out, "Daily Summary for %s\n\n", s.Date)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Decisions logged:\t%d\n", s.Decisions.Count)
	if len(s.Decisions.Types) > 0 {
		_, _ = fmt.Fprintf(w, "  Types:\t%s\n", strings.Join(s.Decisions.Types, ", "))
	}
	if len(s.Decisions.Sources) > 0 {
		_, _ = fmt.Fprintf(w, "  Sources:\t%s\n", strings.Join(s.Decisions.Sources, ", "))
	}
	_, _ = fmt.Fprintf(w, "Outcomes recorded:\t%d\n", s.Outcomes.Total)
	_, _ = fmt.Fprintf(w, "  Revenue:\t$%.2f\n", s.Outcomes.Revenue)
	_, _ = fmt.Fprintf(w, "  Customers:\t%d\n", s.Outcomes.Customers)
	_, _ = fmt.Fprintf(w, "  Deals closed:\t%d\n", s.Outcomes.DealsClosed)
	_ = w.Flush()

	if len(s.ConversionRates) > 0 {
		fmt.Fprintln(out, "\nTop conversion rates:")
		for _, m := range s.ConversionRates {
			fmt.Fprintf(out, "  %s/%s: %.1f%% (%d decisions)\n",
				m.Source, m.OpportunityType, m.ConversionRate, m.TotalDecisions)
		}
	}

	if len(s.Insights) > 0 {
		fmt.Fprintln(out, "\nInsights:")
		for _, ins := range s.Insights {
			fmt.Fprintf(out, "  [%.0f%%] %s\n", ins.Confidence*100, ins.Title)
		}
	}
}
