package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/model"
)

var conversionsCmd = &cobra.Command{
	Use:   "conversions",
	Short: "Show conversion rates by source and opportunity type",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		metrics, err := st.ListConversionMetrics(ctx)
		if err != nil {
			return err
		}

		if output != "" {
			return exportConversions(output, metrics)
		}
		if format == "json" {
			return printJSON(metrics)
		}
		formatConversions(os.Stdout, metrics)
		return nil
	},
}

func init() {
	conversionsCmd.Flags().String("format", "table", "output format (table, json)")
	conversionsCmd.Flags().String("output", "", "write results to an .xlsx file")
	rootCmd.AddCommand(conversionsCmd)
}

func formatConversions(out io.Writer, metrics []model.ConversionMetric) {
	if len(metrics) == 0 {
		fmt.Fprintln(out, "No outcomes recorded yet.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tTYPE\tDECISIONS\tCUSTOMERS\tRATE\tREVENUE\tAVG_HOURS")
	_, _ = fmt.Fprintln(w, "------\t----\t---------\t---------\t----\t-------\t---------")
	for _, m := range metrics {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f%%\t$%.2f\t%.1f\n",
			m.Source, m.OpportunityType, m.TotalDecisions, m.TotalCustomers,
			m.ConversionRate, m.TotalRevenue, m.AvgTimeToConversionHours)
	}
	_ = w.Flush()
}

func exportConversions(path string, metrics []model.ConversionMetric) error {
	header := []string{"Source", "Type", "Decisions", "Responses", "Customers", "Deals Closed", "Revenue", "Avg Hours", "Conversion Rate"}
	rows := make([][]any, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []any{
			string(m.Source), string(m.OpportunityType),
			m.TotalDecisions, m.TotalResponses, m.TotalCustomers, m.TotalDealsClosed,
			m.TotalRevenue, m.AvgTimeToConversionHours, m.ConversionRate,
		})
	}
	return writeXLSX(path, "Conversions", header, rows)
}
