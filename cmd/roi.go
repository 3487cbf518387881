package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/model"
)

var roiCmd = &cobra.Command{
	Use:   "roi",
	Short: "Show revenue per decision by type and source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		rows, err := st.ROIByType(ctx)
		if err != nil {
			return err
		}

		if output != "" {
			return exportROI(output, rows)
		}
		if format == "json" {
			return printJSON(rows)
		}
		formatROI(os.Stdout, rows)
		return nil
	},
}

func init() {
	roiCmd.Flags().String("format", "table", "output format (table, json)")
	roiCmd.Flags().String("output", "", "write results to an .xlsx file")
	rootCmd.AddCommand(roiCmd)
}

func formatROI(out io.Writer, rows []model.ROIRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No revenue recorded yet.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tSOURCE\tDECISIONS\tREVENUE\tAVG/DECISION\tDEALS\tAVG_HOURS")
	_, _ = fmt.Fprintln(w, "----\t------\t---------\t-------\t------------\t-----\t---------")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t$%.2f\t$%.2f\t%d\t%.1f\n",
			r.OpportunityType, r.Source, r.DecisionsMade, r.TotalRevenue,
			r.AvgRevenuePerDecision, r.ClosedDeals, r.AvgTimeHours)
	}
	_ = w.Flush()
}

func exportROI(path string, rows []model.ROIRow) error {
	header := []string{"Type", "Source", "Decisions", "Total Revenue", "Avg Revenue/Decision", "Closed Deals", "Avg Hours"}
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{
			string(r.OpportunityType), string(r.Source),
			r.DecisionsMade, r.TotalRevenue, r.AvgRevenuePerDecision,
			r.ClosedDeals, r.AvgTimeHours,
		})
	}
	return writeXLSX(path, "ROI", header, data)
}
