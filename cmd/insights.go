package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/insight"
	"github.com/sells-group/dealflow-cli/internal/model"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate insights from the decision ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		format, _ := cmd.Flags().GetString("format")

		insights, err := insight.NewGenerator(st).Generate(ctx)
		if err != nil {
			return err
		}

		if format == "json" {
			return printJSON(insights)
		}
		formatInsights(os.Stdout, insights)
		return nil
	},
}

func init() {
	insightsCmd.Flags().String("format", "table", "output format (table, json)")
	rootCmd.AddCommand(insightsCmd)
}

func formatInsights(out io.Writer, insights []model.Insight) {
	if len(insights) == 0 {
		fmt.Fprintln(out, "Not enough history to generate insights yet.")
		return
	}
	for _, ins := range insights {
		fmt.Fprintf(out, "[%s] %s\n", ins.Type, ins.Title)
		fmt.Fprintf(out, "  %s\n", ins.Description)
		fmt.Fprintf(out, "  confidence %.0f%%, %d data points\n\n",
			ins.Confidence*100, ins.DataPoints)
	}
}
