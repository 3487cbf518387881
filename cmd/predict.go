package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/predict"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the outcome of a candidate opportunity from history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		typ, _ := cmd.Flags().GetString("type")
		source, _ := cmd.Flags().GetString("source")
		format, _ := cmd.Flags().GetString("format")

		pred, err := predict.NewEngine(st).Predict(ctx,
			model.OpportunityType(typ), model.Source(source))
		if err != nil {
			return err
		}

		if format == "json" {
			return printJSON(pred)
		}

		fmt.Fprintf(os.Stdout, "Predicted outcome: %s\n", pred.PredictedOutcome)
		if pred.PredictedOutcome != model.OutcomeUnknown {
			fmt.Fprintf(os.Stdout, "Conversion probability: %.1f%%\n", pred.ConversionProbability)
			fmt.Fprintf(os.Stdout, "Predicted revenue: $%.2f\n", pred.PredictedRevenue)
			fmt.Fprintf(os.Stdout, "Avg time to close: %.1f days\n", pred.AvgTimeToCloseDays)
			fmt.Fprintf(os.Stdout, "Confidence: %.0f%% (%d similar decisions)\n",
				pred.Confidence*100, pred.SimilarCount)
		}
		fmt.Fprintf(os.Stdout, "%s\n", pred.Reasoning)
		return nil
	},
}

func init() {
	predictCmd.Flags().String("type", "general", "opportunity type")
	predictCmd.Flags().String("source", "", "opportunity source")
	predictCmd.Flags().String("format", "table", "output format (table, json)")
	_ = predictCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(predictCmd)
}
