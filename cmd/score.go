package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/ingest"
	"github.com/sells-group/dealflow-cli/internal/predict"
	"github.com/sells-group/dealflow-cli/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score <report.json>",
	Short: "Re-rank a triage report using historical conversion data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out, _ := cmd.Flags().GetString("out")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read report %s", args[0])
		}
		var report ingest.Report
		if err := json.Unmarshal(data, &report); err != nil {
			return eris.Wrapf(err, "parse report %s", args[0])
		}

		hs, err := scorer.NewHistoryScorer(ctx, predict.NewHistorySource(st))
		if err != nil {
			return err
		}
		scored, err := hs.ScoreBatch(ctx, report.Opportunities)
		if err != nil {
			return err
		}

		if out != "" {
			buf, err := json.MarshalIndent(scored, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal scored report")
			}
			if err := os.WriteFile(out, buf, 0o644); err != nil {
				return eris.Wrapf(err, "write %s", out)
			}
		}

		fmt.Printf("Rescored %d opportunities (avg %.1f, predicted revenue $%.2f)\n",
			scored.TotalOpportunities, scored.AverageScore, scored.TotalPredictedRevenue)
		for _, s := range scored.Top {
			fmt.Printf("  [%d] %s/%s: %s\n",
				s.AdjustedScore, s.Source, s.Type, s.Recommendation)
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().String("out", "", "write the scored report to this path")
	rootCmd.AddCommand(scoreCmd)
}
