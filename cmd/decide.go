package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/model"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Log a decision taken on an opportunity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		id, _ := cmd.Flags().GetString("id")
		typ, _ := cmd.Flags().GetString("type")
		source, _ := cmd.Flags().GetString("source")
		content, _ := cmd.Flags().GetString("content")
		score, _ := cmd.Flags().GetInt("score")
		sender, _ := cmd.Flags().GetString("sender")
		action, _ := cmd.Flags().GetString("action")
		maker, _ := cmd.Flags().GetString("maker")
		contextJSON, _ := cmd.Flags().GetString("context")

		d := model.Decision{
			DecisionID:      id,
			OpportunityType: model.OpportunityType(typ),
			Source:          model.Source(source),
			Content:         content,
			Score:           score,
			Sender:          sender,
			ActionTaken:     action,
			DecisionMaker:   maker,
		}
		if contextJSON != "" {
			if err := json.Unmarshal([]byte(contextJSON), &d.Context); err != nil {
				return eris.Wrap(err, "parse --context")
			}
		}

		logged, err := initLedger(st).LogDecision(ctx, d)
		if err != nil {
			return err
		}
		if !logged {
			fmt.Printf("Decision %s already exists; nothing logged.\n", d.DecisionID)
			return nil
		}
		fmt.Printf("Logged decision %s\n", d.DecisionID)
		return nil
	},
}

func init() {
	decideCmd.Flags().String("id", "", "decision ID (default: generated UUID)")
	decideCmd.Flags().String("type", "general", "opportunity type")
	decideCmd.Flags().String("source", "", "opportunity source (twitter, email, revenue_dashboard)")
	decideCmd.Flags().String("content", "", "opportunity content snapshot")
	decideCmd.Flags().Int("score", 0, "opportunity score at decision time")
	decideCmd.Flags().String("sender", "", "who the opportunity came from")
	decideCmd.Flags().String("action", "", "action taken (responded, ignored, deferred, ...)")
	decideCmd.Flags().String("maker", "", "decision maker (default: system)")
	decideCmd.Flags().String("context", "", "extra context as a JSON object")
	_ = decideCmd.MarkFlagRequired("action")
	rootCmd.AddCommand(decideCmd)
}
