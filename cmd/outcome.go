package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/model"
)

var outcomeCmd = &cobra.Command{
	Use:   "outcome <decision-id>",
	Short: "Record an outcome for a logged decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		outcomeType, _ := cmd.Flags().GetString("type")
		status, _ := cmd.Flags().GetString("status")
		revenue, _ := cmd.Flags().GetFloat64("revenue")
		customer, _ := cmd.Flags().GetBool("customer-acquired")
		deal, _ := cmd.Flags().GetBool("deal-closed")
		response, _ := cmd.Flags().GetBool("response-received")
		notes, _ := cmd.Flags().GetString("notes")

		o := model.Outcome{
			DecisionID:       args[0],
			OutcomeType:      outcomeType,
			Status:           status,
			RevenueGenerated: revenue,
			CustomerAcquired: customer,
			DealClosed:       deal,
			ResponseReceived: response,
			Notes:            notes,
		}

		recorded, err := initLedger(st).RecordOutcome(ctx, o)
		if err != nil {
			return err
		}
		if !recorded {
			fmt.Printf("No decision %s found; outcome discarded.\n", args[0])
			return nil
		}
		fmt.Printf("Recorded %s outcome for decision %s\n", status, args[0])
		return nil
	},
}

func init() {
	outcomeCmd.Flags().String("type", "response", "outcome type (response, sale, meeting, ...)")
	outcomeCmd.Flags().String("status", "closed", "outcome status")
	outcomeCmd.Flags().Float64("revenue", 0, "revenue generated by this outcome")
	outcomeCmd.Flags().Bool("customer-acquired", false, "this outcome acquired a customer")
	outcomeCmd.Flags().Bool("deal-closed", false, "this outcome closed a deal")
	outcomeCmd.Flags().Bool("response-received", false, "a response was received")
	outcomeCmd.Flags().String("notes", "", "free-form notes")
	rootCmd.AddCommand(outcomeCmd)
}
