package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealflow-cli/internal/ingest"
	"github.com/sells-group/dealflow-cli/internal/scorer"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Score and rank collector output files into a triage report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dir, _ := cmd.Flags().GetString("dir")
		out, _ := cmd.Flags().GetString("out")
		rulesFile, _ := cmd.Flags().GetString("rules")

		if dir == "" {
			dir = cfg.Ingest.DataDir
		}
		if out == "" {
			out = cfg.Ingest.ReportPath
		}
		if rulesFile == "" {
			rulesFile = cfg.Ingest.RulesFile
		}

		var rules *scorer.Rules
		if rulesFile != "" {
			r, err := scorer.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			rules = r
		}

		report, err := ingest.NewPipeline(scorer.NewEngine(rules)).Run(ctx, dir)
		if err != nil {
			return err
		}
		if err := ingest.WriteReport(report, out); err != nil {
			return err
		}

		fmt.Printf("Scored %d opportunities (%d high, %d medium, %d low)\n",
			report.Summary.Total, report.Summary.HighPriority,
			report.Summary.Medium, report.Summary.Low)
		fmt.Printf("Skipped %d duplicates, %d malformed, %d unreadable files\n",
			report.Skipped.Duplicates, report.Skipped.Malformed, report.Skipped.BadFiles)
		fmt.Printf("Report written to %s\n", out)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("dir", "", "directory of collector JSON files (default from config)")
	ingestCmd.Flags().String("out", "", "report output path (default from config)")
	ingestCmd.Flags().String("rules", "", "scoring rules YAML file (default: built-in rules)")
	rootCmd.AddCommand(ingestCmd)
}
