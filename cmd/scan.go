package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-improve/internal/introspect"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the repository and list improvement opportunities",
	Long:  `Runs introspection only: scans the repository, prints summary metrics, and lists the heuristic improvement opportunities without contacting any LLM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		scanner := introspect.NewScanner(cfg.RepoRoot, cfg.Introspect, logger)
		structure, err := scanner.Scan(context.Background())
		if err != nil {
			return fmt.Errorf("scanning repository: %w", err)
		}

		fmt.Printf("Scanned %d files, %d lines total\n", len(structure.Files), structure.TotalLines)
		for lang, lines := range structure.LinesByLanguage {
			fmt.Printf("  %-12s %d lines\n", lang, lines)
		}

		opportunities := scanner.FindOpportunities(structure)
		if len(opportunities) == 0 {
			fmt.Println("\nNo improvement opportunities found.")
			return nil
		}

		fmt.Printf("\n%d improvement opportunities:\n", len(opportunities))
		for _, opp := range opportunities {
			fmt.Printf("  [%-6s] %-20s %s — %s\n", opp.Severity, opp.Type, opp.File, opp.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
