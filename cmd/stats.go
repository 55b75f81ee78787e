package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-improve/internal/outcomes"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the engine has learned from past outcomes",
	Long:  `Reads the outcome log and prints overall success rates, the best performing improvement types, and the most common failure modes.`,
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

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return err
		}
		store, err := outcomes.NewStore(context.Background(), cfg.DataDir, embedder, logger)
		if err != nil {
			return fmt.Errorf("opening outcome store: %w", err)
		}

		overall := store.SuccessRate("")
		if overall.Total == 0 {
			fmt.Println("No outcomes recorded yet.")
			return nil
		}

		fmt.Printf("Outcomes: %d total, %d succeeded (%.0f%%)\n\n",
			overall.Total, overall.Success, overall.Rate*100)

		if best := store.BestPerformingTypes(); len(best) > 0 {
			fmt.Println("By improvement type:")
			for _, tp := range best {
				fmt.Printf("  %-22s %3d attempts, %.0f%% success\n", tp.Type, tp.Total, tp.Rate*100)
			}
		}

		if modes := store.CommonFailureModes(5); len(modes) > 0 {
			fmt.Println("\nMost common failures:")
			for _, m := range modes {
				fmt.Printf("  %3dx %s\n", m.Count, m.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
