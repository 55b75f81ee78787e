package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-improve/internal/config"
	"github.com/ziadkadry99/auto-improve/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an improvement session in the foreground",
	Long:  `Starts one improvement session and blocks until it finishes. Ctrl-C requests a graceful stop; the current iteration completes before the session ends.`,
	RunE:  runSession,
}

func init() {
	runCmd.Flags().String("mode", "", "operating mode: conservative, balanced, aggressive, exploratory (overrides config)")
	runCmd.Flags().Int("iterations", 0, "maximum iterations (overrides config)")
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.Mode = config.Mode(mode)
		if !cfg.Mode.Valid() {
			return fmt.Errorf("invalid mode %q", mode)
		}
	}
	if n, _ := cmd.Flags().GetInt("iterations"); n > 0 {
		cfg.MaxIterations = n
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	manager, _, err := buildEngine(context.Background(), cfg, nil, logger)
	if err != nil {
		return err
	}

	summary, err := manager.StartSession(cfg.Mode, cfg.MaxIterations, "")
	if err != nil {
		return err
	}
	fmt.Printf("Session %s started (mode=%s, max %d iterations)\n", summary.ID, cfg.Mode, cfg.MaxIterations)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	bar := progressbar.NewOptions(cfg.MaxIterations,
		progressbar.OptionSetDescription("improving"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nStop requested, finishing current iteration...")
			manager.StopSession(summary.ID)
		case <-ticker.C:
		}

		current, _ := manager.GetSession(summary.ID)
		_ = bar.Set(current.CurrentIteration)
		switch current.State {
		case session.StateStopped, session.StateCompleted, session.StateFailed:
			_ = bar.Finish()
			return printFinal(manager, current)
		}
	}
}

func printFinal(manager *session.Manager, summary session.Summary) error {
	fmt.Printf("\nSession %s %s: %d iterations, %d applied, %d failed\n",
		summary.ID, summary.State, summary.CurrentIteration, summary.SuccessCount, summary.FailureCount)

	improvements, _ := manager.Improvements(summary.ID)
	for _, imp := range improvements {
		fmt.Printf("  [%d] %s %s\n", imp.Iteration, imp.Type, imp.File)
	}

	if summary.State == session.StateFailed {
		return fmt.Errorf("session failed: %s", summary.Error)
	}
	return nil
}
