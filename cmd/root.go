package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "autoimprove",
	Short: "Autonomous AI-driven code improvement engine",
	Long: `Auto Improve scans a repository for improvement opportunities, predicts
which ones are likely to succeed from past outcomes, routes generated
changes through a three-reviewer council plus an architect, and applies
approved changes one file at a time with sandboxed validation and
automatic rollback.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".autoimprove.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
