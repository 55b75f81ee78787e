package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/ziadkadry99/auto-improve/cmd"
)

func main() {
	// Load .env if present; API keys may also come from the environment.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
