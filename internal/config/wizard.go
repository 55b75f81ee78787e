package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .autoimprove.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to auto-improve! Let's configure the engine.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.EmbeddingProvider = cfg.Provider
	if cfg.Provider == ProviderOllama {
		cfg.Model = "llama3"
		cfg.EmbeddingModel = "nomic-embed-text"
	}

	// 2. Operating mode.
	modePrompt := promptui.Select{
		Label: "Select operating mode",
		Items: []string{
			"conservative — only attempt changes with >=80% predicted success",
			"balanced     — >=60% predicted success",
			"aggressive   — >=40% predicted success",
			"exploratory  — attempt everything, learn fast",
		},
	}
	modeIdx, _, err := modePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("mode selection: %w", err)
	}
	modes := []Mode{ModeConservative, ModeBalanced, ModeAggressive, ModeExploratory}
	cfg.Mode = modes[modeIdx]

	// 3. Repository root.
	rootPrompt := promptui.Prompt{
		Label:   "Repository root to improve",
		Default: ".",
	}
	cfg.RepoRoot, err = rootPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("repo root: %w", err)
	}

	// 4. Iterations per session.
	iterPrompt := promptui.Prompt{
		Label:   "Max iterations per session",
		Default: "5",
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	iterStr, err := iterPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("max iterations: %w", err)
	}
	cfg.MaxIterations, _ = strconv.Atoi(iterStr)

	// 5. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Introspect.Exclude = append(cfg.Introspect.Exclude, splitAndTrim(excludeStr)...)
	}

	if err := cfg.Save(".autoimprove.yml"); err != nil {
		return nil, err
	}
	fmt.Println("\nSaved configuration to .autoimprove.yml")

	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
