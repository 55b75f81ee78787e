package config

// DefaultExcludes are glob patterns excluded from introspection by default.
var DefaultExcludes = []string{
	"vendor/**",
	"node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	"*.min.js",
	"*.min.css",
	"*.lock",
	"go.sum",
	"package-lock.json",
	"yarn.lock",
}

// DefaultCriticalFiles are path patterns the Architect never approves
// without very high confidence.
var DefaultCriticalFiles = []string{
	"**/auth/**",
	"**/secrets/**",
	"**/*credential*",
	"**/config/**",
	"main.go",
	"go.mod",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		Mode:              ModeBalanced,
		RepoRoot:          ".",
		DataDir:           ".autoimprove",
		MaxIterations:     5,
		RequestsPerMinute: 60,
		Introspect: IntrospectConfig{
			LargeFileLines:   400,
			ComplexityLimit:  50,
			CouplingLimit:    8,
			MinFuncsForDocs:  5,
			MaxOpportunities: 20,
			Include:          []string{"**"},
			Exclude:          DefaultExcludes,
		},
		Sandbox: SandboxConfig{
			TimeoutSeconds: 30,
			MemoryMB:       256,
			CPUSeconds:     10,
		},
		Review: ReviewConfig{
			MaxRevisions:  2,
			CriticalFiles: DefaultCriticalFiles,
		},
		ServerPort: 8710,
	}
}
