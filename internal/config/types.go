package config

// Mode controls the session-wide risk tolerance. It sets the minimum
// predicted success probability an opportunity needs before it is attempted.
type Mode string

const (
	ModeConservative Mode = "conservative"
	ModeBalanced     Mode = "balanced"
	ModeAggressive   Mode = "aggressive"
	ModeExploratory  Mode = "exploratory"
)

// Threshold returns the minimum predicted success probability for the mode.
// The boundary is inclusive: a prediction equal to the threshold passes.
func (m Mode) Threshold() float64 {
	switch m {
	case ModeConservative:
		return 0.80
	case ModeBalanced:
		return 0.60
	case ModeAggressive:
		return 0.40
	case ModeExploratory:
		return 0.0
	default:
		return 0.60
	}
}

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeConservative, ModeBalanced, ModeAggressive, ModeExploratory:
		return true
	}
	return false
}

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// IntrospectConfig holds the thresholds used when scanning the repository
// for improvement opportunities.
type IntrospectConfig struct {
	LargeFileLines   int      `yaml:"large_file_lines" koanf:"large_file_lines"`
	ComplexityLimit  int      `yaml:"complexity_limit" koanf:"complexity_limit"`
	CouplingLimit    int      `yaml:"coupling_limit" koanf:"coupling_limit"`
	MinFuncsForDocs  int      `yaml:"min_funcs_for_docs" koanf:"min_funcs_for_docs"`
	MaxOpportunities int      `yaml:"max_opportunities" koanf:"max_opportunities"`
	Include          []string `yaml:"include" koanf:"include"`
	Exclude          []string `yaml:"exclude" koanf:"exclude"`
}

// SandboxConfig holds the resource limits applied to sandboxed execution
// of modified files.
type SandboxConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	MemoryMB       int `yaml:"memory_mb" koanf:"memory_mb"`
	CPUSeconds     int `yaml:"cpu_seconds" koanf:"cpu_seconds"`
}

// ReviewConfig holds review-loop settings.
type ReviewConfig struct {
	MaxRevisions  int      `yaml:"max_revisions" koanf:"max_revisions"`
	CriticalFiles []string `yaml:"critical_files" koanf:"critical_files"`
}

// Config is the top-level engine configuration, corresponding to
// .autoimprove.yml.
type Config struct {
	Provider          ProviderType     `yaml:"provider" koanf:"provider"`
	Model             string           `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType     `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string           `yaml:"embedding_model" koanf:"embedding_model"`
	Mode              Mode             `yaml:"mode" koanf:"mode"`
	RepoRoot          string           `yaml:"repo_root" koanf:"repo_root"`
	DataDir           string           `yaml:"data_dir" koanf:"data_dir"`
	MaxIterations     int              `yaml:"max_iterations" koanf:"max_iterations"`
	RequestsPerMinute int              `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	Introspect        IntrospectConfig `yaml:"introspect" koanf:"introspect"`
	Sandbox           SandboxConfig    `yaml:"sandbox" koanf:"sandbox"`
	Review            ReviewConfig     `yaml:"review" koanf:"review"`
	ServerPort        int              `yaml:"server_port" koanf:"server_port"`
}
