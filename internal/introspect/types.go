package introspect

// FileMetrics is an immutable snapshot of one source file produced by a scan.
type FileMetrics struct {
	Path         string   `json:"path"` // slash-separated path relative to the repo root
	Language     string   `json:"language"`
	Lines        int      `json:"lines"`
	Imports      []string `json:"imports"`
	Types        []string `json:"types"`
	Functions    []string `json:"functions"`
	DocComments  int      `json:"doc_comments"`
	Complexity   int      `json:"complexity"`
	Dependencies []string `json:"dependencies"` // resolved in-repo file paths
}

// RepositoryStructure is the result of one full scan. It is rebuilt from
// scratch on every scan and owned by the caller that requested it.
type RepositoryStructure struct {
	Root            string                  `json:"root"`
	Files           map[string]*FileMetrics `json:"files"`
	Dependencies    map[string][]string     `json:"dependencies"` // path -> paths it depends on
	TotalLines      int                     `json:"total_lines"`
	LinesByLanguage map[string]int          `json:"lines_by_language"`
}

// OpportunityType classifies a candidate improvement.
type OpportunityType string

const (
	OpRefactorComplexity OpportunityType = "refactor_complexity"
	OpSplitLargeFile     OpportunityType = "split_large_file"
	OpReduceCoupling     OpportunityType = "reduce_coupling"
	OpAddDocumentation   OpportunityType = "add_documentation"
	OpOptimizeImports    OpportunityType = "optimize_imports"
	OpFixCodeSmell       OpportunityType = "fix_code_smell"
	OpAddTests           OpportunityType = "add_tests"
)

// Severity grades how urgent an opportunity is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Opportunity is a candidate code location/problem identified by heuristics,
// not yet reviewed or applied. Created fresh each iteration, never persisted.
type Opportunity struct {
	Type             OpportunityType   `json:"type"`
	File             string            `json:"file"`
	Severity         Severity          `json:"severity"`
	Message          string            `json:"message"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	PredictedSuccess float64           `json:"predicted_success"`
	SimilarOutcomes  int               `json:"similar_outcomes"`
}
