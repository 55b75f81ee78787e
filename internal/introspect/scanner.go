package introspect

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/config"
)

// Scanner walks a repository and builds per-file metrics plus an inter-file
// dependency graph. Scans are read-only with respect to the filesystem and
// deterministic modulo filesystem state.
type Scanner struct {
	root   string
	cfg    config.IntrospectConfig
	logger *zap.Logger
}

// NewScanner creates a Scanner rooted at the given directory.
func NewScanner(root string, cfg config.IntrospectConfig, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{root: root, cfg: cfg, logger: logger}
}

// Scan walks the repository and returns a freshly built RepositoryStructure.
// Nothing is cached between scans.
func (s *Scanner) Scan(ctx context.Context) (*RepositoryStructure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sources, err := walkSources(s.root, s.cfg.Include, s.cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}

	structure := &RepositoryStructure{
		Root:            s.root,
		Files:           make(map[string]*FileMetrics, len(sources)),
		LinesByLanguage: make(map[string]int),
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := parseFile(src.relPath, src.language, src.content)
		structure.Files[m.Path] = m
		structure.TotalLines += m.Lines
		structure.LinesByLanguage[m.Language] += m.Lines
	}

	structure.Dependencies = resolveDependencies(structure.Files, readModulePath(s.root))

	s.logger.Debug("repository scan complete",
		zap.Int("files", len(structure.Files)),
		zap.Int("total_lines", structure.TotalLines))

	return structure, nil
}

// candidate pairs an opportunity with the metric value that triggered it,
// used only for ordering.
type candidate struct {
	opp    Opportunity
	metric int
}

// FindOpportunities applies pure heuristics to the scanned structure. No
// prediction happens here; the ranker layers history on top.
func (s *Scanner) FindOpportunities(structure *RepositoryStructure) []Opportunity {
	var found []candidate

	paths := make([]string, 0, len(structure.Files))
	for p := range structure.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		m := structure.Files[path]
		if isTestFile(filepath.Base(path), path) {
			continue
		}

		if m.Lines >= s.cfg.LargeFileLines {
			sev := SeverityMedium
			if m.Lines >= 2*s.cfg.LargeFileLines {
				sev = SeverityHigh
			}
			found = append(found, candidate{
				opp: Opportunity{
					Type:     OpSplitLargeFile,
					File:     path,
					Severity: sev,
					Message:  fmt.Sprintf("%s has %d lines (threshold %d); consider splitting it into smaller modules", path, m.Lines, s.cfg.LargeFileLines),
					Metadata: map[string]string{"lines": fmt.Sprint(m.Lines)},
				},
				metric: m.Lines,
			})
		}

		if m.Complexity >= s.cfg.ComplexityLimit {
			sev := SeverityMedium
			if m.Complexity >= 2*s.cfg.ComplexityLimit {
				sev = SeverityHigh
			}
			found = append(found, candidate{
				opp: Opportunity{
					Type:     OpRefactorComplexity,
					File:     path,
					Severity: sev,
					Message:  fmt.Sprintf("%s has complexity %d (threshold %d); extract functions to reduce it", path, m.Complexity, s.cfg.ComplexityLimit),
					Metadata: map[string]string{"complexity": fmt.Sprint(m.Complexity)},
				},
				metric: m.Complexity,
			})
		}

		if fanOut := len(m.Dependencies); fanOut >= s.cfg.CouplingLimit {
			found = append(found, candidate{
				opp: Opportunity{
					Type:     OpReduceCoupling,
					File:     path,
					Severity: SeverityMedium,
					Message:  fmt.Sprintf("%s depends on %d other files (threshold %d); reduce coupling", path, fanOut, s.cfg.CouplingLimit),
					Metadata: map[string]string{"fan_out": fmt.Sprint(fanOut)},
				},
				metric: fanOut,
			})
		}

		if len(m.Functions) >= s.cfg.MinFuncsForDocs && m.DocComments*2 < len(m.Functions) {
			found = append(found, candidate{
				opp: Opportunity{
					Type:     OpAddDocumentation,
					File:     path,
					Severity: SeverityLow,
					Message:  fmt.Sprintf("%s declares %d functions but only %d documented; add documentation", path, len(m.Functions), m.DocComments),
					Metadata: map[string]string{"functions": fmt.Sprint(len(m.Functions))},
				},
				metric: len(m.Functions) - m.DocComments,
			})
		}

		if len(m.Imports) >= 15 {
			found = append(found, candidate{
				opp: Opportunity{
					Type:     OpOptimizeImports,
					File:     path,
					Severity: SeverityLow,
					Message:  fmt.Sprintf("%s has %d imports; prune and reorder them", path, len(m.Imports)),
					Metadata: map[string]string{"imports": fmt.Sprint(len(m.Imports))},
				},
				metric: len(m.Imports),
			})
		}

		if len(m.Functions) >= s.cfg.MinFuncsForDocs && !hasTestSibling(structure, path) {
			found = append(found, candidate{
				opp: Opportunity{
					Type:     OpAddTests,
					File:     path,
					Severity: SeverityMedium,
					Message:  fmt.Sprintf("%s declares %d functions with no accompanying test file", path, len(m.Functions)),
					Metadata: map[string]string{"functions": fmt.Sprint(len(m.Functions))},
				},
				metric: len(m.Functions),
			})
		}
	}

	// Order by severity, then by the metric that triggered the flag.
	sort.SliceStable(found, func(i, j int) bool {
		si, sj := severityRank(found[i].opp.Severity), severityRank(found[j].opp.Severity)
		if si != sj {
			return si > sj
		}
		return found[i].metric > found[j].metric
	})

	limit := s.cfg.MaxOpportunities
	if limit <= 0 {
		limit = 20
	}
	if len(found) > limit {
		found = found[:limit]
	}

	opps := make([]Opportunity, len(found))
	for i, c := range found {
		opps[i] = c.opp
	}
	return opps
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// hasTestSibling reports whether any test file in the repo plausibly covers
// the given file (same directory, test naming convention).
func hasTestSibling(structure *RepositoryStructure, path string) bool {
	dir := filepath.ToSlash(filepath.Dir(path))
	for other := range structure.Files {
		if filepath.ToSlash(filepath.Dir(other)) != dir {
			continue
		}
		if other != path && isTestFile(filepath.Base(other), other) {
			return true
		}
	}
	return false
}
