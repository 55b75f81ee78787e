package review

import (
	"github.com/ziadkadry99/auto-improve/internal/introspect"
)

// Decision is a reviewer verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionRevise  Decision = "revise"
	DecisionReject  Decision = "reject"
)

// RiskLevel grades the blast radius a reviewer sees in a proposal.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// riskRank orders risk levels so the council can take a maximum.
func riskRank(r RiskLevel) int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// Proposal is a concrete generated change for one opportunity, pending
// review. Purely advisory until approved.
type Proposal struct {
	SessionID        string                  `json:"session_id"`
	Iteration        int                     `json:"iteration"`
	AffectedFiles    []string                `json:"affected_files"`
	Diff             string                  `json:"diff"`
	Summary          string                  `json:"summary"`
	Rationale        string                  `json:"rationale"`
	MetricsBefore    *introspect.FileMetrics `json:"metrics_before,omitempty"`
	PredictedSuccess float64                 `json:"predicted_success"`
}

// ReviewerDecision is one domain reviewer's structured verdict.
type ReviewerDecision struct {
	Reviewer        string    `json:"reviewer"`
	Decision        Decision  `json:"decision"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Confidence      float64   `json:"confidence"`
	Comments        string    `json:"comments"`
	Concerns        []string  `json:"concerns,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// CouncilDecision aggregates the three reviewer verdicts by voting. Any of
// the underlying decisions may be nil if that reviewer failed outright.
type CouncilDecision struct {
	Decision    Decision          `json:"decision"`
	OverallRisk RiskLevel         `json:"overall_risk"`
	Confidence  float64           `json:"confidence"`
	Votes       map[Decision]int  `json:"votes"`
	Security    *ReviewerDecision `json:"security,omitempty"`
	Performance *ReviewerDecision `json:"performance,omitempty"`
	Quality     *ReviewerDecision `json:"quality,omitempty"`
}

// Reviewers returns the available (non-nil) underlying decisions.
func (c *CouncilDecision) Reviewers() []*ReviewerDecision {
	var out []*ReviewerDecision
	for _, d := range []*ReviewerDecision{c.Security, c.Performance, c.Quality} {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// ArchitectDecision is the single authoritative verdict, informed by the
// council and by historical outcome statistics.
type ArchitectDecision struct {
	Decision        Decision  `json:"decision"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Confidence      float64   `json:"confidence"`
	Comments        string    `json:"comments"`
	RequiredChanges []string  `json:"required_changes,omitempty"`
}
