package review

import (
	"context"
	"errors"
	"testing"
)

// stubReviewer returns a canned decision or fails outright.
type stubReviewer struct {
	name     string
	decision *ReviewerDecision
	err      error
}

func (s *stubReviewer) Name() string { return s.name }

func (s *stubReviewer) ReviewProposal(_ context.Context, _ *Proposal) (*ReviewerDecision, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.decision, nil
}

func verdict(name string, d Decision, risk RiskLevel, confidence float64) *stubReviewer {
	return &stubReviewer{
		name: name,
		decision: &ReviewerDecision{
			Reviewer:   name,
			Decision:   d,
			RiskLevel:  risk,
			Confidence: confidence,
		},
	}
}

func failing(name string) *stubReviewer {
	return &stubReviewer{name: name, err: errors.New("reviewer unavailable")}
}

func testProposal() *Proposal {
	return &Proposal{
		SessionID:     "s1",
		Iteration:     1,
		AffectedFiles: []string{"a.go"},
		Diff:          "--- a/a.go\n+++ b/a.go\n",
		Summary:       "test change",
	}
}

func TestCouncilVoting(t *testing.T) {
	tests := []struct {
		name         string
		security     Reviewer
		performance  Reviewer
		quality      Reviewer
		wantDecision Decision
		wantRisk     RiskLevel
		wantConf     float64
	}{
		{
			name:         "reject wins over everything",
			security:     verdict("security", DecisionReject, RiskHigh, 0.9),
			performance:  verdict("performance", DecisionReject, RiskMedium, 0.8),
			quality:      verdict("quality", DecisionApprove, RiskLow, 0.7),
			wantDecision: DecisionReject,
			wantRisk:     RiskHigh,
			wantConf:     0.8,
		},
		{
			name:         "single revise forces revise",
			security:     verdict("security", DecisionApprove, RiskLow, 0.9),
			performance:  verdict("performance", DecisionRevise, RiskMedium, 0.6),
			quality:      verdict("quality", DecisionApprove, RiskLow, 0.9),
			wantDecision: DecisionRevise,
			wantRisk:     RiskMedium,
			wantConf:     0.8,
		},
		{
			name:         "unanimous approve",
			security:     verdict("security", DecisionApprove, RiskLow, 1.0),
			performance:  verdict("performance", DecisionApprove, RiskLow, 0.8),
			quality:      verdict("quality", DecisionApprove, RiskLow, 0.6),
			wantDecision: DecisionApprove,
			wantRisk:     RiskLow,
			wantConf:     0.8,
		},
		{
			name:         "all reviewers failed is a fail-safe reject",
			security:     failing("security"),
			performance:  failing("performance"),
			quality:      failing("quality"),
			wantDecision: DecisionReject,
			wantRisk:     RiskHigh,
			wantConf:     0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			council := NewCouncil(tt.security, tt.performance, tt.quality, nil)
			got := council.Review(context.Background(), testProposal())

			if got.Decision != tt.wantDecision {
				t.Errorf("decision: got %q, want %q", got.Decision, tt.wantDecision)
			}
			if got.OverallRisk != tt.wantRisk {
				t.Errorf("risk: got %q, want %q", got.OverallRisk, tt.wantRisk)
			}
			if diff := got.Confidence - tt.wantConf; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence: got %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestCouncilProceedsWithPartialFailure(t *testing.T) {
	council := NewCouncil(
		failing("security"),
		verdict("performance", DecisionApprove, RiskLow, 0.8),
		verdict("quality", DecisionApprove, RiskMedium, 0.6),
		nil,
	)
	got := council.Review(context.Background(), testProposal())

	if got.Security != nil {
		t.Error("failed reviewer should leave a nil slot")
	}
	if got.Decision != DecisionApprove {
		t.Errorf("decision: got %q, want approve from remaining reviewers", got.Decision)
	}
	if got.OverallRisk != RiskMedium {
		t.Errorf("risk: got %q, want medium", got.OverallRisk)
	}
	if diff := got.Confidence - 0.7; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence: got %v, want 0.7", got.Confidence)
	}
}

func TestCouncilSurvivesReviewerPanic(t *testing.T) {
	panicking := &panicReviewer{}
	council := NewCouncil(
		panicking,
		verdict("performance", DecisionApprove, RiskLow, 0.9),
		verdict("quality", DecisionApprove, RiskLow, 0.9),
		nil,
	)
	got := council.Review(context.Background(), testProposal())

	if got.Security != nil {
		t.Error("panicking reviewer should leave a nil slot")
	}
	if got.Decision != DecisionApprove {
		t.Errorf("decision: got %q, want approve", got.Decision)
	}
}

type panicReviewer struct{}

func (p *panicReviewer) Name() string { return "security" }

func (p *panicReviewer) ReviewProposal(_ context.Context, _ *Proposal) (*ReviewerDecision, error) {
	panic("reviewer bug")
}
