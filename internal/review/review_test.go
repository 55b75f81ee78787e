package review

import (
	"context"
	"errors"
	"testing"

	"github.com/ziadkadry99/auto-improve/internal/llm"
	"github.com/ziadkadry99/auto-improve/internal/outcomes"
)

// stubProvider implements llm.Provider with a canned response.
type stubProvider struct {
	content string
	err     error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

type stubHistory struct {
	stats map[string]outcomes.SuccessStats
}

func (s *stubHistory) SuccessRate(improvementType string) outcomes.SuccessStats {
	return s.stats[improvementType]
}

func TestParseReviewerDecision(t *testing.T) {
	raw := `{"decision":"approve","risk_level":"low","confidence":0.85,"comments":"fine","concerns":[],"recommendations":["add a test"]}`
	d, err := parseReviewerDecision(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Decision != DecisionApprove || d.RiskLevel != RiskLow || d.Confidence != 0.85 {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestParseReviewerDecisionStripsFences(t *testing.T) {
	raw := "```json\n{\"decision\":\"revise\",\"risk_level\":\"medium\",\"confidence\":0.5,\"comments\":\"\"}\n```"
	d, err := parseReviewerDecision(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Decision != DecisionRevise {
		t.Errorf("decision: got %q, want revise", d.Decision)
	}
}

func TestParseReviewerDecisionRejectsBadSchema(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "the change looks good to me"},
		{"invalid decision", `{"decision":"maybe","risk_level":"low","confidence":0.5}`},
		{"invalid risk", `{"decision":"approve","risk_level":"none","confidence":0.5}`},
		{"confidence out of range", `{"decision":"approve","risk_level":"low","confidence":1.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseReviewerDecision(tt.raw); err == nil {
				t.Error("expected parse failure")
			}
		})
	}
}

func TestLLMReviewerHappyPath(t *testing.T) {
	provider := &stubProvider{
		content: `{"decision":"approve","risk_level":"low","confidence":0.9,"comments":"no security impact"}`,
	}
	r := NewSecurityReviewer(provider, "m", nil)

	d, err := r.ReviewProposal(context.Background(), testProposal())
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if d.Reviewer != "security" {
		t.Errorf("reviewer name: got %q", d.Reviewer)
	}
	if d.Decision != DecisionApprove {
		t.Errorf("decision: got %q", d.Decision)
	}
}

func TestLLMReviewerFailsSafeToRevise(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{"transport error", &stubProvider{err: errors.New("quota exceeded")}},
		{"unparseable output", &stubProvider{content: "LGTM!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPerformanceReviewer(tt.provider, "m", nil)
			d, err := r.ReviewProposal(context.Background(), testProposal())
			if err != nil {
				t.Fatalf("fail-safe path must not error: %v", err)
			}
			if d.Decision != DecisionRevise {
				t.Errorf("decision: got %q, want revise", d.Decision)
			}
			if d.RiskLevel != RiskMedium {
				t.Errorf("risk: got %q, want medium", d.RiskLevel)
			}
		})
	}
}

func TestArchitectHappyPath(t *testing.T) {
	provider := &stubProvider{
		content: `{"decision":"approve","risk_level":"low","confidence":0.95,"comments":"small safe refactor"}`,
	}
	a := NewArchitect(provider, "m", &stubHistory{}, []string{"main.go"}, nil)

	council := &CouncilDecision{Decision: DecisionApprove, OverallRisk: RiskLow, Confidence: 0.8,
		Votes: map[Decision]int{DecisionApprove: 3}}
	d := a.Review(context.Background(), testProposal(), council, "add_tests")

	if d.Decision != DecisionApprove {
		t.Errorf("decision: got %q, want approve", d.Decision)
	}
}

func TestArchitectFailsSafeToReject(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{"transport error", &stubProvider{err: errors.New("timeout")}},
		{"unparseable output", &stubProvider{content: "approved, ship it"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArchitect(tt.provider, "m", &stubHistory{}, nil, nil)
			d := a.Review(context.Background(), testProposal(), nil, "add_tests")

			if d.Decision != DecisionReject {
				t.Errorf("decision: got %q, want reject", d.Decision)
			}
			if d.RiskLevel != RiskHigh {
				t.Errorf("risk: got %q, want high", d.RiskLevel)
			}
			if d.Confidence != 0.0 {
				t.Errorf("confidence: got %v, want 0", d.Confidence)
			}
		})
	}
}
