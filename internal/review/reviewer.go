package review

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/llm"
)

// reviewTimeout bounds each individual reviewer's completion call.
const reviewTimeout = 90 * time.Second

// Reviewer evaluates a proposal and returns a structured verdict. A nil
// decision with a non-nil error means the reviewer failed outright; the
// council treats that slot as absent.
type Reviewer interface {
	Name() string
	ReviewProposal(ctx context.Context, p *Proposal) (*ReviewerDecision, error)
}

// llmReviewer is a domain reviewer backed by the text-completion capability.
// The three council reviewers differ only in name and rubric.
type llmReviewer struct {
	name     string
	rubric   string
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewSecurityReviewer creates the council's security reviewer.
func NewSecurityReviewer(provider llm.Provider, model string, logger *zap.Logger) Reviewer {
	return newLLMReviewer("security", securityRubric, provider, model, logger)
}

// NewPerformanceReviewer creates the council's performance reviewer.
func NewPerformanceReviewer(provider llm.Provider, model string, logger *zap.Logger) Reviewer {
	return newLLMReviewer("performance", performanceRubric, provider, model, logger)
}

// NewQualityReviewer creates the council's code-quality reviewer.
func NewQualityReviewer(provider llm.Provider, model string, logger *zap.Logger) Reviewer {
	return newLLMReviewer("quality", qualityRubric, provider, model, logger)
}

func newLLMReviewer(name, rubric string, provider llm.Provider, model string, logger *zap.Logger) *llmReviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &llmReviewer{
		name:     name,
		rubric:   rubric,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

func (r *llmReviewer) Name() string { return r.name }

// ReviewProposal calls the completion capability with the reviewer's rubric.
// Transport errors and unparseable responses both degrade to a synthetic
// revise verdict asking for manual review; this reviewer never defaults to
// approve.
func (r *llmReviewer) ReviewProposal(ctx context.Context, p *Proposal) (*ReviewerDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, reviewTimeout)
	defer cancel()

	raw, err := llm.CompleteText(ctx, r.provider, r.model, r.rubric, proposalPrompt(p), true)
	if err != nil {
		r.logger.Warn("reviewer completion failed",
			zap.String("reviewer", r.name), zap.Error(err))
		return r.failSafe("completion call failed: " + err.Error()), nil
	}

	decision, err := parseReviewerDecision(raw)
	if err != nil {
		r.logger.Warn("reviewer response unparseable",
			zap.String("reviewer", r.name), zap.Error(err))
		return r.failSafe("response could not be parsed: " + err.Error()), nil
	}

	decision.Reviewer = r.name
	return decision, nil
}

// failSafe is the synthetic verdict used when the reviewer cannot produce a
// real one.
func (r *llmReviewer) failSafe(reason string) *ReviewerDecision {
	return &ReviewerDecision{
		Reviewer:   r.name,
		Decision:   DecisionRevise,
		RiskLevel:  RiskMedium,
		Confidence: 0.0,
		Comments:   "automatic verdict, manual review requested: " + reason,
	}
}
