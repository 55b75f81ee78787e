package review

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Council runs exactly three domain reviewers concurrently against one
// proposal and aggregates their verdicts by voting.
type Council struct {
	security    Reviewer
	performance Reviewer
	quality     Reviewer
	logger      *zap.Logger
}

// NewCouncil assembles the fixed three-member council.
func NewCouncil(security, performance, quality Reviewer, logger *zap.Logger) *Council {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Council{
		security:    security,
		performance: performance,
		quality:     quality,
		logger:      logger,
	}
}

// Review fans the proposal out to the three reviewers in parallel and blocks
// until all have returned or failed. Each reviewer gets its own copy of the
// proposal; aggregation happens only after all three are done. A reviewer
// that fails (or panics) leaves a nil slot rather than aborting the council.
func (c *Council) Review(ctx context.Context, p *Proposal) *CouncilDecision {
	run := func(r Reviewer, out **ReviewerDecision) func() error {
		proposal := *p // immutable copy per reviewer
		return func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					c.logger.Error("reviewer panicked",
						zap.String("reviewer", r.Name()), zap.Any("panic", rec))
					*out = nil
					err = nil
				}
			}()
			decision, reviewErr := r.ReviewProposal(ctx, &proposal)
			if reviewErr != nil {
				c.logger.Warn("reviewer failed",
					zap.String("reviewer", r.Name()), zap.Error(reviewErr))
				*out = nil
				return nil
			}
			*out = decision
			return nil
		}
	}

	var security, performance, quality *ReviewerDecision

	var g errgroup.Group
	g.Go(run(c.security, &security))
	g.Go(run(c.performance, &performance))
	g.Go(run(c.quality, &quality))
	_ = g.Wait() // reviewer failures never surface as errors

	return aggregate(security, performance, quality)
}

// aggregate applies the council voting rule:
//
//	any reject            -> reject
//	else any revise       -> revise
//	else all available approve -> approve
//	all three failed      -> reject (fail-safe), risk high, confidence 0
//
// Overall risk is the maximum across available reviewers; confidence is
// their arithmetic mean.
func aggregate(security, performance, quality *ReviewerDecision) *CouncilDecision {
	cd := &CouncilDecision{
		Votes:       make(map[Decision]int),
		Security:    security,
		Performance: performance,
		Quality:     quality,
	}

	available := cd.Reviewers()
	if len(available) == 0 {
		cd.Decision = DecisionReject
		cd.OverallRisk = RiskHigh
		cd.Confidence = 0.0
		return cd
	}

	var confidenceSum float64
	maxRisk := RiskLow
	for _, d := range available {
		cd.Votes[d.Decision]++
		confidenceSum += d.Confidence
		if riskRank(d.RiskLevel) > riskRank(maxRisk) {
			maxRisk = d.RiskLevel
		}
	}

	switch {
	case cd.Votes[DecisionReject] > 0:
		cd.Decision = DecisionReject
	case cd.Votes[DecisionRevise] > 0:
		cd.Decision = DecisionRevise
	default:
		cd.Decision = DecisionApprove
	}

	cd.OverallRisk = maxRisk
	cd.Confidence = confidenceSum / float64(len(available))
	return cd
}

// Summary renders the council verdict for logs and outcome records.
func (c *CouncilDecision) Summary() string {
	return fmt.Sprintf("council %s (risk %s, confidence %.2f, votes approve=%d revise=%d reject=%d)",
		c.Decision, c.OverallRisk, c.Confidence,
		c.Votes[DecisionApprove], c.Votes[DecisionRevise], c.Votes[DecisionReject])
}
