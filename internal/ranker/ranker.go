package ranker

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/config"
	"github.com/ziadkadry99/auto-improve/internal/introspect"
	"github.com/ziadkadry99/auto-improve/internal/outcomes"
)

// neutralPrior is the predicted success probability used when no history
// exists at all.
const neutralPrior = 0.5

// defaultNeighbors is how many similar past outcomes inform a prediction.
const defaultNeighbors = 5

// History is the slice of the outcome store the ranker needs.
type History interface {
	SimilarOutcomes(ctx context.Context, improvementType, targetFile string, limit int) ([]outcomes.SimilarOutcome, error)
	SuccessRate(improvementType string) outcomes.SuccessStats
}

// Ranker orders improvement opportunities by predicted success, filtered by
// the operating mode's threshold.
type Ranker struct {
	history   History
	neighbors int
	logger    *zap.Logger
}

// New creates a Ranker backed by the given outcome history.
func New(history History, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{history: history, neighbors: defaultNeighbors, logger: logger}
}

// Rank predicts a success probability for every opportunity, drops those
// below the mode's threshold (inclusive boundary), and sorts the rest
// descending by prediction. Ties prefer higher severity. Cancellation is
// observed between prediction queries, never mid-query.
func (r *Ranker) Rank(ctx context.Context, opps []introspect.Opportunity, mode config.Mode) ([]introspect.Opportunity, error) {
	threshold := mode.Threshold()

	ranked := make([]introspect.Opportunity, 0, len(opps))
	for _, opp := range opps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opp.PredictedSuccess, opp.SimilarOutcomes = r.predict(ctx, opp)
		if opp.PredictedSuccess >= threshold {
			ranked = append(ranked, opp)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PredictedSuccess != ranked[j].PredictedSuccess {
			return ranked[i].PredictedSuccess > ranked[j].PredictedSuccess
		}
		return severityRank(ranked[i].Severity) > severityRank(ranked[j].Severity)
	})

	return ranked, nil
}

// predict estimates success from the k nearest similar outcomes, falling
// back to the type-level aggregate, then to the neutral prior.
func (r *Ranker) predict(ctx context.Context, opp introspect.Opportunity) (float64, int) {
	similar, err := r.history.SimilarOutcomes(ctx, string(opp.Type), opp.File, r.neighbors)
	if err != nil {
		// A failed similarity lookup is transient; fall through to aggregates.
		r.logger.Warn("similarity lookup failed", zap.String("file", opp.File), zap.Error(err))
		similar = nil
	}

	if len(similar) > 0 {
		succeeded := 0
		for _, s := range similar {
			if s.Outcome.Success {
				succeeded++
			}
		}
		return float64(succeeded) / float64(len(similar)), len(similar)
	}

	stats := r.history.SuccessRate(string(opp.Type))
	if stats.Total > 0 {
		return stats.Rate, 0
	}

	return neutralPrior, 0
}

func severityRank(s introspect.Severity) int {
	switch s {
	case introspect.SeverityHigh:
		return 3
	case introspect.SeverityMedium:
		return 2
	case introspect.SeverityLow:
		return 1
	default:
		return 0
	}
}
