package review

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/llm"
	"github.com/ziadkadry99/auto-improve/internal/outcomes"
)

// architectTimeout bounds the architect's completion call.
const architectTimeout = 120 * time.Second

// History is the slice of the outcome store the architect consults for its
// historical-context prompt.
type History interface {
	SuccessRate(improvementType string) outcomes.SuccessStats
}

// Architect is the single authoritative reviewer. It sees the council's
// verdict plus historical statistics and produces the final decision.
type Architect struct {
	provider      llm.Provider
	model         string
	history       History
	criticalFiles []string
	logger        *zap.Logger
}

// NewArchitect creates the architect reviewer.
func NewArchitect(provider llm.Provider, model string, history History, criticalFiles []string, logger *zap.Logger) *Architect {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Architect{
		provider:      provider,
		model:         model,
		history:       history,
		criticalFiles: criticalFiles,
		logger:        logger,
	}
}

// Review produces the final verdict for a proposal. The council decision may
// be nil (the architect then reviews blind). Any internal failure fails safe
// to reject with high risk and zero confidence — never to approve.
func (a *Architect) Review(ctx context.Context, p *Proposal, council *CouncilDecision, improvementType string) *ArchitectDecision {
	ctx, cancel := context.WithTimeout(ctx, architectTimeout)
	defer cancel()

	overall := renderStats(a.history.SuccessRate(""))
	perType := renderStats(a.history.SuccessRate(improvementType))

	raw, err := llm.CompleteText(ctx, a.provider, a.model,
		architectSystemPrompt(a.criticalFiles),
		architectPrompt(p, council, overall, perType), true)
	if err != nil {
		a.logger.Warn("architect completion failed", zap.Error(err))
		return a.failSafe("completion call failed: " + err.Error())
	}

	decision, err := parseArchitectDecision(raw)
	if err != nil {
		a.logger.Warn("architect response unparseable", zap.Error(err))
		return a.failSafe("response could not be parsed: " + err.Error())
	}
	return decision
}

func (a *Architect) failSafe(reason string) *ArchitectDecision {
	return &ArchitectDecision{
		Decision:   DecisionReject,
		RiskLevel:  RiskHigh,
		Confidence: 0.0,
		Comments:   "automatic reject: " + reason,
	}
}

func renderStats(s outcomes.SuccessStats) string {
	if s.Total == 0 {
		return "no history yet"
	}
	return fmt.Sprintf("%d attempts, %d succeeded (%.0f%%)", s.Total, s.Success, s.Rate*100)
}
