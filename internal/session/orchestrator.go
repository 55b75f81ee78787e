package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/config"
	"github.com/ziadkadry99/auto-improve/internal/introspect"
	"github.com/ziadkadry99/auto-improve/internal/modify"
	"github.com/ziadkadry99/auto-improve/internal/outcomes"
	"github.com/ziadkadry99/auto-improve/internal/review"
)

const (
	// idlePause is slept (in slices) when a scan yields no opportunities.
	idlePause = 5 * time.Second
	// iterationPause separates consecutive iterations.
	iterationPause = 1 * time.Second
	// diffLogLimit caps how much of a diff is stored in an outcome record.
	diffLogLimit = 8192
)

// Introspector scans the repository and flags improvement candidates.
type Introspector interface {
	Scan(ctx context.Context) (*introspect.RepositoryStructure, error)
	FindOpportunities(structure *introspect.RepositoryStructure) []introspect.Opportunity
}

// Ranker filters and orders candidates by predicted success.
type Ranker interface {
	Rank(ctx context.Context, opps []introspect.Opportunity, mode config.Mode) ([]introspect.Opportunity, error)
}

// Engine previews and applies single-file modifications.
type Engine interface {
	Preview(ctx context.Context, job modify.Job) (*review.Proposal, string, error)
	Execute(ctx context.Context, job modify.Job) *modify.Result
}

// CouncilReviewer is the three-member review council.
type CouncilReviewer interface {
	Review(ctx context.Context, p *review.Proposal) *review.CouncilDecision
}

// FinalReviewer is the architect's authoritative pass.
type FinalReviewer interface {
	Review(ctx context.Context, p *review.Proposal, council *review.CouncilDecision, improvementType string) *review.ArchitectDecision
}

// OutcomeLog is the slice of the outcome store the orchestrator writes to.
type OutcomeLog interface {
	LogOutcome(ctx context.Context, o outcomes.Outcome) (int64, error)
}

// Orchestrator drives the iteration loop for one or more sessions. It owns
// no session state itself; everything mutable lives on the Session.
type Orchestrator struct {
	introspector Introspector
	ranker       Ranker
	engine       Engine
	council      CouncilReviewer
	architect    FinalReviewer
	log          OutcomeLog
	repoRoot     string
	maxRevisions int
	idlePause    time.Duration
	iterPause    time.Duration
	logger       *zap.Logger
}

// NewOrchestrator wires the iteration loop's collaborators together.
func NewOrchestrator(introspector Introspector, ranker Ranker, engine Engine,
	council CouncilReviewer, architect FinalReviewer, log OutcomeLog,
	repoRoot string, maxRevisions int, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRevisions < 0 {
		maxRevisions = 0
	}
	return &Orchestrator{
		introspector: introspector,
		ranker:       ranker,
		engine:       engine,
		council:      council,
		architect:    architect,
		log:          log,
		repoRoot:     repoRoot,
		maxRevisions: maxRevisions,
		idlePause:    idlePause,
		iterPause:    iterationPause,
		logger:       logger,
	}
}

// run is the session loop. It terminates when the iteration budget is spent,
// the token is cancelled, or an internal error makes continuing pointless.
// A panic anywhere in the loop marks the session failed instead of crashing
// the process.
func (o *Orchestrator) run(s *Session) {
	logger := o.logger.With(zap.String("session", s.ID))
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("session loop panicked", zap.Any("panic", rec))
			s.finish(StateFailed, fmt.Sprintf("internal panic: %v", rec))
		}
	}()

	// The iteration context follows the token so long-running collaborators
	// (ranking, reviews, sandbox runs) unwind promptly on a stop request.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.token.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("session started",
		zap.String("mode", string(s.Mode)), zap.Int("max_iterations", s.MaxIterations))

	for {
		if s.token.Cancelled() {
			s.finish(StateStopped, "")
			logger.Info("session stopped")
			return
		}
		if s.currentIteration() >= s.MaxIterations {
			s.finish(StateCompleted, "")
			logger.Info("session completed", zap.Int("iterations", s.currentIteration()))
			return
		}

		proceed, err := o.iterate(ctx, s, logger)
		if err != nil {
			s.finish(StateFailed, err.Error())
			logger.Error("session failed", zap.Error(err))
			return
		}
		if !proceed {
			continue // idle or cancelled; loop header decides what happens
		}

		if !s.token.Sleep(o.iterPause) {
			s.finish(StateStopped, "")
			logger.Info("session stopped")
			return
		}
	}
}

// iterate performs one full iteration. It returns proceed=false when no
// iteration was executed (nothing found, or cancellation observed) and an
// error only for failures that should end the session. When an opportunity
// is actually attempted, exactly one outcome is logged regardless of how the
// attempt ends.
func (o *Orchestrator) iterate(ctx context.Context, s *Session, logger *zap.Logger) (bool, error) {
	structure, err := o.introspector.Scan(ctx)
	if err != nil {
		if s.token.Cancelled() {
			return false, nil
		}
		return false, fmt.Errorf("introspection scan: %w", err)
	}
	if s.token.Cancelled() {
		return false, nil
	}

	found := o.introspector.FindOpportunities(structure)
	ranked, err := o.ranker.Rank(ctx, found, s.Mode)
	if err != nil {
		// A stop request cancels the iteration context mid-query; that is a
		// clean stop, not a session failure.
		if s.token.Cancelled() {
			return false, nil
		}
		return false, fmt.Errorf("ranking: %w", err)
	}
	if s.token.Cancelled() {
		return false, nil
	}

	if len(ranked) == 0 {
		logger.Info("no opportunities above threshold", zap.Int("candidates", len(found)))
		s.token.Sleep(o.idlePause)
		return false, nil
	}

	opp := ranked[0]
	metrics := structure.Files[opp.File]
	logger.Info("attempting improvement",
		zap.String("type", string(opp.Type)), zap.String("file", opp.File),
		zap.Float64("predicted_success", opp.PredictedSuccess))

	detail := o.attempt(ctx, s, opp, metrics, logger)
	detail.Timestamp = time.Now()
	s.record(detail)
	return true, nil
}

// attempt runs the review/execute pipeline for one opportunity and logs its
// outcome. Every path out of this function has logged exactly one outcome.
func (o *Orchestrator) attempt(ctx context.Context, s *Session, opp introspect.Opportunity,
	metrics *introspect.FileMetrics, logger *zap.Logger) IterationDetail {

	detail := IterationDetail{Opportunity: &opp}
	job := modify.Job{
		ID:          uuid.NewString(),
		SessionID:   s.ID,
		RepoRoot:    o.repoRoot,
		Opportunity: opp,
		Metrics:     metrics,
	}

	// Council + architect with a bounded revision loop. Each revision
	// regenerates the proposal with the architect's feedback folded in.
	var (
		approved bool
		lastErr  string
	)
	for round := 0; ; round++ {
		proposal, content, err := o.engine.Preview(ctx, job)
		if err != nil {
			lastErr = "proposal generation: " + err.Error()
			break
		}
		proposal.Iteration = s.currentIteration() + 1
		detail.Proposal = proposal
		detail.Revisions = round

		council := o.council.Review(ctx, proposal)
		detail.Council = council
		if council.Decision == review.DecisionReject {
			lastErr = "rejected by council: " + council.Summary()
			break
		}

		architect := o.architect.Review(ctx, proposal, council, string(opp.Type))
		detail.Architect = architect

		switch architect.Decision {
		case review.DecisionApprove:
			approved = true
			job.Content = content
		case review.DecisionRevise:
			if round >= o.maxRevisions {
				lastErr = fmt.Sprintf("revision cap reached after %d rounds: %s", round+1, architect.Comments)
			} else {
				job.Feedback = append(job.Feedback, architect.Comments)
				job.Feedback = append(job.Feedback, architect.RequiredChanges...)
				logger.Info("architect requested revision",
					zap.Int("round", round+1), zap.String("comments", architect.Comments))
				continue
			}
		default:
			lastErr = "rejected by architect: " + architect.Comments
		}
		break
	}

	outcome := outcomes.Outcome{
		JobID:           job.ID,
		ImprovementType: string(opp.Type),
		TargetFile:      opp.File,
		MetricsBefore:   metrics,
	}

	if approved && !s.token.Cancelled() {
		result := o.engine.Execute(ctx, job)
		detail.Result = result
		detail.Success = result.Success
		outcome.Success = result.Success
		outcome.MetricsAfter = result.MetricsAfter
		outcome.Error = result.Error
		outcome.CodeChange = truncate(result.Diff, diffLogLimit)
		outcome.ErrorsBefore = result.ErrorsBefore
		outcome.ErrorsAfter = result.ErrorsAfter
		if result.Success {
			logger.Info("improvement applied", zap.String("file", opp.File))
		} else {
			logger.Warn("modification failed", zap.String("error", result.Error))
		}
	} else {
		if approved {
			lastErr = "cancelled before execution"
		}
		detail.Error = lastErr
		outcome.Error = lastErr
		logger.Info("improvement not applied", zap.String("reason", lastErr))
	}

	if _, err := o.log.LogOutcome(ctx, outcome); err != nil {
		// The iteration already happened; a logging failure must not
		// kill the session, only the learning signal for this record.
		logger.Error("outcome logging failed", zap.Error(err))
	}
	return detail
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... (truncated)"
}
