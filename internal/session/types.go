package session

import (
	"sync"
	"time"

	"github.com/ziadkadry99/auto-improve/internal/config"
	"github.com/ziadkadry99/auto-improve/internal/introspect"
	"github.com/ziadkadry99/auto-improve/internal/modify"
	"github.com/ziadkadry99/auto-improve/internal/review"
)

// State is a session lifecycle state.
type State string

const (
	StateRunning   State = "running"
	StateStopping  State = "stopping"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// IterationDetail is the full record of one loop iteration, retained
// in-memory for the session's lifetime.
type IterationDetail struct {
	Iteration   int                       `json:"iteration"`
	Opportunity *introspect.Opportunity   `json:"opportunity,omitempty"`
	Proposal    *review.Proposal          `json:"proposal,omitempty"`
	Council     *review.CouncilDecision   `json:"council,omitempty"`
	Architect   *review.ArchitectDecision `json:"architect,omitempty"`
	Result      *modify.Result            `json:"result,omitempty"`
	Revisions   int                       `json:"revisions"`
	Success     bool                      `json:"success"`
	Error       string                    `json:"error,omitempty"`
	Timestamp   time.Time                 `json:"timestamp"`
}

// ImprovementRecord is the compact view of one applied change.
type ImprovementRecord struct {
	Iteration int       `json:"iteration"`
	Type      string    `json:"type"`
	File      string    `json:"file"`
	Diff      string    `json:"diff"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is the read-only status snapshot of a session.
type Summary struct {
	ID               string      `json:"id"`
	Mode             config.Mode `json:"mode"`
	State            State       `json:"state"`
	MaxIterations    int         `json:"max_iterations"`
	CurrentIteration int         `json:"current_iteration"`
	SuccessCount     int         `json:"success_count"`
	FailureCount     int         `json:"failure_count"`
	Error            string      `json:"error,omitempty"`
	StartedAt        time.Time   `json:"started_at"`
	EndedAt          *time.Time  `json:"ended_at,omitempty"`
}

// AggregateStats summarizes all sessions plus the durable outcome history.
type AggregateStats struct {
	TotalSessions     int     `json:"total_sessions"`
	ActiveSessions    int     `json:"active_sessions"`
	TotalIterations   int     `json:"total_iterations"`
	TotalImprovements int     `json:"total_improvements"`
	TotalFailures     int     `json:"total_failures"`
	OutcomesLogged    int     `json:"outcomes_logged"`
	OverallSuccess    float64 `json:"overall_success_rate"`
}

// Session is one autonomous improvement run. All mutable fields are guarded
// by mu; external readers only ever see copies.
type Session struct {
	ID            string
	Mode          config.Mode
	MaxIterations int

	token *CancelToken

	mu         sync.Mutex
	state      State
	current    int
	successes  int
	failures   int
	err        string
	startedAt  time.Time
	endedAt    *time.Time
	iterations []IterationDetail
}

func newSession(id string, mode config.Mode, maxIterations int) *Session {
	return &Session{
		ID:            id,
		Mode:          mode,
		MaxIterations: maxIterations,
		token:         NewCancelToken(),
		state:         StateRunning,
		startedAt:     time.Now(),
	}
}

// Summary returns a point-in-time snapshot.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		ID:               s.ID,
		Mode:             s.Mode,
		State:            s.state,
		MaxIterations:    s.MaxIterations,
		CurrentIteration: s.current,
		SuccessCount:     s.successes,
		FailureCount:     s.failures,
		Error:            s.err,
		StartedAt:        s.startedAt,
		EndedAt:          s.endedAt,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Iterations returns a copy of the per-iteration history.
func (s *Session) Iterations() []IterationDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]IterationDetail, len(s.iterations))
	copy(out, s.iterations)
	return out
}

// Improvements returns the successful iterations as compact records.
func (s *Session) Improvements() []ImprovementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ImprovementRecord
	for _, it := range s.iterations {
		if !it.Success || it.Opportunity == nil {
			continue
		}
		rec := ImprovementRecord{
			Iteration: it.Iteration,
			Type:      string(it.Opportunity.Type),
			File:      it.Opportunity.File,
			Timestamp: it.Timestamp,
		}
		if it.Result != nil {
			rec.Diff = it.Result.Diff
		}
		out = append(out, rec)
	}
	return out
}

// stop flips the cancellation token and marks the session stopping. The loop
// observes the token at its next checkpoint.
func (s *Session) stop() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.state = StateStopping
	}
	s.mu.Unlock()
	s.token.Cancel()
}

// finish records a terminal state exactly once.
func (s *Session) finish(state State, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateStopped, StateCompleted, StateFailed:
		return
	}
	s.state = state
	s.err = errMsg
	now := time.Now()
	s.endedAt = &now
}

// record appends one iteration's detail and bumps the counters.
func (s *Session) record(detail IterationDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	detail.Iteration = s.current
	if detail.Success {
		s.successes++
	} else {
		s.failures++
	}
	s.iterations = append(s.iterations, detail)
}

func (s *Session) currentIteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
