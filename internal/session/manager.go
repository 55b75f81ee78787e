package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/config"
	"github.com/ziadkadry99/auto-improve/internal/outcomes"
)

// AuditRecorder receives session lifecycle events for the operator audit
// trail. Implementations must tolerate being called concurrently; a nil
// recorder disables auditing.
type AuditRecorder interface {
	Record(ctx context.Context, sessionID, event, detail string)
}

// StatsSource is the slice of the outcome store the manager reads for global
// statistics.
type StatsSource interface {
	Count() int
	SuccessRate(improvementType string) outcomes.SuccessStats
}

// Manager owns the set of sessions. Sessions run independently; the manager
// only guards the registry map.
type Manager struct {
	orch   *Orchestrator
	stats  StatsSource
	audit  AuditRecorder
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. audit may be nil.
func NewManager(orch *Orchestrator, stats StatsSource, audit AuditRecorder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		orch:     orch,
		stats:    stats,
		audit:    audit,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// StartSession creates a session in the running state and launches its loop
// asynchronously. An empty id gets a generated UUID. Returns the session's
// initial summary immediately.
func (m *Manager) StartSession(mode config.Mode, maxIterations int, id string) (Summary, error) {
	if !mode.Valid() {
		return Summary{}, fmt.Errorf("invalid mode %q", mode)
	}
	if maxIterations < 1 {
		return Summary{}, fmt.Errorf("max iterations must be at least 1, got %d", maxIterations)
	}
	if id == "" {
		id = uuid.NewString()
	}

	s := newSession(id, mode, maxIterations)

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return Summary{}, fmt.Errorf("session %q already exists", id)
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.record(id, "session_started", fmt.Sprintf("mode=%s max_iterations=%d", mode, maxIterations))
	go func() {
		m.orch.run(s)
		final := s.Summary()
		m.record(id, "session_"+string(final.State),
			fmt.Sprintf("iterations=%d successes=%d failures=%d", final.CurrentIteration, final.SuccessCount, final.FailureCount))
	}()

	return s.Summary(), nil
}

// StopSession flips the session's cancellation token. It does not block; the
// loop observes the token at its next checkpoint. Returns false for unknown
// ids.
func (m *Manager) StopSession(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.stop()
	m.record(id, "stop_requested", "")
	return true
}

// GetSession returns a session's summary.
func (m *Manager) GetSession(id string) (Summary, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return Summary{}, false
	}
	return s.Summary(), true
}

// ListSessions returns summaries of all known sessions.
func (m *Manager) ListSessions() []Summary {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	return out
}

// Iterations returns a session's full iteration history.
func (m *Manager) Iterations(id string) ([]IterationDetail, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.Iterations(), true
}

// Improvements returns a session's applied changes.
func (m *Manager) Improvements(id string) ([]ImprovementRecord, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.Improvements(), true
}

// GlobalStats aggregates across all sessions and the durable outcome log.
func (m *Manager) GlobalStats() AggregateStats {
	stats := AggregateStats{}
	for _, summary := range m.ListSessions() {
		stats.TotalSessions++
		if summary.State == StateRunning || summary.State == StateStopping {
			stats.ActiveSessions++
		}
		stats.TotalIterations += summary.CurrentIteration
		stats.TotalImprovements += summary.SuccessCount
		stats.TotalFailures += summary.FailureCount
	}
	if m.stats != nil {
		stats.OutcomesLogged = m.stats.Count()
		stats.OverallSuccess = m.stats.SuccessRate("").Rate
	}
	return stats
}

func (m *Manager) record(sessionID, event, detail string) {
	if m.audit == nil {
		return
	}
	m.audit.Record(context.Background(), sessionID, event, detail)
}
