package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/db"
)

// Store persists session audit entries. It satisfies the session manager's
// recorder interface; recording failures are logged and swallowed so the
// audit trail can never break a session.
type Store struct {
	db     *db.DB
	logger *zap.Logger
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: database, logger: logger}
}

// Record inserts one audit entry.
func (s *Store) Record(ctx context.Context, sessionID, event, detail string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_events (id, session_id, event, detail)
		VALUES (?, ?, ?, ?)`,
		uuid.NewString(), sessionID, event, detail)
	if err != nil {
		s.logger.Warn("audit insert failed",
			zap.String("session", sessionID), zap.String("event", event), zap.Error(err))
	}
}

// QueryFilter controls which audit entries Query returns.
type QueryFilter struct {
	SessionID string
	Event     string
	Since     *time.Time
	Limit     int
}

// Query returns audit entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Event != "" {
		clauses = append(clauses, "event = ?")
		args = append(args, filter.Event)
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format("2006-01-02 15:04:05"))
	}

	query := "SELECT id, timestamp, session_id, event, detail FROM session_events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.SessionID, &e.Event, &e.Detail); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if parsed, perr := time.Parse("2006-01-02 15:04:05", ts); perr == nil {
			e.Timestamp = parsed.UTC()
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
