package outcomes

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/embeddings"
)

const (
	logFileName    = "outcomes.jsonl"
	docIDsFileName = "docids.json"
	collectionName = "outcomes"
)

// Store is the learning layer: an append-only outcome log on disk plus an
// in-memory nearest-neighbor index over outcome renderings. The log and the
// doc-id map are the only durable state the engine owns; the index is
// rebuilt from the log on startup.
type Store struct {
	dir      string
	embedder embeddings.Embedder
	logger   *zap.Logger

	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	outcomes   []Outcome // in append order, mirrors the log
	docIDs     map[string]string
	nextID     int64
}

// NewStore creates a Store rooted at dir and rehydrates the vector index by
// re-embedding every historical outcome from the durable log. Rehydration
// failures degrade to an empty index; they never fail construction.
func NewStore(ctx context.Context, dir string, embedder embeddings.Embedder, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create outcome dir: %w", err)
	}

	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("create outcome collection: %w", err)
	}

	s := &Store{
		dir:        dir,
		embedder:   embedder,
		logger:     logger,
		db:         db,
		collection: col,
		docIDs:     make(map[string]string),
		nextID:     1,
	}

	if err := s.rehydrate(ctx); err != nil {
		// Degrade to an empty index rather than crashing the process.
		logger.Error("outcome index rehydration failed, starting empty", zap.Error(err))
		s.outcomes = nil
		s.docIDs = make(map[string]string)
		s.nextID = 1
	}

	return s, nil
}

func (s *Store) logPath() string   { return filepath.Join(s.dir, logFileName) }
func (s *Store) docIDPath() string { return filepath.Join(s.dir, docIDsFileName) }

// rehydrate replays the durable log into memory and the vector index.
func (s *Store) rehydrate(ctx context.Context) error {
	f, err := os.Open(s.logPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open outcome log: %w", err)
	}
	defer f.Close()

	var docs []chromem.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var o Outcome
		if err := json.Unmarshal(line, &o); err != nil {
			return fmt.Errorf("corrupt outcome record: %w", err)
		}
		s.outcomes = append(s.outcomes, o)
		s.docIDs[strconv.FormatInt(o.DocID, 10)] = o.JobID
		if o.DocID >= s.nextID {
			s.nextID = o.DocID + 1
		}
		docs = append(docs, chromem.Document{
			ID:       strconv.FormatInt(o.DocID, 10),
			Content:  o.render(),
			Metadata: outcomeMetadata(&o),
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read outcome log: %w", err)
	}

	if len(docs) > 0 {
		if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("re-embed outcomes: %w", err)
		}
	}

	s.logger.Info("outcome store rehydrated", zap.Int("outcomes", len(s.outcomes)))
	return nil
}

func outcomeMetadata(o *Outcome) map[string]string {
	return map[string]string{
		"type":    o.ImprovementType,
		"file":    o.TargetFile,
		"success": strconv.FormatBool(o.Success),
	}
}

// LogOutcome appends the outcome to durable storage, embeds its canonical
// rendering, and inserts it into the index. Returns the assigned doc id.
// Once the log line is written the id is spent: an indexing failure only
// degrades similarity queries until the next rehydration.
func (s *Store) LogOutcome(ctx context.Context, o Outcome) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.DocID = s.nextID
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(o)
	if err != nil {
		return 0, fmt.Errorf("marshal outcome: %w", err)
	}

	f, err := os.OpenFile(s.logPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open outcome log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return 0, fmt.Errorf("append outcome: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close outcome log: %w", err)
	}

	// The log line is durable: the id is committed now, no matter what the
	// index does. Re-issuing it would assign the same doc id twice.
	s.outcomes = append(s.outcomes, o)
	s.nextID++

	docID := strconv.FormatInt(o.DocID, 10)
	s.docIDs[docID] = o.JobID
	if err := s.saveDocIDs(); err != nil {
		// The map is rebuilt from the log on rehydration.
		s.logger.Warn("failed to persist doc-id map", zap.Error(err))
	}

	err = s.collection.AddDocuments(ctx, []chromem.Document{{
		ID:       docID,
		Content:  o.render(),
		Metadata: outcomeMetadata(&o),
	}}, 1)
	if err != nil {
		// Degraded but logged: the record is missing from similarity queries
		// until the next rehydration re-embeds the full log.
		s.logger.Warn("failed to index outcome",
			zap.Int64("doc_id", o.DocID), zap.Error(err))
	}

	return o.DocID, nil
}

func (s *Store) saveDocIDs() error {
	data, err := json.MarshalIndent(s.docIDs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.docIDPath(), data, 0o644)
}

// SimilarOutcomes returns the outcomes nearest to a synthetic query built
// from the improvement type and target file. An empty corpus yields an
// empty result, not an error.
func (s *Store) SimilarOutcomes(ctx context.Context, improvementType, targetFile string, limit int) ([]SimilarOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 5
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	query := fmt.Sprintf("type: %s, file: %s", improvementType, targetFile)
	results, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	byID := make(map[int64]*Outcome, len(s.outcomes))
	for i := range s.outcomes {
		byID[s.outcomes[i].DocID] = &s.outcomes[i]
	}

	similar := make([]SimilarOutcome, 0, len(results))
	for _, r := range results {
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			continue
		}
		if o, ok := byID[id]; ok {
			similar = append(similar, SimilarOutcome{Outcome: *o, Similarity: r.Similarity})
		}
	}
	return similar, nil
}

// Count returns the number of logged outcomes.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

// All returns a copy of every logged outcome in append order.
func (s *Store) All() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}
