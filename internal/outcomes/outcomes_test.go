package outcomes

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"strings"
	"testing"
	"time"
)

// fakeEmbedder is a deterministic local embedder: token counts hashed into
// a fixed number of buckets, L2-normalized. Deterministic across restarts,
// which is what the rehydration tests rely on.
type fakeEmbedder struct{}

func (fakeEmbedder) Dimensions() int { return 32 }
func (fakeEmbedder) Name() string    { return "fake" }

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 32)
		for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		}) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[h.Sum32()%32]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			n := float32(math.Sqrt(norm))
			for j := range vec {
				vec[j] /= n
			}
		} else {
			vec[0] = 1
		}
		out[i] = vec
	}
	return out, nil
}

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), dir, fakeEmbedder{}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestLogOutcomeAssignsMonotonicDocIDs(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		id, err := s.LogOutcome(ctx, Outcome{
			JobID:           "job",
			ImprovementType: "add_documentation",
			TargetFile:      "a.go",
			Success:         true,
		})
		if err != nil {
			t.Fatalf("LogOutcome: %v", err)
		}
		if id != i {
			t.Errorf("doc id: got %d, want %d", id, i)
		}
	}
	if s.Count() != 3 {
		t.Errorf("count: got %d, want 3", s.Count())
	}
}

func TestSimilarOutcomesEmptyCorpus(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	similar, err := s.SimilarOutcomes(context.Background(), "add_tests", "x.go", 5)
	if err != nil {
		t.Fatalf("SimilarOutcomes: %v", err)
	}
	if len(similar) != 0 {
		t.Errorf("expected empty result, got %d", len(similar))
	}
}

func TestSimilarOutcomesFindsNearest(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	ctx := context.Background()

	records := []Outcome{
		{JobID: "1", ImprovementType: "refactor_complexity", TargetFile: "engine/core.go", Success: true},
		{JobID: "2", ImprovementType: "refactor_complexity", TargetFile: "engine/loop.go", Success: false, Error: "syntax validation failed"},
		{JobID: "3", ImprovementType: "add_documentation", TargetFile: "docs/readme.go", Success: true},
	}
	for _, o := range records {
		if _, err := s.LogOutcome(ctx, o); err != nil {
			t.Fatalf("LogOutcome: %v", err)
		}
	}

	similar, err := s.SimilarOutcomes(ctx, "refactor_complexity", "engine/core.go", 2)
	if err != nil {
		t.Fatalf("SimilarOutcomes: %v", err)
	}
	if len(similar) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(similar))
	}
	if similar[0].Outcome.JobID != "1" {
		t.Errorf("nearest neighbor: got job %s, want 1", similar[0].Outcome.JobID)
	}
}

func TestRehydrationRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1 := newTestStore(t, dir)
	logged := Outcome{
		JobID:           "job-42",
		ImprovementType: "split_large_file",
		TargetFile:      "big/big.go",
		Success:         false,
		Error:           "sandbox execution failed",
		CodeChange:      "--- a/big/big.go\n+++ b/big/big.go\n",
		ErrorsBefore:    2,
		ErrorsAfter:     5,
		Timestamp:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if _, err := s1.LogOutcome(ctx, logged); err != nil {
		t.Fatalf("LogOutcome: %v", err)
	}
	if _, err := s1.LogOutcome(ctx, Outcome{
		JobID: "job-43", ImprovementType: "add_tests", TargetFile: "util/util.go", Success: true,
	}); err != nil {
		t.Fatalf("LogOutcome: %v", err)
	}

	before, err := s1.SimilarOutcomes(ctx, "split_large_file", "big/big.go", 1)
	if err != nil || len(before) != 1 {
		t.Fatalf("pre-restart query: %v (%d results)", err, len(before))
	}

	// Fresh process: new store over the same directory.
	s2 := newTestStore(t, dir)
	if s2.Count() != 2 {
		t.Fatalf("rehydrated count: got %d, want 2", s2.Count())
	}

	got := s2.All()[0]
	if got.JobID != logged.JobID ||
		got.ImprovementType != logged.ImprovementType ||
		got.TargetFile != logged.TargetFile ||
		got.Success != logged.Success ||
		got.Error != logged.Error ||
		got.CodeChange != logged.CodeChange ||
		got.ErrorsBefore != logged.ErrorsBefore ||
		got.ErrorsAfter != logged.ErrorsAfter ||
		!got.Timestamp.Equal(logged.Timestamp) {
		t.Errorf("rehydrated record differs: %+v", got)
	}

	after, err := s2.SimilarOutcomes(ctx, "split_large_file", "big/big.go", 1)
	if err != nil || len(after) != 1 {
		t.Fatalf("post-restart query: %v (%d results)", err, len(after))
	}
	if before[0].Outcome.DocID != after[0].Outcome.DocID {
		t.Errorf("nearest outcome changed across restart: %d vs %d",
			before[0].Outcome.DocID, after[0].Outcome.DocID)
	}

	// New appends continue the id sequence.
	id, err := s2.LogOutcome(ctx, Outcome{JobID: "job-44", ImprovementType: "add_tests", TargetFile: "z.go"})
	if err != nil {
		t.Fatalf("LogOutcome after rehydrate: %v", err)
	}
	if id != 3 {
		t.Errorf("doc id after rehydrate: got %d, want 3", id)
	}
}

// failingEmbedder errors on every call, simulating an embedding backend
// outage while the durable log keeps working.
type failingEmbedder struct{}

func (failingEmbedder) Dimensions() int { return 32 }
func (failingEmbedder) Name() string    { return "failing" }

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding backend unavailable")
}

func TestLogOutcomeKeepsDocIDsUniqueWhenIndexingFails(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewStore(ctx, dir, failingEmbedder{}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	for i := int64(1); i <= 2; i++ {
		id, err := s1.LogOutcome(ctx, Outcome{
			JobID:           fmt.Sprintf("job-%d", i),
			ImprovementType: "add_tests",
			TargetFile:      "a.go",
		})
		if err != nil {
			t.Fatalf("LogOutcome with failing index: %v", err)
		}
		if id != i {
			t.Errorf("doc id: got %d, want %d", id, i)
		}
	}
	if s1.Count() != 2 {
		t.Errorf("count: got %d, want 2", s1.Count())
	}

	// A healthy restart re-embeds the log; the ids must still be distinct.
	s2 := newTestStore(t, dir)
	if s2.Count() != 2 {
		t.Fatalf("rehydrated count: got %d, want 2", s2.Count())
	}
	seen := make(map[int64]string)
	for _, o := range s2.All() {
		if prev, dup := seen[o.DocID]; dup {
			t.Fatalf("doc id %d assigned to both %s and %s", o.DocID, prev, o.JobID)
		}
		seen[o.DocID] = o.JobID
	}
	if id, err := s2.LogOutcome(ctx, Outcome{JobID: "job-3", ImprovementType: "add_tests", TargetFile: "b.go"}); err != nil || id != 3 {
		t.Errorf("doc id after recovery: got %d (%v), want 3", id, err)
	}
}

func TestRehydrationCorruptLogDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	s1 := newTestStore(t, dir)
	if _, err := s1.LogOutcome(context.Background(), Outcome{JobID: "1", ImprovementType: "add_tests", TargetFile: "a.go"}); err != nil {
		t.Fatalf("LogOutcome: %v", err)
	}

	// Corrupt the log.
	if err := appendToFile(s1.logPath(), "{not json\n"); err != nil {
		t.Fatalf("corrupt log: %v", err)
	}

	s2 := newTestStore(t, dir)
	if s2.Count() != 0 {
		t.Errorf("corrupt log should degrade to empty store, got %d outcomes", s2.Count())
	}
}

func TestSuccessRate(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	ctx := context.Background()

	outcomes := []Outcome{
		{JobID: "1", ImprovementType: "add_tests", Success: true},
		{JobID: "2", ImprovementType: "add_tests", Success: false, Error: "rejected by council"},
		{JobID: "3", ImprovementType: "add_documentation", Success: true},
		{JobID: "4", ImprovementType: "add_documentation", Success: true},
	}
	for _, o := range outcomes {
		o.TargetFile = "f.go"
		if _, err := s.LogOutcome(ctx, o); err != nil {
			t.Fatalf("LogOutcome: %v", err)
		}
	}

	all := s.SuccessRate("")
	if all.Total != 4 || all.Success != 3 || all.Failure != 1 {
		t.Errorf("overall stats: %+v", all)
	}
	if all.Rate != 0.75 {
		t.Errorf("overall rate: got %v, want 0.75", all.Rate)
	}

	tests := s.SuccessRate("add_tests")
	if tests.Total != 2 || tests.Success != 1 {
		t.Errorf("add_tests stats: %+v", tests)
	}

	empty := s.SuccessRate("reduce_coupling")
	if empty.Total != 0 || empty.Rate != 0 {
		t.Errorf("missing type stats: %+v", empty)
	}
}

func TestCommonFailureModesAndBestTypes(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	ctx := context.Background()

	outcomes := []Outcome{
		{JobID: "1", ImprovementType: "add_tests", Success: false, Error: "syntax validation failed"},
		{JobID: "2", ImprovementType: "add_tests", Success: false, Error: "syntax validation failed"},
		{JobID: "3", ImprovementType: "add_tests", Success: false, Error: "sandbox timeout"},
		{JobID: "4", ImprovementType: "add_documentation", Success: true},
	}
	for _, o := range outcomes {
		o.TargetFile = "f.go"
		if _, err := s.LogOutcome(ctx, o); err != nil {
			t.Fatalf("LogOutcome: %v", err)
		}
	}

	modes := s.CommonFailureModes(1)
	if len(modes) != 1 || modes[0].Error != "syntax validation failed" || modes[0].Count != 2 {
		t.Errorf("failure modes: %+v", modes)
	}

	perf := s.BestPerformingTypes()
	if len(perf) != 2 {
		t.Fatalf("expected 2 type entries, got %d", len(perf))
	}
	if perf[0].Type != "add_documentation" || perf[0].Rate != 1.0 {
		t.Errorf("best type: %+v", perf[0])
	}
	if perf[1].Type != "add_tests" || perf[1].Rate != 0.0 {
		t.Errorf("worst type: %+v", perf[1])
	}
}

func appendToFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(text)
	return err
}
