package embeddings

import (
	"context"
	"errors"
	"testing"
)

type cannedEmbedder struct {
	vecs [][]float32
	err  error
}

func (cannedEmbedder) Dimensions() int { return 2 }
func (cannedEmbedder) Name() string    { return "canned" }

func (c cannedEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return c.vecs, c.err
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(cannedEmbedder{vecs: [][]float32{{0.6, 0.8}}})
	vec, err := fn(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.6 {
		t.Errorf("vector: got %v", vec)
	}

	fn = ToChromemFunc(cannedEmbedder{err: errors.New("backend down")})
	if _, err := fn(context.Background(), "hello"); err == nil {
		t.Error("provider error must propagate")
	}

	fn = ToChromemFunc(cannedEmbedder{vecs: nil})
	if _, err := fn(context.Background(), "hello"); err == nil {
		t.Error("missing vector must be an error, not a nil embedding")
	}
}
