package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned
// responses, optionally failing a fixed number of times first.
type MockProvider struct {
	mu        sync.Mutex
	Calls     []CompletionRequest
	Response  *CompletionResponse
	Err       error
	FailTimes int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.FailTimes > 0 {
		m.FailTimes--
		return nil, m.Err
	}
	if m.Response == nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func TestCompleteText(t *testing.T) {
	mock := NewMockProvider()

	content, err := CompleteText(context.Background(), mock, "m", "system", "user", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "mock response" {
		t.Errorf("expected 'mock response', got %q", content)
	}

	req := mock.Calls[0]
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != RoleSystem || req.Messages[1].Role != RoleUser {
		t.Errorf("unexpected message roles: %v, %v", req.Messages[0].Role, req.Messages[1].Role)
	}
	if !req.JSONMode {
		t.Error("expected JSON mode to be set")
	}
}

func TestCompleteWithRetryNonRetryableError(t *testing.T) {
	mock := NewMockProvider()
	mock.Err = errors.New("invalid api key")
	mock.FailTimes = 10
	mock.Response = nil

	_, err := CompleteWithRetry(context.Background(), mock, CompletionRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 1 {
		t.Errorf("non-retryable error should not retry, got %d calls", mock.CallCount())
	}
}

func TestRateLimiterDisabledForZeroRPM(t *testing.T) {
	mock := NewMockProvider()
	wrapped := NewRateLimitedProvider(mock, 0)
	if wrapped != Provider(mock) {
		t.Error("expected zero rpm to return the provider unwrapped")
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider()
	wrapped := NewRateLimitedProvider(mock, 600)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := wrapped.Complete(ctx, CompletionRequest{}); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"429 Too Many Requests", true},
		{"rate_limit_exceeded", true},
		{"server overloaded", true},
		{"invalid api key", false},
		{"context deadline exceeded", false},
	}
	for _, tt := range tests {
		if got := isRetryable(errors.New(tt.msg)); got != tt.want {
			t.Errorf("isRetryable(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
