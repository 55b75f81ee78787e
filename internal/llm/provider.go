package llm

import "context"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Provider is the outbound text-completion capability. Transport and quota
// failures surface as errors; callers must treat them as recoverable.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// CompleteText is a convenience wrapper for the common system+user prompt
// pattern used by reviewers and code generation.
func CompleteText(ctx context.Context, p Provider, model, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	resp, err := p.Complete(ctx, CompletionRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
		MaxTokens:   4096,
		Temperature: 0.2,
		JSONMode:    jsonMode,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
