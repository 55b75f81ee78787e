package review

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFences removes a surrounding markdown code fence from an LLM
// response, if present.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return raw
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}

func validDecision(d Decision) bool {
	switch d {
	case DecisionApprove, DecisionRevise, DecisionReject:
		return true
	}
	return false
}

func validRisk(r RiskLevel) bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// parseReviewerDecision parses and validates a reviewer's JSON response.
// Any schema violation is a parse failure; callers must treat it exactly
// like a transport error and never guess at partially valid fields.
func parseReviewerDecision(raw string) (*ReviewerDecision, error) {
	var d ReviewerDecision
	if err := json.Unmarshal([]byte(stripFences(raw)), &d); err != nil {
		return nil, fmt.Errorf("reviewer response is not valid JSON: %w", err)
	}
	if !validDecision(d.Decision) {
		return nil, fmt.Errorf("reviewer response has invalid decision %q", d.Decision)
	}
	if !validRisk(d.RiskLevel) {
		return nil, fmt.Errorf("reviewer response has invalid risk level %q", d.RiskLevel)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return nil, fmt.Errorf("reviewer confidence %v out of range", d.Confidence)
	}
	return &d, nil
}

// parseArchitectDecision parses and validates the architect's JSON response.
func parseArchitectDecision(raw string) (*ArchitectDecision, error) {
	var d ArchitectDecision
	if err := json.Unmarshal([]byte(stripFences(raw)), &d); err != nil {
		return nil, fmt.Errorf("architect response is not valid JSON: %w", err)
	}
	if !validDecision(d.Decision) {
		return nil, fmt.Errorf("architect response has invalid decision %q", d.Decision)
	}
	if !validRisk(d.RiskLevel) {
		return nil, fmt.Errorf("architect response has invalid risk level %q", d.RiskLevel)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return nil, fmt.Errorf("architect confidence %v out of range", d.Confidence)
	}
	return &d, nil
}
