package outcomes

import (
	"fmt"
	"time"

	"github.com/ziadkadry99/auto-improve/internal/introspect"
)

// Outcome is the permanent record of one executed iteration: what was
// attempted, whether it worked, and the measurable before/after state.
// Outcomes are append-only; they are never mutated or deleted.
type Outcome struct {
	DocID           int64                    `json:"doc_id"`
	JobID           string                   `json:"job_id"`
	Success         bool                     `json:"success"`
	ImprovementType string                   `json:"improvement_type"`
	TargetFile      string                   `json:"target_file"`
	MetricsBefore   *introspect.FileMetrics  `json:"metrics_before,omitempty"`
	MetricsAfter    *introspect.FileMetrics  `json:"metrics_after,omitempty"`
	Error           string                   `json:"error,omitempty"`
	CodeChange      string                   `json:"code_change,omitempty"`
	ErrorsBefore    int                      `json:"errors_before"`
	ErrorsAfter     int                      `json:"errors_after"`
	Timestamp       time.Time                `json:"timestamp"`
}

// render produces the canonical textual form of an outcome used for
// embedding. Queries use the same shape so neighbors line up.
func (o *Outcome) render() string {
	status := "failure"
	if o.Success {
		status = "success"
	}
	text := fmt.Sprintf("type: %s, file: %s, result: %s", o.ImprovementType, o.TargetFile, status)
	if o.Error != "" {
		text += ", error: " + o.Error
	}
	return text
}

// SimilarOutcome pairs a historical outcome with its similarity score.
type SimilarOutcome struct {
	Outcome    Outcome
	Similarity float32
}

// SuccessStats aggregates outcome counts, optionally per improvement type.
type SuccessStats struct {
	Total   int     `json:"total"`
	Success int     `json:"success"`
	Failure int     `json:"failure"`
	Rate    float64 `json:"rate"`
}

// FailureMode groups failed outcomes by error message.
type FailureMode struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

// TypePerformance reports the success rate for one improvement type.
type TypePerformance struct {
	Type    string  `json:"type"`
	Total   int     `json:"total"`
	Success int     `json:"success"`
	Rate    float64 `json:"rate"`
}
