package modify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/introspect"
	"github.com/ziadkadry99/auto-improve/internal/llm"
	"github.com/ziadkadry99/auto-improve/internal/review"
	"github.com/ziadkadry99/auto-improve/internal/sandbox"
)

// Job describes one file modification to attempt.
type Job struct {
	ID          string
	SessionID   string
	RepoRoot    string
	Opportunity introspect.Opportunity
	Metrics     *introspect.FileMetrics

	// Content is the approved replacement produced by Preview. When empty,
	// Execute generates fresh content itself.
	Content string

	// Feedback carries reviewer comments from revision rounds into the
	// generation prompt.
	Feedback []string
}

// Result is the outcome of one Execute call. A failed Result means the target
// file is byte-for-byte unchanged on disk.
type Result struct {
	Success        bool
	Diff           string
	MetricsBefore  *introspect.FileMetrics
	MetricsAfter   *introspect.FileMetrics
	Error          string
	SandboxSkipped bool
	SandboxOutput  string

	// Syntax diagnostic counts for the original and replacement content.
	ErrorsBefore int
	ErrorsAfter  int
}

// Engine generates replacement content for one file, applies it with a
// byte-for-byte backup, validates it, proves it in a sandbox, and rolls back
// on any failure.
type Engine struct {
	provider llm.Provider
	model    string
	runner   *sandbox.Runner
	limits   sandbox.Limits
	logger   *zap.Logger
}

// NewEngine creates a modification engine.
func NewEngine(provider llm.Provider, model string, runner *sandbox.Runner, limits sandbox.Limits, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider: provider,
		model:    model,
		runner:   runner,
		limits:   limits,
		logger:   logger,
	}
}

// Preview generates replacement content in memory and wraps it in a review
// proposal without touching the target file. The returned content string is
// what reviewers vote on; pass it back in Job.Content so Execute applies
// exactly what was approved.
func (e *Engine) Preview(ctx context.Context, job Job) (*review.Proposal, string, error) {
	target := filepath.Join(job.RepoRoot, filepath.FromSlash(job.Opportunity.File))
	original, err := os.ReadFile(target)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", job.Opportunity.File, err)
	}

	content, err := e.generate(ctx, job, string(original))
	if err != nil {
		return nil, "", err
	}

	diff, err := unifiedDiff(job.Opportunity.File, string(original), content)
	if err != nil {
		return nil, "", fmt.Errorf("diff: %w", err)
	}
	if strings.TrimSpace(diff) == "" {
		return nil, "", fmt.Errorf("generated content is identical to the original")
	}

	proposal := &review.Proposal{
		SessionID:        job.SessionID,
		AffectedFiles:    []string{job.Opportunity.File},
		Diff:             diff,
		Summary:          fmt.Sprintf("%s: %s", job.Opportunity.Type, job.Opportunity.Message),
		Rationale:        instructionFor(job.Opportunity.Type),
		MetricsBefore:    job.Metrics,
		PredictedSuccess: job.Opportunity.PredictedSuccess,
	}
	return proposal, content, nil
}

// Execute applies one approved modification. Every step is failure-checked;
// any failure restores the original bytes and reports a structured error. No
// panic escapes this call.
func (e *Engine) Execute(ctx context.Context, job Job) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("modification engine panicked",
				zap.String("job", job.ID), zap.Any("panic", rec))
			result = &Result{Error: fmt.Sprintf("internal panic: %v", rec)}
		}
	}()

	// Step 1: scratch workspace, cleaned up unconditionally.
	scratch, err := os.MkdirTemp("", "autoimprove-*")
	if err != nil {
		return &Result{Error: "create scratch dir: " + err.Error()}
	}
	defer os.RemoveAll(scratch)

	// Step 2: read the target and keep a byte-for-byte backup.
	target := filepath.Join(job.RepoRoot, filepath.FromSlash(job.Opportunity.File))
	info, err := os.Stat(target)
	if err != nil {
		return &Result{Error: "stat target: " + err.Error()}
	}
	original, err := os.ReadFile(target)
	if err != nil {
		return &Result{Error: "read target: " + err.Error()}
	}
	backup := filepath.Join(scratch, "backup"+filepath.Ext(target))
	if err := os.WriteFile(backup, original, 0o600); err != nil {
		return &Result{Error: "write backup: " + err.Error()}
	}

	language := introspect.DetectLanguage(job.Opportunity.File)
	errorsBefore := countDiagnostics(job.Opportunity.File, language, string(original))

	rollback := func(stage string, cause error) *Result {
		if restoreErr := os.WriteFile(target, original, info.Mode().Perm()); restoreErr != nil {
			e.logger.Error("rollback failed",
				zap.String("file", target), zap.Error(restoreErr))
			return &Result{
				MetricsBefore: job.Metrics,
				ErrorsBefore:  errorsBefore,
				Error:         fmt.Sprintf("%s: %v (rollback also failed: %v)", stage, cause, restoreErr),
			}
		}
		return &Result{
			MetricsBefore: job.Metrics,
			ErrorsBefore:  errorsBefore,
			Error:         fmt.Sprintf("%s: %v", stage, cause),
		}
	}

	// Step 3: replacement content, generated unless an approved preview is
	// being applied.
	content := job.Content
	if content == "" {
		content, err = e.generate(ctx, job, string(original))
		if err != nil {
			return rollback("generation", err)
		}
	}

	// Step 4: reject empty or degenerate output.
	if strings.TrimSpace(content) == "" {
		return rollback("generation", fmt.Errorf("empty output"))
	}

	// Step 5: write replacement, then validate syntax.
	if err := os.WriteFile(target, []byte(content), info.Mode().Perm()); err != nil {
		return rollback("write replacement", err)
	}
	if err := validateSyntax(job.Opportunity.File, language, content); err != nil {
		return rollback("syntax validation", err)
	}

	// Step 6: prove the new content in the sandbox. A copy runs inside the
	// scratch dir so the sandboxed process never sees the repository.
	// Non-functional change types skip this step.
	sandboxSkipped := !needsSandboxRun(job.Opportunity.Type)
	var sandboxOutput string
	if !sandboxSkipped {
		probe := filepath.Join(scratch, filepath.Base(target))
		if err := os.WriteFile(probe, []byte(content), 0o600); err != nil {
			return rollback("sandbox setup", err)
		}
		run, err := e.runner.Run(ctx, probe, language, e.limits)
		if err != nil {
			return rollback("sandbox run", err)
		}
		sandboxOutput = run.Stdout + run.Stderr
		if run.TimedOut {
			return rollback("sandbox run", fmt.Errorf("timed out"))
		}
		if run.ExitCode != 0 {
			return rollback("sandbox run", fmt.Errorf("exit code %d: %s", run.ExitCode, firstLine(run.Stderr)))
		}
	}

	// Step 7: diff, recompute metrics. The backup disappears with the
	// scratch dir now that the change is in place.
	diff, err := unifiedDiff(job.Opportunity.File, string(original), content)
	if err != nil {
		return rollback("diff", err)
	}

	return &Result{
		Success:        true,
		Diff:           diff,
		MetricsBefore:  job.Metrics,
		MetricsAfter:   introspect.MeasureFile(job.Opportunity.File, []byte(content)),
		SandboxSkipped: sandboxSkipped,
		SandboxOutput:  sandboxOutput,
		ErrorsBefore:   errorsBefore,
		ErrorsAfter:    countDiagnostics(job.Opportunity.File, language, content),
	}
}

// generate asks the completion provider for replacement file content.
func (e *Engine) generate(ctx context.Context, job Job, original string) (string, error) {
	resp, err := llm.CompleteWithRetry(ctx, e.provider, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: generationSystemPrompt},
			{Role: llm.RoleUser, Content: generationPrompt(job.Opportunity, job.Metrics, original, job.Feedback)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	content := stripFences(resp.Content)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("completion returned empty content")
	}
	return content, nil
}

// needsSandboxRun reports whether an improvement type changes executable
// behavior. Documentation and import-ordering changes do not.
func needsSandboxRun(t introspect.OpportunityType) bool {
	switch t {
	case introspect.OpAddDocumentation, introspect.OpOptimizeImports:
		return false
	default:
		return true
	}
}

func unifiedDiff(relPath, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + relPath,
		ToFile:   "b/" + relPath,
		Context:  3,
	})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
