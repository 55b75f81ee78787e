package modify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/auto-improve/internal/introspect"
	"github.com/ziadkadry99/auto-improve/internal/llm"
	"github.com/ziadkadry99/auto-improve/internal/sandbox"
)

type stubProvider struct {
	content string
	err     error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

const goOriginal = `package demo

func Add(a, b int) int { return a + b }
`

const goImproved = `package demo

// Add returns the sum of a and b.
func Add(a, b int) int { return a + b }
`

func writeTarget(t *testing.T, name, content string) (root, path string) {
	t.Helper()
	root = t.TempDir()
	path = filepath.Join(root, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, path
}

func docJob(root string) Job {
	return Job{
		ID:        "job-1",
		SessionID: "s1",
		RepoRoot:  root,
		Opportunity: introspect.Opportunity{
			Type:     introspect.OpAddDocumentation,
			File:     "demo.go",
			Severity: introspect.SeverityMedium,
			Message:  "1 of 1 functions documented",
		},
		Metrics: introspect.MeasureFile("demo.go", []byte(goOriginal)),
	}
}

func TestExecuteAppliesDocChange(t *testing.T) {
	root, path := writeTarget(t, "demo.go", goOriginal)
	engine := NewEngine(&stubProvider{content: goImproved}, "m", nil, sandbox.Limits{}, nil)

	res := engine.Execute(context.Background(), docJob(root))
	if !res.Success {
		t.Fatalf("execute failed: %s", res.Error)
	}
	if !res.SandboxSkipped {
		t.Error("documentation change should skip the sandbox")
	}
	if !strings.Contains(res.Diff, "+// Add returns the sum") {
		t.Errorf("diff missing added line:\n%s", res.Diff)
	}
	if res.MetricsAfter == nil || res.MetricsAfter.DocComments != 1 {
		t.Errorf("metrics not recomputed: %+v", res.MetricsAfter)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != goImproved {
		t.Error("replacement content not on disk")
	}
}

func TestExecuteRollsBackOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{"generation error", &stubProvider{err: errors.New("model unavailable")}},
		{"empty output", &stubProvider{content: "   \n"}},
		{"broken go syntax", &stubProvider{content: "package demo\n\nfunc Add(a, b int int {\n"}},
		{"fenced garbage", &stubProvider{content: "```\n\n```"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, path := writeTarget(t, "demo.go", goOriginal)
			engine := NewEngine(tt.provider, "m", nil, sandbox.Limits{}, nil)

			res := engine.Execute(context.Background(), docJob(root))
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Error == "" {
				t.Error("failure must carry a structured error")
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, []byte(goOriginal)) {
				t.Error("target file changed despite failed execute")
			}
		})
	}
}

func TestExecuteRollsBackOnSandboxFailure(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}

	original := "def run():\n    return 1\n"
	broken := "import sys\nsys.exit(2)\n"
	root, path := writeTarget(t, "task.py", original)

	runner := sandbox.NewRunner(nil)
	engine := NewEngine(&stubProvider{content: broken}, "m", runner,
		sandbox.Limits{Timeout: 30 * time.Second}, nil)

	job := Job{
		ID:       "job-2",
		RepoRoot: root,
		Opportunity: introspect.Opportunity{
			Type:    introspect.OpFixCodeSmell,
			File:    "task.py",
			Message: "smell",
		},
		Metrics: introspect.MeasureFile("task.py", []byte(original)),
	}

	res := engine.Execute(context.Background(), job)
	if res.Success {
		t.Fatal("expected sandbox failure")
	}
	if !strings.Contains(res.Error, "sandbox run") {
		t.Errorf("error should name the failing stage: %s", res.Error)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte(original)) {
		t.Error("target file changed despite sandbox failure")
	}
}

func TestExecuteUsesApprovedContent(t *testing.T) {
	root, path := writeTarget(t, "demo.go", goOriginal)
	// Provider would fail, but approved content is supplied so no
	// generation call happens.
	engine := NewEngine(&stubProvider{err: errors.New("must not be called")}, "m", nil, sandbox.Limits{}, nil)

	job := docJob(root)
	job.Content = goImproved

	res := engine.Execute(context.Background(), job)
	if !res.Success {
		t.Fatalf("execute failed: %s", res.Error)
	}
	got, _ := os.ReadFile(path)
	if string(got) != goImproved {
		t.Error("approved content not applied")
	}
}

func TestExecuteReportsDiagnosticCounts(t *testing.T) {
	// The original fails to parse twice over; the replacement is clean.
	broken := "package demo\n\nfunc Add(a, b int int {\nfunc Sub( {\n"
	root, _ := writeTarget(t, "demo.go", broken)
	engine := NewEngine(&stubProvider{err: errors.New("must not be called")}, "m", nil, sandbox.Limits{}, nil)

	job := docJob(root)
	job.Metrics = introspect.MeasureFile("demo.go", []byte(broken))
	job.Content = goImproved

	res := engine.Execute(context.Background(), job)
	if !res.Success {
		t.Fatalf("execute failed: %s", res.Error)
	}
	if res.ErrorsBefore < 1 {
		t.Errorf("errors before: got %d, want >= 1 for a broken original", res.ErrorsBefore)
	}
	if res.ErrorsAfter != 0 {
		t.Errorf("errors after: got %d, want 0 for clean replacement", res.ErrorsAfter)
	}

	// A clean original reports zero on both sides.
	root2, _ := writeTarget(t, "demo.go", goOriginal)
	job2 := docJob(root2)
	job2.Content = goImproved
	res2 := engine.Execute(context.Background(), job2)
	if !res2.Success {
		t.Fatalf("execute failed: %s", res2.Error)
	}
	if res2.ErrorsBefore != 0 || res2.ErrorsAfter != 0 {
		t.Errorf("diagnostic counts: got %d/%d, want 0/0", res2.ErrorsBefore, res2.ErrorsAfter)
	}
}

func TestPreviewProducesProposalWithoutWriting(t *testing.T) {
	root, path := writeTarget(t, "demo.go", goOriginal)
	engine := NewEngine(&stubProvider{content: goImproved}, "m", nil, sandbox.Limits{}, nil)

	proposal, content, err := engine.Preview(context.Background(), docJob(root))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if content != goImproved {
		t.Error("preview content mismatch")
	}
	if len(proposal.AffectedFiles) != 1 || proposal.AffectedFiles[0] != "demo.go" {
		t.Errorf("affected files: %v", proposal.AffectedFiles)
	}
	if !strings.Contains(proposal.Diff, "+// Add returns the sum") {
		t.Errorf("proposal diff:\n%s", proposal.Diff)
	}

	got, _ := os.ReadFile(path)
	if string(got) != goOriginal {
		t.Error("preview must not touch the target file")
	}
}

func TestPreviewRejectsNoOpGeneration(t *testing.T) {
	root, _ := writeTarget(t, "demo.go", goOriginal)
	engine := NewEngine(&stubProvider{content: goOriginal}, "m", nil, sandbox.Limits{}, nil)

	if _, _, err := engine.Preview(context.Background(), docJob(root)); err == nil {
		t.Error("identical output should be rejected")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain content\n", "plain content"},
		{"```go\npackage x\n```", "package x\n"},
		{"```\nhello\n```\n", "hello\n"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCountDiagnostics(t *testing.T) {
	if n := countDiagnostics("a.go", "Go", goOriginal); n != 0 {
		t.Errorf("clean go: got %d diagnostics", n)
	}
	if n := countDiagnostics("a.go", "Go", "package x\n\nfunc Add(a, b int int {\nfunc Sub( {\n"); n < 2 {
		t.Errorf("broken go: got %d diagnostics, want >= 2", n)
	}
	if n := countDiagnostics("a.py", "Python", "def f(x):\n    return {1: [x]\n"); n != 1 {
		t.Errorf("unbalanced python: got %d diagnostics, want 1", n)
	}
}

func TestValidateSyntax(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		language string
		content  string
		wantErr  bool
	}{
		{"valid go", "a.go", "Go", goOriginal, false},
		{"broken go", "a.go", "Go", "package x\nfunc {", true},
		{"balanced python", "a.py", "Python", "def f(x):\n    return {1: [x]}\n", false},
		{"unbalanced python", "a.py", "Python", "def f(x):\n    return {1: [x]\n", true},
		{"empty", "a.py", "Python", "  \n", true},
		{"brace in string ok", "a.js", "JavaScript", "const s = '}';\n", false},
		{"brace in comment ok", "a.js", "JavaScript", "// }\nconst x = 1;\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSyntax(tt.path, tt.language, tt.content)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSyntax: err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
