package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limits are the resource caps applied to one sandboxed run.
type Limits struct {
	Timeout    time.Duration
	MemoryMB   int
	CPUSeconds int
}

// RunResult reports what happened inside the sandbox. A non-zero exit code
// is a result, not an error; errors are reserved for failures to run at all.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Runner executes a single source file in an isolated scratch directory
// with a hard wall-clock timeout, scrubbed environment, CPU/memory caps via
// ulimit, and network isolation via unshare where the platform permits it.
type Runner struct {
	logger *zap.Logger

	// lookPath is swappable for tests.
	lookPath func(string) (string, error)

	unshareOnce sync.Once
	unshareOK   bool
}

// NewRunner creates a sandbox Runner.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, lookPath: exec.LookPath}
}

// canUnshare probes whether network namespace unsharing works here. It needs
// both the unshare binary and sufficient privileges, so a dry run is the only
// reliable check.
func (r *Runner) canUnshare() bool {
	r.unshareOnce.Do(func() {
		if _, err := r.lookPath("unshare"); err != nil {
			return
		}
		r.unshareOK = exec.Command("unshare", "-n", "true").Run() == nil
	})
	return r.unshareOK
}

// interpreterFor maps a language to the command that executes one file.
func interpreterFor(language string) ([]string, error) {
	switch language {
	case "Go":
		return []string{"go", "run"}, nil
	case "Python":
		return []string{"python3"}, nil
	case "JavaScript":
		return []string{"node"}, nil
	case "TypeScript":
		return []string{"npx", "--yes", "tsx"}, nil
	case "Ruby":
		return []string{"ruby"}, nil
	default:
		return nil, fmt.Errorf("no sandbox runtime for language %q", language)
	}
}

// Run executes filePath inside its own directory. The run is bounded by
// limits.Timeout; on expiry the process tree is killed and TimedOut is set.
func (r *Runner) Run(ctx context.Context, filePath, language string, limits Limits) (*RunResult, error) {
	interp, err := interpreterFor(language)
	if err != nil {
		return nil, err
	}
	if _, err := r.lookPath(interp[0]); err != nil {
		return nil, fmt.Errorf("sandbox runtime %q not installed: %w", interp[0], err)
	}

	timeout := limits.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir := filepath.Dir(filePath)
	script := buildShellCommand(interp, filepath.Base(filePath), limits)

	argv := []string{"sh", "-c", script}
	// Drop network access when the platform allows namespace unsharing.
	if r.canUnshare() {
		argv = append([]string{"unshare", "-n", "--"}, argv...)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = scrubbedEnv(dir)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := &RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		r.logger.Warn("sandbox run timed out",
			zap.String("file", filePath), zap.Duration("elapsed", elapsed))
		return result, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("sandbox run failed to start: %w", runErr)
	}

	result.ExitCode = 0
	return result, nil
}

// buildShellCommand wraps the interpreter invocation with ulimit-based CPU
// and memory caps.
func buildShellCommand(interp []string, fileName string, limits Limits) string {
	var b strings.Builder
	if limits.CPUSeconds > 0 {
		fmt.Fprintf(&b, "ulimit -t %d; ", limits.CPUSeconds)
	}
	if limits.MemoryMB > 0 {
		fmt.Fprintf(&b, "ulimit -v %d; ", limits.MemoryMB*1024)
	}
	b.WriteString("exec")
	for _, part := range interp {
		b.WriteString(" ")
		b.WriteString(part)
	}
	fmt.Fprintf(&b, " %s", shellQuote(fileName))
	return b.String()
}

// scrubbedEnv gives the child a minimal environment confined to the scratch
// directory: no inherited secrets, caches pointed inside the sandbox.
func scrubbedEnv(dir string) []string {
	return []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"GOCACHE=" + filepath.Join(dir, ".gocache"),
		"GOPATH=" + filepath.Join(dir, ".gopath"),
		"NO_COLOR=1",
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
