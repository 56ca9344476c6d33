// Package build invokes the external build tool and locates its single
// output artifact. The build tool itself (Maven or equivalent) is an
// external collaborator; its exit code is the pass/fail signal.
package build

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/warship-cd/warship/internal/config"
)

// BuildError indicates the build produced zero or multiple artifacts, or the
// build command itself failed. A deployable run needs exactly one output.
type BuildError struct {
	Dir     string
	Pattern string
	Matches []string
	Detail  string
}

func (e *BuildError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("build: %s", e.Detail)
	}
	if len(e.Matches) == 0 {
		return fmt.Sprintf("build: no artifact matching %q in %s", e.Pattern, e.Dir)
	}
	return fmt.Sprintf("build: %d artifacts matching %q in %s, want exactly one", len(e.Matches), e.Pattern, e.Dir)
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Runner executes the configured build command and resolves its artifact.
type Runner struct {
	cmd CommandRunner
	cfg config.Build
}

// NewRunner creates a Runner with the given command runner.
func NewRunner(cmd CommandRunner, cfg config.Build) *Runner {
	return &Runner{cmd: cmd, cfg: cfg}
}

// Result holds the outcome of a build run.
type Result struct {
	ArtifactPath string
	DurationMs   int
	Output       string
}

// Run executes the build command and locates the single output artifact.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	timeout := config.Duration(r.cfg.Timeout, 10*time.Minute)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := r.cmd.Run(ctx, r.cfg.Dir, r.cfg.Command)
	durationMs := int(time.Since(start).Milliseconds())

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &BuildError{Detail: fmt.Sprintf("timeout after %s", timeout)}
		}
		return nil, fmt.Errorf("run build command: %w", err)
	}
	if exitCode != 0 {
		return nil, &BuildError{Detail: fmt.Sprintf("command exited %d: %s", exitCode, tail(stderr, 400))}
	}

	artifact, err := r.FindArtifact()
	if err != nil {
		return nil, err
	}

	return &Result{
		ArtifactPath: artifact,
		DurationMs:   durationMs,
		Output:       tail(stdout, 400),
	}, nil
}

// FindArtifact globs the artifact directory for the configured pattern and
// requires exactly one match.
func (r *Runner) FindArtifact() (string, error) {
	dir := filepath.Join(r.cfg.Dir, r.cfg.ArtifactDir)
	pattern := filepath.Join(dir, r.cfg.ArtifactPattern)

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) != 1 {
		return "", &BuildError{Dir: dir, Pattern: r.cfg.ArtifactPattern, Matches: matches}
	}
	return matches[0], nil
}

// tail returns the last n bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
