// Package quality runs the external static-analysis scanner and reads the
// quality gate verdict from the analysis host. The analysis engine itself is
// an external collaborator; this package only invokes it and polls its API.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/warship-cd/warship/internal/config"
)

// Gate policies. The policy decides how a failed gate affects the run:
// fatal aborts it, warn logs and continues, skip never runs the gate.
const (
	PolicyFatal = "fatal"
	PolicyWarn  = "warn"
	PolicySkip  = "skip"
)

// GateError indicates the quality gate verdict was not OK.
type GateError struct {
	ProjectKey string
	Status     string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("quality gate for %s: %s", e.ProjectKey, e.Status)
}

// CommandRunner abstracts scanner execution for testability.
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

// Checker invokes the scanner and reads the gate verdict.
type Checker struct {
	cmd  CommandRunner
	cfg  config.Quality
	http *http.Client
}

// NewChecker creates a Checker.
func NewChecker(cmd CommandRunner, cfg config.Quality) *Checker {
	return &Checker{
		cmd:  cmd,
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient overrides the HTTP client (for testing).
func (c *Checker) SetHTTPClient(h *http.Client) {
	c.http = h
}

// Result holds the outcome of a quality check.
type Result struct {
	Skipped    bool
	GateStatus string
	Output     string
}

// Run executes the configured scanner command, then asks the analysis host
// for the gate verdict. A non-OK verdict returns a GateError; the caller's
// gate policy decides whether that is fatal.
func (c *Checker) Run(ctx context.Context, dir string) (*Result, error) {
	if c.cfg.Gate == PolicySkip {
		return &Result{Skipped: true}, nil
	}

	result := &Result{}

	if c.cfg.Command != "" {
		timeout := config.Duration(c.cfg.Timeout, 5*time.Minute)
		scanCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		stdout, stderr, exitCode, err := c.cmd.Run(scanCtx, dir, c.cfg.Command)
		if err != nil {
			if scanCtx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("scanner timeout after %s", timeout)
			}
			return nil, fmt.Errorf("run scanner: %w", err)
		}
		if exitCode != 0 {
			return nil, fmt.Errorf("scanner exited %d: %s", exitCode, lastLine(stderr))
		}
		result.Output = lastLine(stdout)
	}

	if c.cfg.HostURL != "" {
		status, err := c.gateStatus(ctx)
		if err != nil {
			return nil, err
		}
		result.GateStatus = status
		if status != "OK" {
			return result, &GateError{ProjectKey: c.cfg.ProjectKey, Status: status}
		}
	}

	return result, nil
}

// gateStatus fetches the project's gate verdict from the analysis host.
func (c *Checker) gateStatus(ctx context.Context) (string, error) {
	q := url.Values{"projectKey": {c.cfg.ProjectKey}}
	statusURL := fmt.Sprintf("%s/api/qualitygates/project_status?%s",
		strings.TrimRight(c.cfg.HostURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return "", fmt.Errorf("build gate request: %w", err)
	}
	if c.cfg.Token != "" {
		// Analysis hosts accept the token as the basic-auth username.
		req.SetBasicAuth(c.cfg.Token, "")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch gate status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch gate status: status %d", resp.StatusCode)
	}

	var payload struct {
		ProjectStatus struct {
			Status string `json:"status"`
		} `json:"projectStatus"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("parse gate status: %w", err)
	}
	return payload.ProjectStatus.Status, nil
}

// lastLine returns the last non-empty line of s.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
