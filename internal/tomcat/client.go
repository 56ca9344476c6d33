// Package tomcat drives a Tomcat-style manager text API: undeploy, expire,
// reload, and deploy against a single context path.
package tomcat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/warship-cd/warship/internal/config"
)

// DeployError indicates the fatal deploy call failed. It is the only manager
// failure that aborts a run.
type DeployError struct {
	Path   string
	Status int
	Detail string
	Err    error
}

func (e *DeployError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("deploy %s: %v", e.Path, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("deploy %s: %s", e.Path, e.Detail)
	default:
		return fmt.Sprintf("deploy %s: status %d", e.Path, e.Status)
	}
}

func (e *DeployError) Unwrap() error { return e.Err }

// ManagerError is a non-deploy manager command failure.
type ManagerError struct {
	Command string
	Path    string
	Message string
}

func (e *ManagerError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Command, e.Path, e.Message)
}

// IsMissingContext reports whether err is the manager telling us the context
// path has nothing deployed. Undeploying a missing app is an idempotent no-op.
func IsMissingContext(err error) bool {
	var me *ManagerError
	if !errors.As(err, &me) {
		return false
	}
	return strings.Contains(strings.ToLower(me.Message), "no context exists")
}

// Client is a manager text API client with basic auth.
type Client struct {
	baseURL string
	cred    config.Credential
	http    *http.Client
}

// NewClient creates a manager client from target config.
func NewClient(cfg config.Target) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cred:    cfg.Credential,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// SetHTTPClient overrides the HTTP client (for testing).
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// Undeploy removes the application at path. The caller decides whether a
// missing context is an error (see IsMissingContext).
func (c *Client) Undeploy(ctx context.Context, path string) error {
	_, err := c.command(ctx, "undeploy", url.Values{"path": {path}})
	return err
}

// Expire expires all idle sessions for path.
func (c *Client) Expire(ctx context.Context, path string) error {
	_, err := c.command(ctx, "expire", url.Values{"path": {path}, "idle": {"0"}})
	return err
}

// Reload stops and restarts the application at path.
func (c *Client) Reload(ctx context.Context, path string) error {
	_, err := c.command(ctx, "reload", url.Values{"path": {path}})
	return err
}

// Deploy uploads warFile to path with the update flag set, replacing any
// existing deployment.
func (c *Client) Deploy(ctx context.Context, path string, warFile string) error {
	f, err := os.Open(warFile)
	if err != nil {
		return &DeployError{Path: path, Err: fmt.Errorf("open %s: %w", warFile, err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &DeployError{Path: path, Err: fmt.Errorf("stat %s: %w", warFile, err)}
	}

	q := url.Values{"path": {path}, "update": {"true"}}
	deployURL := fmt.Sprintf("%s/deploy?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, deployURL, f)
	if err != nil {
		return &DeployError{Path: path, Err: err}
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &DeployError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &DeployError{Path: path, Status: resp.StatusCode, Detail: body}
	}
	if !strings.HasPrefix(body, "OK") {
		return &DeployError{Path: path, Status: resp.StatusCode, Detail: body}
	}
	return nil
}

// command issues a GET manager command and parses the OK/FAIL response body.
func (c *Client) command(ctx context.Context, name string, q url.Values) (string, error) {
	cmdURL := fmt.Sprintf("%s/%s?%s", c.baseURL, name, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cmdURL, nil)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", name, err)
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return body, &ManagerError{Command: name, Path: q.Get("path"), Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	if !strings.HasPrefix(body, "OK") {
		return body, &ManagerError{Command: name, Path: q.Get("path"), Message: body}
	}
	return body, nil
}

func (c *Client) auth(req *http.Request) {
	if !c.cred.IsZero() {
		req.SetBasicAuth(c.cred.Username, c.cred.Password)
	}
}

// readBody reads a manager response body. Manager responses are one-line
// status messages, so a small cap is plenty.
func readBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(data))
}
