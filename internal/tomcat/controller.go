package tomcat

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Controller runs the deployment state machine against one context path:
// undeploy → expire → reload → deploy. The first three sub-steps exist only
// to defeat server-side caching of the previous version; their failures are
// recorded as warnings and the sequence continues. Only the deploy sub-step
// decides the outcome. No sub-step is retried here; retry means re-running
// the whole pipeline.
type Controller struct {
	client   *Client
	path     string
	progress io.Writer // live progress output; nil = silent
}

// NewController creates a Controller for the given context path.
func NewController(client *Client, path string) *Controller {
	return &Controller{client: client, path: path}
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (c *Controller) SetProgress(w io.Writer) {
	c.progress = w
}

func (c *Controller) logf(format string, args ...interface{}) {
	if c.progress != nil {
		fmt.Fprintf(c.progress, "  → "+format+"\n", args...)
	}
}

// SubStep records the outcome of one controller sub-step.
type SubStep struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Note string `json:"note,omitempty"`
}

// Result captures the sub-step outcomes of one controller run.
type Result struct {
	SubSteps []SubStep `json:"sub_steps"`
}

// Summary renders the sub-step outcomes as a single status string.
func (r *Result) Summary() string {
	parts := make([]string, 0, len(r.SubSteps))
	for _, s := range r.SubSteps {
		state := "ok"
		if !s.OK {
			state = "warn"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", s.Name, state))
	}
	return strings.Join(parts, " ")
}

// Deploy executes the full sequence for the given local artifact file.
// Cancellation is honoured between sub-steps only: a best-effort call that
// has already been issued runs to completion, so each best-effort sub-step
// gets a detached context.
func (c *Controller) Deploy(ctx context.Context, warFile string) (*Result, error) {
	result := &Result{}

	type bestEffort struct {
		name string
		call func(context.Context, string) error
	}
	prep := []bestEffort{
		{"undeploy", c.client.Undeploy},
		{"expire", c.client.Expire},
		{"reload", c.client.Reload},
	}

	for _, step := range prep {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		c.logf("%s %s", step.name, c.path)
		err := step.call(context.WithoutCancel(ctx), c.path)
		switch {
		case err == nil:
			result.SubSteps = append(result.SubSteps, SubStep{Name: step.name, OK: true})
		case step.name == "undeploy" && IsMissingContext(err):
			c.logf("nothing deployed at %s, continuing", c.path)
			result.SubSteps = append(result.SubSteps, SubStep{Name: step.name, OK: true, Note: "no existing deployment"})
		default:
			c.logf("warning: %s failed: %v", step.name, err)
			result.SubSteps = append(result.SubSteps, SubStep{Name: step.name, OK: false, Note: err.Error()})
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	c.logf("deploy %s (update)", c.path)
	if err := c.client.Deploy(ctx, c.path, warFile); err != nil {
		result.SubSteps = append(result.SubSteps, SubStep{Name: "deploy", OK: false, Note: err.Error()})
		return result, err
	}
	result.SubSteps = append(result.SubSteps, SubStep{Name: "deploy", OK: true})
	return result, nil
}
