// Package driver sequences the deployment pipeline: checkout info, quality
// gate, build, publish, fetch, deploy, verify. Stages execute strictly in
// order because each one's output is the next one's input; the first fatal
// failure halts the run.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/warship-cd/warship/internal/build"
	"github.com/warship-cd/warship/internal/config"
	"github.com/warship-cd/warship/internal/db"
	"github.com/warship-cd/warship/internal/nexus"
	"github.com/warship-cd/warship/internal/pipeline"
	"github.com/warship-cd/warship/internal/quality"
	"github.com/warship-cd/warship/internal/tomcat"
	"github.com/warship-cd/warship/internal/verify"
)

var (
	colorOK   = color.New(color.FgGreen)
	colorFail = color.New(color.FgRed)
	colorWarn = color.New(color.FgYellow)
	colorSkip = color.New(color.FgHiBlack)
)

// GitRunner provides git command execution. Interface for testing.
type GitRunner interface {
	RunGit(dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.Command.
type ExecGit struct{}

func (ExecGit) RunGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Stage is one pipeline step with an explicit failure policy. Run returns a
// short human-readable output for the step result.
type Stage struct {
	Name         string
	FatalOnError bool
	Run          func(ctx context.Context) (output string, err error)
}

// Driver composes the pipeline components and executes runs.
type Driver struct {
	cfg       *config.Config
	store     *pipeline.Store
	db        *db.DB // nil disables history logging
	artifacts *nexus.Client
	target    *tomcat.Controller
	verifier  *verify.Verifier
	builder   *build.Runner
	checker   *quality.Checker
	git       GitRunner
	progress  io.Writer // step status lines; nil = silent
}

// New creates a Driver from its collaborators.
func New(
	cfg *config.Config,
	store *pipeline.Store,
	database *db.DB,
	artifacts *nexus.Client,
	target *tomcat.Controller,
	verifier *verify.Verifier,
	builder *build.Runner,
	checker *quality.Checker,
) *Driver {
	return &Driver{
		cfg:       cfg,
		store:     store,
		db:        database,
		artifacts: artifacts,
		target:    target,
		verifier:  verifier,
		builder:   builder,
		checker:   checker,
		git:       ExecGit{},
	}
}

// SetGitRunner overrides the git runner (for testing).
func (d *Driver) SetGitRunner(g GitRunner) {
	d.git = g
}

// SetProgress sets a writer for step status lines (e.g. os.Stderr).
func (d *Driver) SetProgress(w io.Writer) {
	d.progress = w
	d.target.SetProgress(w)
}

// runState carries stage outputs forward through a single run.
type runState struct {
	run          *pipeline.Run
	artifactPath string // local build output, set by the build stage
	ref          *nexus.ArtifactRef
	localWar     string // fetched artifact, set by the fetch stage
	scratch      string // per-run scratch sub-directory
}

// Execute performs a full pipeline run and returns the terminal run state.
// The returned error is non-nil iff the run did not end in success, which
// the CLI maps to a non-zero exit code.
func (d *Driver) Execute(ctx context.Context) (*pipeline.Run, error) {
	st, err := d.newRun()
	if err != nil {
		return nil, err
	}
	return d.execute(ctx, st, d.fullStages(st))
}

// Redeploy performs the deploy-only path: locate the newest published
// artifact, fetch it, deploy it, verify it. No build or publish.
func (d *Driver) Redeploy(ctx context.Context) (*pipeline.Run, error) {
	st, err := d.newRun()
	if err != nil {
		return nil, err
	}
	return d.execute(ctx, st, d.redeployStages(st))
}

// newRun allocates a run number and creates the run on disk. The scratch
// sub-directory is unique per run so concurrent runs never share scratch.
func (d *Driver) newRun() (*runState, error) {
	number, err := d.store.NextNumber()
	if err != nil {
		return nil, fmt.Errorf("allocate run number: %w", err)
	}
	run, err := d.store.Create(number, "")
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return &runState{
		run:     run,
		scratch: filepath.Join(d.cfg.Pipeline.ScratchDir, uuid.New().String()),
	}, nil
}

// execute walks the stage list, recording one StepResult per stage.
// Cancellation is honoured at inter-stage boundaries only.
func (d *Driver) execute(ctx context.Context, st *runState, stages []Stage) (*pipeline.Run, error) {
	number := st.run.Number

	_ = d.store.Update(number, func(r *pipeline.Run) {
		r.Status = pipeline.StatusInProgress
	})
	d.logEvent(number, "started", "", "")

	var fatal error
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			d.skipRemaining(number, stages[i:])
			return d.finish(number, pipeline.StatusCanceled, err)
		}

		start := time.Now()
		output, err := stage.Run(ctx)
		elapsed := time.Since(start)

		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && ctx.Err() != nil {
			d.recordStep(number, stage.Name, pipeline.StepFailure, output, elapsed)
			d.skipRemaining(number, stages[i+1:])
			return d.finish(number, pipeline.StatusCanceled, err)
		}

		if err != nil {
			if output == "" {
				output = err.Error()
			}
			d.recordStep(number, stage.Name, pipeline.StepFailure, output, elapsed)
			if stage.FatalOnError {
				d.stepLine(number, stage.Name, colorFail, "fail", elapsed)
				fatal = fmt.Errorf("stage %s: %w", stage.Name, err)
				d.skipRemaining(number, stages[i+1:])
				break
			}
			d.stepLine(number, stage.Name, colorWarn, "warn", elapsed)
			continue
		}

		d.recordStep(number, stage.Name, pipeline.StepSuccess, output, elapsed)
		d.stepLine(number, stage.Name, colorOK, "ok", elapsed)
	}

	if fatal != nil {
		return d.finish(number, pipeline.StatusFailed, fatal)
	}
	return d.finish(number, pipeline.StatusSuccess, nil)
}

// fullStages builds the stage list for a complete run.
func (d *Driver) fullStages(st *runState) []Stage {
	stages := []Stage{
		{
			// External collaborator: the working copy is already checked
			// out; this stage only records which commit is being shipped.
			Name: "checkout",
			Run: func(ctx context.Context) (string, error) {
				commit, err := d.git.RunGit(d.cfg.Pipeline.Build.Dir, "rev-parse", "HEAD")
				if err != nil {
					return "", err
				}
				_ = d.store.Update(st.run.Number, func(r *pipeline.Run) {
					r.Commit = commit
				})
				return commit, nil
			},
		},
		{
			Name:         "quality",
			FatalOnError: d.cfg.Pipeline.Quality.Gate == quality.PolicyFatal,
			Run: func(ctx context.Context) (string, error) {
				res, err := d.checker.Run(ctx, d.cfg.Pipeline.Build.Dir)
				if err != nil {
					return "", err
				}
				if res.Skipped {
					return "gate skipped by policy", nil
				}
				if res.GateStatus != "" {
					return "gate " + res.GateStatus, nil
				}
				return res.Output, nil
			},
		},
		{
			Name:         "build",
			FatalOnError: true,
			Run: func(ctx context.Context) (string, error) {
				res, err := d.builder.Run(ctx)
				if err != nil {
					return "", err
				}
				st.artifactPath = res.ArtifactPath
				return filepath.Base(res.ArtifactPath), nil
			},
		},
		{
			Name:         "publish",
			FatalOnError: true,
			Run: func(ctx context.Context) (string, error) {
				ref, err := d.artifacts.Publish(ctx, st.artifactPath, st.run.Version)
				if err != nil {
					return "", err
				}
				st.ref = ref
				return ref.Filename(), nil
			},
		},
	}
	return append(stages, d.deploymentStages(st, false)...)
}

// redeployStages builds the stage list for the deploy-only path.
func (d *Driver) redeployStages(st *runState) []Stage {
	return d.deploymentStages(st, true)
}

// deploymentStages is the shared tail of both paths: resolve (when not
// already published by this run), fetch, deploy, verify.
func (d *Driver) deploymentStages(st *runState, locate bool) []Stage {
	var stages []Stage

	if locate {
		stages = append(stages, Stage{
			Name:         "locate",
			FatalOnError: true,
			Run: func(ctx context.Context) (string, error) {
				ref, err := d.artifacts.Locate(ctx)
				if err != nil {
					return "", err
				}
				st.ref = ref
				return ref.Filename(), nil
			},
		})
	}

	return append(stages,
		Stage{
			Name:         "fetch",
			FatalOnError: true,
			Run: func(ctx context.Context) (string, error) {
				local, err := d.artifacts.Download(ctx, st.ref, st.scratch)
				if err != nil {
					return "", err
				}
				st.localWar = local
				return filepath.Base(local), nil
			},
		},
		Stage{
			Name:         "deploy",
			FatalOnError: true,
			Run: func(ctx context.Context) (string, error) {
				res, err := d.target.Deploy(ctx, st.localWar)
				summary := ""
				if res != nil {
					summary = res.Summary()
				}
				if err != nil {
					return summary, err
				}
				return summary, nil
			},
		},
		Stage{
			Name:         "verify",
			FatalOnError: true,
			Run: func(ctx context.Context) (string, error) {
				if err := d.verifier.Check(ctx, d.cfg.Pipeline.Verify.URL); err != nil {
					return "", err
				}
				return "200 OK", nil
			},
		},
	)
}

// recordStep persists a step result to the run store and the history DB.
func (d *Driver) recordStep(number int, name, status, output string, elapsed time.Duration) {
	_ = d.store.AppendStep(number, pipeline.StepResult{
		Name:     name,
		Status:   status,
		Output:   output,
		Duration: elapsed.Round(time.Millisecond).String(),
	})
	if d.db != nil {
		_ = d.db.LogStepResult(number, name, status, int(elapsed.Milliseconds()), output)
	}
}

// skipRemaining marks the stages after a fatal failure as skipped.
func (d *Driver) skipRemaining(number int, stages []Stage) {
	for _, stage := range stages {
		d.recordStep(number, stage.Name, pipeline.StepSkipped, "", 0)
		d.stepLine(number, stage.Name, colorSkip, "skipped", 0)
	}
}

// finish marks the run terminal and logs the closing event.
func (d *Driver) finish(number int, status string, cause error) (*pipeline.Run, error) {
	_ = d.store.Update(number, func(r *pipeline.Run) {
		r.Status = status
	})
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	d.logEvent(number, status, "", detail)

	run, err := d.store.Get(number)
	if err != nil {
		return nil, err
	}
	if cause != nil {
		return run, fmt.Errorf("run %d %s: %w", number, status, cause)
	}
	return run, nil
}

func (d *Driver) logEvent(number int, event, step, detail string) {
	if d.db != nil {
		_ = d.db.LogRunEvent(number, event, step, detail)
	}
}

// stepLine prints one structured status line per step so failures are
// attributable to a stage without reading logs.
func (d *Driver) stepLine(number int, name string, c *color.Color, state string, elapsed time.Duration) {
	if d.progress == nil {
		return
	}
	dots := strings.Repeat(".", max(2, 12-len(name)))
	if elapsed > 0 {
		fmt.Fprintf(d.progress, "[run %d] %s %s %s (%s)\n",
			number, name, dots, c.Sprint(state), elapsed.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(d.progress, "[run %d] %s %s %s\n", number, name, dots, c.Sprint(state))
}
