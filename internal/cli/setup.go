package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warship-cd/warship/internal/build"
	"github.com/warship-cd/warship/internal/config"
	"github.com/warship-cd/warship/internal/db"
	"github.com/warship-cd/warship/internal/driver"
	"github.com/warship-cd/warship/internal/nexus"
	"github.com/warship-cd/warship/internal/pipeline"
	"github.com/warship-cd/warship/internal/quality"
	"github.com/warship-cd/warship/internal/tomcat"
	"github.com/warship-cd/warship/internal/verify"
)

// loadConfig loads the config from --config or the default search path.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

// mustValidConfig loads the config and rejects it when validation fails.
func mustValidConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config: %s\n", e)
		}
		return nil, fmt.Errorf("config has %d validation error(s)", len(errs))
	}
	return cfg, nil
}

// newDriver wires the full component graph from config. The history DB is
// best-effort: a failure to open it disables history but not the run.
func newDriver(cfg *config.Config) (*driver.Driver, func(), error) {
	store, err := pipeline.DefaultStore()
	if err != nil {
		return nil, nil, fmt.Errorf("open run store: %w", err)
	}

	var database *db.DB
	if path, err := db.DefaultDBPath(); err == nil {
		if database, err = db.Open(path); err == nil {
			if err := database.Migrate(); err != nil {
				database.Close()
				database = nil
			}
		}
	}

	p := cfg.Pipeline
	artifacts := nexus.NewClient(p.Store)
	controller := tomcat.NewController(tomcat.NewClient(p.Target), p.Target.AppPath)
	verifier := verify.New(
		config.Duration(p.Verify.Grace, 15*time.Second),
		config.Duration(p.Verify.Timeout, 30*time.Second),
	)
	builder := build.NewRunner(&build.ExecRunner{}, p.Build)
	checker := quality.NewChecker(&quality.ExecRunner{}, p.Quality)

	d := driver.New(cfg, store, database, artifacts, controller, verifier, builder, checker)
	d.SetProgress(os.Stderr)

	cleanup := func() {
		if database != nil {
			database.Close()
		}
	}
	return d, cleanup, nil
}

// signalContext returns a context canceled by SIGINT/SIGTERM. In-flight
// best-effort calls run to completion; the driver stops at the next
// stage boundary.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
