package db

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return d
}

func TestMigrateIdempotent(t *testing.T) {
	d := testDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestLogAndQueryRunEvents(t *testing.T) {
	d := testDB(t)

	if err := d.LogRunEvent(1, "started", "", ""); err != nil {
		t.Fatalf("LogRunEvent: %v", err)
	}
	if err := d.LogRunEvent(1, "failed", "deploy", "status 500"); err != nil {
		t.Fatalf("LogRunEvent: %v", err)
	}
	if err := d.LogRunEvent(2, "started", "", ""); err != nil {
		t.Fatalf("LogRunEvent: %v", err)
	}

	events, err := d.RunEvents(1)
	if err != nil {
		t.Fatalf("RunEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Event != "started" || events[1].Event != "failed" {
		t.Errorf("events out of order: %+v", events)
	}
	if events[1].Step != "deploy" || events[1].Detail != "status 500" {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestLogAndQueryStepResults(t *testing.T) {
	d := testDB(t)

	steps := []struct {
		step   string
		status string
		ms     int
	}{
		{"build", "success", 90000},
		{"publish", "success", 4000},
		{"deploy", "failure", 2000},
	}
	for _, s := range steps {
		if err := d.LogStepResult(5, s.step, s.status, s.ms, ""); err != nil {
			t.Fatalf("LogStepResult: %v", err)
		}
	}

	results, err := d.StepResults(5)
	if err != nil {
		t.Fatalf("StepResults: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[2].Step != "deploy" || results[2].Status != "failure" {
		t.Errorf("results[2] = %+v", results[2])
	}
}

func TestStepResultStatusConstraint(t *testing.T) {
	d := testDB(t)

	if err := d.LogStepResult(1, "deploy", "exploded", 0, ""); err == nil {
		t.Fatal("expected CHECK constraint violation for unknown status")
	}
}

func TestStepStats(t *testing.T) {
	d := testDB(t)

	for run := 1; run <= 3; run++ {
		if err := d.LogStepResult(run, "build", "success", 60000, ""); err != nil {
			t.Fatalf("LogStepResult: %v", err)
		}
	}
	if err := d.LogStepResult(4, "deploy", "failure", 1000, ""); err != nil {
		t.Fatalf("LogStepResult: %v", err)
	}

	stats, err := d.StepStats()
	if err != nil {
		t.Fatalf("StepStats: %v", err)
	}

	byStep := map[string]StepStat{}
	for _, s := range stats {
		byStep[s.Step] = s
	}
	if b := byStep["build"]; b.Total != 3 || b.Failures != 0 || b.AvgMs != 60000 {
		t.Errorf("build stat = %+v", b)
	}
	if dep := byStep["deploy"]; dep.Total != 1 || dep.Failures != 1 {
		t.Errorf("deploy stat = %+v", dep)
	}
	// Slowest first.
	if len(stats) > 0 && stats[0].Step != "build" {
		t.Errorf("stats[0] = %+v, want build (slowest)", stats[0])
	}
}
