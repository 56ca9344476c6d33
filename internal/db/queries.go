package db

import (
	"database/sql"
	"fmt"
)

// RunEvent represents a row in the run_events table.
type RunEvent struct {
	ID        int
	Run       int
	Event     string
	Step      string
	Detail    string
	Timestamp string
}

// StepResult represents a row in the step_results table.
type StepResult struct {
	ID         int
	Run        int
	Step       string
	Status     string
	DurationMs int
	Output     string
	Timestamp  string
}

// StepStat aggregates outcomes for one step name across runs.
type StepStat struct {
	Step      string
	Total     int
	Failures  int
	AvgMs     int
}

// LogRunEvent inserts a run lifecycle event.
func (d *DB) LogRunEvent(run int, event string, step string, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_events (run, event, step, detail) VALUES (?, ?, ?, ?)`,
		run, event, step, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// LogStepResult inserts a step result row.
func (d *DB) LogStepResult(run int, step string, status string, durationMs int, output string) error {
	_, err := d.conn.Exec(
		`INSERT INTO step_results (run, step, status, duration_ms, output) VALUES (?, ?, ?, ?, ?)`,
		run, step, status, durationMs, output,
	)
	if err != nil {
		return fmt.Errorf("log step result: %w", err)
	}
	return nil
}

// RunEvents returns all events for a run in chronological order.
func (d *DB) RunEvents(run int) ([]RunEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run, event, step, detail, timestamp
		 FROM run_events WHERE run = ? ORDER BY id ASC`,
		run,
	)
	if err != nil {
		return nil, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var step, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Run, &e.Event, &step, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		e.Step = step.String
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// StepResults returns all step results for a run in execution order.
func (d *DB) StepResults(run int) ([]StepResult, error) {
	rows, err := d.conn.Query(
		`SELECT id, run, step, status, duration_ms, output, timestamp
		 FROM step_results WHERE run = ? ORDER BY id ASC`,
		run,
	)
	if err != nil {
		return nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	var results []StepResult
	for rows.Next() {
		var r StepResult
		var durationMs sql.NullInt64
		var output sql.NullString
		if err := rows.Scan(&r.ID, &r.Run, &r.Step, &r.Status, &durationMs, &output, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan step result: %w", err)
		}
		r.DurationMs = int(durationMs.Int64)
		r.Output = output.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// StepStats aggregates step outcomes across all runs, slowest steps first.
// Useful for spotting which pipeline stage fails or drags the most.
func (d *DB) StepStats() ([]StepStat, error) {
	rows, err := d.conn.Query(
		`SELECT step,
		        COUNT(*),
		        SUM(CASE WHEN status = 'failure' THEN 1 ELSE 0 END),
		        CAST(AVG(COALESCE(duration_ms, 0)) AS INTEGER)
		 FROM step_results
		 GROUP BY step
		 ORDER BY 4 DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query step stats: %w", err)
	}
	defer rows.Close()

	var stats []StepStat
	for rows.Next() {
		var s StepStat
		if err := rows.Scan(&s.Step, &s.Total, &s.Failures, &s.AvgMs); err != nil {
			return nil, fmt.Errorf("scan step stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
