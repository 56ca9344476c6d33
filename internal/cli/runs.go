package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warship-cd/warship/internal/db"
	"github.com/warship-cd/warship/internal/pipeline"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := pipeline.DefaultStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		statusFilter, _ := cmd.Flags().GetString("status")
		runs, err := store.List(statusFilter)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-6s %-12s %-12s %-10s %s\n", "RUN", "VERSION", "STATUS", "STEPS", "CREATED")
		fmt.Fprintf(w, "%-6s %-12s %-12s %-10s %s\n",
			strings.Repeat("-", 6),
			strings.Repeat("-", 12),
			strings.Repeat("-", 12),
			strings.Repeat("-", 10),
			strings.Repeat("-", 20))
		for _, r := range runs {
			fmt.Fprintf(w, "%-6d %-12s %-12s %-10d %s\n",
				r.Number, r.Version, r.Status, len(r.Steps), r.CreatedAt)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-number>",
	Short: "Show a run's step results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid run number: %s", args[0])
		}

		store, err := pipeline.DefaultStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		run, err := store.Get(number)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Run #%d (version %s)\n", run.Number, run.Version)
		fmt.Fprintf(w, "  Status:  %s\n", run.Status)
		if run.Commit != "" {
			fmt.Fprintf(w, "  Commit:  %s\n", run.Commit)
		}
		fmt.Fprintf(w, "  Created: %s\n", run.CreatedAt)
		fmt.Fprintf(w, "  Updated: %s\n", run.UpdatedAt)

		if len(run.Steps) > 0 {
			fmt.Fprintln(w, "  Steps:")
			for _, s := range run.Steps {
				line := fmt.Sprintf("    %-10s %-8s %s", s.Name, s.Status, s.Duration)
				if s.Output != "" {
					line += "  " + s.Output
				}
				fmt.Fprintln(w, line)
			}
		}
		return nil
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate step outcomes across all runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := db.DefaultDBPath()
		if err != nil {
			return err
		}
		database, err := db.Open(path)
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrate history db: %w", err)
		}

		stats, err := database.StepStats()
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No step history recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-12s %-8s %-10s %s\n", "STEP", "RUNS", "FAILURES", "AVG")
		for _, s := range stats {
			fmt.Fprintf(w, "%-12s %-8d %-10d %dms\n", s.Step, s.Total, s.Failures, s.AvgMs)
		}
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)

	runsListCmd.Flags().String("status", "", "Filter by status (pending, in_progress, success, failed, canceled)")
}
