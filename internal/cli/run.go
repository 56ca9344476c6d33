package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warship-cd/warship/internal/quality"
)

var runSkipQuality bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full pipeline: quality, build, publish, deploy, verify",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := mustValidConfig()
		if err != nil {
			return err
		}
		if runSkipQuality {
			cfg.Pipeline.Quality.Gate = quality.PolicySkip
		}

		d, cleanup, err := newDriver(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signalContext()
		defer cancel()

		run, err := d.Execute(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %d succeeded: version %s deployed and verified\n",
			run.Number, run.Version)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runSkipQuality, "skip-quality", false, "Skip the quality gate for this run")
}
