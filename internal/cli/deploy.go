package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Redeploy the newest published artifact: locate, fetch, deploy, verify",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := mustValidConfig()
		if err != nil {
			return err
		}

		d, cleanup, err := newDriver(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signalContext()
		defer cancel()

		run, err := d.Redeploy(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %d succeeded: redeployed and verified\n", run.Number)
		return nil
	},
}
