package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warship-cd/warship/internal/config"
	"github.com/warship-cd/warship/internal/verify"
)

var verifyNoGrace bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Probe the deployed application once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p := cfg.Pipeline
		grace := config.Duration(p.Verify.Grace, 15*time.Second)
		if verifyNoGrace {
			grace = 0
		}
		v := verify.New(grace, config.Duration(p.Verify.Timeout, 30*time.Second))

		ctx, cancel := signalContext()
		defer cancel()

		if err := v.Check(ctx, p.Verify.URL); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is up (200)\n", p.Verify.URL)
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyNoGrace, "no-grace", false, "Probe immediately, skipping the grace window")
}
