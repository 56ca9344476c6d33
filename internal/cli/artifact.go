package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warship-cd/warship/internal/nexus"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Query the artifact store",
}

var artifactLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Resolve the newest published artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := nexus.NewClient(cfg.Pipeline.Store)

		ctx, cancel := signalContext()
		defer cancel()

		ref, err := client.Locate(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Artifact: %s\n", ref.Filename())
		fmt.Fprintf(w, "  Group:   %s\n", ref.Group)
		fmt.Fprintf(w, "  Version: %s\n", ref.Version)
		fmt.Fprintf(w, "  URL:     %s\n", ref.DownloadURL)
		return nil
	},
}

func init() {
	artifactCmd.AddCommand(artifactLatestCmd)
}
