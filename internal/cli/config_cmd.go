package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warship-cd/warship/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate the pipeline config",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config and report all problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		errs := config.Validate(cfg)
		if len(errs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Config is valid.")
			return nil
		}
		for _, e := range errs {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
		}
		return fmt.Errorf("config has %d validation error(s)", len(errs))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective config with credentials redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p := cfg.Pipeline
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Pipeline: %s\n", p.Name)
		fmt.Fprintf(w, "  Scratch dir: %s\n", p.ScratchDir)
		fmt.Fprintf(w, "  Quality:\n")
		fmt.Fprintf(w, "    Host:    %s\n", p.Quality.HostURL)
		fmt.Fprintf(w, "    Project: %s\n", p.Quality.ProjectKey)
		fmt.Fprintf(w, "    Gate:    %s\n", p.Quality.Gate)
		fmt.Fprintf(w, "  Build:\n")
		fmt.Fprintf(w, "    Command:  %s\n", p.Build.Command)
		fmt.Fprintf(w, "    Artifact: %s/%s\n", p.Build.ArtifactDir, p.Build.ArtifactPattern)
		fmt.Fprintf(w, "  Store:\n")
		fmt.Fprintf(w, "    URL:        %s\n", p.Store.BaseURL)
		fmt.Fprintf(w, "    Repository: %s\n", p.Store.Repository)
		fmt.Fprintf(w, "    Coords:     %s/%s.%s\n", p.Store.Group, p.Store.Artifact, p.Store.Extension)
		fmt.Fprintf(w, "    Credential: %s\n", p.Store.Credential)
		fmt.Fprintf(w, "  Target:\n")
		fmt.Fprintf(w, "    URL:        %s\n", p.Target.BaseURL)
		fmt.Fprintf(w, "    App path:   %s\n", p.Target.AppPath)
		fmt.Fprintf(w, "    Credential: %s\n", p.Target.Credential)
		fmt.Fprintf(w, "  Verify:\n")
		fmt.Fprintf(w, "    URL:     %s\n", p.Verify.URL)
		fmt.Fprintf(w, "    Grace:   %s\n", p.Verify.Grace)
		fmt.Fprintf(w, "    Timeout: %s\n", p.Verify.Timeout)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
