package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "warship",
	Short: "warship is a standalone deployment-pipeline orchestrator",
	Long: `warship drives the full deployment pipeline for WAR-style artifacts:
quality gate, build, publish to the artifact store, deploy to the
application server, and a post-deploy health probe, without depending
on any CI vendor runtime.

Run state is stored in ~/.warship/ (SQLite for history, JSON for runs).
Credentials are read from the environment variables the config names
and never appear in output.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./warship.yaml, ~/.warship/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(artifactCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
