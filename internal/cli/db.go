package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warship-cd/warship/internal/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the run history database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the history database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openHistoryDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate all history tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return fmt.Errorf("refusing to reset without --yes")
		}

		database, err := openHistoryDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Reset(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History database reset.")
		return nil
	},
}

func openHistoryDB() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return database, nil
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)

	dbResetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
