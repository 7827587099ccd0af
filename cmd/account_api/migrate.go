package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/account-api/internal/config"
	"github.com/jonathan/account-api/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE:  runMigrateVersion,
}

func init() {
	migrateCmd.AddCommand(migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func connect(cmd *cobra.Command) (*db.DB, error) {
	cfg, err := config.NewServerConfig()
	if err != nil {
		return nil, err
	}
	return db.Connect(cmd.Context(), cfg.DatabaseURL)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	database, err := connect(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(cmd.Context()); err != nil {
		return err
	}
	return printVersion(cmd, database)
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	database, err := connect(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	return printVersion(cmd, database)
}

func printVersion(cmd *cobra.Command, database *db.DB) error {
	version, err := database.SchemaVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}
