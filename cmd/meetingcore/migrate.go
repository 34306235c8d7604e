package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// database.NewClient applies every pending embedded migration as
		// part of connecting; newApp wires everything else too, but the
		// pool it opens is enough to prove migrations succeeded before we
		// close it again.
		a, err := newApp(ctx, configPath)
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		defer a.close()

		fmt.Println("Migrations applied.")
		return nil
	},
}
