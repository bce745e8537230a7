package cli

import (
	"fmt"

	"github.com/Anvoria/walletauth/internal/config"
	"github.com/Anvoria/walletauth/internal/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(step func(*config.Config) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Database.UseMemory() {
				return fmt.Errorf("database driver %q has no schema to migrate", cfg.Database.Driver)
			}
			return step(cfg)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  run(migrations.Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE:  run(migrations.Down),
		},
	)
	return cmd
}
