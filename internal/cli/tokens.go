package cli

import (
	"fmt"
	"time"

	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/Anvoria/walletauth/internal/server"
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

func newTokensCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage pending device tokens",
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete pending device tokens that can no longer be confirmed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				olderThan = cfg.Auth.TokenExpiration()
			}

			clk := clock.New()
			storage, err := server.OpenStorage(cfg, clk)
			if err != nil {
				return err
			}
			defer storage.Close()

			notifier, err := server.NewNotifier(cfg)
			if err != nil {
				return err
			}

			trust := device.NewTrustService(storage.Users, storage.Devices, storage.Tokens, storage.Executor, notifier, clk, device.TrustConfig{
				TokenExpiration:     cfg.Auth.TokenExpiration(),
				EmailSendingTimeout: cfg.Auth.EmailSendingTimeout(),
			})

			n, err := trust.PurgeExpired(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d pending tokens\n", n)
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 0, "age of the tokens to delete (defaults to the confirmation window)")

	cmd.AddCommand(purge)
	return cmd
}
