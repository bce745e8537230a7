// Package cli holds the walletauth command tree.
package cli

import (
	"fmt"

	"github.com/Anvoria/walletauth/internal/config"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
}

// NewRootCommand builds the walletauth command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "walletauth",
		Short:         "Wallet session and device trust service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (overrides CONFIG_PATH)")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newDeviceCommand(),
		newTokensCommand(opts),
	)
	return root
}

// load reads the config file and applies secrets from the environment
func (o *options) load() (*config.Config, error) {
	env := config.LoadEnv()
	path := env.ConfigPath
	if o.configPath != "" {
		path = o.configPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	env.Apply(cfg)
	return cfg, nil
}
