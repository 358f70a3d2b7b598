// Package configcmder provides the config command for managing persistent
// warren configuration stored in the .warren/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent warren configuration.

Configuration is stored as config.toml in the .warren/ directory and provides
default values for command flags. CLI flags and WARREN_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, api.analysis_timeout,
  analysis.workers, analysis.queue_size,
  events.provider, events.brokers, events.topic,
  client.api_target

Use subcommands to get, set, or list configuration values:
  warren config set <key> <value>    Set a configuration value
  warren config get <key>            Get a configuration value
  warren config list                 List all configuration values

Examples:
  warren config set events.provider kafka
  warren config set events.brokers kafka-1:9092,kafka-2:9092
  warren config get api.listen
  warren config list`

const configShortDesc string = "Manage persistent warren configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
