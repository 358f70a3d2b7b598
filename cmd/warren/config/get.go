package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/warren/pkg/cliui"
	"github.com/papercomputeco/warren/pkg/config"
)

const getLongDesc string = `Get the effective value of a configuration key.

Shows the value warren serve and the client commands would use, and where it
comes from: a WARREN_* environment variable, the config.toml file in the
.warren/ directory, or the built-in default. Keys use dotted notation matching
the TOML sections.

Examples:
  warren config get api.listen
  warren config get analysis.workers
  WARREN_EVENTS_PROVIDER=kafka warren config get events.provider`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd.OutOrStdout(), args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runGet(out io.Writer, key, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	settings, err := config.ResolveSettings(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setting, err := settings.Lookup(key)
	if err != nil {
		return err
	}

	value := cliui.ValueStyle.Render(setting.Value)
	if setting.Value == "" {
		value = cliui.DimStyle.Render("<not set>")
	}

	fmt.Fprintf(out, "\n  %s  %s  %s\n\n",
		cliui.KeyStyle.Render(setting.Key),
		value,
		cliui.DimStyle.Render(describeSource(setting, settings.File)),
	)

	return nil
}

// describeSource explains where a resolved value came from.
func describeSource(s config.Setting, file string) string {
	switch s.Source {
	case config.SourceEnv:
		return "(from " + config.EnvName(s.Key) + ")"
	case config.SourceFile:
		return "(from " + file + ")"
	default:
		return "(default)"
	}
}
