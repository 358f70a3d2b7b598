package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/warren/pkg/cliui"
	"github.com/papercomputeco/warren/pkg/config"
)

const listLongDesc string = `List the effective value of every configuration key.

Each line shows the key, the value in use and its source: env for a WARREN_*
variable, file for config.toml in the .warren/ directory, default otherwise.
Flags passed to a single command are not shown.

Examples:
  warren config list
  warren config list --config-dir ./ci/.warren`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(out io.Writer, configDir string) error {
	settings, err := config.ResolveSettings(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if settings.File != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(settings.File))
	} else {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found."))
	}

	keyWidth, valueWidth := 0, 0
	for _, s := range settings.Values {
		keyWidth = max(keyWidth, len(s.Key))
		valueWidth = max(valueWidth, len(displayValue(s)))
	}

	for _, s := range settings.Values {
		fmt.Fprintf(out, "  %-*s  %-*s  %s\n",
			keyWidth, s.Key,
			valueWidth, displayValue(s),
			cliui.DimStyle.Render(s.Source),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func displayValue(s config.Setting) string {
	if s.Value == "" {
		return "<not set>"
	}
	return s.Value
}
