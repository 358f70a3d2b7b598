// Package warrencmder
package warrencmder

import (
	"github.com/spf13/cobra"

	versioncmder "github.com/papercomputeco/warren/cmd/version"
	analyzecmder "github.com/papercomputeco/warren/cmd/warren/analyze"
	benchcmder "github.com/papercomputeco/warren/cmd/warren/bench"
	configcmder "github.com/papercomputeco/warren/cmd/warren/config"
	servecmder "github.com/papercomputeco/warren/cmd/warren/serve"
	treecmder "github.com/papercomputeco/warren/cmd/warren/tree"
)

const warrenLongDesc string = `Warren keeps a hierarchy of categories and a graph of similarities between
them, and finds the rabbit holes and rabbit islands hiding in that graph.

Run the server and talk to it using:
  warren serve         Run the API server
  warren tree <name>   Render the hierarchy below a category
  warren analyze       Report rabbit holes and islands
  warren bench         Benchmark a running server
  warren config        Manage persistent configuration`

const warrenShortDesc string = "Warren - category rabbit holes"

func NewWarrenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "warren",
		Short:         warrenShortDesc,
		Long:          warrenLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .warren/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(treecmder.NewTreeCmd())
	cmd.AddCommand(analyzecmder.NewAnalyzeCmd())
	cmd.AddCommand(benchcmder.NewBenchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
