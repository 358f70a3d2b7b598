// Package treecmder provides the tree command that renders the category
// hierarchy below a category.
package treecmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/client"
	"github.com/papercomputeco/warren/pkg/config"
	"github.com/papercomputeco/warren/pkg/logger"
)

type treeCommander struct {
	name      string
	outline   bool
	apiTarget string

	out    io.Writer
	debug  bool
	logger *zap.Logger
}

const treeLongDesc string = `Render the category hierarchy below a category.

Fetches the tree from a running warren API server and draws it in the
terminal. Use --outline for plain indented lines, one category per line,
in the same format the server logs for /print_category_tree.

Examples:
  warren tree Music
  warren tree "Rock Music" --outline
  warren tree Music --api-target http://localhost:9090`

const treeShortDesc string = "Render the category hierarchy"

func NewTreeCmd() *cobra.Command {
	cmder := &treeCommander{out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "tree <name>",
		Short: treeShortDesc,
		Long:  treeLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString("client.api_target")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.name = args[0]
			cmder.out = cmd.OutOrStdout()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.outline, "outline", false, "Print plain indented lines instead of a drawn tree")

	return cmd
}

func (c *treeCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}

	cl, err := client.New(c.apiTarget, nil)
	if err != nil {
		return err
	}

	c.logger.Debug("fetching category tree",
		zap.String("name", c.name),
		zap.String("api_target", c.apiTarget),
	)

	tree, err := cl.Tree(ctx, c.name)
	if err != nil {
		return fmt.Errorf("fetching tree for %s: %w", c.name, err)
	}

	if c.outline {
		fmt.Fprint(c.out, tree.Outline())
		return nil
	}

	fmt.Fprintln(c.out, tree.Render())
	return nil
}
