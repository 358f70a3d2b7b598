// Package analyzecmder provides the analyze command that reports the rabbit
// hole and rabbit islands of a running server.
package analyzecmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/cliui"
	"github.com/papercomputeco/warren/pkg/client"
	"github.com/papercomputeco/warren/pkg/config"
	"github.com/papercomputeco/warren/pkg/logger"
	"github.com/papercomputeco/warren/pkg/rabbithole"
	"github.com/papercomputeco/warren/pkg/utils"
)

// maxIslandLine caps the rendered member list of a single island.
const maxIslandLine = 120

type analyzeCommander struct {
	raw       bool
	apiTarget string

	out    io.Writer
	debug  bool
	logger *zap.Logger
}

const analyzeLongDesc string = `Report the rabbit hole and rabbit islands of the similarity graph.

The rabbit hole is the set of longest chains of similar categories; rabbit
islands are the groups of categories connected through similarities. Both are
computed by a running warren API server from the same snapshot and rendered
as a markdown report.

Use --raw to print the markdown without terminal styling.

Examples:
  warren analyze
  warren analyze --raw > report.md
  warren analyze --api-target http://localhost:9090`

const analyzeShortDesc string = "Report rabbit holes and islands"

func NewAnalyzeCmd() *cobra.Command {
	cmder := &analyzeCommander{out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: analyzeShortDesc,
		Long:  analyzeLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
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
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print plain markdown")

	return cmd
}

func (c *analyzeCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}

	cl, err := client.New(c.apiTarget, nil)
	if err != nil {
		return err
	}

	report, err := cl.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analyzing similarity graph: %w", err)
	}

	md := Markdown(report)
	if c.raw {
		fmt.Fprint(c.out, md)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(md)
	if err != nil {
		c.logger.Debug("markdown rendering failed, printing raw", zap.Error(err))
	}
	fmt.Fprint(c.out, rendered)
	return nil
}

// Markdown renders an analysis report as a markdown document.
func Markdown(report *rabbithole.Report) string {
	var b strings.Builder

	b.WriteString("# Rabbit hole\n\n")
	hole := report.RabbitHole
	if hole == nil || len(hole.Paths) == 0 {
		b.WriteString("No similarities recorded yet.\n\n")
	} else {
		fmt.Fprintf(&b, "Longest chain: **%d** %s, %d %s.\n\n",
			hole.Length, plural(hole.Length, "step", "steps"),
			len(hole.Paths), plural(len(hole.Paths), "path", "paths"))
		for i, path := range hole.Paths {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(path, " → "))
		}
		b.WriteString("\n")
	}

	b.WriteString("# Rabbit islands\n\n")
	if len(report.Islands) == 0 {
		b.WriteString("No islands.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d %s.\n\n", len(report.Islands), plural(len(report.Islands), "island", "islands"))
	for _, island := range report.Islands {
		fmt.Fprintf(&b, "- **%d** %s: %s\n",
			len(island), plural(len(island), "category", "categories"),
			utils.Truncate(strings.Join(island, ", "), maxIslandLine))
	}

	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
