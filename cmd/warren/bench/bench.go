// Package benchcmder provides the bench command, a load harness that fills a
// running server with random categories and similarities and times each phase.
package benchcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/warren/pkg/category"
	"github.com/papercomputeco/warren/pkg/cliui"
	"github.com/papercomputeco/warren/pkg/client"
	"github.com/papercomputeco/warren/pkg/config"
	"github.com/papercomputeco/warren/pkg/dotdir"
	"github.com/papercomputeco/warren/pkg/logger"
)

type benchCommander struct {
	categories   int
	similarities int
	concurrency  int
	seed         uint64
	cleanup      bool

	apiTarget string
	configDir string

	out    io.Writer
	debug  bool
	logger *zap.Logger
}

const benchLongDesc string = `Benchmark a running warren API server.

Creates random categories (about one in ten at the root level, the rest under
a random root) and random similarity pairs, then retrieves and updates every
category and runs one full analysis. Each phase prints its elapsed time and
throughput.

The created names are saved to bench.json in the .warren/ directory so a later
run with --cleanup can delete them.

Examples:
  warren bench
  warren bench --categories 10000 --similarities 20000 --concurrency 32
  warren bench --seed 42
  warren bench --cleanup`

const benchShortDesc string = "Benchmark a running warren server"

func NewBenchCmd() *cobra.Command {
	cmder := &benchCommander{out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: benchShortDesc,
		Long:  benchLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString("client.api_target")

			if !cmd.Flags().Changed("seed") {
				cmder.seed = uint64(time.Now().UnixNano())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if cmder.cleanup {
				return cmder.runCleanup(ctx)
			}
			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().IntVarP(&cmder.categories, "categories", "n", 1000, "Number of categories to create")
	cmd.Flags().IntVarP(&cmder.similarities, "similarities", "m", 2000, "Number of similarity pairs to create")
	cmd.Flags().IntVarP(&cmder.concurrency, "concurrency", "c", 8, "Concurrent requests per phase")
	cmd.Flags().Uint64Var(&cmder.seed, "seed", 0, "Random seed (default: current time)")
	cmd.Flags().BoolVar(&cmder.cleanup, "cleanup", false, "Delete the categories created by the last run and exit")

	return cmd
}

func (c *benchCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.categories <= 0 {
		return fmt.Errorf("--categories must be positive, got %d", c.categories)
	}
	if c.concurrency <= 0 {
		return fmt.Errorf("--concurrency must be positive, got %d", c.concurrency)
	}

	cl, err := client.New(c.apiTarget, nil)
	if err != nil {
		return err
	}
	if err := cl.Ping(ctx); err != nil {
		return err
	}

	plan := NewPlan(c.categories, c.similarities, c.seed)
	names := plan.Names()
	c.logger.Debug("bench plan",
		zap.Int("roots", len(plan.Roots)),
		zap.Int("children", len(plan.Children)),
		zap.Int("similarities", len(plan.Similarities)),
		zap.Uint64("seed", c.seed),
	)

	fmt.Fprintf(c.out, "\n  Benchmarking %s\n\n", cliui.KeyStyle.Render(c.apiTarget))

	state := &dotdir.BenchState{
		Target:    c.apiTarget,
		StartedAt: time.Now(),
	}

	createErr := c.phase(fmt.Sprintf("Creating %d categories", len(names)), len(names), func() error {
		for _, wave := range [][]PlannedCategory{plan.Roots, plan.Children} {
			err := c.parallel(ctx, len(wave), func(ctx context.Context, i int) error {
				_, err := cl.CreateCategory(ctx, category.New(wave[i].Name, wave[i].Parent))
				return err
			})
			if err != nil {
				return err
			}
			for _, pc := range wave {
				state.Categories = append(state.Categories, pc.Name)
			}
		}
		return nil
	})

	// Save whatever was created so --cleanup can remove a partial run.
	ddm := dotdir.NewManager()
	if len(state.Categories) > 0 {
		if err := ddm.SaveBenchState(state, c.configDir); err != nil {
			c.logger.Warn("failed to save bench state", zap.Error(err))
		}
	}
	if createErr != nil {
		return createErr
	}

	phases := []struct {
		name string
		n    int
		fn   func(ctx context.Context, i int) error
	}{
		{
			name: fmt.Sprintf("Adding %d similarities", len(plan.Similarities)),
			n:    len(plan.Similarities),
			fn: func(ctx context.Context, i int) error {
				pair := plan.Similarities[i]
				return cl.AddSimilarity(ctx, pair[0], pair[1])
			},
		},
		{
			name: fmt.Sprintf("Retrieving %d categories", len(names)),
			n:    len(names),
			fn: func(ctx context.Context, i int) error {
				_, err := cl.GetCategory(ctx, names[i])
				return err
			},
		},
		{
			name: fmt.Sprintf("Updating %d categories", len(names)),
			n:    len(names),
			fn: func(ctx context.Context, i int) error {
				patch := category.Patch{Description: category.Some("updated by warren bench")}
				_, err := cl.UpdateCategory(ctx, names[i], patch)
				return err
			},
		},
	}

	for _, p := range phases {
		if err := c.phase(p.name, p.n, func() error {
			return c.parallel(ctx, p.n, p.fn)
		}); err != nil {
			return err
		}
	}

	var holeLength, islands int
	if err := c.phase("Analyzing similarity graph", 1, func() error {
		report, err := cl.Analyze(ctx)
		if err != nil {
			return err
		}
		holeLength = report.RabbitHole.Length
		islands = len(report.Islands)
		return nil
	}); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Rabbit hole length %s, %s islands\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(fmt.Sprint(holeLength)),
		cliui.NameStyle.Render(fmt.Sprint(islands)),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Run warren bench --cleanup to delete the created categories."))
	return nil
}

func (c *benchCommander) runCleanup(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ddm := dotdir.NewManager()
	state, err := ddm.LoadBenchState(c.configDir)
	if err != nil {
		return err
	}
	if state == nil || len(state.Categories) == 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("Nothing to clean up."))
		return nil
	}

	target := state.Target
	if target == "" {
		target = c.apiTarget
	}
	cl, err := client.New(target, nil)
	if err != nil {
		return err
	}

	// Children go first so no deletion re-parents a category that is about to
	// be deleted anyway.
	names := slices.Clone(state.Categories)
	slices.Reverse(names)

	var missing atomic.Int64
	err = c.phase(fmt.Sprintf("Deleting %d categories", len(names)), len(names), func() error {
		return c.parallel(ctx, len(names), func(ctx context.Context, i int) error {
			_, err := cl.DeleteCategory(ctx, names[i])
			if client.IsNotFound(err) {
				missing.Add(1)
				return nil
			}
			return err
		})
	})
	if err != nil {
		return err
	}

	if n := missing.Load(); n > 0 {
		c.logger.Info("some bench categories were already gone", zap.Int64("missing", n))
	}

	return ddm.ClearBenchState(c.configDir)
}

// phase runs fn as one timed step and prints its throughput.
func (c *benchCommander) phase(name string, ops int, fn func() error) error {
	start := time.Now()
	err := cliui.Step(c.out, name, fn)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	fmt.Fprintf(c.out, "      %s\n", cliui.StepStyle.Render(cliui.Rate(ops, time.Since(start))))
	return nil
}

// parallel calls fn for every index in [0, n) with at most c.concurrency calls
// in flight. The first error cancels the remaining calls.
func (c *benchCommander) parallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i := range n {
		g.Go(func() error {
			return fn(gCtx, i)
		})
	}

	return g.Wait()
}
