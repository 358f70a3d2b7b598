// Package servecmder provides the serve command that runs the warren API
// server with its MCP endpoint.
package servecmder

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/api"
	apimcp "github.com/papercomputeco/warren/api/mcp"
	"github.com/papercomputeco/warren/pkg/catalog"
	"github.com/papercomputeco/warren/pkg/config"
	"github.com/papercomputeco/warren/pkg/eventstream"
	"github.com/papercomputeco/warren/pkg/eventstream/kafka"
	"github.com/papercomputeco/warren/pkg/eventstream/nop"
	"github.com/papercomputeco/warren/pkg/logger"
	"github.com/papercomputeco/warren/pkg/metrics"
	"github.com/papercomputeco/warren/pkg/storage/inmemory"
	"github.com/papercomputeco/warren/pkg/worker"
)

type serveCommander struct {
	listen          string
	analysisTimeout string
	workers         uint
	queueSize       uint
	eventsProvider  string
	eventsBrokers   []string
	eventsTopic     string
	logFile         string

	debug  bool
	logger *zap.Logger
}

// serveFlags are the registry flags bound through viper.
var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagAnalysisTimeout,
	config.FlagWorkers,
	config.FlagQueueSize,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const serveLongDesc string = `Run the warren API server.

The server keeps the category hierarchy and the similarity graph in memory and
serves the HTTP API, Prometheus metrics on /metrics and the MCP tools on /mcp.
Rabbit hole and island analyses run on a bounded worker pool.

Settings come from flags, WARREN_* environment variables and config.toml, in
that order of precedence.

Examples:
  warren serve
  warren serve --listen :9090 --workers 4
  warren serve --events-provider kafka --events-brokers localhost:9092
  warren serve --log-file ./warren.log`

const serveShortDesc string = "Run the warren API server"

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.listen = v.GetString("api.listen")
			cmder.analysisTimeout = v.GetString("api.analysis_timeout")
			cmder.workers = v.GetUint("analysis.workers")
			cmder.queueSize = v.GetUint("analysis.queue_size")
			cmder.eventsProvider = v.GetString("events.provider")
			cmder.eventsBrokers = v.GetStringSlice("events.brokers")
			cmder.eventsTopic = v.GetString("events.topic")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagAnalysisTimeout, &cmder.analysisTimeout)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagQueueSize, &cmder.queueSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringSliceFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.eventsTopic)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run() error {
	closeLog, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	timeout, err := time.ParseDuration(c.analysisTimeout)
	if err != nil {
		return fmt.Errorf("invalid analysis timeout %q: %w", c.analysisTimeout, err)
	}

	pool, err := worker.NewPool(&worker.Config{
		NumWorkers: c.workers,
		QueueSize:  c.queueSize,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating analysis pool: %w", err)
	}

	publisher, err := newPublisher(c.eventsProvider, c.eventsBrokers, c.eventsTopic, c.logger)
	if err != nil {
		pool.Close()
		return err
	}

	m := metrics.New()
	driver := inmemory.NewDriver()

	svc, err := newCatalog(&catalog.Config{
		Store:        driver,
		Similarities: inmemory.NewSimilarityGraph(driver),
		Pool:         pool,
		Publisher:    publisher,
		Metrics:      m,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			c.logger.Warn("error closing catalog", zap.Error(err))
		}
	}()

	mcpServer, err := apimcp.NewServer(apimcp.Config{
		Catalog:         svc,
		AnalysisTimeout: timeout,
		Logger:          c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddr:      c.listen,
		AnalysisTimeout: timeout,
		MetricsHandler:  m.Handler(),
		MCPHandler:      mcpServer.Handler(),
	}, svc, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting warren",
		zap.String("listen", c.listen),
		zap.Uint("workers", c.workers),
		zap.Uint("queue_size", c.queueSize),
		zap.String("events_provider", c.eventsProvider),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

// initLogger builds the console logger, teeing JSON entries into the log file
// when one is configured. The returned func flushes and closes the file.
func (c *serveCommander) initLogger() (func(), error) {
	console := logger.NewLogger(c.debug)
	if c.logFile == "" {
		c.logger = console
		return func() { _ = c.logger.Sync() }, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	c.logger = logger.Multi(console, file)

	return func() {
		_ = c.logger.Sync()
		_ = f.Close()
	}, nil
}

// newCatalog builds the catalog service. On failure it releases the pool and
// publisher it was given.
func newCatalog(cfg *catalog.Config) (*catalog.Service, error) {
	svc, err := catalog.NewService(cfg)
	if err == nil {
		return svc, nil
	}

	if cfg.Pool != nil {
		cfg.Pool.Close()
	}
	if cfg.Publisher != nil {
		if closeErr := cfg.Publisher.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("closing publisher: %w", closeErr))
		}
	}
	return nil, fmt.Errorf("creating catalog: %w", err)
}

// newPublisher selects the change event publisher for provider.
func newPublisher(provider string, brokers []string, topic string, log *zap.Logger) (eventstream.Publisher, error) {
	switch provider {
	case "", config.EventsProviderNop:
		return nop.NewPublisher(), nil
	case config.EventsProviderKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   topic,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		log.Info("publishing catalog events to kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", topic),
		)
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", eventstream.ErrUnknownProvider, provider)
	}
}
