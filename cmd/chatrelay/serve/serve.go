// Package servecmder provides the serve command that runs the relay.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/chatrelay/pkg/config"
	eventstreamutils "github.com/papercomputeco/chatrelay/pkg/eventstream/utils"
	"github.com/papercomputeco/chatrelay/pkg/logger"
	"github.com/papercomputeco/chatrelay/pkg/metrics"
	storageutils "github.com/papercomputeco/chatrelay/pkg/storage/utils"
	"github.com/papercomputeco/chatrelay/relay"
)

type serveCommander struct {
	listen         string
	upstream       string
	chatPath       string
	fakeStreamPath string
	loginPath      string
	flushTrailing  bool
	timeout        string
	maxBodyBytes   int64

	storageDriver string
	sqlitePath    string
	postgresDSN   string

	eventStreamProvider string
	kafkaBrokers        string
	kafkaTopic          string

	debug     bool
	logJSON   bool
	logPretty bool
	logFile   string

	logger *slog.Logger
}

const serveLongDesc string = `Run the chatrelay server.

The relay accepts chat requests on POST /api/chat, forwards them to the
upstream chat backend and streams the reply back as one 0:"..." token line per
delta. GET /api/chat proxies the backend's event-stream demo endpoint and
POST /api/login exchanges credentials for a bearer token.

Every finished exchange is stored as a transcript. Use --storage to pick the
store (inmemory, sqlite, postgres) and --eventstream kafka to additionally
publish a transcript event per exchange.

Settings are read from flags, CHATRELAY_* environment variables and
.chatrelay/config.toml, in that order of precedence.`

const serveShortDesc string = "Run the chatrelay server"

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagUpstream,
	config.FlagChatPath,
	config.FlagFakeStreamPath,
	config.FlagLoginPath,
	config.FlagFlushTrailing,
	config.FlagTimeout,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagEventStream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagLogJSON,
	config.FlagLogPretty,
	config.FlagLogFile,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

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

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)
			cmder.load(v)

			// A bare --sqlite path selects the sqlite driver.
			if cmd.Flags().Changed(config.Flags[config.FlagSQLite].Name) &&
				!cmd.Flags().Changed(config.Flags[config.FlagStorageDriver].Name) {
				cmder.storageDriver = config.StorageDriverSQLite
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagChatPath, &cmder.chatPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagFakeStreamPath, &cmder.fakeStreamPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagLoginPath, &cmder.loginPath)
	config.AddBoolFlag(cmd, config.Flags, config.FlagFlushTrailing, &cmder.flushTrailing)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, &cmder.eventStreamProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	config.AddBoolFlag(cmd, config.Flags, config.FlagLogJSON, &cmder.logJSON)
	config.AddBoolFlag(cmd, config.Flags, config.FlagLogPretty, &cmder.logPretty)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.logFile)

	return cmd
}

// load copies the resolved settings out of v.
func (c *serveCommander) load(v *viper.Viper) {
	c.listen = v.GetString("relay.listen")
	c.upstream = v.GetString("relay.upstream")
	c.chatPath = v.GetString("relay.chat_path")
	c.fakeStreamPath = v.GetString("relay.fake_stream_path")
	c.loginPath = v.GetString("relay.login_path")
	c.flushTrailing = v.GetBool("relay.flush_trailing")
	c.timeout = v.GetString("relay.timeout")
	c.maxBodyBytes = v.GetInt64("relay.max_body_bytes")
	c.storageDriver = v.GetString("storage.driver")
	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.postgresDSN = v.GetString("storage.postgres_dsn")
	c.eventStreamProvider = v.GetString("eventstream.provider")
	c.kafkaBrokers = v.GetString("eventstream.brokers")
	c.kafkaTopic = v.GetString("eventstream.topic")
	c.logJSON = v.GetBool("log.json")
	c.logPretty = v.GetBool("log.pretty")
	c.logFile = v.GetString("log.file")
}

// relayConfig validates the resolved settings and builds the relay.Config.
func (c *serveCommander) relayConfig() (relay.Config, error) {
	cfg := &config.Config{Relay: config.RelayConfig{Timeout: c.timeout}}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return relay.Config{}, fmt.Errorf("invalid timeout %q: %w", c.timeout, err)
	}

	return relay.Config{
		ListenAddr:     c.listen,
		UpstreamURL:    c.upstream,
		ChatPath:       c.chatPath,
		FakeStreamPath: c.fakeStreamPath,
		LoginPath:      c.loginPath,
		FlushTrailing:  c.flushTrailing,
		Timeout:        timeout,
		MaxBodyBytes:   c.maxBodyBytes,
		Metrics:        metrics.New(),
	}, nil
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.logJSON),
		logger.WithPretty(c.logPretty),
		logger.WithSource(c.debug),
	)
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithWriter(f),
			logger.WithJSON(true),
			logger.WithDebug(c.debug),
		))
	}

	relayConfig, err := c.relayConfig()
	if err != nil {
		return err
	}

	driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		Driver:      c.storageDriver,
		SQLitePath:  c.sqlitePath,
		PostgresDSN: c.postgresDSN,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating storage driver: %w", err)
	}
	defer driver.Close()

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Provider: c.eventStreamProvider,
		Brokers:  c.kafkaBrokers,
		Topic:    c.kafkaTopic,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()
	relayConfig.Publisher = publisher

	r, err := relay.New(relayConfig, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	c.logger.Info("starting relay",
		"listen", c.listen,
		"upstream", c.upstream,
		"storage", c.storageDriver,
		"eventstream", c.eventStreamProvider,
		"timeout", relayConfig.Timeout.String(),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context canceled, shutting down")
	}

	return nil
}
