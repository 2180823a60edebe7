// Package main is the entry point for the items API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/items-api/internal/config"
	"github.com/vyrodovalexey/items-api/internal/server"
	"github.com/vyrodovalexey/items-api/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options holds the command line flags.
type options struct {
	configFile string
	port       int
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "items-api",
		Short: "In-memory item catalogue served over HTTP",
		Long: `items-api serves a CRUD API for items held in memory.

Configuration is read from defaults, an optional YAML file, APP_* environment
variables and finally command line flags, each overriding the previous one.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	bindFlags(cmd, opts)

	return cmd
}

func bindFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "path to a YAML config file (env "+config.EnvConfigFile+")")
	flags.IntVarP(&opts.port, "port", "p", config.DefaultServerPort, "port to listen on")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
}

// loadConfig loads the layered configuration and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("port") {
		cfg.ServerPort = opts.port
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating flags: %w", err)
	}

	return cfg, nil
}

// run serves until ctx is cancelled and then shuts the server down.
func run(ctx context.Context, cfg *config.Config) error {
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.Bool("events_enabled", cfg.EventsEnabled),
		zap.Bool("docs_enabled", cfg.DocsEnabled),
		zap.Strings("cors_origins", cfg.CORSOrigins),
	)

	srv, err := server.New(cfg, logger, store.NewMemoryStore())
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		return err
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		// The parent context is already done.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
