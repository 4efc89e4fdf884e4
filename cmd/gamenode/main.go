package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/gamenode/internal/app"
	"github.com/vovakirdan/gamenode/internal/config"
	"github.com/vovakirdan/gamenode/internal/log"
)

type flags struct {
	configPath string
	overrides  config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "gamenode",
		Short:         "Live game session node",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), f)
		},
	}
	addServeFlags(root, f)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), f)
		},
	}
	addServeFlags(serveCmd, f)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the node version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.Version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)
	return root
}

func addServeFlags(cmd *cobra.Command, f *flags) {
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "path to config file")
	fs.StringVar(&f.overrides.Addr, "addr", "", "HTTP listen address")
	fs.StringVar(&f.overrides.NodeIdentity, "node", "", "node identity")
	fs.StringVar(&f.overrides.BusURL, "bus-url", "", "message bus URL")
	fs.StringVar(&f.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.DurationVar(&f.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
}

func serve(ctx context.Context, f *flags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLogger := log.New("info", "console")
	cfg, path, err := config.Load(bootLogger, f.configPath)
	if err != nil {
		bootLogger.Error().Err(err).Str("path", path).Msg("failed to load config")
		return err
	}
	cfg.UpdateFrom(f.overrides)

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().
		Str("config", path).
		Str("node", cfg.NodeIdentity).
		Str("environment", cfg.Environment).
		Str("version", app.Version).
		Msg("config loaded")

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("node exited with error")
		return err
	}
	logger.Info().Msg("node stopped")
	return nil
}
