package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"toolgate/pkg/config"
	"toolgate/pkg/server"
	"toolgate/pkg/telemetry/health"
	"toolgate/pkg/telemetry/metrics"
	"toolgate/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Toolgate proxy server",
	Long: `Start the Toolgate proxy server with the specified configuration.

The server listens on the configured address and translates tool-calling
chat completion requests for the upstream endpoint.

Examples:
  # Start with default config
  toolgate run

  # Start with custom config
  toolgate run --config /etc/toolgate/config.yaml

  # Override listen address
  toolgate run --listen 0.0.0.0:8080

  # Validate config without starting server
  toolgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	setupLogging(cfg)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
		fmt.Printf("  upstream:       %s\n", cfg.Upstream.BaseURL)
		fmt.Printf("  model:          %s\n", cfg.Upstream.Model)
		return nil
	}

	fmt.Printf("Toolgate v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	client := upstream.New(cfg.Upstream)

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled != nil && *cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics.Namespace)
		fmt.Println("✓ Metrics collector initialized")
	}

	prober := health.NewProber(client, collector)
	if err := prober.Start(cfg.Upstream.ProbeSchedule); err != nil {
		slog.Warn("failed to start upstream prober", "error", err)
	} else {
		fmt.Println("✓ Upstream prober started")
	}

	srv := server.New(cfg, client, collector, prober, Version)

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(context.Background()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Telemetry.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Telemetry.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
