package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/cuebridge/internal/config"
	"github.com/dyluth/cuebridge/internal/engine"
	"github.com/dyluth/cuebridge/internal/logging"
	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/spf13/cobra"
)

func newRunCmd(configPath *string) *cobra.Command {
	var overrides config.Overrides

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bridge",
		Long: `Start listening for section hints and driving OBS recording.

Settings come from the configuration file when it exists and from built-in
defaults otherwise. --ip, --port and --obs override either.

Examples:
  # Run with cuebridge.yml from the current directory
  cuebridge run

  # Listen on a different interface and point at another OBS host
  cuebridge run --ip 0.0.0.0 --port 7400 --obs 10.0.0.20:4455`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(cmd.Context(), *configPath, overrides)
		},
	}

	cmd.Flags().StringVar(&overrides.ShowControlHost, "ip", "", "Address to listen on for show-control messages")
	cmd.Flags().IntVar(&overrides.ShowControlPort, "port", 0, "Port to listen on for show-control messages")
	cmd.Flags().StringVar(&overrides.OBSAddress, "obs", "", "OBS websocket address (host:port)")
	return cmd
}

func runBridge(ctx context.Context, configPath string, overrides config.Overrides) error {
	cfg, found, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Apply(overrides); err != nil {
		return printer.Error("Invalid command-line override", err.Error(), []string{
			"Check --ip, --port and --obs values.",
		})
	}

	if found {
		printer.Step("Loaded configuration from %s\n", configPath)
	} else {
		printer.Step("No %s found, using built-in defaults\n", configPath)
	}

	logger, closer, err := logging.Setup(cfg.Logging, os.Stderr)
	if err != nil {
		return printer.Error("Failed to set up logging", err.Error(), nil)
	}
	defer closer.Close()

	bridge, err := engine.New(cfg, logger)
	if err != nil {
		return printer.Error("Failed to create bridge", err.Error(), []string{
			"Check redis.url in the configuration.",
		})
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil {
		return printer.ErrorWithContext(
			"Failed to start bridge",
			err.Error(),
			map[string]string{
				"Show control": cfg.ShowControl.Addr(),
				"Status":       cfg.Status.Addr(),
			},
			[]string{
				"Check that no other cuebridge is running on this host.",
				"Choose another address with --ip/--port or status.port.",
			},
		)
	}
	return nil
}
