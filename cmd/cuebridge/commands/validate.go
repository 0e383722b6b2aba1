package commands

import (
	"strings"

	"github.com/dyluth/cuebridge/internal/config"
	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/spf13/cobra"
)

func newValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration file",
		Long: `Load and validate the configuration file and print the effective
settings, with defaults applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return printer.ErrorWithContext(
					"Configuration is not valid",
					err.Error(),
					map[string]string{"Config": *configPath},
					nil,
				)
			}

			printer.Success("%s is valid\n\n", *configPath)
			printer.Info("  OBS:           %s (timeout %s)\n", cfg.OBS.Address, cfg.OBS.Timeout)
			printer.Info("  Show control:  %s %s\n", cfg.ShowControl.Addr(), cfg.ShowControl.Address)
			printer.Info("  Status:        http://%s%s\n", cfg.Status.Addr(), cfg.Status.Path)
			printer.Info("  Start cues:    %s\n", strings.Join(cfg.Cues.Start, ", "))
			printer.Info("  End cues:      %s\n", strings.Join(cfg.Cues.End, ", "))
			printer.Info("  Heartbeat:     every %s, %d retries %s apart\n",
				cfg.Reconcile.HeartbeatInterval, cfg.Reconcile.MaxRetries, cfg.Reconcile.RetryDelay)
			if cfg.Redis.Enabled() {
				printer.Info("  Status board:  %s (instance %s, every %s)\n",
					cfg.Redis.URL, cfg.Redis.Instance, cfg.Redis.PublishInterval)
			} else {
				printer.Info("  Status board:  disabled\n")
			}
			printer.Info("  Logging:       %s, %s\n", cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
}
