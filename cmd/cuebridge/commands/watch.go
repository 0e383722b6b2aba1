package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/dyluth/cuebridge/internal/watch"
	"github.com/dyluth/cuebridge/pkg/statusboard"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	redisURL string
	instance string
	output   string
}

func newWatchCmd(configPath *string) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a bridge's status as it changes",
		Long: `Stream status changes published to the status board.

A line is printed whenever the recording state, the current cue, the OBS
connection or the service state changes. Requires the bridge to run with
redis.url set.

Output Formats:
  default - One human-readable line per change
  json    - Line-delimited snapshot JSON

Examples:
  cuebridge watch
  cuebridge watch --redis redis://10.0.0.5:6379 --instance stage-left
  cuebridge watch -o json > status.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, *configPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis URL (default from configuration)")
	cmd.Flags().StringVarP(&opts.instance, "instance", "n", "", "Status board instance (default from configuration)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "default", "Output format: default or json")
	return cmd
}

func runWatch(ctx context.Context, configPath string, opts *watchOptions) error {
	format, err := watch.ParseFormat(opts.output)
	if err != nil {
		return printer.Error(
			fmt.Sprintf("Invalid output format: %s", opts.output),
			"Supported formats are 'default' and 'json'.",
			nil,
		)
	}

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	redisURL := opts.redisURL
	if redisURL == "" {
		redisURL = cfg.Redis.URL
	}
	if redisURL == "" {
		return printer.Error(
			"No status board configured",
			"Watching needs the Redis status board.",
			[]string{"Pass --redis or set redis.url in the configuration."},
		)
	}

	instance := opts.instance
	if instance == "" {
		instance = cfg.Redis.Instance
	}

	client, err := statusboard.NewClientFromURL(redisURL, instance)
	if err != nil {
		return printer.Error("Invalid Redis URL", err.Error(), nil)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			err.Error(),
			map[string]string{"Redis": redisURL},
			nil,
		)
	}

	sub, err := client.SubscribeStatus(ctx)
	if err != nil {
		return printer.Error("Failed to subscribe to status events", err.Error(), nil)
	}
	defer sub.Close()

	if format == watch.OutputFormatDefault {
		printer.Step("Watching instance %s\n", instance)
		if snap, err := client.GetStatus(ctx); err == nil {
			printer.Snapshot(snap)
		}
	}

	return watch.Stream(ctx, sub, format, printer.Stdout, nil)
}
