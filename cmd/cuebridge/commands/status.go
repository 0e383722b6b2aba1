package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/dyluth/cuebridge/internal/state"
	"github.com/dyluth/cuebridge/pkg/statusboard"
	"github.com/spf13/cobra"
)

const statusTimeout = 3 * time.Second

type statusOptions struct {
	url      string
	redisURL string
	instance string
	output   string
}

func newStatusCmd(configPath *string) *cobra.Command {
	opts := &statusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running bridge",
		Long: `Fetch the status snapshot of a running bridge.

By default the snapshot is read from the bridge's HTTP server as configured
in the configuration file. With --redis it is read from the status board
instead, which works even when the bridge host is not reachable directly.

Output Formats:
  default - Human-readable summary
  json    - The snapshot JSON

Examples:
  cuebridge status
  cuebridge status --url http://10.0.0.5:8081/obs_record/json
  cuebridge status --redis redis://localhost:6379 --instance stage-left -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), *configPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "Status URL (default from configuration)")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Read from the status board at this Redis URL")
	cmd.Flags().StringVarP(&opts.instance, "instance", "n", "", "Status board instance (default from configuration)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "default", "Output format: default or json")
	return cmd
}

func runStatus(ctx context.Context, configPath string, opts *statusOptions) error {
	if opts.output != "default" && opts.output != "json" {
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

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	var snap state.Snapshot
	if opts.redisURL != "" {
		instance := opts.instance
		if instance == "" {
			instance = cfg.Redis.Instance
		}
		snap, err = fetchFromBoard(ctx, opts.redisURL, instance)
		if err != nil {
			return err
		}
	} else {
		url := opts.url
		if url == "" {
			url = fmt.Sprintf("http://%s%s", cfg.Status.Addr(), cfg.Status.Path)
		}
		snap, err = fetchFromServer(ctx, url)
		if err != nil {
			return err
		}
	}

	if opts.output == "json" {
		return printer.JSON(snap)
	}
	printer.Snapshot(snap)
	return nil
}

func fetchFromServer(ctx context.Context, url string) (state.Snapshot, error) {
	var snap state.Snapshot

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return snap, printer.Error("Invalid status URL", err.Error(), nil)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return snap, printer.ErrorWithContext(
			"Bridge not reachable",
			err.Error(),
			map[string]string{"URL": url},
			[]string{
				"Start it with 'cuebridge run'.",
				"Point at the right host with --url.",
			},
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snap, printer.ErrorWithContext(
			"Unexpected status response",
			fmt.Sprintf("The server answered %s.", resp.Status),
			map[string]string{"URL": url},
			nil,
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, printer.Error("Invalid status response", err.Error(), nil)
	}
	return snap, nil
}

func fetchFromBoard(ctx context.Context, redisURL, instance string) (state.Snapshot, error) {
	client, err := statusboard.NewClientFromURL(redisURL, instance)
	if err != nil {
		return state.Snapshot{}, printer.Error("Invalid Redis URL", err.Error(), nil)
	}
	defer client.Close()

	snap, err := client.GetStatus(ctx)
	if statusboard.IsNotFound(err) {
		return snap, printer.ErrorWithContext(
			"No status published",
			"No bridge has published a status for this instance.",
			map[string]string{"Instance": instance},
			[]string{"Set redis.url in the bridge's configuration and restart it."},
		)
	}
	if err != nil {
		return snap, printer.ErrorWithContext(
			"Failed to read status board",
			err.Error(),
			map[string]string{"Redis": redisURL, "Instance": instance},
			nil,
		)
	}
	return snap, nil
}
