package commands

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/dyluth/cuebridge/pkg/obsws"
	"github.com/spf13/cobra"
)

type obsOptions struct {
	address string
	field   string
	verbose bool
}

func newOBSCmd(configPath *string) *cobra.Command {
	opts := &obsOptions{}

	cmd := &cobra.Command{
		Use:   "obs REQUEST_TYPE...",
		Short: "Send one-off requests to OBS",
		Long: `Open a control connection to OBS, send the given requests in order and
report the result of the last one.

Examples:
  # Check whether OBS is recording
  cuebridge obs GetRecordStatus --field outputActive

  # Restart recording
  cuebridge obs StopRecord StartRecord`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOBS(cmd.Context(), *configPath, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.address, "obs", "", "OBS websocket address (default from configuration)")
	cmd.Flags().StringVarP(&opts.field, "field", "f", "", "Boolean response field to report from the last request")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log the protocol exchange")
	return cmd
}

func runOBS(ctx context.Context, configPath string, opts *obsOptions, requests []string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	address := opts.address
	if address == "" {
		address = cfg.OBS.Address
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "obsws", Level: log.WarnLevel})
	if opts.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	client := obsws.NewClient(address, obsws.WithTimeout(cfg.OBS.Timeout), obsws.WithLogger(logger))
	resp, err := client.Send(ctx, requests, opts.field)
	if err != nil {
		suggestions := []string{"Check that OBS is running with its websocket server enabled."}
		if obsws.IsConnectivity(err) {
			suggestions = append(suggestions, "Point at the right host with --obs.")
		}
		return printer.ErrorWithContext(
			"OBS request failed",
			err.Error(),
			map[string]string{"OBS": client.URL()},
			suggestions,
		)
	}

	summary := strings.Join(requests, ", ")
	if resp.Success {
		printer.Success("%s succeeded\n", summary)
	} else {
		printer.Warning("%s rejected by OBS\n", summary)
	}

	if opts.field != "" {
		if resp.Field == nil {
			printer.Info("%s: (absent)\n", opts.field)
		} else {
			printer.Info("%s: %t\n", opts.field, *resp.Field)
		}
	}
	return nil
}
