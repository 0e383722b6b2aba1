package commands

import (
	"fmt"

	"github.com/dyluth/cuebridge/internal/config"
	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cuebridge",
		Short: "cuebridge - show-control cues to OBS recording",
		Long: `cuebridge listens for section hints from a show-control system over OSC
and starts or stops OBS recording when configured cues are reached.

A heartbeat periodically checks the recording state reported by OBS and
corrects it when it disagrees with the last cue, so a missed command
never leaves a show unrecorded.`,
		Version: rootVersion(),
		// Prevent silent success when unknown flags are passed to root command
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to configuration file")

	cmd.AddCommand(
		newRunCmd(&configPath),
		newStatusCmd(&configPath),
		newClassifyCmd(&configPath),
		newOBSCmd(&configPath),
		newValidateCmd(&configPath),
		newWatchCmd(&configPath),
		newInitCmd(&configPath),
	)
	return cmd
}

// Execute runs the root command.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = rootVersion()
}

func rootVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// loadConfig reads the configuration for commands that can run on defaults.
// found reports whether the file existed.
func loadConfig(path string) (cfg *config.Config, found bool, err error) {
	cfg, found, err = config.LoadOrDefault(path)
	if err != nil {
		return nil, false, printer.ErrorWithContext(
			"Invalid configuration",
			err.Error(),
			map[string]string{"Config": path},
			[]string{"Fix the file, or run 'cuebridge validate' for details."},
		)
	}
	return cfg, found, nil
}
