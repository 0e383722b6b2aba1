package commands

import (
	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/dyluth/cuebridge/internal/scaffold"
	"github.com/spf13/cobra"
)

func newInitCmd(configPath *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a starter cuebridge.yml with the venue defaults.

The file is written to the --config path. Use --force to overwrite an
existing file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := scaffold.Initialize(*configPath, force); err != nil {
				return printer.ErrorWithContext(
					"Initialization failed",
					err.Error(),
					map[string]string{"Path": *configPath},
					nil,
				)
			}

			printer.Success("Wrote %s\n", *configPath)
			printer.Info("\nNext steps:\n")
			printer.Info("  1. Set obs.address and show_control.host for this venue\n")
			printer.Info("  2. Run 'cuebridge validate' to check it\n")
			printer.Info("  3. Run 'cuebridge run' to start the bridge\n")
			return nil
		},
	}

	// No -f shorthand: it would read as a config flag.
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}
