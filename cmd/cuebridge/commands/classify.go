package commands

import (
	"github.com/dyluth/cuebridge/internal/cue"
	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/spf13/cobra"
)

func newClassifyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "classify RAW...",
		Short: "Show how section hints would be handled",
		Long: `Classify raw section hints exactly as the bridge does and show the
recording action each would trigger with the configured cue sets.

Examples:
  cuebridge classify "9.80.93|12:00:00:00" "00:00:10:00|intro"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			set := cfg.Cues.Set()
			for _, raw := range args {
				c, kind := cue.Parse(raw)
				if kind != cue.KindDecimal {
					printer.Warning("%q: %s, ignored\n", raw, kind)
					continue
				}
				printer.Success("%q: cue %s, %s\n", raw, c, set.Action(c))
			}
			return nil
		},
	}
}
