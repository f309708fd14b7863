package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oddsflow/rosterwatch/internal/config"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configuration ok: %d sources in %d groups\n", len(cfg.Sources), len(cfg.Groups()))
			for _, group := range cfg.Groups() {
				for _, src := range cfg.SourcesForGroup(group) {
					fmt.Fprintf(out, "  [%s] %s (%s) %s\n", group, src.ID, src.Mode, src.URL)
				}
			}
			if cfg.Classifier.APIKey == "" {
				fmt.Fprintln(out, "warning: no classifier api key; ambiguous items will be dropped")
			}
			return nil
		},
	}
}
