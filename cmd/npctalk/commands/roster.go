package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"npctalk/internal/config"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List the people that can be approached",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		roster, err := config.LoadRoster(cfg.Roster.Path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(roster.Targets) == 0 {
			fmt.Fprintf(out, "no targets in %s\n", cfg.Roster.Path)
			return nil
		}
		styles := newStyles()
		for _, target := range roster.Targets {
			ticket := ""
			if target.HasTicket {
				ticket = " (ticket)"
			}
			fmt.Fprintf(out, "%s %s%s\n",
				styles.label.Render(target.ID),
				styles.dim.Render(target.DisplayName+" / "+target.Persona),
				ticket,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rosterCmd)
}
