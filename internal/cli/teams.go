package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// TeamsCmd returns the teams command.
func TeamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "List teams on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, os.Stderr)
			if err != nil {
				return err
			}

			teams, err := a.client().ListTeams(cmd.Context())
			if err != nil {
				return err
			}
			if len(teams) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No teams yet. Create one with `relaypace create NAME`.")
				return nil
			}
			for _, t := range teams {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", t.ID, t.Name)
			}
			return nil
		},
	}
}

// CreateCmd returns the create command.
func CreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a team with the default roster and loops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, os.Stderr)
			if err != nil {
				return err
			}

			created, err := a.client().CreateTeam(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s created team %q\n", okColor.Sprint("CREATE"), args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s team %q already exists\n", warnColor.Sprint("EXISTS"), args[0])
			}
			return nil
		},
	}
}
