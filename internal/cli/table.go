package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relaypace/internal/estimate"
	"relaypace/internal/models"
	"relaypace/internal/timeutil"
)

var loopColors = map[string]*color.Color{
	models.ColorRed:    color.New(color.FgRed, color.Bold),
	models.ColorGreen:  color.New(color.FgGreen, color.Bold),
	models.ColorYellow: color.New(color.FgYellow, color.Bold),
}

// TableCmd returns the table command.
func TableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "table NAME",
		Short: "Print the estimated finish time of every leg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, os.Stderr)
			if err != nil {
				return err
			}
			c := a.client()

			team, err := c.GetTeam(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			times, err := c.GetFinishTimes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table, err := estimate.BuildTable(team, times)
			if err != nil {
				return err
			}

			renderTable(cmd.OutOrStdout(), team, table)
			return nil
		},
	}
}

func loopBadge(l models.Loop) string {
	c, ok := loopColors[l.Color]
	if !ok {
		return fmt.Sprintf("%-8s", l.Name)
	}
	// pad inside the escape codes so columns stay aligned
	return c.Sprintf("%-8s", l.Name)
}

func renderTable(w io.Writer, team models.Team, table estimate.Table) {
	fmt.Fprintf(w, "%s  start %s  multipliers %.2f-%.2f\n\n",
		team.Name, timeutil.FormatHuman(team.StartTime), team.TrailRunMultiplierLow, team.TrailRunMultiplierHigh)

	fmt.Fprintf(w, "%-4s %-16s %-8s %-11s %-11s %-8s %-8s %-8s %-8s\n",
		"LEG", "RUNNER", "LOOP", "PACE", "LEG TIME", "EARLIEST", "EST LOW", "EST HIGH", "ACTUAL")
	for _, leg := range table.Legs {
		actual := "-"
		if leg.ActualFinishTime != nil {
			actual = okColor.Sprintf("%-8s", timeutil.FormatHuman(*leg.ActualFinishTime))
		}
		fmt.Fprintf(w, "%-4d %-16s %s %-11s %-11s %-8s %-8s %-8s %s\n",
			leg.Index,
			leg.Runner.Name,
			loopBadge(leg.Loop),
			timeutil.FormatDuration(leg.PaceLow)+"-"+timeutil.FormatDuration(leg.PaceHigh),
			timeutil.FormatDuration(leg.LegDurationLow)+"-"+timeutil.FormatDuration(leg.LegDurationHigh),
			timeutil.FormatHuman(leg.MinimumAllowedFinishTime),
			timeutil.FormatHuman(leg.EstimatedFinishLow),
			timeutil.FormatHuman(leg.EstimatedFinishHigh),
			actual,
		)
	}

	fmt.Fprintf(w, "\n%-16s %-7s %s\n", "RUNNER", "10K", "TRAIL")
	for _, p := range table.TrailPaces {
		fmt.Fprintf(w, "%-16s %-7s %s\n", p.Runner.Name, p.Runner.Pace10k, p.String())
	}
}
