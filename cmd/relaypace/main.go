package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"relaypace/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relaypace",
		Short: "Relay race pacing: leg estimates, finish times and team setup",
		Long: `relaypace serves the team, roster and finish-time API and works
with it from the command line: print the estimated leg table, record
actual finish times and reorder runners or loops.`,
		SilenceUsage: true,
	}
	cli.AddGlobalFlags(rootCmd)

	// Server
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.MigrateCmd())

	// Client
	rootCmd.AddCommand(cli.TeamsCmd())
	rootCmd.AddCommand(cli.CreateCmd())
	rootCmd.AddCommand(cli.TableCmd())
	rootCmd.AddCommand(cli.RecordCmd())
	rootCmd.AddCommand(cli.ClearCmd())
	rootCmd.AddCommand(cli.MoveCmd())
	rootCmd.AddCommand(cli.SetCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
