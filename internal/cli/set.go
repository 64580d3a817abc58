package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"relaypace/internal/draftsync"
)

// SetCmd returns the set command and its field subcommands.
func SetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Edit a team's start time, multipliers, runners or loops",
	}
	cmd.AddCommand(
		setStartCmd(),
		setMultipliersCmd(),
		setPaceCmd(),
		setRunnerNameCmd(),
		setLoopNameCmd(),
		setLoopLengthCmd(),
	)
	return cmd
}

func setStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start NAME HH:MM",
		Short: "Set the race start time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				return s.SetStartTime(args[1])
			})
		},
	}
}

func setMultipliersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "multipliers NAME LOW HIGH",
		Short: "Set the trail pace multipliers",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			low, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("low multiplier must be a number: %w", err)
			}
			high, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("high multiplier must be a number: %w", err)
			}
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				return s.SetMultipliers(low, high)
			})
		},
	}
}

func setPaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pace NAME RUNNER MM:SS",
		Short: "Set a runner's 10k pace",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args[1], "runner")
			if err != nil {
				return err
			}
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				return s.SetRunnerPace(i, args[2])
			})
		},
	}
}

func setRunnerNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runner-name NAME RUNNER NEW_NAME",
		Short: "Rename a runner",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args[1], "runner")
			if err != nil {
				return err
			}
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				return s.RenameRunner(i, args[2])
			})
		},
	}
}

func setLoopNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loop-name NAME LOOP NEW_NAME",
		Short: "Rename a loop",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args[1], "loop")
			if err != nil {
				return err
			}
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				return s.RenameLoop(i, args[2])
			})
		},
	}
}

func setLoopLengthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loop-length NAME LOOP MILES",
		Short: "Set a loop's length in miles",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args[1], "loop")
			if err != nil {
				return err
			}
			miles, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("length must be a number: %w", err)
			}
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				return s.SetLoopLength(i, miles)
			})
		},
	}
}

func indexArg(arg, what string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", what, err)
	}
	return i, nil
}
