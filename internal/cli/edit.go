package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"relaypace/internal/draftsync"
	"relaypace/internal/metrics"
)

// RecordCmd returns the record command.
func RecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record NAME LEG HH:MM",
		Short: "Record the actual finish time of a leg",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			leg, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("leg must be a number: %w", err)
			}
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				return s.RecordLeg(leg, args[2])
			})
		},
	}
}

// ClearCmd returns the clear command.
func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear NAME LEG",
		Short: "Remove the actual finish time of a leg",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			leg, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("leg must be a number: %w", err)
			}
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				return s.ClearLeg(leg)
			})
		},
	}
}

// MoveCmd returns the move command.
func MoveCmd() *cobra.Command {
	var loops bool

	cmd := &cobra.Command{
		Use:       "move NAME INDEX up|down",
		Short:     "Move a runner (or loop with --loop) one place up or down",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("index must be a number: %w", err)
			}
			return editSession(cmd, args[0], func(s *draftsync.Session) error {
				switch {
				case args[2] == "up" && loops:
					return s.MoveLoopUp(index)
				case args[2] == "down" && loops:
					return s.MoveLoopDown(index)
				case args[2] == "up":
					return s.MoveRunnerUp(index)
				case args[2] == "down":
					return s.MoveRunnerDown(index)
				}
				return fmt.Errorf("direction must be up or down, got %q", args[2])
			})
		},
	}

	cmd.Flags().BoolVar(&loops, "loop", false, "Move a loop instead of a runner")
	return cmd
}

// editSession opens a draft session for team, applies edit and waits for
// the debounced save to settle.
func editSession(cmd *cobra.Command, team string, edit func(*draftsync.Session) error) error {
	a, err := loadApp(cmd, os.Stderr)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	m := metrics.NewManager()
	defer logSyncCounters(a.logger, m)

	session, err := draftsync.Open(ctx, a.client(), team,
		draftsync.WithDelay(a.cfg.Debounce),
		draftsync.WithLogger(a.logger),
		draftsync.WithMetrics(m),
		draftsync.WithNotifier(func(stream string, err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s unable to save %s: %v\n", errColor.Sprint("ERROR"), stream, err)
		}),
	)
	if err != nil {
		return err
	}
	if err := edit(session); err != nil {
		_ = session.Close(ctx)
		return err
	}

	if err := waitSettled(ctx, session, 50*time.Millisecond); err != nil {
		return err
	}
	// a failed save was already reported; exiting keeps it from being retried
	if session.Dirty() {
		return fmt.Errorf("changes to %q were not saved", team)
	}
	if err := session.Close(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s saved\n", okColor.Sprint("OK"))
	return nil
}

// logSyncCounters reports the session's edit and write counts at debug level.
func logSyncCounters(logger *slog.Logger, m *metrics.Manager) {
	values, err := m.CounterValues("relaypace_sync_")
	if err != nil {
		logger.Debug("unable to gather sync counters", slog.String("error", err.Error()))
		return
	}
	attrs := make([]any, 0, len(values))
	for key, v := range values {
		attrs = append(attrs, slog.Float64(key, v))
	}
	logger.Debug("sync session finished", attrs...)
}

// waitSettled polls until the session has no pending or in-flight writes.
func waitSettled(ctx context.Context, s *draftsync.Session, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for s.Saving() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
