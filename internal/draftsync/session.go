package draftsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relaypace/internal/estimate"
	"relaypace/internal/models"
	"relaypace/internal/timeutil"
)

// Stream names.
const (
	StreamTeam        = "team"
	StreamFinishTimes = "finish_times"
)

// Gateway loads and persists one team's data.
type Gateway interface {
	GetTeam(ctx context.Context, name string) (models.Team, error)
	GetFinishTimes(ctx context.Context, name string) ([]models.ActualFinishTime, error)
	SaveTeam(ctx context.Context, team models.Team) error
	ReplaceFinishTimes(ctx context.Context, name string, times []models.ActualFinishTime) error
}

// Session is the editing state for one team: a team stream and a
// finish-time stream that debounce and save independently.
type Session struct {
	name        string
	team        *Stream[models.Team]
	finishTimes *Stream[[]models.ActualFinishTime]
}

// Open loads the named team and its finish times and starts a session.
func Open(ctx context.Context, gw Gateway, name string, opts ...Option) (*Session, error) {
	team, err := gw.GetTeam(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}
	finishTimes, err := gw.GetFinishTimes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load finish times: %w", err)
	}

	// writes outlive the request that opened the session
	writeCtx := context.WithoutCancel(ctx)
	return &Session{
		name: name,
		team: NewStream(writeCtx, StreamTeam, TeamFromServer(team), CloneTeam,
			func(ctx context.Context, t models.Team) error { return gw.SaveTeam(ctx, t) }, opts...),
		finishTimes: NewStream(writeCtx, StreamFinishTimes, CloneFinishTimes(finishTimes), CloneFinishTimes,
			func(ctx context.Context, list []models.ActualFinishTime) error {
				return gw.ReplaceFinishTimes(ctx, name, list)
			}, opts...),
	}, nil
}

// Name is the team name.
func (s *Session) Name() string { return s.name }

// Team returns the team draft.
func (s *Session) Team() models.Team { return s.team.Draft() }

// FinishTimes returns the finish-time draft.
func (s *Session) FinishTimes() []models.ActualFinishTime { return s.finishTimes.Draft() }

// TeamStream exposes the team stream.
func (s *Session) TeamStream() *Stream[models.Team] { return s.team }

// FinishTimeStream exposes the finish-time stream.
func (s *Session) FinishTimeStream() *Stream[[]models.ActualFinishTime] { return s.finishTimes }

// EditTeam applies fn to the team draft.
func (s *Session) EditTeam(fn func(*models.Team) error) error {
	return s.team.Update(fn)
}

// SetStartTime parses "HH:MM" and sets the team start time.
func (s *Session) SetStartTime(hhmm string) error {
	at, err := timeutil.ParseTimeOfDay(hhmm)
	if err != nil {
		return err
	}
	return s.team.Update(func(t *models.Team) error {
		t.StartTime = at
		return nil
	})
}

// SetMultipliers sets the low and high trail pace multipliers.
func (s *Session) SetMultipliers(low, high float64) error {
	if low <= 0 || high <= 0 {
		return fmt.Errorf("multipliers must be positive, got %v and %v", low, high)
	}
	return s.team.Update(func(t *models.Team) error {
		t.TrailRunMultiplierLow = low
		t.TrailRunMultiplierHigh = high
		return nil
	})
}

// SetRunnerPace sets runner i's 10k pace.
func (s *Session) SetRunnerPace(i int, pace string) error {
	if err := timeutil.ValidatePace(pace); err != nil {
		return err
	}
	return s.team.Update(func(t *models.Team) error {
		if i < 0 || i >= len(t.Runners) {
			return fmt.Errorf("runner %d of %d: %w", i, len(t.Runners), ErrIndex)
		}
		t.Runners[i].Pace10k = pace
		return nil
	})
}

// RenameRunner sets runner i's name.
func (s *Session) RenameRunner(i int, name string) error {
	return s.team.Update(func(t *models.Team) error {
		if i < 0 || i >= len(t.Runners) {
			return fmt.Errorf("runner %d of %d: %w", i, len(t.Runners), ErrIndex)
		}
		t.Runners[i].Name = name
		return nil
	})
}

// RenameLoop sets loop i's name.
func (s *Session) RenameLoop(i int, name string) error {
	return s.team.Update(func(t *models.Team) error {
		if i < 0 || i >= len(t.Loops) {
			return fmt.Errorf("loop %d of %d: %w", i, len(t.Loops), ErrIndex)
		}
		t.Loops[i].Name = name
		return nil
	})
}

// SetLoopLength sets loop i's length in miles.
func (s *Session) SetLoopLength(i int, miles float64) error {
	if miles <= 0 {
		return fmt.Errorf("%w: %v miles", ErrInvalidLength, miles)
	}
	return s.team.Update(func(t *models.Team) error {
		if i < 0 || i >= len(t.Loops) {
			return fmt.Errorf("loop %d of %d: %w", i, len(t.Loops), ErrIndex)
		}
		t.Loops[i].LengthMiles = miles
		return nil
	})
}

// MoveRunnerUp moves runner i one place earlier.
func (s *Session) MoveRunnerUp(i int) error {
	return s.team.Update(func(t *models.Team) error { return MoveRunnerUp(t.Runners, i) })
}

// MoveRunnerDown moves runner i one place later.
func (s *Session) MoveRunnerDown(i int) error {
	return s.team.Update(func(t *models.Team) error { return MoveRunnerDown(t.Runners, i) })
}

// MoveLoopUp moves loop i one place earlier.
func (s *Session) MoveLoopUp(i int) error {
	return s.team.Update(func(t *models.Team) error { return MoveLoopUp(t.Loops, i) })
}

// MoveLoopDown moves loop i one place later.
func (s *Session) MoveLoopDown(i int) error {
	return s.team.Update(func(t *models.Team) error { return MoveLoopDown(t.Loops, i) })
}

// SetFinishTime records the finish of the (runner, loop) pair.
func (s *Session) SetFinishTime(runnerID, loopID int64, at time.Time) error {
	return s.finishTimes.Update(func(list *[]models.ActualFinishTime) error {
		SetFinishTime(list, runnerID, loopID, at)
		return nil
	})
}

// ClearFinishTime removes the finish of the (runner, loop) pair.
func (s *Session) ClearFinishTime(runnerID, loopID int64) error {
	return s.finishTimes.Update(func(list *[]models.ActualFinishTime) error {
		if !ClearFinishTime(list, runnerID, loopID) {
			return fmt.Errorf("runner %d loop %d: %w", runnerID, loopID, ErrNoFinishTime)
		}
		return nil
	})
}

var (
	// ErrNoFinishTime is returned when clearing a pair that has no finish time.
	ErrNoFinishTime = errors.New("no finish time recorded")
	// ErrInvalidLength is returned for a loop length of zero or less.
	ErrInvalidLength = errors.New("loop length must be positive")
	// ErrBeforeLegStart is returned for a reading earlier than the leg start.
	ErrBeforeLegStart = errors.New("finish time before leg start")
)

// MaxLegSpan bounds how long after its start a leg may finish. A reading
// that only fits past midnight by more than this is taken as earlier than
// the start rather than as an overnight finish.
const MaxLegSpan = 12 * time.Hour

// RecordLeg sets the finish time of leg index from an "HH:MM" reading. The
// reading may fall after midnight but not before the leg's start.
func (s *Session) RecordLeg(index int, hhmm string) error {
	at, err := timeutil.ParseTimeOfDay(hhmm)
	if err != nil {
		return err
	}
	leg, err := s.leg(index)
	if err != nil {
		return err
	}
	start := leg.MinimumAllowedFinishTime
	if timeutil.NotBefore(at, start).Sub(start) > MaxLegSpan {
		return fmt.Errorf("%w: %s is before %s", ErrBeforeLegStart, hhmm, timeutil.FormatTimeOfDay(start))
	}
	return s.SetFinishTime(leg.Runner.ID, leg.Loop.ID, at)
}

// ClearLeg removes the finish time of leg index.
func (s *Session) ClearLeg(index int) error {
	leg, err := s.leg(index)
	if err != nil {
		return err
	}
	return s.ClearFinishTime(leg.Runner.ID, leg.Loop.ID)
}

func (s *Session) leg(index int) (estimate.Leg, error) {
	legs, err := s.Estimate()
	if err != nil {
		return estimate.Leg{}, err
	}
	if index < 0 || index >= len(legs) {
		return estimate.Leg{}, fmt.Errorf("leg %d of %d: %w", index, len(legs), ErrIndex)
	}
	return legs[index], nil
}

// Estimate computes the leg table from the current drafts.
func (s *Session) Estimate() ([]estimate.Leg, error) {
	return estimate.Compute(estimate.InputFromTeam(s.team.Draft(), s.finishTimes.Draft()))
}

// Dirty reports whether either stream has unsaved edits.
func (s *Session) Dirty() bool {
	return s.team.Dirty() || s.finishTimes.Dirty()
}

// Saving reports whether either stream is saving or about to.
func (s *Session) Saving() bool {
	return s.team.Saving() || s.finishTimes.Saving()
}

// Flush writes both drafts now if they are dirty.
func (s *Session) Flush(ctx context.Context) error {
	return errors.Join(s.team.Flush(ctx), s.finishTimes.Flush(ctx))
}

// Close flushes both streams and stops them.
func (s *Session) Close(ctx context.Context) error {
	return errors.Join(s.team.Close(ctx), s.finishTimes.Close(ctx))
}
