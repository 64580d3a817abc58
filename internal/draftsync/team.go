package draftsync

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"relaypace/internal/models"
)

// ErrIndex is returned when a reorder names a position that cannot move.
var ErrIndex = errors.New("index out of range")

// CloneTeam copies a team deeply enough that edits to the copy never reach
// the original.
func CloneTeam(t models.Team) models.Team {
	out := t
	out.Runners = append([]models.Runner(nil), t.Runners...)
	out.Loops = append([]models.Loop(nil), t.Loops...)
	return out
}

// CloneFinishTimes copies a finish-time list.
func CloneFinishTimes(list []models.ActualFinishTime) []models.ActualFinishTime {
	return append([]models.ActualFinishTime(nil), list...)
}

// TeamFromServer prepares a loaded team for editing: runners and loops are
// put in display order.
func TeamFromServer(t models.Team) models.Team {
	out := CloneTeam(t)
	sort.SliceStable(out.Runners, func(i, j int) bool { return out.Runners[i].Order < out.Runners[j].Order })
	sort.SliceStable(out.Loops, func(i, j int) bool { return out.Loops[i].Order < out.Loops[j].Order })
	return out
}

func runnerOrder(r *models.Runner) *int64 { return &r.Order }
func loopOrder(l *models.Loop) *int64     { return &l.Order }

// MoveRunnerUp swaps runner i with the one above it.
func MoveRunnerUp(runners []models.Runner, i int) error {
	return moveUp(runners, i, runnerOrder)
}

// MoveRunnerDown swaps runner i with the one below it.
func MoveRunnerDown(runners []models.Runner, i int) error {
	return moveDown(runners, i, runnerOrder)
}

// MoveLoopUp swaps loop i with the one above it.
func MoveLoopUp(loops []models.Loop, i int) error {
	return moveUp(loops, i, loopOrder)
}

// MoveLoopDown swaps loop i with the one below it.
func MoveLoopDown(loops []models.Loop, i int) error {
	return moveDown(loops, i, loopOrder)
}

func moveUp[T any](items []T, i int, order func(*T) *int64) error {
	if i <= 0 || i >= len(items) {
		return fmt.Errorf("move up %d of %d: %w", i, len(items), ErrIndex)
	}
	swapOrdered(items, i-1, i, order)
	return nil
}

func moveDown[T any](items []T, i int, order func(*T) *int64) error {
	if i < 0 || i >= len(items)-1 {
		return fmt.Errorf("move down %d of %d: %w", i, len(items), ErrIndex)
	}
	swapOrdered(items, i, i+1, order)
	return nil
}

// swapOrdered exchanges the order fields and the slice positions of items i
// and j together, so position and order never disagree.
func swapOrdered[T any](items []T, i, j int, order func(*T) *int64) {
	oi, oj := order(&items[i]), order(&items[j])
	*oi, *oj = *oj, *oi
	items[i], items[j] = items[j], items[i]
}

// SetFinishTime records at for the (runner, loop) pair, replacing an existing
// entry or appending a new one without an id.
func SetFinishTime(list *[]models.ActualFinishTime, runnerID, loopID int64, at time.Time) {
	for i := range *list {
		ft := &(*list)[i]
		if ft.RunnerID == runnerID && ft.LoopID == loopID {
			ft.FinishTime = at
			return
		}
	}
	*list = append(*list, models.ActualFinishTime{RunnerID: runnerID, LoopID: loopID, FinishTime: at})
}

// ClearFinishTime removes the entry for the (runner, loop) pair. It reports
// whether one was found.
func ClearFinishTime(list *[]models.ActualFinishTime, runnerID, loopID int64) bool {
	for i, ft := range *list {
		if ft.RunnerID == runnerID && ft.LoopID == loopID {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
