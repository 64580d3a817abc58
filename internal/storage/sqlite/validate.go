package sqlite

import (
	"fmt"
	"strings"

	"relaypace/internal/models"
	"relaypace/internal/timeutil"
)

// ValidateTeam checks a team update before it touches the database: paces
// must match MM:SS, loops need a known color and a positive length, and both
// the runner and the loop orders must be a permutation of 0..n-1 over
// distinct ids.
func ValidateTeam(t models.Team) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name must not be empty: %w", ErrInvalid)
	}
	if t.TrailRunMultiplierLow <= 0 || t.TrailRunMultiplierHigh <= 0 {
		return fmt.Errorf("multipliers must be positive: %w", ErrInvalid)
	}

	runnerIDs := make([]int64, len(t.Runners))
	runnerOrders := make([]int64, len(t.Runners))
	for i, r := range t.Runners {
		runnerIDs[i] = r.ID
		if err := timeutil.ValidatePace(r.Pace10k); err != nil {
			return fmt.Errorf("runner %d: %v: %w", r.ID, err, ErrInvalid)
		}
		runnerOrders[i] = r.Order
	}
	if err := distinctIDs(runnerIDs); err != nil {
		return fmt.Errorf("runners: %v: %w", err, ErrInvalid)
	}
	if err := denseOrder(runnerOrders); err != nil {
		return fmt.Errorf("runners: %v: %w", err, ErrInvalid)
	}

	loopIDs := make([]int64, len(t.Loops))
	loopOrders := make([]int64, len(t.Loops))
	for i, l := range t.Loops {
		loopIDs[i] = l.ID
		if _, ok := models.ValidLoopColors[l.Color]; !ok {
			return fmt.Errorf("loop %d: unknown color %q: %w", l.ID, l.Color, ErrInvalid)
		}
		if l.LengthMiles <= 0 {
			return fmt.Errorf("loop %d: length must be positive: %w", l.ID, ErrInvalid)
		}
		loopOrders[i] = l.Order
	}
	if err := distinctIDs(loopIDs); err != nil {
		return fmt.Errorf("loops: %v: %w", err, ErrInvalid)
	}
	if err := denseOrder(loopOrders); err != nil {
		return fmt.Errorf("loops: %v: %w", err, ErrInvalid)
	}
	return nil
}

func distinctIDs(ids []int64) error {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("id %d listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func denseOrder(orders []int64) error {
	seen := make([]bool, len(orders))
	for _, o := range orders {
		if o < 0 || o >= int64(len(orders)) {
			return fmt.Errorf("order %d out of range 0..%d", o, len(orders)-1)
		}
		if seen[o] {
			return fmt.Errorf("order %d repeated", o)
		}
		seen[o] = true
	}
	return nil
}
