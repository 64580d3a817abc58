// Package estimate computes the relay leg table: which runner runs which loop
// in race order and when each leg is expected to finish.
package estimate

import (
	"fmt"
	"time"

	"relaypace/internal/models"
	"relaypace/internal/timeutil"
)

// LegKey identifies the (runner, loop) pair an actual finish time belongs to.
type LegKey struct {
	RunnerID int64
	LoopID   int64
}

// Input is everything the engine needs. Runners and Loops must already be in
// display order.
type Input struct {
	Runners        []models.Runner
	Loops          []models.Loop
	StartTime      time.Time
	MultiplierLow  float64
	MultiplierHigh float64
	Actuals        map[LegKey]time.Time
}

// Leg is one row of the finish-time table.
type Leg struct {
	Index                    int           `json:"index"`
	Runner                   models.Runner `json:"runner"`
	Loop                     models.Loop   `json:"loop"`
	PaceLow                  time.Duration `json:"paceLow"`
	PaceHigh                 time.Duration `json:"paceHigh"`
	LegDurationLow           time.Duration `json:"legDurationLow"`
	LegDurationHigh          time.Duration `json:"legDurationHigh"`
	MinimumAllowedFinishTime time.Time     `json:"minimumAllowedFinishTime"`
	EstimatedFinishLow       time.Time     `json:"estimatedFinishLow"`
	EstimatedFinishHigh      time.Time     `json:"estimatedFinishHigh"`
	ActualFinishTime         *time.Time    `json:"actualFinishTime,omitempty"`
}

// InputFromTeam builds engine input from a team aggregate and its recorded
// finish times.
func InputFromTeam(team models.Team, finishTimes []models.ActualFinishTime) Input {
	return Input{
		Runners:        team.Runners,
		Loops:          team.Loops,
		StartTime:      team.StartTime,
		MultiplierLow:  team.TrailRunMultiplierLow,
		MultiplierHigh: team.TrailRunMultiplierHigh,
		Actuals:        ActualsFrom(finishTimes),
	}
}

// ActualsFrom keys finish times by their (runner, loop) pair. When a pair
// appears more than once the first entry wins.
func ActualsFrom(finishTimes []models.ActualFinishTime) map[LegKey]time.Time {
	actuals := make(map[LegKey]time.Time, len(finishTimes))
	for _, ft := range finishTimes {
		key := LegKey{RunnerID: ft.RunnerID, LoopID: ft.LoopID}
		if _, ok := actuals[key]; ok {
			continue
		}
		actuals[key] = ft.FinishTime
	}
	return actuals
}

// Compute folds over the R*L legs of the race left to right. Leg i pairs
// runners[i mod R] with loops[i mod L]; its start is the team start time, the
// recorded finish of leg i-1's pair, or leg i-1's estimated finish per band.
func Compute(in Input) ([]Leg, error) {
	if len(in.Runners) == 0 {
		return nil, ErrEmptyRoster
	}
	if len(in.Loops) == 0 {
		return nil, ErrNoLoops
	}

	paces := make([]time.Duration, len(in.Runners))
	for i, r := range in.Runners {
		pace, err := timeutil.ParsePace(r.Pace10k)
		if err != nil {
			return nil, fmt.Errorf("runner %q: %w", r.Name, err)
		}
		paces[i] = pace
	}

	total := len(in.Runners) * len(in.Loops)
	legs := make([]Leg, 0, total)
	for i := 0; i < total; i++ {
		ri := i % len(in.Runners)
		runner := in.Runners[ri]
		loop := in.Loops[i%len(in.Loops)]

		paceLow := timeutil.ScaleDuration(paces[ri], in.MultiplierLow)
		paceHigh := timeutil.ScaleDuration(paces[ri], in.MultiplierHigh)
		durLow := timeutil.ScaleDuration(paceLow, loop.LengthMiles)
		durHigh := timeutil.ScaleDuration(paceHigh, loop.LengthMiles)

		startLow, startHigh := in.StartTime, in.StartTime
		if i > 0 {
			prev := legs[i-1]
			if prev.ActualFinishTime != nil {
				startLow, startHigh = *prev.ActualFinishTime, *prev.ActualFinishTime
			} else {
				startLow, startHigh = prev.EstimatedFinishLow, prev.EstimatedFinishHigh
			}
		}

		leg := Leg{
			Index:                    i,
			Runner:                   runner,
			Loop:                     loop,
			PaceLow:                  paceLow,
			PaceHigh:                 paceHigh,
			LegDurationLow:           durLow,
			LegDurationHigh:          durHigh,
			MinimumAllowedFinishTime: startLow,
			EstimatedFinishLow:       startLow.Add(durLow),
			EstimatedFinishHigh:      startHigh.Add(durHigh),
		}
		if actual, ok := in.Actuals[LegKey{RunnerID: runner.ID, LoopID: loop.ID}]; ok {
			// a reading earlier than the leg start happened after midnight
			actual = timeutil.NotBefore(actual, startLow)
			leg.ActualFinishTime = &actual
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// TrailPace is a runner's estimated trail pace range.
type TrailPace struct {
	Runner models.Runner `json:"runner"`
	Low    time.Duration `json:"low"`
	High   time.Duration `json:"high"`
}

// String renders the range as "MM:SS-MM:SS".
func (p TrailPace) String() string {
	return timeutil.FormatDuration(p.Low) + "-" + timeutil.FormatDuration(p.High)
}

// TrailPaces scales each runner's 10k pace by the low and high multipliers.
func TrailPaces(runners []models.Runner, low, high float64) ([]TrailPace, error) {
	out := make([]TrailPace, 0, len(runners))
	for _, r := range runners {
		pace, err := timeutil.ParsePace(r.Pace10k)
		if err != nil {
			return nil, fmt.Errorf("runner %q: %w", r.Name, err)
		}
		out = append(out, TrailPace{
			Runner: r,
			Low:    timeutil.ScaleDuration(pace, low),
			High:   timeutil.ScaleDuration(pace, high),
		})
	}
	return out, nil
}

// Table is the full estimate for a team: the leg table and each runner's
// trail pace range.
type Table struct {
	Legs       []Leg       `json:"legs"`
	TrailPaces []TrailPace `json:"trailPaces"`
}

// BuildTable computes the Table for a team and its recorded finish times.
func BuildTable(team models.Team, finishTimes []models.ActualFinishTime) (Table, error) {
	legs, err := Compute(InputFromTeam(team, finishTimes))
	if err != nil {
		return Table{}, err
	}
	paces, err := TrailPaces(team.Runners, team.TrailRunMultiplierLow, team.TrailRunMultiplierHigh)
	if err != nil {
		return Table{}, err
	}
	return Table{Legs: legs, TrailPaces: paces}, nil
}
