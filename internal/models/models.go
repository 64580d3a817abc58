package models

import "time"

// Team is the aggregate root for a relay team: its start time, trail pace
// multipliers, roster and loop cycle.
type Team struct {
	ID                     int64     `json:"id"`
	Name                   string    `json:"name"`
	StartTime              time.Time `json:"startTime"`
	TrailRunMultiplierLow  float64   `json:"trailRunMultiplierLow"`
	TrailRunMultiplierHigh float64   `json:"trailRunMultiplierHigh"`
	Runners                []Runner  `json:"runners"`
	Loops                  []Loop    `json:"loops"`
}

// TeamSummary is the listing shape for teams.
type TeamSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Runner is one member of a team roster. Pace10k is minutes:seconds per mile.
type Runner struct {
	ID      int64  `json:"id"`
	TeamID  int64  `json:"teamId"`
	Order   int64  `json:"order"`
	Name    string `json:"name"`
	Pace10k string `json:"pace10k"`
}

// Loop is one course segment in the team's loop cycle.
type Loop struct {
	ID          int64   `json:"id"`
	TeamID      int64   `json:"teamId"`
	Order       int64   `json:"order"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	LengthMiles float64 `json:"lengthMiles"`
}

// ActualFinishTime is a recorded finish for a (runner, loop) pair. ID is zero
// until the store assigns one.
type ActualFinishTime struct {
	ID         int64     `json:"id,omitempty"`
	RunnerID   int64     `json:"runnerId"`
	LoopID     int64     `json:"loopId"`
	FinishTime time.Time `json:"finishTime"`
}

// Loop colors.
const (
	ColorRed    = "red"
	ColorGreen  = "green"
	ColorYellow = "yellow"
)

// ValidLoopColors enumerates the colors a loop can be tagged with.
var ValidLoopColors = map[string]struct{}{
	ColorRed:    {},
	ColorGreen:  {},
	ColorYellow: {},
}

// TeamSeed describes the roster and loops a new team starts with.
type TeamSeed struct {
	StartTime              string     `koanf:"start_time" json:"startTime"`
	TrailRunMultiplierLow  float64    `koanf:"multiplier_low" json:"trailRunMultiplierLow"`
	TrailRunMultiplierHigh float64    `koanf:"multiplier_high" json:"trailRunMultiplierHigh"`
	RunnerCount            int        `koanf:"runner_count" json:"runnerCount"`
	RunnerNameFormat       string     `koanf:"runner_name_format" json:"runnerNameFormat"`
	RunnerPace             string     `koanf:"runner_pace" json:"runnerPace"`
	Loops                  []LoopSeed `koanf:"loops" json:"loops"`
}

// LoopSeed is a loop created along with a new team.
type LoopSeed struct {
	Name        string  `koanf:"name" json:"name"`
	Color       string  `koanf:"color" json:"color"`
	LengthMiles float64 `koanf:"length_miles" json:"lengthMiles"`
}

// DefaultTeamSeed returns the eight-runner, three-loop setup every new team
// gets unless configured otherwise.
func DefaultTeamSeed() TeamSeed {
	return TeamSeed{
		StartTime:              "00:00",
		TrailRunMultiplierLow:  1.1,
		TrailRunMultiplierHigh: 1.5,
		RunnerCount:            8,
		RunnerNameFormat:       "Runner %d",
		RunnerPace:             "09:30",
		Loops: []LoopSeed{
			{Name: "Green", Color: ColorGreen, LengthMiles: 4.4},
			{Name: "Yellow", Color: ColorYellow, LengthMiles: 4.4},
			{Name: "Red", Color: ColorRed, LengthMiles: 7.8},
		},
	}
}
