// Package config defines the process configuration and its defaults.
package config

import (
	"fmt"
	"time"

	"relaypace/internal/models"
	"relaypace/internal/timeutil"
)

// Config contains process configuration for both the server and the CLI
// client commands.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath points at the SQLite database file.
	DBPath string `koanf:"db_path"`

	// CORSOrigins lists origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`

	// ShutdownTimeout bounds graceful server shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// APIURL is the server base URL used by the client commands.
	APIURL string `koanf:"api_url"`

	// ClientTimeout bounds a single API request made by the client.
	ClientTimeout time.Duration `koanf:"client_timeout"`

	// Debounce is how long a draft must stay unchanged before it is saved.
	Debounce time.Duration `koanf:"debounce"`

	// Seed is the roster and loop set a newly created team starts with.
	Seed models.TeamSeed `koanf:"seed"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8080",
		DBPath:          "data/relaypace.db",
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: 5 * time.Second,
		APIURL:          "http://localhost:8080",
		ClientTimeout:   30 * time.Second,
		Debounce:        time.Second,
		Seed:            models.DefaultTeamSeed(),
	}
}

// Validate reports the first problem found in c.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.Debounce <= 0:
		return fmt.Errorf("%w: debounce must be positive", ErrInvalidConfig)
	}
	return ValidateSeed(c.Seed)
}

// ValidateSeed checks that a team seed would produce a usable team.
func ValidateSeed(s models.TeamSeed) error {
	if _, err := timeutil.ParseTimeOfDay(s.StartTime); err != nil {
		return fmt.Errorf("%w: seed start_time: %v", ErrInvalidConfig, err)
	}
	if s.TrailRunMultiplierLow <= 0 || s.TrailRunMultiplierHigh <= 0 {
		return fmt.Errorf("%w: seed multipliers must be positive", ErrInvalidConfig)
	}
	if s.RunnerCount < 1 {
		return fmt.Errorf("%w: seed runner_count must be at least 1", ErrInvalidConfig)
	}
	if err := timeutil.ValidatePace(s.RunnerPace); err != nil {
		return fmt.Errorf("%w: seed runner_pace: %v", ErrInvalidConfig, err)
	}
	if len(s.Loops) == 0 {
		return fmt.Errorf("%w: seed needs at least one loop", ErrInvalidConfig)
	}
	for _, l := range s.Loops {
		if _, ok := models.ValidLoopColors[l.Color]; !ok {
			return fmt.Errorf("%w: seed loop %q has unknown color %q", ErrInvalidConfig, l.Name, l.Color)
		}
		if l.LengthMiles <= 0 {
			return fmt.Errorf("%w: seed loop %q length must be positive", ErrInvalidConfig, l.Name)
		}
	}
	return nil
}
