package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"relaypace/internal/models"
	"relaypace/internal/timeutil"
)

// ListTeams returns every team ordered by id.
func (s *Store) ListTeams(ctx context.Context) (teams []models.TeamSummary, err error) {
	defer func(start time.Time) { s.observe(ctx, "list_teams", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM teams ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams = []models.TeamSummary{}
	for rows.Next() {
		var t models.TeamSummary
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// GetTeamByName loads a team with its runners and loops sorted by order.
func (s *Store) GetTeamByName(ctx context.Context, name string) (team models.Team, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_team", start, err) }(time.Now())
	return getTeam(ctx, s.db, name)
}

// CreateTeamIfAbsent creates the named team seeded with seed's roster and
// loops. When the team already exists it is returned unchanged with created
// set to false.
func (s *Store) CreateTeamIfAbsent(ctx context.Context, name string, seed models.TeamSeed) (created bool, team models.Team, err error) {
	defer func(start time.Time) { s.observe(ctx, "create_team", start, err) }(time.Now())

	name = strings.TrimSpace(name)
	if name == "" {
		return false, models.Team{}, fmt.Errorf("team name must not be empty: %w", ErrInvalid)
	}
	start, err := timeutil.ParseTimeOfDay(seed.StartTime)
	if err != nil {
		return false, models.Team{}, fmt.Errorf("seed start time: %v: %w", err, ErrInvalid)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := teamIDByName(ctx, tx, name); err == nil {
			return nil
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO teams(name, start_time, trail_run_multiplier_low, trail_run_multiplier_high) VALUES(?, ?, ?, ?)`,
			name, start.UTC(), seed.TrailRunMultiplierLow, seed.TrailRunMultiplierHigh)
		if err != nil {
			return fmt.Errorf("insert team: %w", err)
		}
		teamID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("team id: %w", err)
		}

		for i := 0; i < seed.RunnerCount; i++ {
			_, err := tx.ExecContext(ctx, `INSERT INTO runners(team_id, "order", name, pace_10k) VALUES(?, ?, ?, ?)`,
				teamID, i, fmt.Sprintf(seed.RunnerNameFormat, i+1), seed.RunnerPace)
			if err != nil {
				return fmt.Errorf("insert runner: %w", err)
			}
		}
		for i, l := range seed.Loops {
			_, err := tx.ExecContext(ctx, `INSERT INTO loops(team_id, "order", name, color, length_miles) VALUES(?, ?, ?, ?, ?)`,
				teamID, i, l.Name, l.Color, l.LengthMiles)
			if err != nil {
				return fmt.Errorf("insert loop: %w", err)
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return false, models.Team{}, err
	}

	team, err = getTeam(ctx, s.db, name)
	if err != nil {
		return false, models.Team{}, err
	}
	if created {
		s.metrics.RecordTeamCreated()
		s.logger.InfoContext(ctx, "team created", "team", name, "runners", len(team.Runners), "loops", len(team.Loops))
	}
	return created, team, nil
}

// UpdateTeam overwrites the team's start time and multipliers and every
// runner's and loop's editable fields. The team is looked up by name; every
// runner and loop must already belong to it.
func (s *Store) UpdateTeam(ctx context.Context, team models.Team) (err error) {
	defer func(start time.Time) { s.observe(ctx, "update_team", start, err) }(time.Now())

	if err := ValidateTeam(team); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		teamID, err := teamIDByName(ctx, tx, team.Name)
		if err != nil {
			return err
		}
		if team.ID != 0 && team.ID != teamID {
			return fmt.Errorf("team id %d does not match %q: %w", team.ID, team.Name, ErrForeignID)
		}

		if err := requireCount(ctx, tx, "runners", teamID, len(team.Runners)); err != nil {
			return err
		}
		if err := requireCount(ctx, tx, "loops", teamID, len(team.Loops)); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE teams SET start_time = ?, trail_run_multiplier_low = ?, trail_run_multiplier_high = ? WHERE id = ?`,
			team.StartTime.UTC(), team.TrailRunMultiplierLow, team.TrailRunMultiplierHigh, teamID)
		if err != nil {
			return fmt.Errorf("update team: %w", err)
		}

		for _, r := range team.Runners {
			res, err := tx.ExecContext(ctx, `UPDATE runners SET "order" = ?, name = ?, pace_10k = ? WHERE id = ? AND team_id = ?`,
				r.Order, r.Name, r.Pace10k, r.ID, teamID)
			if err := requireOneRow(res, err, "runner", r.ID); err != nil {
				return err
			}
		}
		for _, l := range team.Loops {
			res, err := tx.ExecContext(ctx, `UPDATE loops SET "order" = ?, name = ?, color = ?, length_miles = ? WHERE id = ? AND team_id = ?`,
				l.Order, l.Name, l.Color, l.LengthMiles, l.ID, teamID)
			if err := requireOneRow(res, err, "loop", l.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func getTeam(ctx context.Context, q querier, name string) (models.Team, error) {
	var t models.Team
	err := q.QueryRowContext(ctx, `SELECT id, name, start_time, trail_run_multiplier_low, trail_run_multiplier_high FROM teams WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.StartTime, &t.TrailRunMultiplierLow, &t.TrailRunMultiplierHigh)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Team{}, fmt.Errorf("team %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return models.Team{}, fmt.Errorf("get team: %w", err)
	}

	if t.Runners, err = listRunners(ctx, q, t.ID); err != nil {
		return models.Team{}, err
	}
	if t.Loops, err = listLoops(ctx, q, t.ID); err != nil {
		return models.Team{}, err
	}
	return t, nil
}

func listRunners(ctx context.Context, q querier, teamID int64) ([]models.Runner, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, team_id, "order", name, pace_10k FROM runners WHERE team_id = ? ORDER BY "order", id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list runners: %w", err)
	}
	defer rows.Close()

	runners := []models.Runner{}
	for rows.Next() {
		var r models.Runner
		if err := rows.Scan(&r.ID, &r.TeamID, &r.Order, &r.Name, &r.Pace10k); err != nil {
			return nil, fmt.Errorf("scan runner: %w", err)
		}
		runners = append(runners, r)
	}
	return runners, rows.Err()
}

func listLoops(ctx context.Context, q querier, teamID int64) ([]models.Loop, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, team_id, "order", name, color, length_miles FROM loops WHERE team_id = ? ORDER BY "order", id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list loops: %w", err)
	}
	defer rows.Close()

	loops := []models.Loop{}
	for rows.Next() {
		var l models.Loop
		if err := rows.Scan(&l.ID, &l.TeamID, &l.Order, &l.Name, &l.Color, &l.LengthMiles); err != nil {
			return nil, fmt.Errorf("scan loop: %w", err)
		}
		loops = append(loops, l)
	}
	return loops, rows.Err()
}

// requireCount makes sure an update names every row the team owns, so a
// partial list cannot leave gaps in the order sequence.
func requireCount(ctx context.Context, q querier, table string, teamID int64, want int) error {
	var have int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE team_id = ?`, teamID).Scan(&have); err != nil {
		return fmt.Errorf("count %s: %w", table, err)
	}
	if have != want {
		return fmt.Errorf("team has %d %s, update lists %d: %w", have, table, want, ErrInvalid)
	}
	return nil
}

func requireOneRow(res sql.Result, err error, kind string, id int64) error {
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrForeignID)
	}
	return nil
}
