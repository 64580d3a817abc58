package sqlite

import "fmt"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            start_time DATETIME NOT NULL,
            trail_run_multiplier_low REAL NOT NULL,
            trail_run_multiplier_high REAL NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS runners (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            team_id INTEGER NOT NULL,
            "order" INTEGER NOT NULL,
            name TEXT NOT NULL,
            pace_10k TEXT NOT NULL,
            FOREIGN KEY(team_id) REFERENCES teams(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS loops (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            team_id INTEGER NOT NULL,
            "order" INTEGER NOT NULL,
            name TEXT NOT NULL,
            color TEXT NOT NULL CHECK (color IN ('red', 'green', 'yellow')),
            length_miles REAL NOT NULL,
            FOREIGN KEY(team_id) REFERENCES teams(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS actual_finish_times (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            runner_id INTEGER NOT NULL,
            loop_id INTEGER NOT NULL,
            finish_time DATETIME NOT NULL,
            FOREIGN KEY(runner_id) REFERENCES runners(id) ON DELETE CASCADE,
            FOREIGN KEY(loop_id) REFERENCES loops(id) ON DELETE CASCADE
        );`,
	`CREATE INDEX IF NOT EXISTS idx_runners_team ON runners(team_id);`,
	`CREATE INDEX IF NOT EXISTS idx_loops_team ON loops(team_id);`,
	`CREATE INDEX IF NOT EXISTS idx_finish_times_runner ON actual_finish_times(runner_id);`,
	`CREATE INDEX IF NOT EXISTS idx_finish_times_loop ON actual_finish_times(loop_id);`,
}

func (s *Store) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
