package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"relaypace/internal/models"
)

// GetFinishTimes returns the team's recorded finish times in insertion order.
func (s *Store) GetFinishTimes(ctx context.Context, teamName string) (times []models.ActualFinishTime, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_finish_times", start, err) }(time.Now())

	teamID, err := teamIDByName(ctx, s.db, teamName)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT f.id, f.runner_id, f.loop_id, f.finish_time
        FROM actual_finish_times f
        JOIN runners r ON r.id = f.runner_id
        WHERE r.team_id = ?
        ORDER BY f.id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list finish times: %w", err)
	}
	defer rows.Close()

	times = []models.ActualFinishTime{}
	for rows.Next() {
		var ft models.ActualFinishTime
		if err := rows.Scan(&ft.ID, &ft.RunnerID, &ft.LoopID, &ft.FinishTime); err != nil {
			return nil, fmt.Errorf("scan finish time: %w", err)
		}
		times = append(times, ft)
	}
	return times, rows.Err()
}

// ReplaceFinishTimes swaps the team's whole finish time set for times in one
// transaction. Incoming ids are ignored. An entry without a finish time
// fails with ErrInvalid. If any runner or loop id is not the team's, nothing
// changes and ErrForeignID is returned.
func (s *Store) ReplaceFinishTimes(ctx context.Context, teamName string, times []models.ActualFinishTime) (err error) {
	defer func(start time.Time) { s.observe(ctx, "replace_finish_times", start, err) }(time.Now())

	for _, ft := range times {
		if ft.FinishTime.IsZero() {
			return fmt.Errorf("runner %d loop %d: finish time missing: %w", ft.RunnerID, ft.LoopID, ErrInvalid)
		}
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		teamID, err := teamIDByName(ctx, tx, teamName)
		if err != nil {
			return err
		}
		runnerIDs, err := idSet(ctx, tx, `SELECT id FROM runners WHERE team_id = ?`, teamID)
		if err != nil {
			return err
		}
		loopIDs, err := idSet(ctx, tx, `SELECT id FROM loops WHERE team_id = ?`, teamID)
		if err != nil {
			return err
		}
		for _, ft := range times {
			if _, ok := runnerIDs[ft.RunnerID]; !ok {
				return fmt.Errorf("runner %d: %w", ft.RunnerID, ErrForeignID)
			}
			if _, ok := loopIDs[ft.LoopID]; !ok {
				return fmt.Errorf("loop %d: %w", ft.LoopID, ErrForeignID)
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM actual_finish_times
            WHERE runner_id IN (SELECT id FROM runners WHERE team_id = ?)
               OR loop_id IN (SELECT id FROM loops WHERE team_id = ?)`, teamID, teamID)
		if err != nil {
			return fmt.Errorf("delete finish times: %w", err)
		}
		for _, ft := range times {
			_, err := tx.ExecContext(ctx, `INSERT INTO actual_finish_times(runner_id, loop_id, finish_time) VALUES(?, ?, ?)`,
				ft.RunnerID, ft.LoopID, ft.FinishTime.UTC())
			if err != nil {
				return fmt.Errorf("insert finish time: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrForeignID) {
			s.metrics.RecordBatchRejected()
		}
		return err
	}
	return nil
}

func idSet(ctx context.Context, q querier, query string, args ...any) (map[int64]struct{}, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
