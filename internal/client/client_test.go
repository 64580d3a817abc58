package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"relaypace/internal/draftsync"
	"relaypace/internal/models"
	"relaypace/internal/server"
	"relaypace/internal/storage/sqlite"
	"relaypace/internal/util"
)

var _ draftsync.Gateway = (*Client)(nil)

func setupTestClient(t *testing.T) *Client {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), util.DiscardLogger(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := server.New(store, util.DiscardLogger(), server.Options{Seed: models.DefaultTeamSeed()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", 5*time.Second)
}

func TestClientTeams(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)

	created, err := c.CreateTeam(ctx, "Night Owls")
	if err != nil || !created {
		t.Fatalf("create team: created=%v err=%v", created, err)
	}
	created, err = c.CreateTeam(ctx, "Night Owls")
	if err != nil || created {
		t.Fatalf("second create: created=%v err=%v", created, err)
	}

	teams, err := c.ListTeams(ctx)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "Night Owls" {
		t.Fatalf("unexpected teams: %+v", teams)
	}

	team, err := c.GetTeam(ctx, "Night Owls")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if len(team.Runners) != 8 || len(team.Loops) != 3 {
		t.Fatalf("expected default seed, got %d runners %d loops", len(team.Runners), len(team.Loops))
	}

	if _, err := c.GetTeam(ctx, "Nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	team.Runners[0].Pace10k = "bad"
	if err := c.SaveTeam(ctx, team); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestClientFinishTimes(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)
	if _, err := c.CreateTeam(ctx, "Owls"); err != nil {
		t.Fatalf("create team: %v", err)
	}
	team, err := c.GetTeam(ctx, "Owls")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}

	at := time.Date(2000, 1, 1, 1, 5, 0, 0, time.UTC)
	batch := []models.ActualFinishTime{{RunnerID: team.Runners[0].ID, LoopID: team.Loops[0].ID, FinishTime: at}}
	if err := c.ReplaceFinishTimes(ctx, "Owls", batch); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := c.GetFinishTimes(ctx, "Owls")
	if err != nil {
		t.Fatalf("get finish times: %v", err)
	}
	if len(got) != 1 || !got[0].FinishTime.Equal(at) {
		t.Fatalf("unexpected finish times: %+v", got)
	}

	if err := c.ReplaceFinishTimes(ctx, "Owls", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	table, err := c.Estimates(ctx, "Owls")
	if err != nil {
		t.Fatalf("estimates: %v", err)
	}
	if len(table.Legs) != 24 || table.Legs[0].ActualFinishTime != nil {
		t.Fatalf("unexpected table: %d legs", len(table.Legs))
	}
}

func TestSessionOverHTTP(t *testing.T) {
	ctx := context.Background()
	c := setupTestClient(t)
	if _, err := c.CreateTeam(ctx, "Owls"); err != nil {
		t.Fatalf("create team: %v", err)
	}

	session, err := draftsync.Open(ctx, c, "Owls",
		draftsync.WithDelay(10*time.Millisecond), draftsync.WithLogger(util.DiscardLogger()))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if err := session.MoveRunnerDown(0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := session.RecordLeg(0, "01:10"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := session.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	team, err := c.GetTeam(ctx, "Owls")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if team.Runners[0].Name != "Runner 2" || team.Runners[1].Name != "Runner 1" {
		t.Fatalf("runners not reordered: %s, %s", team.Runners[0].Name, team.Runners[1].Name)
	}
	times, err := c.GetFinishTimes(ctx, "Owls")
	if err != nil {
		t.Fatalf("get finish times: %v", err)
	}
	if len(times) != 1 || times[0].RunnerID != team.Runners[0].ID {
		t.Fatalf("unexpected finish times: %+v", times)
	}
}
