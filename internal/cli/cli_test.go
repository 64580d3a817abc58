package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relaypace/internal/models"
	"relaypace/internal/server"
	"relaypace/internal/storage/sqlite"
	"relaypace/internal/timeutil"
	"relaypace/internal/util"
)

func startTestServer(t *testing.T) (string, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), util.DiscardLogger(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	seed := models.DefaultTeamSeed()
	seed.RunnerCount = 2
	srv := server.New(store, util.DiscardLogger(), server.Options{Seed: seed})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL, store
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("RELAYPACE_DEBOUNCE", "20ms")
	t.Setenv("RELAYPACE_LOG_LEVEL", "error")

	root := &cobra.Command{Use: "relaypace", SilenceUsage: true, SilenceErrors: true}
	AddGlobalFlags(root)
	root.AddCommand(TeamsCmd(), CreateCmd(), TableCmd(), RecordCmd(), ClearCmd(), MoveCmd(), SetCmd(), MigrateCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateAndList(t *testing.T) {
	url, _ := startTestServer(t)

	out, err := run(t, "--api", url, "teams")
	if err != nil || !strings.Contains(out, "No teams yet") {
		t.Fatalf("empty list: %q %v", out, err)
	}

	out, err = run(t, "--api", url, "create", "Owls")
	if err != nil || !strings.Contains(out, `created team "Owls"`) {
		t.Fatalf("create: %q %v", out, err)
	}
	out, err = run(t, "--api", url, "create", "Owls")
	if err != nil || !strings.Contains(out, "already exists") {
		t.Fatalf("second create: %q %v", out, err)
	}

	out, err = run(t, "--api", url, "teams")
	if err != nil || !strings.Contains(out, "Owls") {
		t.Fatalf("list: %q %v", out, err)
	}
}

func TestRecordMoveAndTable(t *testing.T) {
	url, store := startTestServer(t)
	if _, err := run(t, "--api", url, "create", "Owls"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if out, err := run(t, "--api", url, "record", "Owls", "0", "01:15"); err != nil {
		t.Fatalf("record: %q %v", out, err)
	}
	times, err := store.GetFinishTimes(context.Background(), "Owls")
	if err != nil || len(times) != 1 {
		t.Fatalf("expected one finish time, got %d (%v)", len(times), err)
	}

	if out, err := run(t, "--api", url, "move", "Owls", "0", "down"); err != nil {
		t.Fatalf("move: %q %v", out, err)
	}
	team, err := store.GetTeamByName(context.Background(), "Owls")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if team.Runners[0].Name != "Runner 2" {
		t.Fatalf("expected Runner 2 first, got %s", team.Runners[0].Name)
	}

	out, err := run(t, "--api", url, "table", "Owls")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	for _, want := range []string{"Owls  start 12:00 AM", "Green", "Red", "01:15 AM", "09:30"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	if out, err := run(t, "--api", url, "move", "Owls", "0", "up"); err == nil {
		t.Fatalf("moving the first runner up should fail: %q", out)
	}
	if _, err := run(t, "--api", url, "clear", "Owls", "1"); err == nil {
		t.Fatal("clearing a leg without a finish time should fail")
	}
}

func TestSetFields(t *testing.T) {
	url, store := startTestServer(t)
	if _, err := run(t, "--api", url, "create", "Owls"); err != nil {
		t.Fatalf("create: %v", err)
	}

	edits := [][]string{
		{"set", "start", "Owls", "06:45"},
		{"set", "multipliers", "Owls", "1.2", "1.6"},
		{"set", "pace", "Owls", "1", "08:05"},
		{"set", "runner-name", "Owls", "0", "Ada"},
		{"set", "loop-name", "Owls", "2", "Red long"},
		{"set", "loop-length", "Owls", "2", "8.1"},
	}
	for _, args := range edits {
		out, err := run(t, append([]string{"--api", url}, args...)...)
		if err != nil || !strings.Contains(out, "OK saved") {
			t.Fatalf("%v: %q %v", args, out, err)
		}
	}

	team, err := store.GetTeamByName(context.Background(), "Owls")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if got := timeutil.FormatTimeOfDay(team.StartTime); got != "06:45" {
		t.Errorf("start = %s, want 06:45", got)
	}
	if team.TrailRunMultiplierLow != 1.2 || team.TrailRunMultiplierHigh != 1.6 {
		t.Errorf("multipliers = %v/%v", team.TrailRunMultiplierLow, team.TrailRunMultiplierHigh)
	}
	if team.Runners[0].Name != "Ada" || team.Runners[1].Pace10k != "08:05" {
		t.Errorf("runners = %+v", team.Runners)
	}
	if team.Loops[2].Name != "Red long" || team.Loops[2].LengthMiles != 8.1 {
		t.Errorf("loop = %+v", team.Loops[2])
	}

	refused := [][]string{
		{"set", "loop-length", "Owls", "0", "0"},
		{"set", "pace", "Owls", "0", "9:5"},
		{"set", "start", "Owls", "25:00"},
		{"set", "loop-name", "Owls", "3", "Blue"},
	}
	for _, args := range refused {
		if out, err := run(t, append([]string{"--api", url}, args...)...); err == nil {
			t.Errorf("%v should fail: %q", args, out)
		}
	}
}

func TestRecordBeforeLegStart(t *testing.T) {
	url, store := startTestServer(t)
	if _, err := run(t, "--api", url, "create", "Owls"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := run(t, "--api", url, "set", "start", "Owls", "07:00"); err != nil {
		t.Fatalf("set start: %v", err)
	}

	if out, err := run(t, "--api", url, "record", "Owls", "0", "06:59"); err == nil {
		t.Fatalf("a reading before the start should fail: %q", out)
	}
	times, err := store.GetFinishTimes(context.Background(), "Owls")
	if err != nil || len(times) != 0 {
		t.Fatalf("expected no finish times, got %d (%v)", len(times), err)
	}
}

func TestMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "relaypace.db")
	out, err := run(t, "migrate", "--db", db)
	if err != nil || !strings.Contains(out, "schema up to date") {
		t.Fatalf("migrate: %q %v", out, err)
	}
}
