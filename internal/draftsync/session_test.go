package draftsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"relaypace/internal/models"
	"relaypace/internal/timeutil"
	"relaypace/internal/util"
)

type fakeGateway struct {
	mu          sync.Mutex
	team        models.Team
	finishTimes []models.ActualFinishTime
	teamSaves   []models.Team
	timeSaves   [][]models.ActualFinishTime
	saved       chan string
	failTeam    error
}

func newFakeGateway() *fakeGateway {
	start, _ := timeutil.ParseTimeOfDay("08:00")
	return &fakeGateway{
		team: models.Team{
			ID:                     1,
			Name:                   "Bonk",
			StartTime:              start,
			TrailRunMultiplierLow:  1,
			TrailRunMultiplierHigh: 1,
			// stored out of display order on purpose
			Runners: []models.Runner{
				{ID: 12, TeamID: 1, Order: 2, Name: "C", Pace10k: "10:00"},
				{ID: 10, TeamID: 1, Order: 0, Name: "A", Pace10k: "08:00"},
				{ID: 11, TeamID: 1, Order: 1, Name: "B", Pace10k: "09:00"},
			},
			Loops: []models.Loop{
				{ID: 21, TeamID: 1, Order: 1, Name: "Yellow", Color: models.ColorYellow, LengthMiles: 4.4},
				{ID: 20, TeamID: 1, Order: 0, Name: "Green", Color: models.ColorGreen, LengthMiles: 4.4},
			},
		},
		saved: make(chan string, 16),
	}
}

func (g *fakeGateway) GetTeam(_ context.Context, name string) (models.Team, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if name != g.team.Name {
		return models.Team{}, errors.New("not found")
	}
	return CloneTeam(g.team), nil
}

func (g *fakeGateway) GetFinishTimes(_ context.Context, _ string) ([]models.ActualFinishTime, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return CloneFinishTimes(g.finishTimes), nil
}

func (g *fakeGateway) SaveTeam(_ context.Context, team models.Team) error {
	g.mu.Lock()
	defer func() { g.saved <- StreamTeam }()
	defer g.mu.Unlock()
	if g.failTeam != nil {
		return g.failTeam
	}
	g.teamSaves = append(g.teamSaves, team)
	return nil
}

func (g *fakeGateway) ReplaceFinishTimes(_ context.Context, _ string, times []models.ActualFinishTime) error {
	g.mu.Lock()
	defer func() { g.saved <- StreamFinishTimes }()
	defer g.mu.Unlock()
	g.timeSaves = append(g.timeSaves, times)
	return nil
}

func waitSaved(t *testing.T, g *fakeGateway) string {
	t.Helper()
	select {
	case s := <-g.saved:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a save")
		return ""
	}
}

func TestSession(t *testing.T) {
	Convey("Given a session over a fake gateway", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		gw := newFakeGateway()
		s, err := Open(ctx, gw, "Bonk", WithClock(clock), WithLogger(util.DiscardLogger()))
		So(err, ShouldBeNil)

		Convey("The team is loaded in display order", func() {
			team := s.Team()
			So(team.Runners[0].Name, ShouldEqual, "A")
			So(team.Runners[2].Name, ShouldEqual, "C")
			So(team.Loops[0].Name, ShouldEqual, "Green")
			So(s.Dirty(), ShouldBeFalse)
		})

		Convey("Moving the first runner down keeps order and position aligned", func() {
			So(s.MoveRunnerDown(0), ShouldBeNil)
			runners := s.Team().Runners
			So([]string{runners[0].Name, runners[1].Name, runners[2].Name}, ShouldResemble, []string{"B", "A", "C"})
			So([]int64{runners[0].Order, runners[1].Order, runners[2].Order}, ShouldResemble, []int64{0, 1, 2})

			Convey("And the saved team carries the swapped orders", func() {
				clock.Advance(DefaultDelay)
				So(waitSaved(t, gw), ShouldEqual, StreamTeam)
				So(s.Flush(ctx), ShouldBeNil)
				saved := gw.teamSaves[0].Runners
				So(saved[0].ID, ShouldEqual, 11)
				So(saved[0].Order, ShouldEqual, 0)
				So(saved[1].ID, ShouldEqual, 10)
				So(saved[1].Order, ShouldEqual, 1)
			})
		})

		Convey("Out of range moves are refused without an edit", func() {
			So(errors.Is(s.MoveRunnerUp(0), ErrIndex), ShouldBeTrue)
			So(errors.Is(s.MoveLoopDown(1), ErrIndex), ShouldBeTrue)
			So(s.Dirty(), ShouldBeFalse)
		})

		Convey("An invalid pace is refused", func() {
			So(errors.Is(s.SetRunnerPace(0, "9:30"), timeutil.ErrInvalidPace), ShouldBeTrue)
			So(s.Dirty(), ShouldBeFalse)
		})

		Convey("Recording a leg only touches the finish-time stream", func() {
			So(s.RecordLeg(0, "08:40"), ShouldBeNil)
			So(s.TeamStream().Dirty(), ShouldBeFalse)
			So(s.FinishTimeStream().Dirty(), ShouldBeTrue)

			clock.Advance(DefaultDelay)
			So(waitSaved(t, gw), ShouldEqual, StreamFinishTimes)
			So(s.Flush(ctx), ShouldBeNil)
			So(gw.teamSaves, ShouldBeEmpty)
			So(gw.timeSaves, ShouldHaveLength, 1)
			So(gw.timeSaves[0][0].RunnerID, ShouldEqual, 10)
			So(gw.timeSaves[0][0].LoopID, ShouldEqual, 20)

			Convey("And the estimate uses it", func() {
				legs, err := s.Estimate()
				So(err, ShouldBeNil)
				So(legs[0].ActualFinishTime, ShouldNotBeNil)
				So(timeutil.FormatTimeOfDay(legs[1].MinimumAllowedFinishTime), ShouldEqual, "08:40")
			})

			Convey("And clearing it removes it", func() {
				So(s.ClearLeg(0), ShouldBeNil)
				So(s.FinishTimes(), ShouldBeEmpty)
				So(errors.Is(s.ClearLeg(0), ErrNoFinishTime), ShouldBeTrue)
			})
		})

		Convey("Loops can be renamed and resized", func() {
			So(s.RenameLoop(1, "Yellow short"), ShouldBeNil)
			So(s.SetLoopLength(1, 3.9), ShouldBeNil)
			loop := s.Team().Loops[1]
			So(loop.ID, ShouldEqual, 21)
			So(loop.Name, ShouldEqual, "Yellow short")
			So(loop.LengthMiles, ShouldEqual, 3.9)

			So(s.Close(ctx), ShouldBeNil)
			So(gw.teamSaves, ShouldHaveLength, 1)
			So(gw.teamSaves[0].Loops[1].LengthMiles, ShouldEqual, 3.9)
		})

		Convey("A loop length of zero or less is refused", func() {
			So(errors.Is(s.SetLoopLength(0, 0), ErrInvalidLength), ShouldBeTrue)
			So(errors.Is(s.SetLoopLength(0, -1.5), ErrInvalidLength), ShouldBeTrue)
			So(errors.Is(s.RenameLoop(2, "Red"), ErrIndex), ShouldBeTrue)
			So(s.Dirty(), ShouldBeFalse)
		})

		Convey("A reading just before the leg start is refused", func() {
			So(errors.Is(s.RecordLeg(0, "07:59"), ErrBeforeLegStart), ShouldBeTrue)
			So(s.FinishTimes(), ShouldBeEmpty)
			So(s.Dirty(), ShouldBeFalse)
		})

		Convey("A reading at the leg start is kept exactly", func() {
			So(s.RecordLeg(0, "08:00"), ShouldBeNil)
			legs, err := s.Estimate()
			So(err, ShouldBeNil)
			So(legs[1].MinimumAllowedFinishTime.Equal(legs[0].MinimumAllowedFinishTime), ShouldBeTrue)
		})

		Convey("A reading past midnight is an overnight finish", func() {
			So(s.SetStartTime("23:30"), ShouldBeNil)
			So(s.RecordLeg(0, "00:10"), ShouldBeNil)
			legs, err := s.Estimate()
			So(err, ShouldBeNil)
			So(legs[1].MinimumAllowedFinishTime.Sub(legs[0].MinimumAllowedFinishTime), ShouldEqual, 40*time.Minute)
		})

		Convey("A failing team save does not hold up finish times", func() {
			gw.failTeam = errors.New("offline")
			So(s.SetStartTime("07:00"), ShouldBeNil)
			So(s.RecordLeg(1, "09:30"), ShouldBeNil)
			clock.Advance(DefaultDelay)

			got := map[string]bool{waitSaved(t, gw): true, waitSaved(t, gw): true}
			So(got, ShouldContainKey, StreamTeam)
			So(got, ShouldContainKey, StreamFinishTimes)
			So(eventually(func() bool { return !s.Saving() }), ShouldBeTrue)
			So(s.TeamStream().Dirty(), ShouldBeTrue)
			So(s.FinishTimeStream().Dirty(), ShouldBeFalse)
		})

		Convey("Close flushes pending edits", func() {
			So(s.SetMultipliers(1.2, 1.4), ShouldBeNil)
			So(s.Close(ctx), ShouldBeNil)
			So(gw.teamSaves, ShouldHaveLength, 1)
			So(gw.teamSaves[0].TrailRunMultiplierHigh, ShouldEqual, 1.4)
		})
	})
}

func TestMoveHelpers(t *testing.T) {
	Convey("Moving items swaps order fields together with positions", t, func() {
		loops := []models.Loop{{ID: 1, Order: 0}, {ID: 2, Order: 1}, {ID: 3, Order: 2}}
		So(MoveLoopUp(loops, 2), ShouldBeNil)
		So([]int64{loops[0].ID, loops[1].ID, loops[2].ID}, ShouldResemble, []int64{1, 3, 2})
		So([]int64{loops[0].Order, loops[1].Order, loops[2].Order}, ShouldResemble, []int64{0, 1, 2})
	})

	Convey("Setting a finish time replaces an existing pair", t, func() {
		at, _ := timeutil.ParseTimeOfDay("10:00")
		later := at.Add(time.Minute)
		list := []models.ActualFinishTime{{ID: 5, RunnerID: 1, LoopID: 2, FinishTime: at}}
		SetFinishTime(&list, 1, 2, later)
		SetFinishTime(&list, 3, 2, at)
		So(list, ShouldHaveLength, 2)
		So(list[0].ID, ShouldEqual, 5)
		So(list[0].FinishTime, ShouldEqual, later)
		So(list[1].ID, ShouldEqual, 0)
	})
}
