package telemetry

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdesk/internal/fleet"
	"fleetdesk/internal/store"
)

type recordingSink struct {
	alerts []fleet.Alert
}

func (s *recordingSink) Publish(ctx context.Context, alert fleet.Alert) {
	s.alerts = append(s.alerts, alert)
}

func newFixture(t *testing.T, buses ...fleet.Bus) (*fleet.Controller, *Simulator, *recordingSink) {
	t.Helper()
	ctrl := fleet.NewController(store.NewMemory())
	require.NoError(t, ctrl.Load(context.Background()))
	for _, bus := range buses {
		_, err := ctrl.AddBus(context.Background(), bus)
		require.NoError(t, err)
	}
	sink := &recordingSink{}
	sim := NewSimulator(Config{}, ctrl, sink)
	sim.SetRand(rand.New(rand.NewSource(1)))
	return ctrl, sim, sink
}

func stationaryAlerts(alerts []fleet.Alert) []fleet.Alert {
	var out []fleet.Alert
	for _, a := range alerts {
		if a.Type == fleet.AlertStationary {
			out = append(out, a)
		}
	}
	return out
}

func TestStationaryAlertFiresOnceAtTransition(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctrl, sim, sink := newFixture(t, fleet.Bus{
		BusNumber:    "B1",
		Driver:       "Ravi",
		FuelLevel:    100,
		Moving:       true,
		LastMovement: base,
	})

	// 11 minutes pass without a movement update.
	sim.SetClock(func() time.Time { return base.Add(11 * time.Minute) })
	sim.Tick(context.Background())

	bus := ctrl.Buses()[0]
	assert.False(t, bus.Moving)
	got := stationaryAlerts(sink.alerts)
	require.Len(t, got, 1)
	assert.Equal(t, "B1", got[0].BusNumber)
	assert.Equal(t, "Ravi", got[0].Driver)

	// Still stationary on later ticks: no re-fire.
	sim.SetClock(func() time.Time { return base.Add(12 * time.Minute) })
	sim.Tick(context.Background())
	sim.SetClock(func() time.Time { return base.Add(20 * time.Minute) })
	sim.Tick(context.Background())
	assert.Len(t, stationaryAlerts(sink.alerts), 1)
}

func TestRecentMovementKeepsBusMoving(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctrl, sim, sink := newFixture(t, fleet.Bus{
		BusNumber:    "B1",
		FuelLevel:    100,
		Moving:       false,
		LastMovement: base,
	})

	sim.SetClock(func() time.Time { return base.Add(5 * time.Minute) })
	sim.Tick(context.Background())

	assert.True(t, ctrl.Buses()[0].Moving)
	assert.Empty(t, stationaryAlerts(sink.alerts))
}

func TestMovementRefreshRearmsAlert(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctrl, sim, sink := newFixture(t, fleet.Bus{
		BusNumber:    "B1",
		FuelLevel:    100,
		Moving:       true,
		LastMovement: base,
	})

	sim.SetClock(func() time.Time { return base.Add(11 * time.Minute) })
	sim.Tick(context.Background())
	require.Len(t, stationaryAlerts(sink.alerts), 1)

	// External movement feed brings the bus back, then it stalls again.
	_, err := ctrl.RecordMovement(context.Background(), ctrl.Buses()[0].ID)
	require.NoError(t, err)

	sim.SetClock(func() time.Time { return time.Now().Add(11 * time.Minute) })
	sim.Tick(context.Background())
	assert.Len(t, stationaryAlerts(sink.alerts), 2)
}

func TestFuelNeverLeavesRange(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctrl, sim, _ := newFixture(t, fleet.Bus{
		BusNumber:    "B1",
		FuelLevel:    5,
		Moving:       true,
		LastMovement: base,
	})

	for i := 0; i < 200; i++ {
		tick := base.Add(time.Duration(i) * 30 * time.Second)
		sim.SetClock(func() time.Time { return tick })
		sim.Tick(context.Background())
		level := ctrl.Buses()[0].FuelLevel
		require.GreaterOrEqual(t, level, 0.0)
		require.LessOrEqual(t, level, 100.0)
	}
	assert.Equal(t, 0.0, ctrl.Buses()[0].FuelLevel, "fuel drains to zero and stays there")
}

func TestLowFuelAlertIsEdgeTriggered(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	_, sim, sink := newFixture(t, fleet.Bus{
		BusNumber:    "B1",
		FuelLevel:    11,
		Moving:       true,
		LastMovement: base,
	})

	var lowFuel int
	for i := 0; i < 50; i++ {
		tick := base.Add(time.Duration(i) * 30 * time.Second)
		sim.SetClock(func() time.Time { return tick })
		sim.Tick(context.Background())
	}
	for _, a := range sink.alerts {
		if a.Type == fleet.AlertLowFuel {
			lowFuel++
		}
	}
	assert.Equal(t, 1, lowFuel, "low fuel fires once at the downward crossing")
}

func TestBusAddedDuringTicksSurvives(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctrl, sim, _ := newFixture(t, fleet.Bus{
		BusNumber:    "B1",
		FuelLevel:    100,
		Moving:       true,
		LastMovement: base,
	})
	sim.SetClock(func() time.Time { return base.Add(time.Minute) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			sim.Tick(context.Background())
		}
	}()
	for i := 0; i < 20; i++ {
		_, err := ctrl.AddBus(context.Background(), fleet.Bus{
			BusNumber:    fmt.Sprintf("B1-%d", i),
			Moving:       true,
			LastMovement: base,
		})
		require.NoError(t, err)
	}
	<-done

	// Every bus registered while the loop was ticking is still present.
	buses := ctrl.Buses()
	require.Len(t, buses, 21)
	numbers := make(map[string]bool, len(buses))
	for _, b := range buses {
		numbers[b.BusNumber] = true
	}
	for i := 0; i < 20; i++ {
		assert.True(t, numbers[fmt.Sprintf("B1-%d", i)])
	}
}

func TestTickPersistsInOneBatch(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	ctrl := fleet.NewController(mem)
	require.NoError(t, ctrl.Load(context.Background()))
	for _, n := range []string{"B1", "B2", "B3"} {
		_, err := ctrl.AddBus(context.Background(), fleet.Bus{BusNumber: n, Moving: true, LastMovement: base})
		require.NoError(t, err)
	}

	sim := NewSimulator(Config{}, ctrl)
	sim.SetRand(rand.New(rand.NewSource(1)))
	sim.SetClock(func() time.Time { return base.Add(time.Minute) })
	sim.Tick(context.Background())

	// The whole collection survives a reload after the batch write.
	fresh := fleet.NewController(mem)
	require.NoError(t, fresh.Load(context.Background()))
	assert.Len(t, fresh.Buses(), 3)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctrl := fleet.NewController(store.NewMemory())
	require.NoError(t, ctrl.Load(context.Background()))
	sim := NewSimulator(Config{Interval: 5 * time.Millisecond}, ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("simulator did not stop after cancel")
	}
}
