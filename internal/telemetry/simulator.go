// Package telemetry runs the recurring simulation that advances fuel and
// movement state for every bus and raises operational alerts at threshold
// crossings. It is the only writer of fuelLevel and isMoving.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"fleetdesk/internal/fleet"
)

// Fleet is the controller surface the simulator needs: one atomic
// read-modify-write over the bus set, persisted as a single batch. Running
// the step under the controller's lock means a bus added or updated by a
// form handler can never be clobbered mid-tick.
type Fleet interface {
	MutateBuses(ctx context.Context, fn func(buses []fleet.Bus) []fleet.Bus) error
}

// AlertSink receives alerts raised by the simulation.
type AlertSink interface {
	Publish(ctx context.Context, alert fleet.Alert)
}

// SinkFunc adapts a function to an AlertSink.
type SinkFunc func(ctx context.Context, alert fleet.Alert)

func (f SinkFunc) Publish(ctx context.Context, alert fleet.Alert) { f(ctx, alert) }

type Config struct {
	// Interval between ticks. The console runs at 30 seconds.
	Interval time.Duration
	// StationaryAfter is how long without movement flags a bus stationary.
	StationaryAfter time.Duration
	// MaxFuelDrain bounds the random fuel drop per tick, in percent.
	MaxFuelDrain float64
	// LowFuelThreshold raises a low-fuel alert when crossed downward.
	LowFuelThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.StationaryAfter <= 0 {
		c.StationaryAfter = 10 * time.Minute
	}
	if c.MaxFuelDrain <= 0 {
		c.MaxFuelDrain = 2.0
	}
	if c.LowFuelThreshold <= 0 {
		c.LowFuelThreshold = 10.0
	}
	return c
}

// Simulator drives the telemetry tick. Alerts are edge-triggered: a bus
// alerts once when it crosses from moving to stationary (or above to below
// the fuel threshold), not on every tick while the condition holds.
type Simulator struct {
	cfg   Config
	fleet Fleet
	sinks []AlertSink
	now   func() time.Time
	rand  *rand.Rand
}

func NewSimulator(cfg Config, fl Fleet, sinks ...AlertSink) *Simulator {
	return &Simulator{
		cfg:   cfg.withDefaults(),
		fleet: fl,
		sinks: sinks,
		now:   time.Now,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock overrides the simulator's time source. Test hook.
func (s *Simulator) SetClock(now func() time.Time) { s.now = now }

// SetRand overrides the randomness source. Test hook.
func (s *Simulator) SetRand(r *rand.Rand) { s.rand = r }

// Run ticks until the context is cancelled. An in-flight tick always
// completes; persistence failures are logged and do not stop future ticks.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick advances one simulation step atomically over the bus set and
// persists the result in a single batch write.
func (s *Simulator) Tick(ctx context.Context) {
	now := s.now()
	var alerts []fleet.Alert

	err := s.fleet.MutateBuses(ctx, func(buses []fleet.Bus) []fleet.Bus {
		if len(buses) == 0 {
			return nil
		}
		for i := range buses {
			bus := &buses[i]

			since := now.Sub(bus.LastMovement)
			if since > s.cfg.StationaryAfter {
				if bus.Moving {
					alerts = append(alerts, fleet.Alert{
						Type:      fleet.AlertStationary,
						BusID:     bus.ID,
						BusNumber: bus.BusNumber,
						Driver:    bus.Driver,
						Message:   fmt.Sprintf("Bus %s has been stationary for %d+ minutes", bus.BusNumber, int(s.cfg.StationaryAfter.Minutes())),
						At:        now,
					})
				}
				bus.Moving = false
			} else {
				bus.Moving = true
			}

			prevFuel := bus.FuelLevel
			bus.FuelLevel -= s.rand.Float64() * s.cfg.MaxFuelDrain
			if bus.FuelLevel < 0 {
				bus.FuelLevel = 0
			}
			if prevFuel >= s.cfg.LowFuelThreshold && bus.FuelLevel < s.cfg.LowFuelThreshold {
				alerts = append(alerts, fleet.Alert{
					Type:      fleet.AlertLowFuel,
					BusID:     bus.ID,
					BusNumber: bus.BusNumber,
					Driver:    bus.Driver,
					Message:   fmt.Sprintf("Bus %s fuel level below %.0f%%", bus.BusNumber, s.cfg.LowFuelThreshold),
					At:        now,
				})
			}
		}
		return buses
	})
	if err != nil {
		log.Printf("telemetry tick persist failed (state kept in memory): %v", err)
	}
	for _, alert := range alerts {
		for _, sink := range s.sinks {
			sink.Publish(ctx, alert)
		}
	}
}
