// Package stepper executes a solved motion profile against a single
// stepper axis, pulsing a step/direction pin pair (or an equivalent
// Device) once per profile step and honoring the profile's per-step
// timing.
package stepper

import (
	"context"
	"errors"
	"time"

	"scurve.dev/scurve"
)

// Mode selects how Run interprets a stall signal on diag.
type Mode uint8

const (
	// ModeRun treats a stall as a fault: Run aborts and returns an
	// error.
	ModeRun Mode = iota
	// ModeHoming treats a stall as the expected end condition: Run
	// returns nil as soon as diag fires.
	ModeHoming
)

// Direction is the sign of a single step.
type Direction bool

const (
	Forward  Direction = true
	Backward Direction = false
)

// Device is the hardware a Driver pulses once per profile step. An
// implementation typically drives a TMC2209 (or similar) step/dir pin
// pair; see driver/tmc2209 for a real one.
type Device interface {
	Step(dir Direction) error
}

// Driver sequences a solved scurve.Profile onto a Device in real time:
// one goroutine sleeps for each profile delta and pulses the device,
// while Run's caller can observe progress and react to a stall signal
// concurrently.
type Driver struct {
	dev      Device
	progress chan uint
}

// New returns a Driver that pulses dev and reports cumulative step
// count on progress (if non-nil; sends are non-blocking and the latest
// count always wins).
func New(dev Device, progress chan uint) *Driver {
	return &Driver{dev: dev, progress: progress}
}

// stepEvent carries one executed step's outcome from the timing
// goroutine back to Run's select loop.
type stepEvent struct {
	err error
}

// Run executes profile's deltas in direction dir, one step per delta,
// until the profile completes, ctx is canceled, or diag reports a
// stall. In ModeHoming a stall is the expected termination signal and
// Run returns nil; in ModeRun it is a fault and Run returns an error.
func (d *Driver) Run(ctx context.Context, mode Mode, diag <-chan struct{}, dir Direction, profile *scurve.Profile) error {
	deltas := profile.Deltas()
	events := make(chan stepEvent, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		var total uint
		for _, delta := range deltas {
			timer := time.NewTimer(time.Duration(delta * float64(time.Second)))
			select {
			case <-timer.C:
			case <-done:
				timer.Stop()
				return
			}
			err := d.dev.Step(dir)
			total++
			if d.progress != nil {
				select {
				case d.progress <- total:
				default:
					select {
					case <-d.progress:
					default:
					}
					select {
					case d.progress <- total:
					default:
					}
				}
			}
			select {
			case events <- stepEvent{err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
		close(events)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-diag:
			if mode == ModeHoming {
				return nil
			}
			return errors.New("stepper: axis blocked")
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.err != nil {
				return errors.New("stepper: device step failed: " + ev.err.Error())
			}
		}
	}
}
