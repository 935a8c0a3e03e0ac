// Package scurve solves time-optimal, jerk-limited S-curve motion
// profiles for a single axis and discretizes them into a step-indexed
// table of inter-step time intervals suitable for driving a
// stepper-like actuator.
//
// The entry point is Solve: it tries a full seven-segment profile
// first and falls back to a five-segment partial profile (segments 2
// and 6 collapsed) when the full profile's segment-3 rounding guard
// fails (ErrNegativeTerminalAcceleration); other failures are returned.
package scurve

import (
	"errors"
	"fmt"

	"scurve.dev/motion"
)

// Sentinel errors returned by Solve. Use errors.Is to test for a
// specific cause.
var (
	// ErrConstraintsInfeasible means the requested displacement
	// cannot accommodate the velocity/acceleration/jerk ceilings even
	// after the acceleration bisection drove its lower bound to 0.
	ErrConstraintsInfeasible = errors.New("scurve: constraints infeasible for requested displacement")
	// ErrTimeTargetInfeasible means the requested total-time target
	// cannot be met: either S <= V0*T, or no admissible velocity was
	// found by the fast path or the bisection fallback.
	ErrTimeTargetInfeasible = errors.New("scurve: time target infeasible")
	// ErrNegativeTerminalAcceleration means segment 3's rounding guard
	// was exhausted (shrinking its step count to 1 still yields a
	// negative exit acceleration). The façade retries with the
	// partial profile when this occurs.
	ErrNegativeTerminalAcceleration = errors.New("scurve: negative terminal acceleration in segment 3")
	// ErrNumericalStagnation means a Newton iteration inside the
	// discretizer failed to converge; the profile is not emittable.
	ErrNumericalStagnation = errors.New("scurve: numerical stagnation during discretization")
)

// Default configuration knobs, see Options.
const (
	DefaultEpsilon         = 1e-9
	DefaultSolveError      = 0.01
	DefaultMinSegmentSteps = 2
	newtonTolerance        = 1e-6
	discretizeTolerance    = 1e-9
)

// Options holds the solver's configuration knobs. The zero value is
// not directly usable; call NewOptions to get the documented defaults.
type Options struct {
	// Epsilon is the step-ceiling tolerance used by the displacement
	// quantizer (spec component B).
	Epsilon float64
	// SolveError is the absolute stopping tolerance for the
	// acceleration bisection in the constraint solver.
	SolveError float64
	// MinSegmentSteps is the minimum number of steps segment 2 (the
	// constant-acceleration plateau) must retain when the solver
	// pushes the acceleration ceiling down to make room for it.
	MinSegmentSteps int
	// DebugBounds, when true, causes Log to receive one line per
	// segment from the full profile's bounds pass. DebugDiscretize is
	// not read by anything: the partial profile's bounds pass and the
	// discretization pass log nothing.
	DebugBounds, DebugDiscretize bool
	// Log receives debug output when DebugBounds is set. It defaults
	// to a no-op.
	Log func(format string, args ...any)
}

// NewOptions returns an Options populated with the documented
// defaults.
func NewOptions() Options {
	return Options{
		Epsilon:         DefaultEpsilon,
		SolveError:      DefaultSolveError,
		MinSegmentSteps: DefaultMinSegmentSteps,
		Log:             func(string, ...any) {},
	}
}

func (o Options) logf(format string, args ...any) {
	if o.Log != nil {
		o.Log(format, args...)
	}
}

// Solve builds a motion profile for req at the given spatial resolution
// alpha (steps per unit of displacement). It tries the full S-curve
// first and falls back to the partial S-curve on
// ErrNegativeTerminalAcceleration; any other failure is surfaced
// directly.
func Solve(req motion.Request, alpha float64, opts Options) (*Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("scurve: %w", err)
	}
	if alpha <= 0 {
		return nil, fmt.Errorf("scurve: alpha must be > 0, got %g", alpha)
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	if opts.SolveError <= 0 {
		opts.SolveError = DefaultSolveError
	}
	if opts.MinSegmentSteps <= 0 {
		opts.MinSegmentSteps = DefaultMinSegmentSteps
	}
	if opts.Log == nil {
		opts.Log = func(string, ...any) {}
	}

	full := newFullSolver(req, alpha, opts)
	profile, err := full.solve()
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrNegativeTerminalAcceleration) {
		return nil, err
	}

	partial := newPartialSolver(req, alpha, opts)
	profile, perr := partial.solve()
	if perr != nil {
		return nil, perr
	}
	return profile, nil
}
