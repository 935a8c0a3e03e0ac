package scurve

import (
	"fmt"
	"math"

	"scurve.dev/curvemath"
	"scurve.dev/motion"
	"scurve.dev/segment"
)

// partialSolver produces a five-segment S-curve profile: the
// constant-acceleration plateau (and its mirror) are collapsed away,
// so jerk ramps straight from zero up to the peak acceleration and
// straight back down again.
type partialSolver struct {
	req   motion.Request
	alpha float64
	beta  float64
	opts  Options
	c     motion.Constraints
}

func newPartialSolver(req motion.Request, alpha float64, opts Options) *partialSolver {
	return &partialSolver{
		req:   req,
		alpha: alpha,
		beta:  1 / alpha,
		opts:  opts,
		c:     motion.NewConstraints(req),
	}
}

func (ps *partialSolver) solve() (*Profile, error) {
	if err := ps.solveMotionConstraints(); err != nil {
		return nil, err
	}
	if ps.req.T > 0 {
		if err := ps.solveTimeAndMotionConstraints(); err != nil {
			return nil, err
		}
	}
	continuous, discrete, err := ps.bounds()
	if err != nil {
		return nil, err
	}
	deltas, err := discretize(discrete, ps.beta)
	if err != nil {
		return nil, err
	}
	return &Profile{
		kind:       KindPartial,
		request:    ps.req,
		continuous: continuous,
		discrete:   discrete,
		deltas:     deltas,
	}, nil
}

func (ps *partialSolver) checkMins() bool {
	mins := minDisplacementPartial(ps.c.V0, ps.c.A, ps.c.J)
	return checkMinDisplacement(mins[:], ps.beta, ps.c.S)
}

// solveMotionConstraints finds the acceleration ceiling (and the
// velocity it implies) that fits segments 1 and 3 into half of the
// requested displacement. Unlike the full curve there is no plateau to
// preserve, so a single cubic solve (rather than a bisection) usually
// suffices.
func (ps *partialSolver) solveMotionConstraints() error {
	if ps.checkMins() {
		v := ps.c.V0 + ps.c.A*ps.c.A/ps.c.J
		ps.c.UpdateV(v)
		return nil
	}

	steps := float64(curvemath.StepsForDisplacement(ps.c.S, ps.alpha, ps.opts.Epsilon))
	fd := -(steps / 2) * ps.beta
	a, ok := curvemath.NewtonCubic(1/(ps.c.J*ps.c.J), 0, 2*ps.c.V0/ps.c.J, fd, ps.c.A, newtonTolerance)
	if !ok {
		return fmt.Errorf("%w: no admissible peak acceleration", ErrConstraintsInfeasible)
	}
	v := ps.c.V0 + a*a/ps.c.J
	if v > ps.req.V {
		a = math.Sqrt(ps.c.J * (ps.req.V - ps.c.V0))
		v = ps.req.V
	}
	ps.c.UpdateA(a)
	ps.c.UpdateV(v)
	if !ps.checkMins() {
		ps.c.RestoreA()
		ps.c.RestoreV()
		return fmt.Errorf("%w: reduced peak acceleration still fails the minimum displacement test", ErrConstraintsInfeasible)
	}
	return nil
}

// solveTimeAndMotionConstraints looks for a reduced acceleration
// ceiling that makes the partial profile land on the requested total
// time T.
func (ps *partialSolver) solveTimeAndMotionConstraints() error {
	if ps.c.S <= ps.c.V0*ps.req.T {
		return fmt.Errorf("%w: displacement too small for entry velocity and target time", ErrTimeTargetInfeasible)
	}

	a, ok := curvemath.NewtonCubic(2, -ps.req.T*ps.c.J, 0, ps.c.J*ps.c.J*(ps.c.S-ps.req.T*ps.c.V0), ps.c.A, newtonTolerance)
	if !ok || a <= 0 || a >= ps.c.A {
		return fmt.Errorf("%w: no acceleration reduction hits the time target", ErrTimeTargetInfeasible)
	}
	v := ps.c.V0 + a*a/ps.c.J
	if v <= ps.c.V0 || v >= ps.req.V {
		return fmt.Errorf("%w: implied velocity out of range", ErrTimeTargetInfeasible)
	}
	ps.c.UpdateA(a)
	ps.c.UpdateV(v)
	if !ps.checkMins() {
		ps.c.RestoreA()
		ps.c.RestoreV()
		return fmt.Errorf("%w: time-reduced acceleration fails the minimum displacement test", ErrTimeTargetInfeasible)
	}
	return nil
}

// bounds characterizes the solved constraints into the five continuous
// segments of a partial profile and their discrete counterparts. There
// is no constant-acceleration plateau to absorb rounding error into, so
// unlike the full curve, phases 1 and 3 are quantized directly against
// the requested resolution and phase 4 (the cruise, if any) picks up
// whatever the total step count leaves over.
func (ps *partialSolver) bounds() ([]segment.Segment, []segment.Discrete, error) {
	v0, a, j := ps.c.V0, ps.c.A, ps.c.J
	alpha, beta, eps := ps.alpha, ps.beta, ps.opts.Epsilon

	mins := minDisplacementPartial(v0, a, j)
	s1, s3 := mins[0], mins[1]

	s1Stp := curvemath.StepsForDisplacement(s1, alpha, eps)
	s3Stp := curvemath.StepsForDisplacement(s3, alpha, eps)
	s1D := float64(s1Stp) * beta
	s3D := float64(s3Stp) * beta
	totalStp := curvemath.StepsForDisplacement(ps.c.S, alpha, eps)

	var continuous []segment.Segment
	var discrete []segment.Discrete

	phase1 := segment.Segment{
		ID: 1, T: a / j,
		Vi: v0, Ve: v0 + a*a/(2*j),
		Ai: 0, Ae: a, J: j,
		Si: 0, Se: s1,
	}
	continuous = append(continuous, phase1)

	t1d, ok := curvemath.NewtonCubic(j/6, 0, v0, -s1D, phase1.T, newtonTolerance)
	if !ok {
		return nil, nil, fmt.Errorf("%w: phase 1", ErrNumericalStagnation)
	}
	ved1 := v0 + (j/2)*t1d*t1d
	aed1 := j * t1d
	phase1d := segment.Discrete{
		Segment: segment.Segment{
			ID: 1, T: t1d,
			Vi: v0, Ve: ved1,
			Ai: 0, Ae: aed1, J: j,
			Si: 0, Se: s1D,
		},
		StepLo: 1, StepHi: s1Stp,
	}
	discrete = append(discrete, phase1d)

	phase3 := segment.Segment{
		ID: 3, T: a / j,
		Vi: phase1.Ve, Ve: v0 + a*a/j,
		Ai: a, Ae: 0, J: -j,
		Si: phase1.Se, Se: phase1.Se + s3,
	}
	continuous = append(continuous, phase3)

	aid3, vid3 := phase1d.Ae, phase1d.Ve
	t3d, ok := curvemath.NewtonCubic(-j/6, aid3/2, vid3, -s3D, phase3.T, newtonTolerance)
	if !ok {
		return nil, nil, fmt.Errorf("%w: phase 3", ErrNumericalStagnation)
	}
	aed3 := aid3 - j*t3d
	for aed3 < 0 && s3Stp > 1 {
		s3Stp--
		s3D = float64(s3Stp) * beta
		t3d, ok = curvemath.NewtonCubic(-j/6, aid3/2, vid3, -s3D, phase3.T, newtonTolerance)
		if !ok {
			return nil, nil, fmt.Errorf("%w: phase 3", ErrNumericalStagnation)
		}
		aed3 = aid3 - j*t3d
	}
	if aed3 < 0 {
		return nil, nil, ErrNegativeTerminalAcceleration
	}
	ved3 := vid3 + aid3*t3d - (j/2)*t3d*t3d
	phase3d := segment.Discrete{
		Segment: segment.Segment{
			ID: 3, T: t3d,
			Vi: vid3, Ve: ved3,
			Ai: aid3, Ae: aed3, J: -j,
			Si: phase1d.Se, Se: phase1d.Se + s3D,
		},
		StepLo: phase1d.StepHi + 1, StepHi: phase1d.StepHi + s3Stp,
	}
	discrete = append(discrete, phase3d)

	s4 := ps.c.S - 2*(s1+s3)
	stp4 := totalStp - 2*(s1Stp+s3Stp)
	hasContinuous4 := s4 > eps
	hasDiscrete4 := stp4 > 0

	lastContinuous := phase3
	lastDiscrete := phase3d
	if hasContinuous4 {
		phase4 := segment.Segment{
			ID: 4, T: s4 / phase3.Ve,
			Vi: phase3.Ve, Ve: phase3.Ve,
			Ai: 0, Ae: 0, J: 0,
			Si: phase3.Se, Se: phase3.Se + s4,
		}
		continuous = append(continuous, phase4)
		lastContinuous = phase4
	}
	if hasDiscrete4 {
		sd4 := float64(stp4) * beta
		phase4d := segment.Discrete{
			Segment: segment.Segment{
				ID: 4, T: sd4 / phase3d.Ve,
				Vi: phase3d.Ve, Ve: phase3d.Ve,
				Ai: 0, Ae: 0, J: 0,
				Si: phase3d.Se, Se: phase3d.Se + sd4,
			},
			StepLo: phase3d.StepHi + 1, StepHi: phase3d.StepHi + stp4,
		}
		discrete = append(discrete, phase4d)
		lastDiscrete = phase4d
	}

	phase5 := segment.Segment{
		ID: 5, T: phase3.T,
		Vi: lastContinuous.Ve, Ve: phase3.Vi,
		Ai: lastContinuous.Ae, Ae: -phase3.Ai, J: phase3.J,
		Si: lastContinuous.Se, Se: lastContinuous.Se + phase3.S(),
	}
	continuous = append(continuous, phase5)
	phase5d := segment.Discrete{
		Segment: segment.Segment{
			ID: 5, T: phase3d.T,
			Vi: lastDiscrete.Ve, Ve: phase3d.Vi,
			Ai: -phase3d.Ae, Ae: -phase3d.Ai, J: phase3d.J,
			Si: lastDiscrete.Se, Se: lastDiscrete.Se + phase3d.S(),
		},
		StepLo: lastDiscrete.StepHi + 1, StepHi: lastDiscrete.StepHi + s3Stp,
	}
	discrete = append(discrete, phase5d)

	phase7 := segment.Segment{
		ID: 7, T: phase1.T,
		Vi: phase5.Ve, Ve: phase1.Vi,
		Ai: -phase1.Ae, Ae: -phase1.Ai, J: phase1.J,
		Si: phase5.Se, Se: phase5.Se + phase1.S(),
	}
	continuous = append(continuous, phase7)
	phase7d := segment.Discrete{
		Segment: segment.Segment{
			ID: 7, T: phase1d.T,
			Vi: phase5d.Ve, Ve: phase1d.Vi,
			Ai: -phase1d.Ae, Ae: -phase1d.Ai, J: phase1d.J,
			Si: phase5d.Se, Se: phase5d.Se + phase1d.S(),
		},
		StepLo: phase5d.StepHi + 1, StepHi: phase5d.StepHi + s1Stp,
	}
	discrete = append(discrete, phase7d)

	return continuous, discrete, nil
}
