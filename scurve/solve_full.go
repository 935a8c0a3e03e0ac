package scurve

import (
	"fmt"
	"math"

	"scurve.dev/curvemath"
	"scurve.dev/motion"
	"scurve.dev/segment"
)

// fullSolver produces a seven-segment S-curve profile: ramp-up,
// constant acceleration, ramp-down to cruise, optional cruise, and the
// mirror image decelerating back to the exit velocity.
type fullSolver struct {
	req   motion.Request
	alpha float64
	beta  float64
	opts  Options
	c     motion.Constraints
}

func newFullSolver(req motion.Request, alpha float64, opts Options) *fullSolver {
	return &fullSolver{
		req:   req,
		alpha: alpha,
		beta:  1 / alpha,
		opts:  opts,
		c:     motion.NewConstraints(req),
	}
}

func (fs *fullSolver) solve() (*Profile, error) {
	if err := fs.solveMotionConstraints(); err != nil {
		return nil, err
	}
	if fs.req.T > 0 {
		if err := fs.solveTimeAndMotionConstraints(); err != nil {
			return nil, err
		}
	}
	continuous, discrete, err := fs.bounds()
	if err != nil {
		return nil, err
	}
	deltas, err := discretize(discrete, fs.beta)
	if err != nil {
		return nil, err
	}
	return &Profile{
		kind:       KindFull,
		request:    fs.req,
		continuous: continuous,
		discrete:   discrete,
		deltas:     deltas,
	}, nil
}

// checkMins reports whether the minimum-displacement oracle values for
// the solver's current constraints clear check_min_displacement.
func (fs *fullSolver) checkMins() bool {
	mins := minDisplacementFull(fs.c.V0, fs.c.V, fs.c.A, fs.c.J)
	return checkMinDisplacement(mins[:], fs.beta, fs.c.S)
}

// solveMotionConstraints finds the largest acceleration ceiling (and,
// if necessary, a reduced velocity ceiling) that lets the requested
// displacement host all three of segments 1-3 at minimum length. It
// mutates fs.c in place: on success fs.c.A/fs.c.V hold the solved
// ceilings.
func (fs *fullSolver) solveMotionConstraints() error {
	v0, v, a, j := fs.c.V0, fs.c.V, fs.c.A, fs.c.J

	aPeak := math.Sqrt(j * (v - v0))
	if aPeak < a {
		// The request's acceleration ceiling is never reached by a
		// cruise-free ramp to v; lower it to the value that leaves
		// room for at least MinSegmentSteps steps of segment 2.
		minSteps := float64(fs.opts.MinSegmentSteps)
		aTrial, ok := curvemath.QuadraticPositiveRoot(v+v0, 2*minSteps*fs.beta*j, -j*(v*v-v0*v0))
		if !ok {
			return fmt.Errorf("%w: no admissible peak acceleration", ErrConstraintsInfeasible)
		}
		fs.c.UpdateA(aTrial)
		a = aTrial
	}

	if fs.checkMins() {
		return nil
	}

	lo, hi := 0.0, a
	minA, minV := 0.0, 0.0
	its := int(math.Ceil(math.Log2(hi / fs.opts.SolveError)))
	if its < 1 {
		its = 1
	}
	for i := 0; i < its; i++ {
		aTrial := 0.5 * (lo + hi)
		fs.c.UpdateA(aTrial)

		vTrial, ok := curvemath.QuadraticPositiveRoot(1, aTrial*aTrial/j, (aTrial*aTrial*v0)/j-v0*v0-fs.c.S*aTrial)
		accepted := false
		if ok && vTrial > v0 {
			vCandidate := vTrial
			if vCandidate >= fs.req.V {
				vCandidate = fs.req.V
			}
			fs.c.UpdateV(vCandidate)
			if fs.checkMins() {
				accepted = true
				minA, minV = aTrial, vCandidate
			}
			fs.c.RestoreV()
		}
		fs.c.RestoreA()

		if accepted {
			lo = aTrial
		} else {
			hi = aTrial
		}
	}

	if minA <= 0 {
		return fmt.Errorf("%w: bisection over acceleration found no feasible ceiling", ErrConstraintsInfeasible)
	}
	fs.c.UpdateA(minA)
	fs.c.UpdateV(minV)
	return nil
}

// solveMotionAndTimeStep is the single-trial fast path shared by
// solveTimeAndMotionConstraints and its bisection loop: given the
// current acceleration ceiling, it derives the unique velocity that
// hits the total-time target exactly and reports whether that
// velocity also satisfies check_min_displacement.
func (fs *fullSolver) solveMotionAndTimeStep() (v float64, solved bool) {
	v0, a, j, t, s := fs.c.V0, fs.c.A, fs.c.J, fs.req.T, fs.c.S
	minV := v0 + a*a/j

	vTrial, ok := curvemath.QuadraticNegativeRoot(j, -a*j*t-2*j*v0+a*a, j*v0*v0-a*a*v0+a*j*s)
	if !ok || vTrial <= minV || vTrial > fs.c.V {
		return 0, false
	}
	fs.c.UpdateV(vTrial)
	ok = fs.checkMins()
	fs.c.RestoreV()
	if !ok {
		return 0, false
	}
	return vTrial, true
}

// solveTimeAndMotionConstraints refines the acceleration ceiling
// solveMotionConstraints already found so the profile also lands on
// the requested total time T, if one was given.
func (fs *fullSolver) solveTimeAndMotionConstraints() error {
	if fs.c.S <= fs.c.V0*fs.req.T {
		return fmt.Errorf("%w: displacement too small for entry velocity and target time", ErrTimeTargetInfeasible)
	}

	if v, ok := fs.solveMotionAndTimeStep(); ok {
		fs.c.UpdateV(v)
		return nil
	}

	lo, hi := 0.0, fs.c.A
	minA, minV := 0.0, 0.0
	its := int(math.Ceil(math.Log2(hi / fs.opts.SolveError)))
	if its < 1 {
		its = 1
	}
	for i := 0; i < its; i++ {
		aTrial := 0.5 * (lo + hi)
		fs.c.UpdateA(aTrial)
		if v, ok := fs.solveMotionAndTimeStep(); ok {
			minA, minV = aTrial, v
			lo = aTrial
		} else {
			hi = aTrial
		}
		fs.c.RestoreA()
	}

	if minA <= 0 {
		return fmt.Errorf("%w: bisection found no acceleration hitting the time target", ErrTimeTargetInfeasible)
	}
	fs.c.UpdateA(minA)
	fs.c.UpdateV(minV)
	return nil
}

// bounds characterizes the solved constraints into seven (or six, if
// segment 4 has zero length) continuous segments and their discrete
// counterparts, absorbing displacement/time rounding error segment by
// segment so the emitted step count matches floor(S*alpha) exactly.
func (fs *fullSolver) bounds() ([]segment.Segment, []segment.Discrete, error) {
	v0, v, a, j := fs.c.V0, fs.c.V, fs.c.A, fs.c.J
	alpha, beta, eps := fs.alpha, fs.beta, fs.opts.Epsilon
	logf := func(string, ...any) {}
	if fs.opts.DebugBounds {
		logf = fs.opts.logf
	}

	mins := minDisplacementFull(v0, v, a, j)
	s1, s2, s3 := mins[0], mins[1], mins[2]

	s1Stp := curvemath.StepsForDisplacement(s1, alpha, eps)
	s2StpOrig := curvemath.StepsForDisplacement(s2, alpha, eps)
	s3StpOrig := curvemath.StepsForDisplacement(s3, alpha, eps)
	s1D := float64(s1Stp) * beta

	var continuous []segment.Segment
	var discrete []segment.Discrete

	// Segment 1: ramp from v0 to the local peak acceleration.
	seg1 := segment.Segment{
		ID: 1, T: a / j,
		Vi: v0, Ve: v0 + a*a/(2*j),
		Ai: 0, Ae: a, J: j,
		Si: 0, Se: s1,
	}
	continuous = append(continuous, seg1)

	tErr, sErr := 0.0, 0.0
	stpErr := 0
	var t1Err, s1Err float64
	if s1-s1D > eps {
		tSolved, ok := curvemath.NewtonCubic(j, 0, 6*v0, -6*s1D, seg1.T, newtonTolerance)
		if !ok {
			return nil, nil, fmt.Errorf("%w: segment 1", ErrNumericalStagnation)
		}
		t1Err = seg1.T - tSolved
		s1Err = s1 - s1D
		tErr, sErr = t1Err, s1Err
		stpErr = int(math.Ceil(sErr * alpha))
	}
	seg1d := segment.Discrete{Segment: seg1, StepLo: 1, StepHi: s1Stp}
	discrete = append(discrete, seg1d)
	logf("segment 1: s=%g stp=%d", s1, s1Stp)

	// Segment 2: constant acceleration plateau.
	seg2 := segment.Segment{
		ID: 2, T: (v - v0 - a*a/j) / a,
		Vi: seg1.Ve, Ve: v - a*a/(2*j),
		Ai: a, Ae: a, J: 0,
		Si: seg1.Se, Se: seg1.Se + s2,
	}
	continuous = append(continuous, seg2)

	s2Stp := s2StpOrig
	s2D := float64(s2StpOrig) * beta
	var t2Err, s2Err, t2_0, s2_0, t2_d float64
	if stpErr > 0 {
		sFixErr := float64(stpErr)*beta - sErr
		if sFixErr <= s2 {
			t0, ok := curvemath.QuadraticPositiveRoot(0.5*seg2.Ai, seg2.Vi, -sFixErr)
			if !ok {
				return nil, nil, fmt.Errorf("%w: segment 2 absorption", ErrNumericalStagnation)
			}
			t2_0 = t0
			s2_0 = sFixErr
			s2StpNew := curvemath.StepsForDisplacement(s2-sFixErr, alpha, eps)
			s2D = sFixErr + float64(s2StpNew)*beta
			s2Stp = s2StpNew + stpErr
			t2_d = tErr + t2_0
			sErr, tErr, stpErr = 0, 0, 0
		} else {
			sErr += s2
			tErr += seg2.T
		}
	}
	if s2-s2D > eps {
		tSolved, ok := curvemath.QuadraticPositiveRoot(0.5*seg2.Ai, seg2.Vi, -s2D)
		if !ok {
			return nil, nil, fmt.Errorf("%w: segment 2", ErrNumericalStagnation)
		}
		t2Err = seg2.T - tSolved
		s2Err = s2 - s2D
		tErr += t2Err
		sErr += s2Err
		stpErr = int(math.Ceil(sErr * alpha))
	}
	seg2d := segment.Discrete{
		Segment: seg2,
		StepLo:  seg1d.StepHi + 1, StepHi: seg1d.StepHi + s2Stp,
		T0: t2_0, S0: s2_0, Td: t2_d,
	}
	discrete = append(discrete, seg2d)
	logf("segment 2: s=%g stp=%d", s2, s2Stp)

	// Segment 3: ramp down from the peak acceleration to zero, ending
	// at cruise velocity.
	seg3 := segment.Segment{
		ID: 3, T: a / j,
		Vi: seg2.Ve, Ve: v,
		Ai: a, Ae: 0, J: -j,
		Si: seg2.Se, Se: seg2.Se + s3,
	}
	continuous = append(continuous, seg3)

	s3Stp := s3StpOrig
	s3D := float64(s3StpOrig) * beta
	var t3Err, s3Err, t3_0, s3_0, t3_d float64
	if stpErr > 0 {
		sFixErr := float64(stpErr)*beta - sErr
		if sFixErr <= s3 {
			t0, ok := curvemath.NewtonCubic(seg3.J, 3*seg3.Ai, 6*seg3.Vi, -6*sFixErr, seg3.T, newtonTolerance)
			if !ok {
				return nil, nil, fmt.Errorf("%w: segment 3 absorption", ErrNumericalStagnation)
			}
			t3_0 = t0
			s3_0 = sFixErr
			s3StpNew := curvemath.StepsForDisplacement(s3-sFixErr, alpha, eps)
			s3D = sFixErr + float64(s3StpNew)*beta
			s3Stp = s3StpNew + stpErr
			t3_d = tErr + t3_0
			sErr, tErr, stpErr = 0, 0, 0
		} else {
			sErr += s3
			tErr += seg3.T
		}
	}
	if s3-s3D > eps {
		tSolved, ok := curvemath.NewtonCubic(seg3.J, 3*seg3.Ai, 6*seg3.Vi, -6*s3D, seg3.T, newtonTolerance)
		if !ok {
			return nil, nil, fmt.Errorf("%w: segment 3", ErrNumericalStagnation)
		}
		t3Err = seg3.T - tSolved
		s3Err = s3 - s3D
		tErr += t3Err
		sErr += s3Err
		stpErr = int(math.Ceil(sErr * alpha))
	}

	// Segment 3's exit acceleration must stay non-negative: shrink its
	// discrete step count until it does, pushing the shortfall
	// forward through the running error accumulator so segment 4 (or
	// the symmetric segments 5-7) absorb it the same way any other
	// rounding residual is absorbed.
	tEnd, ok := curvemath.NewtonCubic(seg3.J, 3*seg3.Ai, 6*seg3.Vi, -6*s3D, seg3.T, newtonTolerance)
	if !ok {
		return nil, nil, fmt.Errorf("%w: segment 3 terminal check", ErrNumericalStagnation)
	}
	aEnd := seg3.Ai + seg3.J*tEnd
	for aEnd < -eps && s3Stp > 1 {
		s3Stp--
		s3D -= beta
		sErr += beta
		stpErr = int(math.Ceil(sErr * alpha))
		tEnd, ok = curvemath.NewtonCubic(seg3.J, 3*seg3.Ai, 6*seg3.Vi, -6*s3D, seg3.T, newtonTolerance)
		if !ok {
			return nil, nil, fmt.Errorf("%w: segment 3 terminal check", ErrNumericalStagnation)
		}
		aEnd = seg3.Ai + seg3.J*tEnd
	}
	if aEnd < -eps {
		return nil, nil, ErrNegativeTerminalAcceleration
	}

	seg3d := segment.Discrete{
		Segment: seg3,
		StepLo:  seg2d.StepHi + 1, StepHi: seg2d.StepHi + s3Stp,
		T0: t3_0, S0: s3_0, Td: t3_d,
	}
	discrete = append(discrete, seg3d)
	logf("segment 3: s=%g stp=%d", s3, s3Stp)

	// Segment 4: optional cruise at constant velocity, sized to
	// exactly make up the remaining displacement.
	s4 := fs.c.S - 2*(s1+s2+s3)
	hasSeg4 := s4 > eps
	var seg3Exit = seg3d
	var t4_0 float64
	if hasSeg4 {
		seg4 := segment.Segment{
			ID: 4, T: s4 / seg3.Ve,
			Vi: seg3.Ve, Ve: seg3.Ve,
			Ai: 0, Ae: 0, J: 0,
			Si: seg3.Se, Se: seg3.Se + s4,
		}
		continuous = append(continuous, seg4)

		s4Stp := curvemath.StepsForDisplacement(s4, alpha, eps)
		s4D := float64(s4Stp) * beta
		var t4Err, s4Err, s4_0, t4_d float64
		if stpErr > 0 {
			sFixErr := float64(stpErr)*beta - sErr
			if 2*sFixErr <= s4 {
				t4_0 = sFixErr / seg4.Vi
				s4_0 = sFixErr
				s4StpNew := curvemath.StepsForDisplacement(s4-2*sFixErr, alpha, eps)
				s4D = sFixErr + float64(s4StpNew)*beta
				s4Stp = s4StpNew + stpErr
				t4_d = tErr + t4_0
				sErr, tErr, stpErr = 0, 0, 0
			} else {
				sErr += s4
				tErr += seg4.T
			}
		}
		if s4-s4D > eps {
			t4Err = seg4.T - s4D/seg4.Vi
			s4Err = s4 - s4D
			tErr += t4Err
			sErr += s4Err
			stpErr = int(math.Ceil(sErr * alpha))
		}
		seg4d := segment.Discrete{
			Segment: seg4,
			StepLo:  seg3d.StepHi + 1, StepHi: seg3d.StepHi + s4Stp,
			T0: t4_0, S0: s4_0, Td: t4_d,
		}
		discrete = append(discrete, seg4d)
		seg3Exit = seg4d
		logf("segment 4: s=%g stp=%d", s4, s4Stp)
	}

	// Segments 5-7 mirror 3-1. Each recomputes its own discrete step
	// count from the per-segment residual its mirror accumulated,
	// when that residual still fits within the segment's own span.
	s3Final := s3Stp
	if s3Err <= s3 {
		s3Final = curvemath.StepsForDisplacement(s3-s3Err, alpha, eps) + int(math.Ceil(s3Err*alpha))
	}
	seg5 := segment.Segment{
		ID: 5, T: seg3.T,
		Vi: seg3Exit.Segment.Ve, Ve: seg3.Vi,
		Ai: seg3Exit.Segment.Ae, Ae: -seg3.Ai, J: seg3.J,
		Si: seg3Exit.Segment.Se, Se: seg3Exit.Segment.Se + seg3.S(),
	}
	continuous = append(continuous, seg5)
	var td5 float64
	if !hasSeg4 {
		td5 = 2 * t3Err
	} else {
		td5 = t3Err + t4_0
	}
	seg5d := segment.Discrete{
		Segment: seg5,
		StepLo:  seg3Exit.StepHi + 1, StepHi: seg3Exit.StepHi + s3Final,
		T0: t3Err, S0: s3Err, Td: td5,
	}
	discrete = append(discrete, seg5d)
	logf("segment 5: s=%g stp=%d", seg5.S(), s3Final)

	s2Final := s2Stp
	if s2Err <= s2 {
		s2Final = curvemath.StepsForDisplacement(s2-s2Err, alpha, eps) + int(math.Ceil(s2Err*alpha))
	}
	seg6 := segment.Segment{
		ID: 6, T: seg2.T,
		Vi: seg2.Ve, Ve: seg2.Vi,
		Ai: -seg2.Ae, Ae: -seg2.Ae, J: seg2.J,
		Si: seg5.Se, Se: seg5.Se + seg2.S(),
	}
	continuous = append(continuous, seg6)
	seg6d := segment.Discrete{
		Segment: seg6,
		StepLo:  seg5d.StepHi + 1, StepHi: seg5d.StepHi + s2Final,
		T0: t2Err, S0: s2Err, Td: t3_0 + t2Err,
	}
	discrete = append(discrete, seg6d)
	logf("segment 6: s=%g stp=%d", seg6.S(), s2Final)

	s1Final := s1Stp
	if s1Err <= s1 {
		s1Final = curvemath.StepsForDisplacement(s1-s1Err, alpha, eps) + int(math.Ceil(s1Err*alpha))
	}
	seg7 := segment.Segment{
		ID: 7, T: seg1.T,
		Vi: seg1.Ve, Ve: seg1.Vi,
		Ai: -seg1.Ae, Ae: -seg1.Ai, J: seg1.J,
		Si: seg6.Se, Se: seg6.Se + seg1.S(),
	}
	continuous = append(continuous, seg7)
	seg7d := segment.Discrete{
		Segment: seg7,
		StepLo:  seg6d.StepHi + 1, StepHi: seg6d.StepHi + s1Final,
		T0: t1Err, S0: s1Err, Td: t2_0 + t1Err,
	}
	discrete = append(discrete, seg7d)
	logf("segment 7: s=%g stp=%d", seg7.S(), s1Final)

	return continuous, discrete, nil
}
