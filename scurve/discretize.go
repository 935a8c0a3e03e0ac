package scurve

import (
	"fmt"
	"math"

	"scurve.dev/curvemath"
	"scurve.dev/segment"
)

// discretize turns a sequence of bounded Discrete segments into the
// flat table of inter-step time deltas a stepper sequencer consumes.
// Each segment is walked step by step with a warm-started cursor: the
// previous step's solved time seeds the next Newton guess, which is
// why consecutive calls converge in a couple of iterations instead of
// dozens.
func discretize(segs []segment.Discrete, beta float64) ([]float64, error) {
	var deltas []float64
	for _, seg := range segs {
		segDeltas, err := discretizeSegment(seg, beta)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, segDeltas...)
	}
	return deltas, nil
}

func discretizeSegment(seg segment.Discrete, beta float64) ([]float64, error) {
	remaining := seg.Steps()
	t := seg.T0
	if seg.Td > 0 || seg.T == 0 {
		deltas := make([]float64, 0, remaining)
		deltas = append(deltas, seg.Td)
		remaining--
		rest, err := discretizeSegmentBody(seg, beta, remaining, t)
		if err != nil {
			return nil, err
		}
		return append(deltas, rest...), nil
	}
	return discretizeSegmentBody(seg, beta, remaining, t)
}

// discretizeSegmentBody emits the remaining steps of a segment after
// any straddle delta, dispatching on segment kind: cubic (jerk
// segments 1/3/5/7), quadratic (constant-acceleration segments 2/6),
// or linear (the constant-velocity cruise, segment 4).
func discretizeSegmentBody(seg segment.Discrete, beta float64, remaining int, t float64) ([]float64, error) {
	deltas := make([]float64, 0, remaining)

	switch {
	case seg.J != 0:
		x0 := beta / seg.Vi
		if seg.Vi == 0 {
			// Starting from rest: seed with the time a pure-jerk ramp
			// needs to cover the first target.
			x0 = math.Cbrt(6 * (seg.S0 + beta) / math.Abs(seg.J))
		}
		for i := 1; i <= remaining; i++ {
			target := seg.S0 + float64(i)*beta
			tSolved, ok := curvemath.NewtonCubic(seg.J, 3*seg.Ai, 6*seg.Vi, -6*target, x0, discretizeTolerance)
			if !ok && math.Abs(target-seg.S()) <= discretizeTolerance {
				// A step landing on the segment's end is at seg.T, even
				// where Newton cannot converge (a zero-velocity end).
				tSolved, ok = seg.T, true
			}
			if !ok {
				return nil, fmt.Errorf("%w: segment %d step %d", ErrNumericalStagnation, seg.ID, i)
			}
			deltas = append(deltas, tSolved-t)
			t = tSolved
			x0 = beta/seg.V(tSolved) + tSolved
		}
	case seg.Ai != 0:
		for i := 1; i <= remaining; i++ {
			target := seg.S0 + float64(i)*beta
			tSolved, ok := curvemath.QuadraticPositiveRoot(0.5*seg.Ai, seg.Vi, -target)
			if !ok {
				return nil, fmt.Errorf("%w: segment %d step %d", ErrNumericalStagnation, seg.ID, i)
			}
			deltas = append(deltas, tSolved-t)
			t = tSolved
		}
	default:
		delta := beta / seg.Vi
		if math.IsInf(delta, 0) || math.IsNaN(delta) {
			return nil, fmt.Errorf("%w: segment %d has zero cruise velocity", ErrNumericalStagnation, seg.ID)
		}
		for i := 0; i < remaining; i++ {
			deltas = append(deltas, delta)
		}
	}
	return deltas, nil
}
