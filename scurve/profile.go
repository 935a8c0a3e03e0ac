package scurve

import (
	"scurve.dev/motion"
	"scurve.dev/segment"
)

// Kind identifies which of the two profile shapes Solve settled on.
type Kind int

const (
	// KindFull is the seven-segment profile: both the
	// constant-acceleration plateau (segment 2) and its mirror
	// (segment 6) have non-zero length.
	KindFull Kind = iota
	// KindPartial is the five-segment profile used when the request
	// can't host a constant-acceleration plateau: the jerk ramps
	// straight from zero to the peak acceleration and back.
	KindPartial
)

func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Profile is a solved, discretized motion profile: the continuous
// segment-by-segment description of the acceleration/velocity/
// displacement laws, and the flat per-step time delta table derived
// from it.
type Profile struct {
	kind       Kind
	request    motion.Request
	continuous []segment.Segment
	discrete   []segment.Discrete
	deltas     []float64
}

// Kind reports whether the profile is the full or partial S-curve.
func (p *Profile) Kind() Kind { return p.kind }

// Segments returns the continuous per-segment description, in
// execution order.
func (p *Profile) Segments() []segment.Segment { return p.continuous }

// Discrete returns the discretized per-segment description, in
// execution order.
func (p *Profile) Discrete() []segment.Discrete { return p.discrete }

// Deltas returns the flat table of inter-step time intervals: Deltas
// has exactly len(Deltas()) steps, and the first element is the time
// from motion start to the first step.
func (p *Profile) Deltas() []float64 { return p.deltas }

// StepCount returns the total number of steps the profile emits.
func (p *Profile) StepCount() int { return len(p.deltas) }

// TotalTime returns the sum of the continuous segments' durations.
func (p *Profile) TotalTime() float64 {
	var total float64
	for _, seg := range p.continuous {
		total += seg.T
	}
	return total
}

// PeakVelocity returns the highest velocity reached by any segment.
func (p *Profile) PeakVelocity() float64 {
	peak := p.request.V0
	for _, seg := range p.continuous {
		if seg.Vi > peak {
			peak = seg.Vi
		}
		if seg.Ve > peak {
			peak = seg.Ve
		}
	}
	return peak
}

// PeakAcceleration returns the highest magnitude of acceleration
// reached by any segment.
func (p *Profile) PeakAcceleration() float64 {
	var peak float64
	for _, seg := range p.continuous {
		for _, a := range [2]float64{seg.Ai, seg.Ae} {
			if a < 0 {
				a = -a
			}
			if a > peak {
				peak = a
			}
		}
	}
	return peak
}
