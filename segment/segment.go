// Package segment carries the continuous and discrete segment records
// that make up a motion profile: constant-jerk pieces of the
// acceleration/velocity/displacement laws, plus their discretized
// (step-indexed) counterparts.
package segment

// Segment is one of up to seven contiguous constant-jerk intervals of a
// motion profile. It is immutable once constructed.
type Segment struct {
	ID int

	T      float64 // duration
	Vi, Ve float64 // entry/exit velocity
	Ai, Ae float64 // entry/exit acceleration
	J      float64 // jerk
	Si, Se float64 // entry/exit accumulated displacement
}

// S returns the displacement covered by the segment.
func (s Segment) S() float64 {
	return s.Se - s.Si
}

// A returns the acceleration at local time t within the segment.
func (s Segment) A(t float64) float64 {
	return s.Ai + s.J*t
}

// V returns the velocity at local time t within the segment.
func (s Segment) V(t float64) float64 {
	return s.Vi + s.Ai*t + 0.5*s.J*t*t
}

// Pos returns the accumulated displacement at local time t within the
// segment (i.e. relative to the profile origin, not to Si).
func (s Segment) Pos(t float64) float64 {
	return s.Si + s.Vi*t + 0.5*s.Ai*t*t + (1.0/6.0)*s.J*t*t*t
}

// Discrete extends Segment with the bookkeeping the step quantizer and
// rounding-error absorption pass (see package scurve) need: the
// inclusive step range the segment owns, and the intra-segment
// absorption offsets introduced when a prior segment's rounding
// shortfall is folded into this one.
type Discrete struct {
	Segment

	// StepLo, StepHi are the inclusive global step indices this
	// segment is responsible for emitting.
	StepLo, StepHi int

	// T0, S0 are the local time/displacement at which an absorbed
	// rounding residual lands, relative to the segment's own origin.
	// Zero when nothing was absorbed in this segment.
	T0, S0 float64

	// Td is the straddle delta: the real-time interval that crosses
	// from the previous segment's last step into this segment's
	// absorption point. Zero when Td carries no residual.
	Td float64
}

// Steps returns the number of steps owned by this segment.
func (d Discrete) Steps() int {
	return d.StepHi - d.StepLo + 1
}
