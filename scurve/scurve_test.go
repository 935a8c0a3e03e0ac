package scurve

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"scurve.dev/motion"
	"scurve.dev/segment"
)

func TestMinDisplacementFull(t *testing.T) {
	// v0=0, v=1, a=1, j=2: s1=1/24, s2=1/4, s3=11/24.
	got := minDisplacementFull(0, 1, 1, 2)
	want := [3]float64{1.0 / 24, 0.25, 11.0 / 24}
	for i := range got {
		if !scalar.EqualWithinAbs(got[i], want[i], 1e-9) {
			t.Errorf("minDisplacementFull()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMinDisplacementPartial(t *testing.T) {
	got := minDisplacementPartial(0, 1, 2)
	want := [2]float64{1.0 / 24, 5.0 / 24}
	for i := range got {
		if !scalar.EqualWithinAbs(got[i], want[i], 1e-9) {
			t.Errorf("minDisplacementPartial()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCheckMinDisplacement(t *testing.T) {
	cases := []struct {
		name  string
		mins  []float64
		beta  float64
		s     float64
		want  bool
	}{
		{"all clear, sum fits", []float64{0.1, 0.1, 0.1}, 0.01, 1.0, true},
		{"one below quantum", []float64{0.001, 0.1, 0.1}, 0.01, 1.0, false},
		{"sum exceeds half displacement", []float64{1, 1, 1}, 0.01, 1.0, false},
		{"sum exactly half", []float64{0.25, 0.25}, 0.01, 1.0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := checkMinDisplacement(c.mins, c.beta, c.s)
			if got != c.want {
				t.Errorf("checkMinDisplacement(%v, %v, %v) = %v, want %v", c.mins, c.beta, c.s, got, c.want)
			}
		})
	}
}

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()
	if o.Epsilon != DefaultEpsilon {
		t.Errorf("Epsilon = %v, want %v", o.Epsilon, DefaultEpsilon)
	}
	if o.SolveError != DefaultSolveError {
		t.Errorf("SolveError = %v, want %v", o.SolveError, DefaultSolveError)
	}
	if o.MinSegmentSteps != DefaultMinSegmentSteps {
		t.Errorf("MinSegmentSteps = %v, want %v", o.MinSegmentSteps, DefaultMinSegmentSteps)
	}
	if o.Log == nil {
		t.Error("Log is nil, want a no-op default")
	}
}

func TestSolveRejectsInvalidRequest(t *testing.T) {
	req := motion.Request{V0: 0, V: 0, A: 1, J: 1, S: 1}
	if _, err := Solve(req, 30, NewOptions()); err == nil {
		t.Fatal("Solve: expected an error for V <= V0, got nil")
	}
}

func TestSolveRejectsNonPositiveAlpha(t *testing.T) {
	req := motion.Request{V0: 0, V: 1, A: 1, J: 1, S: 1}
	if _, err := Solve(req, 0, NewOptions()); err == nil {
		t.Fatal("Solve: expected an error for alpha <= 0, got nil")
	}
}

func TestSolveFullProfileStructure(t *testing.T) {
	req := motion.Request{V0: 0, V: 1, A: 1, J: 2, S: 2}
	profile, err := Solve(req, 30, NewOptions())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if profile.Kind() != KindFull {
		t.Fatalf("Kind() = %v, want %v", profile.Kind(), KindFull)
	}
	deltas := profile.Deltas()
	if len(deltas) != profile.StepCount() {
		t.Fatalf("len(Deltas()) = %d, StepCount() = %d", len(deltas), profile.StepCount())
	}
	if len(deltas) == 0 {
		t.Fatal("Deltas() is empty")
	}
	for i, d := range deltas {
		if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			t.Errorf("Deltas()[%d] = %v, want a finite positive duration", i, d)
		}
	}
	var stepSum int
	for _, d := range profile.Discrete() {
		stepSum += d.Steps()
	}
	if stepSum != profile.StepCount() {
		t.Errorf("sum of Discrete().Steps() = %d, StepCount() = %d", stepSum, profile.StepCount())
	}
	segs := profile.Segments()
	if segs[0].ID != 1 {
		t.Errorf("first continuous segment ID = %d, want 1", segs[0].ID)
	}
	if segs[len(segs)-1].ID != 7 {
		t.Errorf("last continuous segment ID = %d, want 7", segs[len(segs)-1].ID)
	}
	if profile.TotalTime() <= 0 {
		t.Errorf("TotalTime() = %v, want > 0", profile.TotalTime())
	}
	if pv := profile.PeakVelocity(); pv < req.V0 || pv > req.V+1e-6 {
		t.Errorf("PeakVelocity() = %v, want within [%v, %v]", pv, req.V0, req.V)
	}
}

func TestSolveInfeasibleDisplacementIsReported(t *testing.T) {
	// A huge velocity ceiling with a vanishingly small displacement
	// can't host even the minimum-length ramp segments.
	req := motion.Request{V0: 0, V: 1e6, A: 1, J: 1, S: 1e-6}
	_, err := Solve(req, 30, NewOptions())
	if err == nil {
		t.Fatal("Solve: expected an infeasibility error, got nil")
	}
	if !errors.Is(err, ErrConstraintsInfeasible) {
		t.Errorf("Solve error = %v, want errors.Is(err, ErrConstraintsInfeasible)", err)
	}
}

// seedAlpha and seedBeta match the spatial resolution the seed
// scenarios below are specified at.
const (
	seedAlpha = 400.0
	seedBeta  = 1.0 / seedAlpha
)

// seedScenario is one of the six fixed (v0, V, A, J, S, T) cases used
// to pin down the solver's exact step accounting. wantTime is 0 when
// the scenario carries no time target.
type seedScenario struct {
	name      string
	req       motion.Request
	wantKind  Kind
	wantSteps int
	wantTime  float64
}

var seedScenarios = []seedScenario{
	{
		name:      "no cruise plateau",
		req:       motion.Request{V0: 8.33, V: 100, A: 500, J: 10000, S: 0.0625},
		wantKind:  KindFull,
		wantSteps: 25,
	},
	{
		name:      "short cruise plateau",
		req:       motion.Request{V0: 8.33, V: 100, A: 500, J: 10000, S: 0.0650},
		wantKind:  KindFull,
		wantSteps: 26,
	},
	{
		name:      "unit displacement",
		req:       motion.Request{V0: 8.33, V: 100, A: 500, J: 10000, S: 1.0000},
		wantKind:  KindFull,
		wantSteps: 400,
	},
	{
		name:      "ten unit displacement",
		req:       motion.Request{V0: 8.33, V: 100, A: 500, J: 10000, S: 10.0025},
		wantKind:  KindFull,
		wantSteps: 4001,
	},
	{
		name:      "hundred unit displacement",
		req:       motion.Request{V0: 8.33, V: 100, A: 500, J: 10000, S: 100.0050},
		wantKind:  KindFull,
		wantSteps: 40002,
	},
	{
		name:      "time target fast path",
		req:       motion.Request{V0: 8.33, V: 100, A: 500, J: 10000, S: 10.0, T: 0.4},
		wantKind:  KindFull,
		wantSteps: 4000,
		wantTime:  0.4,
	},
}

func mustSolveSeed(t *testing.T, req motion.Request) *Profile {
	t.Helper()
	profile, err := Solve(req, seedAlpha, NewOptions())
	if err != nil {
		t.Fatalf("Solve(%+v, %v): %v", req, seedAlpha, err)
	}
	return profile
}

// TestSeedScenarios pins the six fixed scenarios of the spec's
// property suite: every one must land on the full S-curve and emit
// exactly the expected step count (invariant 1, |Δ| = floor(S*alpha)),
// and the time-targeted scenario must additionally land within the
// solver's time tolerance of its target (invariant 8).
func TestSeedScenarios(t *testing.T) {
	for _, sc := range seedScenarios {
		t.Run(sc.name, func(t *testing.T) {
			profile := mustSolveSeed(t, sc.req)
			if profile.Kind() != sc.wantKind {
				t.Errorf("Kind() = %v, want %v", profile.Kind(), sc.wantKind)
			}
			if profile.StepCount() != sc.wantSteps {
				t.Errorf("StepCount() = %d, want %d", profile.StepCount(), sc.wantSteps)
			}
			if wantFloor := int(math.Floor(sc.req.S * seedAlpha)); profile.StepCount() != wantFloor {
				t.Errorf("StepCount() = %d, want floor(S*alpha) = %d", profile.StepCount(), wantFloor)
			}
			if sc.wantTime > 0 {
				var sum float64
				for _, d := range profile.Deltas() {
					sum += d
				}
				if !scalar.EqualWithinAbs(sum, sc.wantTime, 1e-4) {
					t.Errorf("sum(Deltas()) = %v, want within 1e-4 of %v", sum, sc.wantTime)
				}
			}
		})
	}
}

// TestSeedScenariosAreIdempotent checks invariant 7: solving the same
// request twice must produce byte-equal delta vectors. The solver
// carries no package-level mutable state, so repeated solves of an
// equal request are pure.
func TestSeedScenariosAreIdempotent(t *testing.T) {
	for _, sc := range seedScenarios {
		t.Run(sc.name, func(t *testing.T) {
			p1 := mustSolveSeed(t, sc.req)
			p2 := mustSolveSeed(t, sc.req)
			d1, d2 := p1.Deltas(), p2.Deltas()
			if len(d1) != len(d2) {
				t.Fatalf("got different step counts across solves: %d vs %d", len(d1), len(d2))
			}
			for i := range d1 {
				if d1[i] != d2[i] {
					t.Errorf("Deltas()[%d] differs across solves: %v vs %v", i, d1[i], d2[i])
				}
			}
		})
	}
}

// TestSeedScenariosArePalindromic checks invariant 4: the delta
// vector is symmetric front-to-back, reflecting the mirrored
// segments 5-7 retracing 3-1's timing exactly.
func TestSeedScenariosArePalindromic(t *testing.T) {
	for _, sc := range seedScenarios {
		t.Run(sc.name, func(t *testing.T) {
			deltas := mustSolveSeed(t, sc.req).Deltas()
			n := len(deltas)
			for i := 0; i < n; i++ {
				gotI := math.Floor(deltas[i] * 1e12)
				gotJ := math.Floor(deltas[n-1-i] * 1e12)
				if gotI != gotJ {
					t.Errorf("Deltas()[%d]=%v and Deltas()[%d]=%v are not palindromic (floor*1e12 %v vs %v)",
						i, deltas[i], n-1-i, deltas[n-1-i], gotI, gotJ)
				}
			}
		})
	}
}

// segmentBodyDeltas returns the steps of a discrete segment's own
// slice of the flat delta table that the discretizer's per-segment
// body loop computed, excluding the leading straddle delta that
// bridges in from the previous segment's absorption point (see
// discretizeSegment). A straddle delta is present whenever the
// segment recorded a nonzero Td, or is itself zero-duration.
func segmentBodyDeltas(deltas []float64, d segment.Discrete) []float64 {
	own := deltas[d.StepLo-1 : d.StepHi]
	if d.Td > 0 || d.Segment.T == 0 {
		if len(own) == 0 {
			return nil
		}
		return own[1:]
	}
	return own
}

// TestSeedScenariosStepQuantum checks invariant 5: walking a
// segment's own body deltas in local time must land on successive
// displacement targets spaced exactly beta apart, up to the spec's
// spatial tolerance.
func TestSeedScenariosStepQuantum(t *testing.T) {
	for _, sc := range seedScenarios {
		t.Run(sc.name, func(t *testing.T) {
			profile := mustSolveSeed(t, sc.req)
			for _, d := range profile.Discrete() {
				body := segmentBodyDeltas(profile.Deltas(), d)
				if len(body) == 0 {
					continue
				}
				tLocal := d.T0
				prevPos := d.Pos(tLocal)
				for i, delta := range body {
					tLocal += delta
					pos := d.Pos(tLocal)
					got := pos - prevPos
					if !scalar.EqualWithinAbs(got, seedBeta, 1e-4) {
						t.Errorf("segment %d body step %d: spatial delta = %v, want beta = %v", d.ID, i, got, seedBeta)
					}
					prevPos = pos
				}
			}
		})
	}
}

// TestSeedScenariosDeltaMonotonicity checks invariant 6: within a
// segment's own body, deltas strictly shrink while accelerating
// (segments 1-3), strictly grow while decelerating (segments 5-7),
// and hold constant during the cruise (segment 4).
func TestSeedScenariosDeltaMonotonicity(t *testing.T) {
	for _, sc := range seedScenarios {
		t.Run(sc.name, func(t *testing.T) {
			profile := mustSolveSeed(t, sc.req)
			for _, d := range profile.Discrete() {
				body := segmentBodyDeltas(profile.Deltas(), d)
				if len(body) < 2 {
					continue
				}
				switch {
				case d.ID <= 3:
					for i := 1; i < len(body); i++ {
						if body[i] >= body[i-1] {
							t.Errorf("segment %d (accelerating): delta[%d]=%v not < delta[%d]=%v", d.ID, i, body[i], i-1, body[i-1])
						}
					}
				case d.ID == 4:
					for i := 1; i < len(body); i++ {
						if !scalar.EqualWithinAbs(body[i], body[i-1], 1e-9) {
							t.Errorf("segment 4 (cruise): delta[%d]=%v, delta[%d]=%v, want constant", i, body[i], i-1, body[i-1])
						}
					}
				default:
					for i := 1; i < len(body); i++ {
						if body[i] <= body[i-1] {
							t.Errorf("segment %d (decelerating): delta[%d]=%v not > delta[%d]=%v", d.ID, i, body[i], i-1, body[i-1])
						}
					}
				}
			}
		})
	}
}
