package protocol

import "testing"

// TestKindConfirmed pins which kinds block for a same-kind reply.
func TestKindConfirmed(t *testing.T) {
	testCases := []struct {
		kind Kind
		want bool
	}{
		{KindStart, true},
		{KindStop, false},
		{KindBallPosition, false},
		{KindTrajectoryStart, true},
		{KindTrajectoryEnd, true},
		{KindTrajectorySample, false},
	}

	for _, tc := range testCases {
		if got := tc.kind.Confirmed(); got != tc.want {
			t.Errorf("%v.Confirmed() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

// TestKindCodes pins the wire code table. Changing these breaks
// compatibility with the deployed controller model.
func TestKindCodes(t *testing.T) {
	testCases := []struct {
		kind Kind
		code float64
		name string
	}{
		{KindStart, 0xE0, "START"},
		{KindStop, 0xE1, "STOP"},
		{KindBallPosition, 0xF0, "BALL_POSITION"},
		{KindTrajectoryStart, 0xF1, "TRAJECTORY_START"},
		{KindTrajectoryEnd, 0xF2, "TRAJECTORY_END"},
		{KindTrajectorySample, 0xF3, "TRAJECTORY_SAMPLE"},
	}

	for _, tc := range testCases {
		if float64(tc.kind) != tc.code {
			t.Errorf("%s code = %v, want %#x", tc.name, float64(tc.kind), int(tc.code))
		}
		if tc.kind.String() != tc.name {
			t.Errorf("String() = %q, want %q", tc.kind.String(), tc.name)
		}
		if !tc.kind.Valid() {
			t.Errorf("%s.Valid() = false", tc.name)
		}
	}
}

// TestCloseLoop verifies loop closing appends the first point without
// mutating the input.
func TestCloseLoop(t *testing.T) {
	points := []Point{{X: 1}, {Y: 2}, {Z: 3}}
	closed := CloseLoop(points)

	if len(closed) != 4 {
		t.Fatalf("closed length = %d, want 4", len(closed))
	}
	if closed[3] != points[0] {
		t.Errorf("last point = %+v, want first point %+v", closed[3], points[0])
	}
	if len(points) != 3 {
		t.Errorf("input mutated: length = %d", len(points))
	}

	if got := CloseLoop(nil); got != nil {
		t.Errorf("CloseLoop(nil) = %v, want nil", got)
	}
}

// TestPointData verifies payload ordering.
func TestPointData(t *testing.T) {
	p := Point{X: 1.5, Y: -2, Z: 0.25}
	if got := p.Data(); got != [PayloadFields]float64{1.5, -2, 0.25} {
		t.Errorf("Data() = %v", got)
	}
}
