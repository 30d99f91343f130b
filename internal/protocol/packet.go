// Package protocol defines the fixed-frame packet format spoken with the
// phantom motion controller.
package protocol

// Kind is the packet discriminant. It travels as field 0 of every frame,
// encoded as a double and compared by exact equality, so the type is a
// float64 rather than an integer.
type Kind float64

// Packet kind codes. Lifecycle kinds live in the 0xE0 range, payload kinds
// in the 0xF0 range.
const (
	KindStart            Kind = 0xE0 // handshake probe, confirmed
	KindStop             Kind = 0xE1 // shutdown notice, fire-and-forget
	KindBallPosition     Kind = 0xF0 // x/y/z of the tracked ball [mm]
	KindTrajectoryStart  Kind = 0xF1 // opens a trajectory, carries sample count, confirmed
	KindTrajectoryEnd    Kind = 0xF2 // closes a trajectory, confirmed
	KindTrajectorySample Kind = 0xF3 // one x/y/z trajectory sample
)

// Frame layout: 4 fields, each an 8-byte big-endian IEEE-754 double.
const (
	FrameFields   = 4
	FieldSize     = 8
	FrameSize     = FrameFields * FieldSize // 32 bytes on the wire
	PayloadFields = FrameFields - 1
)

// Packet is one decoded frame: a kind plus up to three payload scalars,
// zero-filled when unused.
type Packet struct {
	Kind Kind
	Data [PayloadFields]float64
}

// Confirmed reports whether the peer must echo a frame of the same kind
// before a send of this kind counts as delivered.
func (k Kind) Confirmed() bool {
	switch k {
	case KindStart, KindTrajectoryStart, KindTrajectoryEnd:
		return true
	}
	return false
}

// Valid reports whether k is one of the defined kind codes.
func (k Kind) Valid() bool {
	switch k {
	case KindStart, KindStop, KindBallPosition,
		KindTrajectoryStart, KindTrajectoryEnd, KindTrajectorySample:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "START"
	case KindStop:
		return "STOP"
	case KindBallPosition:
		return "BALL_POSITION"
	case KindTrajectoryStart:
		return "TRAJECTORY_START"
	case KindTrajectoryEnd:
		return "TRAJECTORY_END"
	case KindTrajectorySample:
		return "TRAJECTORY_SAMPLE"
	}
	return "UNKNOWN"
}
