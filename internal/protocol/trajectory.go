package protocol

// Point is one position sample on the plate, in millimeters. Z is zero for
// planar trajectories.
type Point struct {
	X, Y, Z float64
}

// Data returns the point as frame payload fields.
func (p Point) Data() [PayloadFields]float64 {
	return [PayloadFields]float64{p.X, p.Y, p.Z}
}

// MinTrajectoryPoints is the smallest trajectory eligible for transmission.
// Anything shorter cannot describe a loop for the controller to follow.
const MinTrajectoryPoints = 3

// CloseLoop returns the trajectory closed into a loop by appending its first
// point. The input slice is not modified.
func CloseLoop(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	closed := make([]Point, 0, len(points)+1)
	closed = append(closed, points...)
	return append(closed, points[0])
}
