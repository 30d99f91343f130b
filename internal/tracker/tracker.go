// Package tracker provides ball-position sources for the bridge. The vision
// frontend (screen capture and circle detection) lives outside this
// repository and plugs in through the Source interface; the orbit source is
// a synthetic stand-in for running the link without a camera.
package tracker

import (
	"math"
	"time"

	"github.com/ahrastnik/phantomlink/internal/protocol"
)

// Source produces ball positions. Find returns the current position and
// whether the ball was located at all.
type Source interface {
	Find() (protocol.Point, bool)
}

// Orbit traces a circle on the plate at a fixed angular frequency. It always
// locates the ball.
type Orbit struct {
	Radius float64 // circle radius [mm]
	Freq   float64 // revolutions per second
	Z      float64 // constant height [mm]

	start time.Time
}

// NewOrbit creates an orbit source starting at angle zero.
func NewOrbit(radius, freq float64) *Orbit {
	return &Orbit{Radius: radius, Freq: freq, start: time.Now()}
}

// Find returns the orbit position for the current time.
func (o *Orbit) Find() (protocol.Point, bool) {
	if o.start.IsZero() {
		o.start = time.Now()
	}
	angle := 2 * math.Pi * o.Freq * time.Since(o.start).Seconds()
	return protocol.Point{
		X: o.Radius * math.Cos(angle),
		Y: o.Radius * math.Sin(angle),
		Z: o.Z,
	}, true
}

// Circle returns n points evenly spaced on a circle of the given radius,
// ready to hand to SendTrajectory.
func Circle(radius float64, n int) []protocol.Point {
	points := make([]protocol.Point, 0, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		points = append(points, protocol.Point{
			X: radius * math.Cos(angle),
			Y: radius * math.Sin(angle),
		})
	}
	return points
}
