// Package lighting provides light direction helpers for the viewer.
package lighting

import (
	gomath "math"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

// SunDirection converts a sun position to the direction its light travels.
// Longitude rotates around Y in degrees, latitude is elevation above the
// horizon in degrees.
func SunDirection(longitude, latitude float32) math.Vec3 {
	lon := float64(longitude) * gomath.Pi / 180
	lat := float64(latitude) * gomath.Pi / 180

	towardSun := math.Vec3{
		X: float32(gomath.Cos(lat) * gomath.Sin(lon)),
		Y: float32(gomath.Sin(lat)),
		Z: float32(gomath.Cos(lat) * gomath.Cos(lon)),
	}
	return towardSun.Scale(-1)
}
