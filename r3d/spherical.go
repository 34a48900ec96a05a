package r3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const sphericalEPS = 0.000001

// Spherical coordinates with the pole on +Y.
// Phi is the polar angle from +Y, Theta the azimuth around Y measured from +Z.
type Spherical struct {
	Radius float64
	Phi    float64
	Theta  float64
}

func SphericalFromVector(v mgl32.Vec3) Spherical {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	s := Spherical{Radius: math.Sqrt(x*x + y*y + z*z)}
	if s.Radius == 0 {
		return s
	}
	s.Theta = math.Atan2(x, z)
	s.Phi = math.Acos(clamp(y/s.Radius, -1, 1))
	return s
}

func (s Spherical) Vector() mgl32.Vec3 {
	sinPhiRadius := math.Sin(s.Phi) * s.Radius
	return mgl32.Vec3{
		float32(sinPhiRadius * math.Sin(s.Theta)),
		float32(math.Cos(s.Phi) * s.Radius),
		float32(sinPhiRadius * math.Cos(s.Theta)),
	}
}

// MakeSafe keeps Phi away from the poles.
func (s *Spherical) MakeSafe() {
	s.Phi = clamp(s.Phi, sphericalEPS, math.Pi-sphericalEPS)
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}
