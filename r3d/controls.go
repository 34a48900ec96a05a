package r3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// OrbitControls orbits a camera around Target.
// Pointer input only accumulates deltas; Update applies them once per frame.
type OrbitControls struct {
	Camera *PerspectiveCamera
	Target mgl32.Vec3

	EnableDamping bool
	DampingFactor float64

	EnableRotate bool
	EnableZoom   bool
	EnablePan    bool

	RotateSpeed float64
	ZoomSpeed   float64
	PanSpeed    float64

	MinDistance     float64
	MaxDistance     float64
	MinPolarAngle   float64
	MaxPolarAngle   float64
	MinAzimuthAngle float64
	MaxAzimuthAngle float64

	spherical      Spherical
	sphericalDelta Spherical
	scale          float64
	panOffset      mgl32.Vec3
}

func NewOrbitControls(camera *PerspectiveCamera) *OrbitControls {
	c := &OrbitControls{
		Camera:          camera,
		DampingFactor:   0.05,
		EnableRotate:    true,
		EnableZoom:      true,
		EnablePan:       true,
		RotateSpeed:     1,
		ZoomSpeed:       1,
		PanSpeed:        1,
		MinDistance:     0,
		MaxDistance:     math.Inf(1),
		MinPolarAngle:   0,
		MaxPolarAngle:   math.Pi,
		MinAzimuthAngle: math.Inf(-1),
		MaxAzimuthAngle: math.Inf(1),
		scale:           1,
	}
	camera.LookAt(c.Target)
	return c
}

func (c *OrbitControls) rotateLeft(angle float64) {
	c.sphericalDelta.Theta -= angle
}

func (c *OrbitControls) rotateUp(angle float64) {
	c.sphericalDelta.Phi -= angle
}

// Rotate handles a pointer drag of dx, dy pixels on a viewport viewportHeight pixels tall.
func (c *OrbitControls) Rotate(dx, dy, viewportHeight float64) {
	if !c.EnableRotate || viewportHeight <= 0 {
		return
	}
	c.rotateLeft(2 * math.Pi * dx * c.RotateSpeed / viewportHeight)
	c.rotateUp(2 * math.Pi * dy * c.RotateSpeed / viewportHeight)
}

func (c *OrbitControls) zoomScale() float64 {
	return math.Pow(0.95, c.ZoomSpeed)
}

// Dolly handles a wheel step. Negative delta, a wheel scrolled up, moves towards the target.
func (c *OrbitControls) Dolly(delta float64) {
	if !c.EnableZoom {
		return
	}
	switch {
	case delta < 0:
		c.scale *= c.zoomScale()
	case delta > 0:
		c.scale /= c.zoomScale()
	}
}

// Pan moves the target in the view plane. Ignored while EnablePan is false.
func (c *OrbitControls) Pan(dx, dy, viewportHeight float64) {
	if !c.EnablePan || viewportHeight <= 0 {
		return
	}
	offset := c.Camera.Position.Sub(c.Target)
	targetDistance := float64(offset.Len()) * math.Tan(float64(mgl32.DegToRad(c.Camera.Fov))/2)

	right, up, _ := c.Camera.Basis()
	left := right.Mul(float32(-2 * dx * c.PanSpeed * targetDistance / viewportHeight))
	upMove := up.Mul(float32(2 * dy * c.PanSpeed * targetDistance / viewportHeight))
	c.panOffset = c.panOffset.Add(left).Add(upMove)
}

// Update moves the camera. It returns true when the camera position changed.
func (c *OrbitControls) Update() bool {
	position := c.Camera.Position
	offset := position.Sub(c.Target)

	c.spherical = SphericalFromVector(offset)

	if c.EnableDamping {
		c.spherical.Theta += c.sphericalDelta.Theta * c.DampingFactor
		c.spherical.Phi += c.sphericalDelta.Phi * c.DampingFactor
	} else {
		c.spherical.Theta += c.sphericalDelta.Theta
		c.spherical.Phi += c.sphericalDelta.Phi
	}

	if !math.IsInf(c.MinAzimuthAngle, 0) || !math.IsInf(c.MaxAzimuthAngle, 0) {
		c.spherical.Theta = clamp(c.spherical.Theta, c.MinAzimuthAngle, c.MaxAzimuthAngle)
	}

	c.spherical.Phi = clamp(c.spherical.Phi, c.MinPolarAngle, c.MaxPolarAngle)
	c.spherical.MakeSafe()

	c.spherical.Radius *= c.scale
	c.spherical.Radius = clamp(c.spherical.Radius, c.MinDistance, c.MaxDistance)

	if c.EnableDamping {
		c.Target = c.Target.Add(c.panOffset.Mul(float32(c.DampingFactor)))
	} else {
		c.Target = c.Target.Add(c.panOffset)
	}

	c.Camera.Position = c.Target.Add(c.spherical.Vector())
	c.Camera.LookAt(c.Target)

	if c.EnableDamping {
		c.sphericalDelta.Theta *= 1 - c.DampingFactor
		c.sphericalDelta.Phi *= 1 - c.DampingFactor
		c.panOffset = c.panOffset.Mul(float32(1 - c.DampingFactor))
	} else {
		c.sphericalDelta = Spherical{}
		c.panOffset = mgl32.Vec3{}
	}
	c.scale = 1

	return c.Camera.Position.Sub(position).Len() > 1e-6
}

// Distance is the current camera to target distance.
func (c *OrbitControls) Distance() float64 {
	return float64(c.Camera.Position.Sub(c.Target).Len())
}

// PolarAngle is the current angle between +Y and the target to camera vector.
func (c *OrbitControls) PolarAngle() float64 {
	return SphericalFromVector(c.Camera.Position.Sub(c.Target)).Phi
}
