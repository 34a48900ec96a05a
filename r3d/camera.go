package r3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Camera interface {
	GetViewMatrix() mgl32.Mat4
	GetProjectionMatrix() mgl32.Mat4
}

// PerspectiveCamera is a scene entity; Node.Position is the eye.
type PerspectiveCamera struct {
	Node

	Fov    float32 // vertical, degrees
	Aspect float32
	Near   float32
	Far    float32
	Up     mgl32.Vec3

	target     mgl32.Vec3
	projection mgl32.Mat4
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	c := &PerspectiveCamera{
		Node:   *NewNode("PerspectiveCamera"),
		Fov:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Up:     mgl32.Vec3{0, 1, 0},
		target: mgl32.Vec3{0, 0, -1},
	}
	c.UpdateProjectionMatrix()
	return c
}

func (c *PerspectiveCamera) UpdateProjectionMatrix() {
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
}

// LookAt turns the camera towards target and keeps that orientation in Rotation.
// Moving the camera afterwards translates the view without re-aiming it.
func (c *PerspectiveCamera) LookAt(target mgl32.Vec3) {
	c.target = target
	z := c.Position.Sub(target)
	if z.Len() == 0 {
		return
	}
	z = z.Normalize()
	x := c.Up.Cross(z)
	if x.Len() == 0 {
		// up and view direction are parallel
		if abs32(c.Up.Z()) == 1 {
			z[0] += 0.0001
		} else {
			z[2] += 0.0001
		}
		z = z.Normalize()
		x = c.Up.Cross(z)
	}
	x = x.Normalize()
	y := z.Cross(x)
	c.Rotation = mgl32.Mat4ToQuat(mgl32.Mat3FromCols(x, y, z).Mat4()).Normalize()
}

// Target is the last point passed to LookAt.
func (c *PerspectiveCamera) Target() mgl32.Vec3 {
	return c.target
}

func (c *PerspectiveCamera) GetViewMatrix() mgl32.Mat4 {
	p := c.Position
	return c.Rotation.Conjugate().Mat4().Mul4(mgl32.Translate3D(-p[0], -p[1], -p[2]))
}

func (c *PerspectiveCamera) GetProjectionMatrix() mgl32.Mat4 {
	return c.projection
}

func (c *PerspectiveCamera) ViewProjectionMatrix() mgl32.Mat4 {
	return c.projection.Mul4(c.GetViewMatrix())
}

// Basis returns the world space right, up and forward unit vectors of the view.
func (c *PerspectiveCamera) Basis() (right, up, forward mgl32.Vec3) {
	right = c.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
	up = c.Rotation.Rotate(mgl32.Vec3{0, 1, 0})
	forward = c.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
	return
}
