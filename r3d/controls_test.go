package r3d

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newTestControls() *OrbitControls {
	camera := NewPerspectiveCamera(75, 16.0/9.0, 0.1, 1000)
	camera.Position = mgl32.Vec3{0, 50, 200}

	controls := NewOrbitControls(camera)
	controls.EnableDamping = true
	controls.MinDistance = 150
	controls.MaxDistance = 250
	controls.EnablePan = false
	controls.MaxPolarAngle = math.Pi / 2
	return controls
}

const boundsEps = 1e-3

func TestOrbitControlsBoundsUnderRandomInput(t *testing.T) {
	controls := newTestControls()
	rng := rand.New(rand.NewSource(1))

	for frame := 0; frame < 2000; frame++ {
		switch rng.Intn(4) {
		case 0:
			controls.Rotate(rng.Float64()*400-200, rng.Float64()*400-200, 720)
		case 1:
			controls.Dolly(rng.Float64()*2 - 1)
		case 2:
			controls.Pan(rng.Float64()*100, rng.Float64()*100, 720)
		}
		controls.Update()

		if d := controls.Distance(); d < 150-boundsEps || d > 250+boundsEps {
			t.Fatalf("frame %d: Distance()=%v; expected within [150, 250]", frame, d)
		}
		if phi := controls.PolarAngle(); phi < 0 || phi > math.Pi/2+boundsEps {
			t.Fatalf("frame %d: PolarAngle()=%v; expected within [0, pi/2]", frame, phi)
		}
		if controls.Target != (mgl32.Vec3{}) {
			t.Fatalf("frame %d: Target=%v; expected pan to have no effect", frame, controls.Target)
		}
	}
}

func TestOrbitControlsDollyClamp(t *testing.T) {
	var dollyTests = []struct {
		delta    float64
		steps    int
		expected float64
	}{
		{-1, 200, 150},
		{1, 200, 250},
	}

	for _, test := range dollyTests {
		controls := newTestControls()
		for i := 0; i < test.steps; i++ {
			controls.Dolly(test.delta)
			controls.Update()
		}
		if d := controls.Distance(); math.Abs(d-test.expected) > boundsEps {
			t.Errorf("Dolly(%v)x%d: Distance()=%v; expected %v", test.delta, test.steps, d, test.expected)
		}
	}
}

func TestOrbitControlsDampingSettles(t *testing.T) {
	controls := newTestControls()
	controls.Rotate(300, 0, 720)

	controls.Update()
	first := controls.Camera.Position

	for i := 0; i < 1000; i++ {
		controls.Update()
	}
	settled := controls.Camera.Position
	controls.Update()

	if first == settled {
		t.Errorf("damped rotation stopped after first frame")
	}
	if moved := controls.Camera.Position.Sub(settled).Len(); moved > 1e-3 {
		t.Errorf("camera still moving %v units per frame after damping settled", moved)
	}
}

func TestOrbitControlsPanEnabled(t *testing.T) {
	controls := newTestControls()
	controls.EnablePan = true
	controls.EnableDamping = false

	controls.Pan(100, 0, 720)
	controls.Update()

	if controls.Target == (mgl32.Vec3{}) {
		t.Errorf("Pan with EnablePan=true did not move target")
	}
}

func TestOrbitControlsLooksAtTarget(t *testing.T) {
	controls := newTestControls()
	controls.Update()
	if controls.Camera.Target() != controls.Target {
		t.Errorf("camera target=%v; expected %v", controls.Camera.Target(), controls.Target)
	}
}
