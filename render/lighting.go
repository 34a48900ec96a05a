package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gamestop/r3d"
	"github.com/mogaika/gamestop/scene"
)

// worldLight is a light resolved to world space for one frame.
type worldLight struct {
	kind     r3d.LightKind
	radiance mgl32.Vec3 // color * intensity

	position  mgl32.Vec3
	direction mgl32.Vec3 // towards the light for directional, along the cone for spot

	coneCos     float32
	penumbraCos float32
	distance    float32
	decay       float32
}

func collectLights(s *scene.Scene) []worldLight {
	lights := make([]worldLight, 0, 4)
	s.Walk(func(node *r3d.Node, world mgl32.Mat4) {
		l := node.Light
		if l == nil {
			return
		}
		wl := worldLight{
			kind:     l.Kind,
			radiance: l.Color.Mul(l.Intensity),
			position: world.Col(3).Vec3(),
		}
		switch l.Kind {
		case r3d.LightDirectional:
			wl.direction = safeNormalize(wl.position.Sub(l.Target), mgl32.Vec3{0, 1, 0})
		case r3d.LightSpot:
			wl.direction = safeNormalize(l.Target.Sub(wl.position), mgl32.Vec3{0, -1, 0})
			wl.coneCos = float32(math.Cos(float64(l.Angle)))
			wl.penumbraCos = float32(math.Cos(float64(l.Angle * (1 - l.Penumbra))))
			wl.distance = l.Distance
			wl.decay = l.Decay
		}
		lights = append(lights, wl)
	})
	return lights
}

func safeNormalize(v, fallback mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return fallback
	}
	return v.Normalize()
}

func smoothstep(low, high, x float32) float32 {
	if x <= low {
		return 0
	}
	if x >= high {
		return 1
	}
	t := (x - low) / (high - low)
	return t * t * (3 - 2*t)
}

// irradiance sums the diffuse light reaching a point with normal n.
func irradiance(lights []worldLight, p, n mgl32.Vec3) mgl32.Vec3 {
	var sum mgl32.Vec3
	for i := range lights {
		l := &lights[i]
		switch l.kind {
		case r3d.LightAmbient:
			sum = sum.Add(l.radiance)
		case r3d.LightDirectional:
			if d := n.Dot(l.direction); d > 0 {
				sum = sum.Add(l.radiance.Mul(d))
			}
		case r3d.LightSpot:
			toLight := l.position.Sub(p)
			dist := toLight.Len()
			if dist == 0 {
				continue
			}
			toLight = toLight.Mul(1 / dist)
			d := n.Dot(toLight)
			if d <= 0 {
				continue
			}
			spot := smoothstep(l.coneCos, l.penumbraCos, -toLight.Dot(l.direction))
			if spot == 0 {
				continue
			}
			atten := float32(1)
			if l.distance > 0 {
				atten = float32(math.Pow(math.Max(0, 1-float64(dist/l.distance)), float64(l.decay)))
			}
			sum = sum.Add(l.radiance.Mul(d * spot * atten))
		}
	}
	return sum
}
