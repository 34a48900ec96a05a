package r3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type LightKind int

const (
	LightAmbient LightKind = iota
	LightDirectional
	LightSpot
)

func (k LightKind) String() string {
	switch k {
	case LightAmbient:
		return "ambient"
	case LightDirectional:
		return "directional"
	case LightSpot:
		return "spot"
	default:
		return "unknown"
	}
}

// Light is attached to a Node; the node position is the light position.
// Directional and spot lights point from the node to Target.
type Light struct {
	Kind      LightKind
	Color     mgl32.Vec3
	Intensity float32
	Target    mgl32.Vec3

	// spot only
	Angle    float32
	Penumbra float32
	Distance float32
	Decay    float32
}

func NewAmbientLight(color uint32, intensity float32) *Node {
	n := NewNode("AmbientLight")
	n.Light = &Light{Kind: LightAmbient, Color: ColorHex(color), Intensity: intensity}
	return n
}

func NewDirectionalLight(color uint32, intensity float32) *Node {
	n := NewNode("DirectionalLight")
	n.Position = mgl32.Vec3{0, 1, 0}
	n.Light = &Light{Kind: LightDirectional, Color: ColorHex(color), Intensity: intensity}
	return n
}

func NewSpotLight(color uint32, intensity float32) *Node {
	n := NewNode("SpotLight")
	n.Position = mgl32.Vec3{0, 1, 0}
	n.Light = &Light{
		Kind:      LightSpot,
		Color:     ColorHex(color),
		Intensity: intensity,
		Angle:     math.Pi / 3,
		Decay:     1,
	}
	return n
}
