package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/config"
	"github.com/mogaika/gamestop/geometry"
	"github.com/mogaika/gamestop/r3d"
)

func newLight(l config.Light) (*r3d.Node, error) {
	var n *r3d.Node
	switch l.Kind {
	case "ambient":
		n = r3d.NewAmbientLight(l.Color, l.Intensity)
	case "directional":
		n = r3d.NewDirectionalLight(l.Color, l.Intensity)
		n.Position = l.Position
		n.Light.Target = l.Target
	case "spot":
		n = r3d.NewSpotLight(l.Color, l.Intensity)
		n.Position = l.Position
		n.Light.Target = l.Target
		if l.Angle > 0 {
			n.Light.Angle = l.Angle
		}
		n.Light.Penumbra = l.Penumbra
		n.Light.Distance = l.Distance
	default:
		return nil, errors.Errorf("unknown light kind %q", l.Kind)
	}
	return n, nil
}

// AddLights creates every light in order and adds it to the scene.
func AddLights(s *Scene, lights []config.Light) ([]*r3d.Node, error) {
	nodes := make([]*r3d.Node, 0, len(lights))
	for i, l := range lights {
		n, err := newLight(l)
		if err != nil {
			return nil, errors.Wrapf(err, "light %d", i)
		}
		nodes = append(nodes, n)
	}
	s.Add(nodes...)
	return nodes, nil
}

func SetSkybox(s *Scene, cube *r3d.CubeTexture) {
	s.Background = cube
	log.Infof("[scene] Skybox %dx%d", cube.Size, cube.Size)
}

// AddText builds one extruded Lambert mesh per text item, named after its text.
func AddText(s *Scene, font geometry.Font, text config.Text) ([]*r3d.Node, error) {
	opts := geometry.TextOptions{
		Size:           text.Size,
		Height:         text.Height,
		CurveSegments:  text.CurveSegments,
		BevelEnabled:   text.Bevel.Enabled,
		BevelThickness: text.Bevel.Thickness,
		BevelSize:      text.Bevel.Size,
		BevelOffset:    text.Bevel.Offset,
		BevelSegments:  text.Bevel.Segments,
	}

	nodes := make([]*r3d.Node, 0, len(text.Items))
	for _, item := range text.Items {
		g, err := geometry.TextGeometry(font, item.Text, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "text %q", item.Text)
		}
		n := r3d.NewMeshNode(item.Text, &r3d.Mesh{
			Geometry: g,
			Material: r3d.NewLambertMaterial(item.Color),
		})
		n.Position = item.Position
		n.CastShadow = item.CastShadow
		nodes = append(nodes, n)
		log.Debugf("[scene] Text %q: %d triangles", item.Text, g.TriangleCount())
	}
	s.Add(nodes...)
	return nodes, nil
}

// PlaceModel scales and moves root, fills slot and adds root to the scene.
func PlaceModel(s *Scene, slot *ModelSlot, root *r3d.Node, model config.Model) {
	root.Scale = model.Scale
	if root.Scale == (mgl32.Vec3{}) {
		root.Scale = mgl32.Vec3{1, 1, 1}
	}
	root.Position = model.Position
	slot.Root = root
	s.Add(root)
	meshes, triangles := root.CountMeshes()
	log.Infof("[scene] Model %q placed at %v scale %v (%d meshes, %d triangles)",
		slot.Name, model.Position, model.Scale, meshes, triangles)
}
