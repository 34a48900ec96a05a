// Package scene holds everything the renderer draws: entities, model slots and the background.
// A Scene is owned by the frame loop goroutine and is not safe for concurrent use.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gamestop/r3d"
)

type Scene struct {
	Background *r3d.CubeTexture

	root *r3d.Node
}

func New() *Scene {
	return &Scene{root: r3d.NewNode("Scene")}
}

// Add inserts entities at the top level. Entities are never removed.
func (s *Scene) Add(nodes ...*r3d.Node) {
	s.root.Add(nodes...)
}

func (s *Scene) Children() []*r3d.Node {
	return s.root.Childs
}

func (s *Scene) Find(name string) *r3d.Node {
	for _, c := range s.root.Childs {
		if n := c.Find(name); n != nil {
			return n
		}
	}
	return nil
}

// Walk visits every entity with its world matrix.
func (s *Scene) Walk(fn func(node *r3d.Node, world mgl32.Mat4)) {
	for _, c := range s.root.Childs {
		c.Walk(mgl32.Ident4(), fn)
	}
}

type NodeInfo struct {
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	Position  [3]float32 `json:"position"`
	Scale     [3]float32 `json:"scale"`
	Meshes    int        `json:"meshes"`
	Triangles int        `json:"triangles"`
}

type Summary struct {
	Background bool       `json:"background"`
	Entities   []NodeInfo `json:"entities"`
}

// Summary describes the top level entities.
func (s *Scene) Summary() Summary {
	sum := Summary{
		Background: s.Background != nil,
		Entities:   make([]NodeInfo, 0, len(s.root.Childs)),
	}
	for _, c := range s.root.Childs {
		meshes, triangles := c.CountMeshes()
		sum.Entities = append(sum.Entities, NodeInfo{
			Name:      c.Name,
			Kind:      nodeKind(c),
			Position:  c.Position,
			Scale:     c.Scale,
			Meshes:    meshes,
			Triangles: triangles,
		})
	}
	return sum
}

func nodeKind(n *r3d.Node) string {
	switch {
	case n.Light != nil:
		return n.Light.Kind.String() + " light"
	case n.Mesh != nil:
		return "mesh"
	case len(n.Childs) != 0:
		return "group"
	default:
		return "object"
	}
}
