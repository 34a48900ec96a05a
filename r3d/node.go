package r3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

/*
transform = parent * translate * rotate * scale
Matrix, when set, replaces translate * rotate * scale
*/

type Node struct {
	Name string

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Matrix   *mgl32.Mat4

	Mesh       *Mesh
	Light      *Light
	CastShadow bool

	Parent *Node
	Childs []*Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	return n
}

func (n *Node) Add(childs ...*Node) {
	for _, c := range childs {
		if c.Parent != nil {
			c.Parent.remove(c)
		}
		c.Parent = n
		n.Childs = append(n.Childs, c)
	}
}

func (n *Node) remove(c *Node) {
	for i, child := range n.Childs {
		if child == c {
			n.Childs = append(n.Childs[:i], n.Childs[i+1:]...)
			return
		}
	}
}

func (n *Node) LocalMatrix() mgl32.Mat4 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	return mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2]).
		Mul4(n.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2]))
}

func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.WorldMatrix().Col(3).Vec3()
}

// Walk visits n and all of its descendants depth first.
// parent is the world matrix of n's parent.
func (n *Node) Walk(parent mgl32.Mat4, fn func(node *Node, world mgl32.Mat4)) {
	world := parent.Mul4(n.LocalMatrix())
	fn(n, world)
	for _, c := range n.Childs {
		c.Walk(world, fn)
	}
}

func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.Childs {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

func (n *Node) CountMeshes() (meshes, triangles int) {
	n.Walk(mgl32.Ident4(), func(node *Node, _ mgl32.Mat4) {
		if node.Mesh != nil {
			meshes++
			triangles += node.Mesh.Geometry.TriangleCount()
		}
	})
	return meshes, triangles
}
