package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gamestop/r3d"
)

type ExtrudeOptions struct {
	Depth          float32
	BevelEnabled   bool
	BevelThickness float32
	BevelSize      float32
	BevelOffset    float32
	BevelSegments  int
}

// Extrude builds a solid from shapes between z=0 and z=Depth.
// With bevel enabled the caps move out to -BevelThickness and
// Depth+BevelThickness and the walls round out by up to BevelSize.
// The result is a flat shaded triangle soup.
func Extrude(shapes []Shape, opts ExtrudeOptions) *r3d.Geometry {
	g := &r3d.Geometry{}
	for _, shape := range shapes {
		extrudeShape(g, shape, opts)
	}
	return g
}

type layer struct {
	z      float32
	offset float32
}

func bevelLayers(opts ExtrudeOptions) []layer {
	if !opts.BevelEnabled || opts.BevelSegments < 1 {
		return []layer{{0, 0}, {opts.Depth, 0}}
	}
	layers := make([]layer, 0, opts.BevelSegments*2+2)
	for b := 0; b <= opts.BevelSegments; b++ {
		t := float64(b) / float64(opts.BevelSegments)
		z := opts.BevelThickness * float32(math.Cos(t*math.Pi/2))
		bs := opts.BevelSize*float32(math.Sin(t*math.Pi/2)) + opts.BevelOffset
		layers = append(layers, layer{-z, bs})
	}
	for b := opts.BevelSegments; b >= 0; b-- {
		t := float64(b) / float64(opts.BevelSegments)
		z := opts.BevelThickness * float32(math.Cos(t*math.Pi/2))
		bs := opts.BevelSize*float32(math.Sin(t*math.Pi/2)) + opts.BevelOffset
		layers = append(layers, layer{opts.Depth + z, bs})
	}
	return layers
}

func extrudeShape(g *r3d.Geometry, shape Shape, opts ExtrudeOptions) {
	vertices, triangles := Triangulate(shape)
	if len(triangles) == 0 {
		return
	}
	layers := bevelLayers(opts)
	back, front := layers[0], layers[len(layers)-1]

	capVertices := vertices
	if back.offset != 0 {
		capVertices = make([]mgl32.Vec2, 0, len(vertices))
		for _, c := range contours(shape) {
			capVertices = append(capVertices, offsetContour(c, back.offset)...)
		}
	}

	for _, tri := range triangles {
		a, b, c := capVertices[tri[0]], capVertices[tri[1]], capVertices[tri[2]]
		// back cap faces -z so the winding flips
		addTriangle(g,
			mgl32.Vec3{a[0], a[1], back.z},
			mgl32.Vec3{c[0], c[1], back.z},
			mgl32.Vec3{b[0], b[1], back.z})
		addTriangle(g,
			mgl32.Vec3{a[0], a[1], front.z},
			mgl32.Vec3{b[0], b[1], front.z},
			mgl32.Vec3{c[0], c[1], front.z})
	}

	for _, contour := range contours(shape) {
		rings := make([]Path, len(layers))
		for i, l := range layers {
			rings[i] = offsetContour(contour, l.offset)
		}
		for li := 0; li+1 < len(layers); li++ {
			lo, hi := rings[li], rings[li+1]
			zlo, zhi := layers[li].z, layers[li+1].z
			if zlo == zhi && layers[li].offset == layers[li+1].offset {
				continue
			}
			for i := range contour {
				j := (i + 1) % len(contour)
				a0 := mgl32.Vec3{lo[i][0], lo[i][1], zlo}
				b0 := mgl32.Vec3{lo[j][0], lo[j][1], zlo}
				a1 := mgl32.Vec3{hi[i][0], hi[i][1], zhi}
				b1 := mgl32.Vec3{hi[j][0], hi[j][1], zhi}
				addTriangle(g, a0, b0, b1)
				addTriangle(g, a0, b1, a1)
			}
		}
	}
}

// contours returns the outline counter clockwise and holes clockwise,
// the same order Triangulate lays out its vertices.
func contours(shape Shape) []Path {
	outline := shape.Outline
	if outline.IsClockWise() {
		outline = outline.Reversed()
	}
	out := []Path{outline}
	for _, h := range shape.Holes {
		if len(h) < 3 {
			continue
		}
		if !h.IsClockWise() {
			h = h.Reversed()
		}
		out = append(out, h)
	}
	return out
}

// offsetContour moves every vertex along its miter by dist, growing the solid.
func offsetContour(p Path, dist float32) Path {
	if dist == 0 {
		return p
	}
	out := make(Path, len(p))
	n := len(p)
	for i := range p {
		prev, cur, next := p[(i+n-1)%n], p[i], p[(i+1)%n]
		n1 := edgeNormal(prev, cur)
		n2 := edgeNormal(cur, next)
		miter := n1.Add(n2)
		if miter.Len() < 1e-6 {
			miter = n1
		} else {
			miter = miter.Normalize()
		}
		scale := miter.Dot(n1)
		if scale < 0.5 {
			scale = 0.5
		}
		out[i] = cur.Add(miter.Mul(dist / scale))
	}
	return out
}

// edgeNormal points to the right of a->b, outward for counter clockwise contours.
func edgeNormal(a, b mgl32.Vec2) mgl32.Vec2 {
	d := b.Sub(a)
	if d.Len() == 0 {
		return mgl32.Vec2{}
	}
	return mgl32.Vec2{d[1], -d[0]}.Normalize()
}

func addTriangle(g *r3d.Geometry, a, b, c mgl32.Vec3) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return
	}
	n = n.Normalize()
	g.Positions = append(g.Positions, a, b, c)
	g.Normals = append(g.Normals, n, n, n)
}
