// Package geometry builds triangle meshes from 2D outlines: font glyphs,
// shapes with holes and their extrusions.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Path is a closed contour. The closing point is implicit.
type Path []mgl32.Vec2

// SignedArea is positive for counter clockwise contours (y up).
func (p Path) SignedArea() float32 {
	var a float32
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i][0]*p[j][1] - p[j][0]*p[i][1]
	}
	return a / 2
}

func (p Path) IsClockWise() bool {
	return p.SignedArea() < 0
}

func (p Path) Reversed() Path {
	r := make(Path, len(p))
	for i, v := range p {
		r[len(p)-1-i] = v
	}
	return r
}

// Contains reports whether pt is inside p using the even-odd rule.
func (p Path) Contains(pt mgl32.Vec2) bool {
	inside := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a[1] > pt[1]) != (b[1] > pt[1]) {
			x := (b[0]-a[0])*(pt[1]-a[1])/(b[1]-a[1]) + a[0]
			if pt[0] < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Shape is a solid outline with optional holes.
type Shape struct {
	Outline Path
	Holes   []Path
}

// ShapePath collects sub paths drawn with pen commands and flattens curves
// into Divisions line segments each.
type ShapePath struct {
	Divisions int

	paths   []Path
	current Path
	pen     mgl32.Vec2
}

func NewShapePath(divisions int) *ShapePath {
	if divisions < 1 {
		divisions = 1
	}
	return &ShapePath{Divisions: divisions}
}

func (sp *ShapePath) MoveTo(x, y float32) {
	sp.flush()
	sp.pen = mgl32.Vec2{x, y}
	sp.current = Path{sp.pen}
}

func (sp *ShapePath) LineTo(x, y float32) {
	sp.pen = mgl32.Vec2{x, y}
	sp.push(sp.pen)
}

func (sp *ShapePath) QuadTo(cx, cy, x, y float32) {
	p0, p1, p2 := sp.pen, mgl32.Vec2{cx, cy}, mgl32.Vec2{x, y}
	for i := 1; i <= sp.Divisions; i++ {
		t := float32(i) / float32(sp.Divisions)
		it := 1 - t
		sp.push(p0.Mul(it * it).Add(p1.Mul(2 * it * t)).Add(p2.Mul(t * t)))
	}
	sp.pen = p2
}

func (sp *ShapePath) CubicTo(c1x, c1y, c2x, c2y, x, y float32) {
	p0, p1, p2, p3 := sp.pen, mgl32.Vec2{c1x, c1y}, mgl32.Vec2{c2x, c2y}, mgl32.Vec2{x, y}
	for i := 1; i <= sp.Divisions; i++ {
		t := float32(i) / float32(sp.Divisions)
		it := 1 - t
		sp.push(p0.Mul(it * it * it).
			Add(p1.Mul(3 * it * it * t)).
			Add(p2.Mul(3 * it * t * t)).
			Add(p3.Mul(t * t * t)))
	}
	sp.pen = p3
}

func (sp *ShapePath) Close() {
	sp.flush()
}

func (sp *ShapePath) push(v mgl32.Vec2) {
	if n := len(sp.current); n > 0 && sp.current[n-1].ApproxEqual(v) {
		return
	}
	sp.current = append(sp.current, v)
}

func (sp *ShapePath) flush() {
	p := sp.current
	sp.current = nil
	for len(p) > 1 && p[len(p)-1].ApproxEqual(p[0]) {
		p = p[:len(p)-1]
	}
	if len(p) >= 3 && math.Abs(float64(p.SignedArea())) > 1e-9 {
		sp.paths = append(sp.paths, p)
	}
}

func (sp *ShapePath) Paths() []Path {
	sp.flush()
	return sp.paths
}

// ToShapes groups contours into solids and holes by nesting depth,
// so it works for both glyph winding conventions.
// Outlines come out counter clockwise, holes clockwise.
func (sp *ShapePath) ToShapes() []Shape {
	paths := sp.Paths()

	depth := make([]int, len(paths))
	for i, p := range paths {
		for j, other := range paths {
			if i != j && other.Contains(p[0]) {
				depth[i]++
			}
		}
	}

	shapes := make([]Shape, 0)
	outer := make(map[int]int)
	for i, p := range paths {
		if depth[i]%2 == 0 {
			if p.IsClockWise() {
				p = p.Reversed()
			}
			outer[i] = len(shapes)
			shapes = append(shapes, Shape{Outline: p})
		}
	}

	for i, p := range paths {
		if depth[i]%2 == 0 {
			continue
		}
		// smallest solid containing the hole
		best, bestArea := -1, float32(math.MaxFloat32)
		for j, si := range outer {
			if depth[j] == depth[i]-1 && paths[j].Contains(p[0]) {
				if a := abs32(paths[j].SignedArea()); a < bestArea {
					best, bestArea = si, a
				}
			}
		}
		if best < 0 {
			continue
		}
		if !p.IsClockWise() {
			p = p.Reversed()
		}
		shapes[best].Holes = append(shapes[best].Holes, p)
	}
	return shapes
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
