package geometry

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Triangulate splits a shape into counter clockwise triangles by ear clipping.
// Holes are first bridged into the outline. The returned vertices are the
// outline followed by every hole; triangles index into them.
func Triangulate(shape Shape) (vertices []mgl32.Vec2, triangles [][3]int) {
	outline := shape.Outline
	if outline.IsClockWise() {
		outline = outline.Reversed()
	}
	vertices = append(vertices, outline...)

	poly := make([]int, len(outline))
	for i := range poly {
		poly[i] = i
	}

	type hole struct {
		start, count int
		rightmost    int
	}
	holes := make([]hole, 0, len(shape.Holes))
	for _, h := range shape.Holes {
		if len(h) < 3 {
			continue
		}
		if !h.IsClockWise() {
			h = h.Reversed()
		}
		hl := hole{start: len(vertices), count: len(h)}
		for i := range h {
			if h[i][0] > h[hl.rightmost][0] {
				hl.rightmost = i
			}
		}
		vertices = append(vertices, h...)
		holes = append(holes, hl)
	}
	sort.SliceStable(holes, func(i, j int) bool {
		return vertices[holes[i].start+holes[i].rightmost][0] > vertices[holes[j].start+holes[j].rightmost][0]
	})

	for _, h := range holes {
		m := h.start + h.rightmost
		bridge := findBridge(vertices, poly, m)
		if bridge < 0 {
			continue
		}
		merged := make([]int, 0, len(poly)+h.count+2)
		merged = append(merged, poly[:bridge+1]...)
		for k := 0; k <= h.count; k++ {
			merged = append(merged, h.start+(h.rightmost+k)%h.count)
		}
		merged = append(merged, poly[bridge])
		merged = append(merged, poly[bridge+1:]...)
		poly = merged
	}

	return vertices, earClip(vertices, poly)
}

// findBridge returns the position in poly of a vertex visible from vertices[m].
func findBridge(vertices []mgl32.Vec2, poly []int, m int) int {
	mp := vertices[m]

	best := -1
	bestX := float32(0)
	var hit mgl32.Vec2
	for i := range poly {
		a := vertices[poly[i]]
		b := vertices[poly[(i+1)%len(poly)]]
		if (a[1] > mp[1]) == (b[1] > mp[1]) && a[1] != mp[1] && b[1] != mp[1] {
			continue
		}
		if a[1] == b[1] {
			continue
		}
		x := a[0] + (mp[1]-a[1])*(b[0]-a[0])/(b[1]-a[1])
		if x < mp[0] {
			continue
		}
		if best < 0 || x < bestX {
			bestX = x
			hit = mgl32.Vec2{x, mp[1]}
			if a[0] > b[0] {
				best = i
			} else {
				best = (i + 1) % len(poly)
			}
		}
	}
	if best < 0 {
		return -1
	}

	p := vertices[poly[best]]
	if p.ApproxEqual(hit) {
		return best
	}

	// a vertex inside triangle (m, hit, p) would block the view of p;
	// take the one closest in angle to the ray
	minTan := float32(-1)
	for i, idx := range poly {
		v := vertices[idx]
		if i == best || v.ApproxEqual(p) {
			continue
		}
		if !pointInTriangle(mp, hit, p, v) && !pointInTriangle(mp, p, hit, v) {
			continue
		}
		dx := v[0] - mp[0]
		if dx <= 0 {
			continue
		}
		tan := abs32(v[1]-mp[1]) / dx
		if minTan < 0 || tan < minTan || (tan == minTan && v[0] < vertices[poly[best]][0]) {
			minTan = tan
			best = i
		}
	}
	return best
}

func cross2(a, b, c mgl32.Vec2) float32 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// pointInTriangle reports whether p lies inside or on counter clockwise triangle abc.
func pointInTriangle(a, b, c, p mgl32.Vec2) bool {
	return cross2(a, b, p) >= 0 && cross2(b, c, p) >= 0 && cross2(c, a, p) >= 0
}

func earClip(vertices []mgl32.Vec2, poly []int) [][3]int {
	triangles := make([][3]int, 0, len(poly))
	idx := append([]int(nil), poly...)

	isEar := func(i int) bool {
		n := len(idx)
		a, b, c := vertices[idx[(i+n-1)%n]], vertices[idx[i]], vertices[idx[(i+1)%n]]
		if cross2(a, b, c) <= 0 {
			return false
		}
		for j := 0; j < n; j++ {
			if j == i || j == (i+n-1)%n || j == (i+1)%n {
				continue
			}
			p := vertices[idx[j]]
			if p.ApproxEqual(a) || p.ApproxEqual(b) || p.ApproxEqual(c) {
				continue
			}
			if pointInTriangle(a, b, c, p) {
				return false
			}
		}
		return true
	}

	clip := func(i int) {
		n := len(idx)
		triangles = append(triangles, [3]int{idx[(i+n-1)%n], idx[i], idx[(i+1)%n]})
		idx = append(idx[:i], idx[i+1:]...)
	}

	for len(idx) > 3 {
		found := false
		for i := range idx {
			if isEar(i) {
				clip(i)
				found = true
				break
			}
		}
		if found {
			continue
		}

		// self touching outlines leave no clean ear; drop a degenerate or convex vertex
		n := len(idx)
		dropped := false
		for i := range idx {
			a, b, c := vertices[idx[(i+n-1)%n]], vertices[idx[i]], vertices[idx[(i+1)%n]]
			if cr := cross2(a, b, c); cr == 0 {
				idx = append(idx[:i], idx[i+1:]...)
				dropped = true
				break
			} else if cr > 0 {
				clip(i)
				dropped = true
				break
			}
		}
		if !dropped {
			break
		}
	}
	if len(idx) == 3 && cross2(vertices[idx[0]], vertices[idx[1]], vertices[idx[2]]) > 0 {
		triangles = append(triangles, [3]int{idx[0], idx[1], idx[2]})
	}
	return triangles
}
