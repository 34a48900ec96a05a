package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gamestop/r3d"
	"github.com/mogaika/gamestop/scene"
)

type vertex struct {
	clip  mgl32.Vec4
	light mgl32.Vec3
	uv    mgl32.Vec2
}

// screenVertex carries attributes divided by w for perspective correct interpolation.
type screenVertex struct {
	x, y, z float32
	invW    float32
	light   mgl32.Vec3
	uv      mgl32.Vec2
}

type triangle struct {
	v     [3]screenVertex
	area  float32
	color mgl32.Vec3
	tex   *r3d.Texture
}

var white = mgl32.Vec3{1, 1, 1}

func (r *Renderer) prepare(s *scene.Scene, cam *r3d.PerspectiveCamera, lights []worldLight, w, h float32) ([]triangle, Info) {
	var info Info
	tris := make([]triangle, 0, 1024)
	viewProj := cam.ViewProjectionMatrix()
	eye := cam.Position

	var worldPos []mgl32.Vec3
	var worldNormal []mgl32.Vec3
	var verts []vertex

	s.Walk(func(node *r3d.Node, world mgl32.Mat4) {
		if node.Mesh == nil || node.Mesh.Geometry == nil {
			return
		}
		g := node.Mesh.Geometry
		mat := node.Mesh.Material
		if mat == nil {
			mat = &r3d.Material{Kind: r3d.MaterialBasic, Color: white}
		}
		normalMatrix := world.Mat3().Inv().Transpose()
		hasNormals := len(g.Normals) == len(g.Positions)
		hasUVs := len(g.UVs) == len(g.Positions) && mat.Map != nil

		worldPos = worldPos[:0]
		worldNormal = worldNormal[:0]
		verts = verts[:0]
		for i, p := range g.Positions {
			wp := world.Mul4x1(p.Vec4(1)).Vec3()
			var n mgl32.Vec3
			if hasNormals {
				n = safeNormalize(normalMatrix.Mul3x1(g.Normals[i]), mgl32.Vec3{0, 0, 1})
			}
			v := vertex{clip: viewProj.Mul4x1(wp.Vec4(1)), light: white}
			if mat.Kind != r3d.MaterialBasic && hasNormals {
				v.light = irradiance(lights, wp, n)
			}
			if hasUVs {
				v.uv = g.UVs[i]
			}
			worldPos = append(worldPos, wp)
			worldNormal = append(worldNormal, n)
			verts = append(verts, v)
		}

		for i := 0; i < g.TriangleCount(); i++ {
			info.Triangles++
			a, b, c := g.Triangle(i)
			if int(a) >= len(verts) || int(b) >= len(verts) || int(c) >= len(verts) {
				continue
			}
			pa, pb, pc := worldPos[a], worldPos[b], worldPos[c]
			face := pb.Sub(pa).Cross(pc.Sub(pa))
			front := face.Dot(eye.Sub(pa)) > 0

			tri := [3]vertex{verts[a], verts[b], verts[c]}
			if !front {
				if !mat.DoubleSided {
					continue
				}
				if mat.Kind != r3d.MaterialBasic {
					if hasNormals {
						for k, idx := range [3]uint32{a, b, c} {
							tri[k].light = irradiance(lights, worldPos[idx], worldNormal[idx].Mul(-1))
						}
					}
				}
			}
			if !hasNormals && mat.Kind != r3d.MaterialBasic {
				n := safeNormalize(face, mgl32.Vec3{0, 0, 1})
				if !front {
					n = n.Mul(-1)
				}
				for k := range tri {
					tri[k].light = irradiance(lights, [3]mgl32.Vec3{pa, pb, pc}[k], n)
				}
			}

			var tex *r3d.Texture
			if hasUVs {
				tex = mat.Map
			}
			before := len(tris)
			tris = appendClipped(tris, tri, mat.Color, tex, w, h)
			if len(tris) > before {
				info.Drawn++
			}
		}
	})
	return tris, info
}

// clipPlane returns the signed distance of v to the near (z >= -w) or far (z <= w) plane.
func clipPlane(v mgl32.Vec4, far bool) float32 {
	if far {
		return v[3] - v[2]
	}
	return v[2] + v[3]
}

func lerpVertex(a, b vertex, t float32) vertex {
	return vertex{
		clip:  a.clip.Add(b.clip.Sub(a.clip).Mul(t)),
		light: a.light.Add(b.light.Sub(a.light).Mul(t)),
		uv:    a.uv.Add(b.uv.Sub(a.uv).Mul(t)),
	}
}

func clipPolygon(in []vertex, far bool) []vertex {
	out := make([]vertex, 0, len(in)+2)
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := clipPlane(a.clip, far), clipPlane(b.clip, far)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpVertex(a, b, da/(da-db)))
		}
	}
	return out
}

func appendClipped(tris []triangle, tri [3]vertex, color mgl32.Vec3, tex *r3d.Texture, w, h float32) []triangle {
	poly := tri[:]
	inside := true
	for _, v := range tri {
		if clipPlane(v.clip, false) < 0 || clipPlane(v.clip, true) < 0 {
			inside = false
			break
		}
	}
	if !inside {
		if poly = clipPolygon(poly, false); len(poly) < 3 {
			return tris
		}
		if poly = clipPolygon(poly, true); len(poly) < 3 {
			return tris
		}
	}

	screen := make([]screenVertex, len(poly))
	for i, v := range poly {
		if v.clip[3] <= 0 {
			return tris
		}
		invW := 1 / v.clip[3]
		screen[i] = screenVertex{
			x:     (v.clip[0]*invW + 1) * 0.5 * w,
			y:     (1 - v.clip[1]*invW) * 0.5 * h,
			z:     v.clip[2] * invW,
			invW:  invW,
			light: v.light.Mul(invW),
			uv:    v.uv.Mul(invW),
		}
	}
	for i := 1; i+1 < len(screen); i++ {
		t := triangle{v: [3]screenVertex{screen[0], screen[i], screen[i+1]}, color: color, tex: tex}
		t.area = edge(t.v[0], t.v[1], t.v[2].x, t.v[2].y)
		if t.area == 0 {
			continue
		}
		if t.area < 0 {
			t.v[1], t.v[2] = t.v[2], t.v[1]
			t.area = -t.area
		}
		tris = append(tris, t)
	}
	return tris
}

func edge(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func (r *Renderer) rasterize(t *triangle, y0, y1 int) {
	w := r.img.Rect.Dx()
	v0, v1, v2 := &t.v[0], &t.v[1], &t.v[2]

	minX := int(math.Floor(float64(min3(v0.x, v1.x, v2.x))))
	maxX := int(math.Ceil(float64(max3(v0.x, v1.x, v2.x))))
	minY := int(math.Floor(float64(min3(v0.y, v1.y, v2.y))))
	maxY := int(math.Ceil(float64(max3(v0.y, v1.y, v2.y))))
	if minX < 0 {
		minX = 0
	}
	if maxX > w-1 {
		maxX = w - 1
	}
	if minY < y0 {
		minY = y0
	}
	if maxY > y1-1 {
		maxY = y1 - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	invArea := 1 / t.area
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		row := r.img.Pix[y*r.img.Stride:]
		depth := r.depth[y*w:]
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(*v1, *v2, px, py)
			w1 := edge(*v2, *v0, px, py)
			w2 := edge(*v0, *v1, px, py)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			l0, l1, l2 := w0*invArea, w1*invArea, w2*invArea
			z := l0*v0.z + l1*v1.z + l2*v2.z
			if z < -1 || z > 1 || z >= depth[x] {
				continue
			}
			depth[x] = z

			invW := l0*v0.invW + l1*v1.invW + l2*v2.invW
			pw := 1 / invW
			light := v0.light.Mul(l0).Add(v1.light.Mul(l1)).Add(v2.light.Mul(l2)).Mul(pw)
			c := t.color
			if t.tex != nil {
				uv := v0.uv.Mul(l0).Add(v1.uv.Mul(l1)).Add(v2.uv.Mul(l2)).Mul(pw)
				tc := t.tex.Sample(uv)
				c = mgl32.Vec3{c[0] * tc[0], c[1] * tc[1], c[2] * tc[2]}
			}
			row[x*4+0] = toByte(c[0] * light[0])
			row[x*4+1] = toByte(c[1] * light[1])
			row[x*4+2] = toByte(c[2] * light[2])
			row[x*4+3] = 0xff
		}
	}
}

func min3(a, b, c float32) float32 {
	return float32(math.Min(float64(a), math.Min(float64(b), float64(c))))
}

func max3(a, b, c float32) float32 {
	return float32(math.Max(float64(a), math.Max(float64(b), float64(c))))
}
