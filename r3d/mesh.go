package r3d

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Geometry is an indexed triangle list.
// Normals and UVs are either empty or have one entry per position.
type Geometry struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

func (g *Geometry) TriangleCount() int {
	if g == nil {
		return 0
	}
	if g.Indices != nil {
		return len(g.Indices) / 3
	}
	return len(g.Positions) / 3
}

func (g *Geometry) Triangle(i int) (a, b, c uint32) {
	if g.Indices != nil {
		return g.Indices[i*3], g.Indices[i*3+1], g.Indices[i*3+2]
	}
	return uint32(i * 3), uint32(i*3 + 1), uint32(i*3 + 2)
}

// ComputeVertexNormals accumulates area weighted face normals on every vertex.
func (g *Geometry) ComputeVertexNormals() {
	g.Normals = make([]mgl32.Vec3, len(g.Positions))
	for i := 0; i < g.TriangleCount(); i++ {
		a, b, c := g.Triangle(i)
		pa, pb, pc := g.Positions[a], g.Positions[b], g.Positions[c]
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		g.Normals[a] = g.Normals[a].Add(n)
		g.Normals[b] = g.Normals[b].Add(n)
		g.Normals[c] = g.Normals[c].Add(n)
	}
	for i, n := range g.Normals {
		if n.Len() > 0 {
			g.Normals[i] = n.Normalize()
		}
	}
}

func (g *Geometry) BoundingBox() (min, max mgl32.Vec3) {
	if len(g.Positions) == 0 {
		return
	}
	min, max = g.Positions[0], g.Positions[0]
	for _, p := range g.Positions[1:] {
		for j := 0; j < 3; j++ {
			min[j] = float32(math.Min(float64(min[j]), float64(p[j])))
			max[j] = float32(math.Max(float64(max[j]), float64(p[j])))
		}
	}
	return
}

type MaterialKind int

const (
	MaterialBasic MaterialKind = iota
	MaterialLambert
	MaterialStandard
)

type Material struct {
	Name        string
	Kind        MaterialKind
	Color       mgl32.Vec3
	Map         *Texture
	DoubleSided bool
}

func NewLambertMaterial(color uint32) *Material {
	return &Material{Kind: MaterialLambert, Color: ColorHex(color)}
}

type Mesh struct {
	Geometry *Geometry
	Material *Material
}

// Texture keeps the decoded image as NRGBA to make sampling cheap.
type Texture struct {
	Image *image.NRGBA
}

func NewTexture(img image.Image) *Texture {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return &Texture{Image: nrgba}
	}
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			nrgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return &Texture{Image: nrgba}
}

// Sample returns the texel at uv with repeat wrapping and nearest filtering.
func (t *Texture) Sample(uv mgl32.Vec2) mgl32.Vec3 {
	w, h := t.Image.Rect.Dx(), t.Image.Rect.Dy()
	if w == 0 || h == 0 {
		return mgl32.Vec3{1, 1, 1}
	}
	u := float64(uv[0]) - math.Floor(float64(uv[0]))
	v := float64(uv[1]) - math.Floor(float64(uv[1]))
	x := int(u * float64(w))
	y := int(v * float64(h))
	if x >= w {
		x = w - 1
	}
	if y >= h {
		y = h - 1
	}
	return texel(t.Image, x, y)
}

func texel(img *image.NRGBA, x, y int) mgl32.Vec3 {
	i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	return mgl32.Vec3{
		float32(img.Pix[i]) / 255,
		float32(img.Pix[i+1]) / 255,
		float32(img.Pix[i+2]) / 255,
	}
}

func ColorHex(hex uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32((hex>>16)&0xff) / 255,
		float32((hex>>8)&0xff) / 255,
		float32(hex&0xff) / 255,
	}
}

func HexColor(c mgl32.Vec3) uint32 {
	ch := func(f float32) uint32 {
		return uint32(mgl32.Clamp(f, 0, 1)*255 + 0.5)
	}
	return ch(c[0])<<16 | ch(c[1])<<8 | ch(c[2])
}
