package r3d

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	CubePX = iota
	CubeNX
	CubePY
	CubeNY
	CubePZ
	CubeNZ
)

// CubeTexture holds six square faces in px, nx, py, ny, pz, nz order.
type CubeTexture struct {
	Faces [6]*image.NRGBA
	Size  int
}

// CubeFace returns the face index and the face coordinates in [0,1] for direction dir.
// Face orientation follows the OpenGL cube map convention.
func CubeFace(dir mgl32.Vec3) (face int, s, t float32) {
	x, y, z := dir[0], dir[1], dir[2]
	ax, ay, az := abs32(x), abs32(y), abs32(z)

	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if x > 0 {
			face, sc, tc = CubePX, -z, -y
		} else {
			face, sc, tc = CubeNX, z, -y
		}
	case ay >= az:
		ma = ay
		if y > 0 {
			face, sc, tc = CubePY, x, z
		} else {
			face, sc, tc = CubeNY, x, -z
		}
	default:
		ma = az
		if z > 0 {
			face, sc, tc = CubePZ, x, -y
		} else {
			face, sc, tc = CubeNZ, -x, -y
		}
	}
	if ma == 0 {
		return CubePZ, 0.5, 0.5
	}
	return face, (sc/ma + 1) / 2, (tc/ma + 1) / 2
}

func (c *CubeTexture) Sample(dir mgl32.Vec3) mgl32.Vec3 {
	face, s, t := CubeFace(dir)
	img := c.Faces[face]
	if img == nil || c.Size == 0 {
		return mgl32.Vec3{}
	}
	x := int(math.Min(float64(s)*float64(c.Size), float64(c.Size-1)))
	y := int(math.Min(float64(t)*float64(c.Size), float64(c.Size-1)))
	return texel(img, x, y)
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
