// Package render draws a scene into an RGBA image on the CPU.
//
// The output is sized like a canvas: SetSize takes the logical size and the
// drawing buffer is that size times the pixel ratio. Rows are split into bands
// rasterized in parallel; every band owns its slice of the color and depth
// buffers.
package render

import (
	"image"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mogaika/gamestop/r3d"
	"github.com/mogaika/gamestop/scene"
	"github.com/mogaika/gamestop/utils"
)

const minBandHeight = 16

type Info struct {
	Triangles int // submitted
	Drawn     int // after culling and clipping
}

type Renderer struct {
	ClearColor mgl32.Vec3

	width, height int
	pixelRatio    float64
	maxPixelRatio float64

	img   *image.RGBA
	depth []float32

	bands int
}

// New creates a 1x1 renderer. Pixel ratios above maxPixelRatio are capped; 0 means no cap.
func New(maxPixelRatio float64) *Renderer {
	r := &Renderer{
		width:         1,
		height:        1,
		pixelRatio:    1,
		maxPixelRatio: maxPixelRatio,
		bands:         runtime.GOMAXPROCS(0),
	}
	r.allocate()
	return r
}

// SetSize sets the logical output size and reports whether the buffers changed.
// Non positive sizes are ignored.
func (r *Renderer) SetSize(width, height int) bool {
	if width <= 0 || height <= 0 || (width == r.width && height == r.height) {
		return false
	}
	r.width, r.height = width, height
	return r.allocate()
}

// SetPixelRatio sets the drawing buffer scale, capped at the renderer maximum.
func (r *Renderer) SetPixelRatio(ratio float64) bool {
	ratio = utils.ClampPixelRatio(ratio, r.maxPixelRatio)
	if ratio == r.pixelRatio {
		return false
	}
	r.pixelRatio = ratio
	return r.allocate()
}

func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

func (r *Renderer) PixelRatio() float64 {
	return r.pixelRatio
}

func (r *Renderer) DrawingBufferSize() (width, height int) {
	return int(math.Floor(float64(r.width) * r.pixelRatio)), int(math.Floor(float64(r.height) * r.pixelRatio))
}

// Image is the drawing buffer. It is overwritten by the next Render.
func (r *Renderer) Image() *image.RGBA {
	return r.img
}

func (r *Renderer) allocate() bool {
	w, h := r.DrawingBufferSize()
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if r.img != nil && r.img.Rect.Dx() == w && r.img.Rect.Dy() == h {
		return false
	}
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	r.depth = make([]float32, w*h)
	log.Debugf("[render] Drawing buffer %dx%d (pixel ratio %v)", w, h, r.pixelRatio)
	return true
}

// Render draws s as seen by cam.
func (r *Renderer) Render(s *scene.Scene, cam *r3d.PerspectiveCamera) Info {
	w, h := r.img.Rect.Dx(), r.img.Rect.Dy()

	lights := collectLights(s)
	tris, info := r.prepare(s, cam, lights, float32(w), float32(h))

	bg := newBackground(s.Background, cam, r.ClearColor, w, h)

	bandHeight := (h + r.bands - 1) / r.bands
	if bandHeight < minBandHeight {
		bandHeight = minBandHeight
	}
	var g errgroup.Group
	for y0 := 0; y0 < h; y0 += bandHeight {
		y1 := y0 + bandHeight
		if y1 > h {
			y1 = h
		}
		y0 := y0
		g.Go(func() error {
			r.drawBand(bg, tris, y0, y1)
			return nil
		})
	}
	g.Wait()
	return info
}

func (r *Renderer) drawBand(bg *background, tris []triangle, y0, y1 int) {
	w := r.img.Rect.Dx()
	for y := y0; y < y1; y++ {
		row := r.img.Pix[y*r.img.Stride : y*r.img.Stride+w*4]
		for x := 0; x < w; x++ {
			c := bg.at(x, y)
			row[x*4+0] = toByte(c[0])
			row[x*4+1] = toByte(c[1])
			row[x*4+2] = toByte(c[2])
			row[x*4+3] = 0xff
		}
		depth := r.depth[y*w : (y+1)*w]
		for i := range depth {
			depth[i] = math.MaxFloat32
		}
	}
	for i := range tris {
		r.rasterize(&tris[i], y0, y1)
	}
}

func toByte(f float32) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 0xff
	}
	return uint8(f*255 + 0.5)
}

type background struct {
	cube  *r3d.CubeTexture
	clear mgl32.Vec3

	forward      mgl32.Vec3
	right, up    mgl32.Vec3
	halfW, halfH float32
	w, h         float32
}

func newBackground(cube *r3d.CubeTexture, cam *r3d.PerspectiveCamera, clear mgl32.Vec3, w, h int) *background {
	bg := &background{cube: cube, clear: clear, w: float32(w), h: float32(h)}
	if cube == nil {
		return bg
	}
	right, up, forward := cam.Basis()
	tanHalf := float32(math.Tan(float64(mgl32.DegToRad(cam.Fov)) / 2))
	bg.forward = forward
	bg.right = right
	bg.up = up
	bg.halfH = tanHalf
	bg.halfW = tanHalf * cam.Aspect
	return bg
}

func (bg *background) at(x, y int) mgl32.Vec3 {
	if bg.cube == nil {
		return bg.clear
	}
	nx := (2*(float32(x)+0.5)/bg.w - 1) * bg.halfW
	ny := (1 - 2*(float32(y)+0.5)/bg.h) * bg.halfH
	dir := bg.forward.Add(bg.right.Mul(nx)).Add(bg.up.Mul(ny))
	// cube textures are seen from inside, mirrored along x
	dir[0] = -dir[0]
	return bg.cube.Sample(dir)
}
