// Package window shows the scene in a desktop window instead of a browser.
package window

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/app"
	"github.com/mogaika/gamestop/frameloop"
)

type Game struct {
	app  *app.App
	loop *frameloop.Loop

	frame *ebiten.Image

	pointer pointer
	layout  app.Viewport
}

func NewGame(a *app.App, loop *frameloop.Loop) *Game {
	return &Game{app: a, loop: loop}
}

// Run opens the window and blocks until it is closed or the loop is stopped.
// ebiten drives the loop at the display refresh rate.
func Run(a *app.App, loop *frameloop.Loop, title string) error {
	vp := a.Viewport()
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(vp.Width, vp.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(ebiten.SyncWithFPS)

	log.Infof("[window] Opening %dx%d window", vp.Width, vp.Height)
	err := ebiten.RunGame(NewGame(a, loop))
	loop.Stop()
	if err == ebiten.Termination {
		return nil
	}
	return err
}

func (g *Game) Update() error {
	if !g.loop.Running() {
		return ebiten.Termination
	}

	x, y := ebiten.CursorPosition()
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if dx, dy, ok := g.pointer.move(x, y, left || right); ok {
		if left {
			g.app.Drag(dx, dy)
		} else {
			g.app.Pan(dx, dy)
		}
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		g.app.Wheel(wheelDelta(wy))
	}

	g.loop.Step()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	img := g.app.Renderer.Image()
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if g.frame == nil || g.frame.Bounds().Dx() != w || g.frame.Bounds().Dy() != h {
		if g.frame != nil {
			g.frame.Deallocate()
		}
		g.frame = ebiten.NewImage(w, h)
	}
	g.frame.WritePixels(img.Pix)

	sb := screen.Bounds()
	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	op.GeoM.Scale(float64(sb.Dx())/float64(w), float64(sb.Dy())/float64(h))
	screen.DrawImage(g.frame, op)
}

// Layout renders at device resolution and feeds the window size to the resize handler.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	dpr := ebiten.Monitor().DeviceScaleFactor()
	if vp := (app.Viewport{Width: outsideWidth, Height: outsideHeight, DevicePixelRatio: dpr}); vp != g.layout {
		g.layout = vp
		g.app.Queue.Post(func() {
			g.app.Resize(vp.Width, vp.Height, vp.DevicePixelRatio)
		})
	}
	return deviceSize(outsideWidth, outsideHeight, dpr)
}

func deviceSize(width, height int, dpr float64) (int, int) {
	if dpr <= 0 {
		dpr = 1
	}
	w := int(math.Ceil(float64(width) * dpr))
	h := int(math.Ceil(float64(height) * dpr))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// wheelDelta maps an ebiten wheel offset, positive when scrolled up, to a browser style delta.
func wheelDelta(yoff float64) float64 {
	return -yoff
}

type pointer struct {
	x, y int
	down bool
}

// move tracks a pressed pointer and returns the movement since the last call.
func (p *pointer) move(x, y int, pressed bool) (dx, dy float64, ok bool) {
	wasDown := p.down
	p.down = pressed
	lx, ly := p.x, p.y
	p.x, p.y = x, y
	if !pressed || !wasDown || (x == lx && y == ly) {
		return 0, 0, false
	}
	return float64(x - lx), float64(y - ly), true
}
