package app

import (
	"image"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/config"
	"github.com/mogaika/gamestop/frameloop"
	"github.com/mogaika/gamestop/geometry"
	"github.com/mogaika/gamestop/loaders"
	"github.com/mogaika/gamestop/r3d"
	"github.com/mogaika/gamestop/render"
	"github.com/mogaika/gamestop/scene"
	"github.com/mogaika/gamestop/status"
)

type Viewport struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	DevicePixelRatio float64 `json:"dpr"`
}

func (v Viewport) Aspect() float32 {
	if v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// Frame is a rendered image. Image is reused by the next tick; sinks copy or encode it before returning.
type Frame struct {
	Index    uint64
	Elapsed  float64
	Image    *image.RGBA
	Viewport Viewport
}

type FrameSink func(Frame)

// App owns the scene and everything that draws it. Every method except
// LoadAssets must be called on the frame loop goroutine.
type App struct {
	Config   *config.Config
	Scene    *scene.Scene
	Models   *scene.Models
	Camera   *r3d.PerspectiveCamera
	Controls *r3d.OrbitControls
	Renderer *render.Renderer
	Queue    *frameloop.Queue
	Manager  *loaders.LoadingManager

	viewport Viewport
	sinks    []FrameSink
	frames   uint64
	info     render.Info
}

func New(cfg *config.Config, queue *frameloop.Queue) (*App, error) {
	a := &App{
		Config:   cfg,
		Scene:    scene.New(),
		Queue:    queue,
		Manager:  loaders.NewLoadingManager(queue),
		Renderer: render.New(cfg.Renderer.MaxPixelRatio),
	}
	a.Renderer.ClearColor = r3d.ColorHex(cfg.Renderer.ClearColor)

	if _, err := scene.AddLights(a.Scene, cfg.Lights); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		names = append(names, m.Name)
	}
	a.Models = scene.NewModels(names...)

	vp := cfg.Viewport
	aspect := Viewport{Width: vp.Width, Height: vp.Height}.Aspect()
	a.Camera = r3d.NewPerspectiveCamera(cfg.Camera.Fov, aspect, cfg.Camera.Near, cfg.Camera.Far)
	a.Camera.Position = cfg.Camera.Position
	a.Scene.Add(&a.Camera.Node)

	ctl := r3d.NewOrbitControls(a.Camera)
	ctl.EnableDamping = cfg.Controls.EnableDamping
	if cfg.Controls.DampingFactor > 0 {
		ctl.DampingFactor = cfg.Controls.DampingFactor
	}
	ctl.MinDistance = cfg.Controls.MinDistance
	ctl.MaxDistance = cfg.Controls.MaxDistance
	ctl.MinPolarAngle = cfg.Controls.MinPolarAngle
	ctl.MaxPolarAngle = cfg.Controls.MaxPolarAngle
	ctl.EnablePan = cfg.Controls.EnablePan
	a.Controls = ctl

	a.Resize(vp.Width, vp.Height, vp.DevicePixelRatio)
	return a, nil
}

// LoadAssets starts every asset load. Results are added to the scene from the queue.
func (a *App) LoadAssets() {
	cfg := a.Config

	if paths, ok := cfg.SkyboxPaths(); ok {
		(&loaders.CubeTextureLoader{Manager: a.Manager}).Load(paths, func(cube *r3d.CubeTexture) {
			scene.SetSkybox(a.Scene, cube)
		})
	}

	if cfg.Text.Font != "" {
		(&loaders.FontLoader{Manager: a.Manager}).Load(cfg.AssetPath(cfg.Text.Font), func(f geometry.Font) {
			if _, err := scene.AddText(a.Scene, f, cfg.Text); err != nil {
				log.Errorf("[app] Failed to build text: %v", err)
				status.Error("Failed to build text: %v", err)
			}
		})
	}

	draco := loaders.NewDRACOLoader().SetDecoderPath(cfg.AssetPath(cfg.Draco.DecoderPath))
	gltfLoader := (&loaders.GLTFLoader{Manager: a.Manager}).SetDRACOLoader(draco)
	for _, m := range cfg.Models {
		m := m
		slot := a.Models.Get(m.Name)
		gltfLoader.Load(cfg.AssetPath(m.Path), func(model *loaders.GLTF) {
			scene.PlaceModel(a.Scene, slot, model.Scene, m)
		})
	}
}

// Tick advances one frame: controls, camera animation, render, then the sinks.
func (a *App) Tick(elapsed float64) {
	a.Controls.Update()
	a.Camera.Position[0] = float32(math.Sin(elapsed) * a.Config.Animation.Amplitude)

	a.info = a.Renderer.Render(a.Scene, a.Camera)
	a.frames++

	if len(a.sinks) == 0 {
		return
	}
	f := Frame{
		Index:    a.frames,
		Elapsed:  elapsed,
		Image:    a.Renderer.Image(),
		Viewport: a.viewport,
	}
	for _, sink := range a.sinks {
		sink(f)
	}
}

// Resize applies a new viewport. Non positive sizes are ignored and
// repeating the current viewport changes nothing.
func (a *App) Resize(width, height int, devicePixelRatio float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	vp := Viewport{Width: width, Height: height, DevicePixelRatio: devicePixelRatio}
	if vp == a.viewport {
		return false
	}
	a.viewport = vp

	a.Camera.Aspect = vp.Aspect()
	a.Camera.UpdateProjectionMatrix()
	a.Renderer.SetSize(width, height)
	a.Renderer.SetPixelRatio(devicePixelRatio)
	log.Debugf("[app] Resized to %dx%d@%v", width, height, a.Renderer.PixelRatio())
	return true
}

func (a *App) Viewport() Viewport {
	return a.viewport
}

// Drag rotates the orbit by a pointer movement in pixels.
func (a *App) Drag(dx, dy float64) {
	a.Controls.Rotate(dx, dy, float64(a.viewport.Height))
}

// Pan moves the orbit target; it does nothing while panning is disabled.
func (a *App) Pan(dx, dy float64) {
	a.Controls.Pan(dx, dy, float64(a.viewport.Height))
}

func (a *App) Wheel(delta float64) {
	a.Controls.Dolly(delta)
}

func (a *App) OnFrame(sink FrameSink) {
	a.sinks = append(a.sinks, sink)
}

func (a *App) Frames() uint64 {
	return a.frames
}

func (a *App) RenderInfo() render.Info {
	return a.info
}
