package app

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/gamestop/config"
	"github.com/mogaika/gamestop/frameloop"
	"github.com/mogaika/gamestop/r3d"
)

func newTestApp(t *testing.T) *App {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Assets = t.TempDir()
	cfg.Viewport = config.Viewport{Width: 64, Height: 36, DevicePixelRatio: 1}
	a, err := New(cfg, &frameloop.Queue{})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNewComposesScene(t *testing.T) {
	a := newTestApp(t)
	if n := a.Scene.Find("PerspectiveCamera"); n != &a.Camera.Node {
		t.Errorf("camera is not in the scene")
	}
	lights := 0
	for _, n := range a.Scene.Children() {
		if n.Light != nil {
			lights++
		}
	}
	if lights != 3 {
		t.Errorf("lights=%d; expected 3", lights)
	}
	for _, name := range []string{"moon", "rocket"} {
		if slot := a.Models.Get(name); slot == nil || slot.Loaded() {
			t.Errorf("slot %q=%v; expected an empty placeholder", name, slot)
		}
	}
	if a.Camera.Fov != 75 || a.Camera.Near != 0.1 || a.Camera.Far != 1000 {
		t.Errorf("camera=%v %v %v; expected 75 0.1 1000", a.Camera.Fov, a.Camera.Near, a.Camera.Far)
	}
	if a.Controls.MinDistance != 150 || a.Controls.MaxDistance != 250 || a.Controls.EnablePan {
		t.Errorf("controls not configured: %+v", a.Controls)
	}
}

func TestTickTranslatesWithoutReaiming(t *testing.T) {
	a := newTestApp(t)
	a.Controls.Update()
	_, _, forward := a.Camera.Basis()

	a.Tick(math.Pi / 2)
	if x := a.Camera.Position.X(); math.Abs(float64(x)-100) > 1e-3 {
		t.Fatalf("camera x=%v; expected 100", x)
	}
	if _, _, got := a.Camera.Basis(); !got.ApproxEqualThreshold(forward, 1e-5) {
		t.Errorf("forward after Tick=%v; expected %v", got, forward)
	}
	if math.Abs(float64(forward.X())) > 1e-5 {
		t.Errorf("forward=%v; expected no x component", forward)
	}
}

func TestResize(t *testing.T) {
	a := newTestApp(t)

	var resizeTests = []struct {
		width, height int
		dpr           float64
		ratio         float64
	}{
		{1280, 720, 1, 1},
		{720, 1280, 2, 2},
		{333, 77, 3, 2},
		{1, 1, 1.25, 1.25},
		{50, 40, 0, 1},
	}
	for _, test := range resizeTests {
		a.Resize(test.width, test.height, test.dpr)
		if want := float32(test.width) / float32(test.height); a.Camera.Aspect != want {
			t.Errorf("Resize(%d,%d): aspect=%v; expected %v", test.width, test.height, a.Camera.Aspect, want)
		}
		if w, h := a.Renderer.Size(); w != test.width || h != test.height {
			t.Errorf("Resize(%d,%d): renderer size %d,%d", test.width, test.height, w, h)
		}
		if r := a.Renderer.PixelRatio(); r != test.ratio || r > 2 {
			t.Errorf("Resize(%d,%d,%v): pixel ratio %v; expected %v", test.width, test.height, test.dpr, r, test.ratio)
		}
	}

	if a.Resize(0, 100, 1) || a.Resize(100, -1, 1) {
		t.Errorf("non positive size accepted")
	}
	if w, h := a.Renderer.Size(); w != 50 || h != 40 {
		t.Errorf("ignored resize changed renderer to %d,%d", w, h)
	}
}

func TestResizeIdempotent(t *testing.T) {
	a := newTestApp(t)
	if !a.Resize(800, 600, 1.5) {
		t.Fatalf("first Resize reported no change")
	}
	vp, aspect := a.Viewport(), a.Camera.Aspect
	proj := a.Camera.GetProjectionMatrix()
	img := a.Renderer.Image()

	if a.Resize(800, 600, 1.5) {
		t.Errorf("second Resize reported a change")
	}
	if a.Viewport() != vp || a.Camera.Aspect != aspect || a.Camera.GetProjectionMatrix() != proj || a.Renderer.Image() != img {
		t.Errorf("second Resize changed state")
	}
}

func TestCameraOscillationIndependentOfRate(t *testing.T) {
	for _, hz := range []int{30, 60} {
		a := newTestApp(t)
		now := time.Unix(0, 0)
		clock := &frameloop.Clock{Now: func() time.Time { return now }}
		clock.Start()
		loop := frameloop.NewLoop(a.Queue, clock, a.Tick)

		for i := 0; i < hz*3; i++ {
			loop.Step()
			e := clock.Elapsed()
			if want := math.Sin(e) * 100; math.Abs(float64(a.Camera.Position[0])-want) > 1e-3 {
				t.Fatalf("%d Hz tick %d: camera x=%v; expected sin(%v)*100=%v", hz, i, a.Camera.Position[0], e, want)
			}
			now = now.Add(time.Second / time.Duration(hz))
		}
		if a.Frames() != uint64(hz*3) {
			t.Errorf("%d Hz: Frames()=%d; expected %d", hz, a.Frames(), hz*3)
		}
	}
}

func TestFramesReachSinks(t *testing.T) {
	a := newTestApp(t)
	a.Resize(20, 10, 2)
	var got []Frame
	a.OnFrame(func(f Frame) { got = append(got, f) })
	a.Tick(0)
	a.Tick(0.5)
	if len(got) != 2 {
		t.Fatalf("frames=%d; expected 2", len(got))
	}
	if b := got[1].Image.Rect; b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("frame size %v; expected 40x20", b)
	}
	if got[1].Index != 2 || got[1].Elapsed != 0.5 || got[1].Viewport.Width != 20 {
		t.Errorf("frame=%+v", got[1])
	}
}

func TestPanDisabled(t *testing.T) {
	a := newTestApp(t)
	for i := 0; i < 50; i++ {
		a.Pan(100, 50)
		a.Drag(10, 5)
		a.Wheel(1)
		a.Tick(float64(i) / 60)
	}
	if a.Controls.Target != (mgl32.Vec3{}) {
		t.Errorf("target moved to %v with panning disabled", a.Controls.Target)
	}
}

const squareTypeface = `{
	"familyName": "Square",
	"resolution": 1000,
	"glyphs": {"?": {"ha": 1100, "o": "m 0 0 l 1000 0 l 1000 1000 l 0 1000 z"}}
}`

func writeModel(t *testing.T, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	doc := gltf.NewDocument()
	position := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{"POSITION": position}}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "mesh", Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAssets(t *testing.T) {
	a := newTestApp(t)
	dir := a.Config.Assets
	if err := os.WriteFile(filepath.Join(dir, "font.json"), []byte(squareTypeface), 0644); err != nil {
		t.Fatal(err)
	}
	a.Config.Text.Font = "font.json"
	a.Config.Models[0].Path = "moon/scene.glb"
	a.Config.Models[1].Path = "rocket/scene.glb"
	writeModel(t, filepath.Join(dir, "moon", "scene.glb"))
	writeModel(t, filepath.Join(dir, "rocket", "scene.glb"))

	a.LoadAssets()
	a.Manager.Wait()

	if a.Scene.Find("Game") != nil {
		t.Errorf("text added before the queue was drained")
	}
	a.Queue.Drain()

	var textTests = []struct {
		name     string
		color    uint32
		position mgl32.Vec3
	}{
		{"Game", 0xcccccc, mgl32.Vec3{-100, 0, 20}},
		{"Stop", 0xce2121, mgl32.Vec3{30, 0, 20}},
	}
	for _, test := range textTests {
		n := a.Scene.Find(test.name)
		if n == nil || n.Mesh == nil {
			t.Errorf("text %q missing", test.name)
			continue
		}
		if r3d.HexColor(n.Mesh.Material.Color) != test.color || n.Position != test.position {
			t.Errorf("text %q color %06x at %v", test.name, r3d.HexColor(n.Mesh.Material.Color), n.Position)
		}
	}

	var modelTests = []struct {
		name     string
		scale    mgl32.Vec3
		position mgl32.Vec3
	}{
		{"moon", mgl32.Vec3{0.1, 0.1, 0.1}, mgl32.Vec3{0, 0, 0}},
		{"rocket", mgl32.Vec3{200, 200, 200}, mgl32.Vec3{0, -20, -30}},
	}
	for _, test := range modelTests {
		slot := a.Models.Get(test.name)
		if !slot.Loaded() {
			t.Errorf("model %q not loaded", test.name)
			continue
		}
		root := slot.Root
		if root.Scale != test.scale || root.Position != test.position {
			t.Errorf("model %q scale %v position %v; expected %v %v", test.name, root.Scale, root.Position, test.scale, test.position)
		}
		found := false
		for _, c := range a.Scene.Children() {
			found = found || c == root
		}
		if !found {
			t.Errorf("model %q root not in the scene", test.name)
		}
	}

	// no skybox files in the asset dir
	if a.Scene.Background != nil {
		t.Errorf("background set from missing files")
	}
	if loaded, failed, total := a.Manager.Progress(); loaded != 3 || failed != 1 || total != 4 {
		t.Errorf("Progress()=%d,%d,%d; expected 3,1,4", loaded, failed, total)
	}
	a.Tick(0)
}
