package loaders

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/gamestop/geometry"
	"github.com/mogaika/gamestop/r3d"
)

type testPoster struct {
	mu    sync.Mutex
	tasks []func()
}

func (p *testPoster) Post(fn func()) {
	p.mu.Lock()
	p.tasks = append(p.tasks, fn)
	p.mu.Unlock()
}

func (p *testPoster) drain() int {
	p.mu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

func waitContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestContinuationRunsOnPoster(t *testing.T) {
	poster := &testPoster{}
	m := NewLoadingManager(poster)

	called := false
	f := start(m, "value", func() (int, error) { return 42, nil }, func(v int) { called = v == 42 })
	v, err := f.Wait(waitContext(t))
	if err != nil || v != 42 {
		t.Fatalf("Wait()=%v,%v; expected 42,nil", v, err)
	}
	m.Wait()
	if called {
		t.Errorf("continuation ran before the poster was drained")
	}
	if n := poster.drain(); n != 1 {
		t.Errorf("drain()=%d; expected 1", n)
	}
	if !called {
		t.Errorf("continuation did not run")
	}
	if loaded, failed, total := m.Progress(); loaded != 1 || failed != 0 || total != 1 {
		t.Errorf("Progress()=%d,%d,%d; expected 1,0,1", loaded, failed, total)
	}
}

func TestFailedLoadSkipsContinuation(t *testing.T) {
	poster := &testPoster{}
	m := NewLoadingManager(poster)

	f := (&FontLoader{Manager: m}).Load(filepath.Join(t.TempDir(), "missing.json"), func(geometry.Font) {
		t.Errorf("continuation called for missing font")
	})
	if _, err := f.Wait(waitContext(t)); err == nil {
		t.Errorf("expected error for missing font")
	}
	m.Wait()
	if n := poster.drain(); n != 0 {
		t.Errorf("drain()=%d; expected 0", n)
	}
	if _, failed, _ := m.Progress(); failed != 1 {
		t.Errorf("failed=%d; expected 1", failed)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait()=%v; expected %v", err, context.Canceled)
	}
}

func writePNG(t *testing.T, path string, size int, c color.NRGBA) {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCubeTexture(t *testing.T) {
	dir := t.TempDir()
	var paths [6]string
	for i := range paths {
		paths[i] = filepath.Join(dir, string(rune('a'+i))+".png")
		size := 4
		if i == r3d.CubeNZ {
			size = 2
		}
		writePNG(t, paths[i], size, color.NRGBA{uint8(i * 40), 0, 0, 255})
	}

	cube, err := LoadCubeTexture(paths)
	if err != nil {
		t.Fatal(err)
	}
	if cube.Size != 4 {
		t.Errorf("Size=%d; expected 4", cube.Size)
	}
	for i, face := range cube.Faces {
		if face.Rect.Dx() != 4 || face.Rect.Dy() != 4 {
			t.Errorf("face %d size %v; expected 4x4", i, face.Rect)
		}
	}
	if got := cube.Faces[r3d.CubeNX].Pix[0]; got != 40 {
		t.Errorf("nx red=%d; expected 40", got)
	}

	paths[2] = filepath.Join(dir, "missing.png")
	if _, err := LoadCubeTexture(paths); err == nil {
		t.Errorf("expected error for missing face")
	}
}

const triangleTypeface = `{
	"familyName": "Tri",
	"resolution": 100,
	"glyphs": {"A": {"ha": 120, "o": "m 0 0 l 100 0 l 50 100 z"}}
}`

func TestLoadFont(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.json")
	if err := os.WriteFile(path, []byte(triangleTypeface), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFont(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != "Tri" {
		t.Errorf("Name()=%q; expected %q", f.Name(), "Tri")
	}

	bad := filepath.Join(dir, "font.woff")
	if err := os.WriteFile(bad, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if f, err := LoadFont(bad); err == nil || f != nil {
		t.Errorf("LoadFont(%q)=%v,%v; expected nil,error", bad, f, err)
	}
}

func writeTriangleGLB(t *testing.T, path string, required []string) {
	if err := gltf.SaveBinary(triangleDocument(required), path); err != nil {
		t.Fatal(err)
	}
}

func triangleDocument(required []string) *gltf.Document {
	doc := gltf.NewDocument()
	position := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	indices := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 0, 0, 1},
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{"POSITION": position},
			Indices:    gltf.Index(indices),
			Material:   gltf.Index(0),
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name:        "body",
		Mesh:        gltf.Index(0),
		Translation: [3]float32{1, 2, 3},
		Rotation:    [4]float32{0, 0, 0, 1},
		Scale:       [3]float32{1, 1, 1},
		Matrix:      [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
	})
	doc.Scenes[0].Name = "model"
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	doc.ExtensionsRequired = required
	doc.ExtensionsUsed = required
	return doc
}

func TestLoadGLTF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	writeTriangleGLB(t, path, nil)

	model, err := LoadGLTF(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if model.Scene == nil || model.Scene.Name != "model" {
		t.Fatalf("Scene=%v; expected root named model", model.Scene)
	}
	body := model.Scene.Find("body")
	if body == nil {
		t.Fatalf("node body not found")
	}
	if !body.Position.ApproxEqual(mgl32.Vec3{1, 2, 3}) {
		t.Errorf("body.Position=%v; expected (1,2,3)", body.Position)
	}
	if body.Mesh == nil {
		t.Fatalf("body has no mesh")
	}
	if n := body.Mesh.Geometry.TriangleCount(); n != 1 {
		t.Errorf("TriangleCount()=%d; expected 1", n)
	}
	if c := r3d.HexColor(body.Mesh.Material.Color); c != 0xff0000 {
		t.Errorf("color=%06x; expected ff0000", c)
	}
	for i, n := range body.Mesh.Geometry.Normals {
		if !n.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
			t.Errorf("normal %d=%v; expected +z", i, n)
		}
	}
	if meshes, _ := model.Scene.CountMeshes(); meshes != 1 {
		t.Errorf("CountMeshes()=%d; expected 1", meshes)
	}
}

func TestLoadGLTFRequiresDraco(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draco.glb")
	writeTriangleGLB(t, path, []string{extDracoMeshCompression})

	if _, err := LoadGLTF(path, nil); err == nil {
		t.Errorf("expected error without DRACOLoader")
	}
	// uncompressed attributes are still read
	model, err := LoadGLTF(path, NewDRACOLoader().SetDecoderPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if body := model.Scene.Find("body"); body == nil || body.Mesh.Geometry.TriangleCount() != 1 {
		t.Errorf("body=%v; expected one triangle", body)
	}
}

// dracoDocument wraps the sample mesh from testdata in a single compressed primitive.
func dracoDocument(t *testing.T) *gltf.Document {
	drc, err := os.ReadFile(filepath.Join("testdata", "test_nm.obj.edgebreaker.cl4.2.2.drc"))
	if err != nil {
		t.Fatal(err)
	}
	doc := gltf.NewDocument()
	view := modeler.WriteBufferView(doc, gltf.TargetNone, drc)
	doc.Accessors = append(doc.Accessors,
		&gltf.Accessor{ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 99},
		&gltf.Accessor{ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 99},
		&gltf.Accessor{ComponentType: gltf.ComponentUint, Type: gltf.AccessorScalar, Count: 510},
	)
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "compressed",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{"POSITION": 0, "NORMAL": 1},
			Indices:    gltf.Index(2),
			Extensions: gltf.Extensions{extDracoMeshCompression: &DracoPrimitive{
				BufferView: view,
				Attributes: map[string]uint32{"POSITION": 0, "NORMAL": 1},
			}},
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "moon", Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	doc.ExtensionsUsed = []string{extDracoMeshCompression}
	doc.ExtensionsRequired = []string{extDracoMeshCompression}
	return doc
}

func TestLoadGLTFDracoCompressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moon.glb")
	if err := gltf.SaveBinary(dracoDocument(t), path); err != nil {
		t.Fatal(err)
	}

	model, err := LoadGLTF(path, NewDRACOLoader().SetDecoderPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	moon := model.Scene.Find("moon")
	if moon == nil || moon.Mesh == nil {
		t.Fatalf("moon mesh not loaded")
	}
	g := moon.Mesh.Geometry
	if len(g.Positions) != 99 || len(g.Normals) != 99 {
		t.Errorf("positions=%d normals=%d; expected 99 99", len(g.Positions), len(g.Normals))
	}
	if n := g.TriangleCount(); n != 170 {
		t.Errorf("TriangleCount()=%d; expected 170", n)
	}
	for _, idx := range g.Indices {
		if int(idx) >= len(g.Positions) {
			t.Fatalf("index %d out of %d vertices", idx, len(g.Positions))
		}
	}
}

func TestDracoDecodeRejectsGarbage(t *testing.T) {
	d := NewDRACOLoader()
	for _, data := range [][]byte{nil, {1, 2, 3}} {
		if g, err := d.Decode(data, map[string]uint32{"POSITION": 0}); err == nil || g != nil {
			t.Errorf("Decode(%v)=%v,%v; expected nil,error", data, g, err)
		}
	}
}

func TestLoadGLTFBrokenReferences(t *testing.T) {
	for _, test := range []struct {
		name   string
		mutate func(doc *gltf.Document)
	}{
		{"position", func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Attributes["POSITION"] = 7
		}},
		{"indices", func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Indices = gltf.Index(9)
		}},
		{"uv", func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Attributes["TEXCOORD_0"] = 12
		}},
		{"normal", func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Attributes["NORMAL"] = 12
		}},
		{"bufferview", func(doc *gltf.Document) {
			doc.Accessors[0].BufferView = gltf.Index(5)
		}},
		{"vertex", func(doc *gltf.Document) {
			doc.Meshes[0].Primitives[0].Indices = gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 5}))
		}},
		{"mesh", func(doc *gltf.Document) {
			doc.Nodes[0].Mesh = gltf.Index(3)
		}},
	} {
		path := filepath.Join(t.TempDir(), test.name+".glb")
		doc := triangleDocument(nil)
		test.mutate(doc)
		if err := gltf.SaveBinary(doc, path); err != nil {
			t.Fatal(err)
		}

		poster := &testPoster{}
		m := NewLoadingManager(poster)
		f := (&GLTFLoader{Manager: m}).Load(path, func(*GLTF) {
			t.Errorf("%s: continuation called for broken model", test.name)
		})
		if model, err := f.Wait(waitContext(t)); err == nil || model != nil {
			t.Errorf("%s: Load()=%v,%v; expected nil,error", test.name, model, err)
		}
		m.Wait()
		poster.drain()
		if _, failed, _ := m.Progress(); failed != 1 {
			t.Errorf("%s: failed=%d; expected 1", test.name, failed)
		}
	}
}

func TestPanickingLoadFails(t *testing.T) {
	poster := &testPoster{}
	m := NewLoadingManager(poster)

	f := start(m, "boom", func() (int, error) {
		var a []int
		return a[3], nil
	}, func(int) {
		t.Errorf("continuation called after panic")
	})
	if _, err := f.Wait(waitContext(t)); err == nil {
		t.Errorf("expected error from panicking load")
	}
	m.Wait()
	if n := poster.drain(); n != 0 {
		t.Errorf("drain()=%d; expected 0", n)
	}
	if loaded, failed, _ := m.Progress(); loaded != 0 || failed != 1 {
		t.Errorf("Progress()=%d,%d; expected 0,1", loaded, failed)
	}
}

func TestGLTFLoaderPostsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	writeTriangleGLB(t, path, nil)

	poster := &testPoster{}
	m := NewLoadingManager(poster)
	loader := (&GLTFLoader{Manager: m}).SetDRACOLoader(NewDRACOLoader().SetDecoderPath(filepath.Join(t.TempDir(), "draco")))

	var got *GLTF
	if _, err := loader.Load(path, func(g *GLTF) { got = g }).Wait(waitContext(t)); err != nil {
		t.Fatal(err)
	}
	m.Wait()
	poster.drain()
	if got == nil || got.Scene.Find("body") == nil {
		t.Errorf("continuation did not receive the model")
	}
}
