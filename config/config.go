package config

import (
	_ "embed"
	"io/ioutil"
	"math"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed scene.yaml
var defaultScene []byte

type Viewport struct {
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	DevicePixelRatio float64 `yaml:"devicePixelRatio"`
}

type Camera struct {
	Fov      float32    `yaml:"fov"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
	Position mgl32.Vec3 `yaml:"position"`
}

type Controls struct {
	EnableDamping bool    `yaml:"enableDamping"`
	DampingFactor float64 `yaml:"dampingFactor"`
	MinDistance   float64 `yaml:"minDistance"`
	MaxDistance   float64 `yaml:"maxDistance"`
	MinPolarAngle float64 `yaml:"minPolarAngle"`
	MaxPolarAngle float64 `yaml:"maxPolarAngle"`
	EnablePan     bool    `yaml:"enablePan"`
}

type Renderer struct {
	MaxPixelRatio float64 `yaml:"maxPixelRatio"`
	ClearColor    uint32  `yaml:"clearColor"`
}

type Animation struct {
	Amplitude float64 `yaml:"amplitude"`
}

type Light struct {
	Kind      string     `yaml:"kind"`
	Color     uint32     `yaml:"color"`
	Intensity float32    `yaml:"intensity"`
	Position  mgl32.Vec3 `yaml:"position"`
	Target    mgl32.Vec3 `yaml:"target"`
	Angle     float32    `yaml:"angle"`
	Penumbra  float32    `yaml:"penumbra"`
	Distance  float32    `yaml:"distance"`
}

type Skybox struct {
	Dir   string   `yaml:"dir"`
	Faces []string `yaml:"faces"`
}

type Bevel struct {
	Enabled   bool    `yaml:"enabled"`
	Thickness float32 `yaml:"thickness"`
	Size      float32 `yaml:"size"`
	Offset    float32 `yaml:"offset"`
	Segments  int     `yaml:"segments"`
}

type TextItem struct {
	Text       string     `yaml:"text"`
	Color      uint32     `yaml:"color"`
	Position   mgl32.Vec3 `yaml:"position"`
	CastShadow bool       `yaml:"castShadow"`
}

type Text struct {
	Font          string     `yaml:"font"`
	Size          float32    `yaml:"size"`
	Height        float32    `yaml:"height"`
	CurveSegments int        `yaml:"curveSegments"`
	Bevel         Bevel      `yaml:"bevel"`
	Items         []TextItem `yaml:"items"`
}

type Draco struct {
	DecoderPath string `yaml:"decoderPath"`
}

type Model struct {
	Name     string     `yaml:"name"`
	Path     string     `yaml:"path"`
	Scale    mgl32.Vec3 `yaml:"scale"`
	Position mgl32.Vec3 `yaml:"position"`
}

type Config struct {
	// Assets is the directory every asset path is relative to.
	Assets string `yaml:"-"`

	Viewport  Viewport  `yaml:"viewport"`
	Camera    Camera    `yaml:"camera"`
	Controls  Controls  `yaml:"controls"`
	Renderer  Renderer  `yaml:"renderer"`
	Animation Animation `yaml:"animation"`
	Lights    []Light   `yaml:"lights"`
	Skybox    Skybox    `yaml:"skybox"`
	Text      Text      `yaml:"text"`
	Draco     Draco     `yaml:"draco"`
	Models    []Model   `yaml:"models"`
}

// Default returns the built in scene.
func Default() (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(defaultScene, &c); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal default scene")
	}
	c.Assets = "."
	return &c, c.Validate()
}

// Load reads the built in scene and overlays the YAML file at path on top of it.
// An empty path returns the built in scene.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "Unmarshaling error in %s", path)
	}
	return c, c.Validate()
}

func (c *Config) Validate() error {
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		return errors.Errorf("camera fov %v out of range (0, 180)", c.Camera.Fov)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return errors.Errorf("camera near %v / far %v invalid", c.Camera.Near, c.Camera.Far)
	}
	if c.Controls.MinDistance > c.Controls.MaxDistance {
		return errors.Errorf("controls minDistance %v > maxDistance %v", c.Controls.MinDistance, c.Controls.MaxDistance)
	}
	if c.Controls.MinPolarAngle < 0 || c.Controls.MaxPolarAngle > math.Pi || c.Controls.MinPolarAngle > c.Controls.MaxPolarAngle {
		return errors.Errorf("controls polar range [%v, %v] invalid", c.Controls.MinPolarAngle, c.Controls.MaxPolarAngle)
	}
	if len(c.Skybox.Faces) != 0 && len(c.Skybox.Faces) != 6 {
		return errors.Errorf("skybox needs 6 faces, got %d", len(c.Skybox.Faces))
	}
	for _, l := range c.Lights {
		switch l.Kind {
		case "ambient", "directional", "spot":
		default:
			return errors.Errorf("unknown light kind %q", l.Kind)
		}
	}
	names := make(map[string]struct{})
	for _, m := range c.Models {
		if m.Name == "" || m.Path == "" {
			return errors.Errorf("model needs name and path: %+v", m)
		}
		if _, exists := names[m.Name]; exists {
			return errors.Errorf("duplicate model %q", m.Name)
		}
		names[m.Name] = struct{}{}
	}
	return nil
}

func (c *Config) AssetPath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Assets, filepath.FromSlash(rel))
}

// SkyboxPaths returns the faces in px, nx, py, ny, pz, nz order.
func (c *Config) SkyboxPaths() (paths [6]string, ok bool) {
	if len(c.Skybox.Faces) != 6 {
		return paths, false
	}
	for i, face := range c.Skybox.Faces {
		paths[i] = c.AssetPath(filepath.Join(c.Skybox.Dir, face))
	}
	return paths, true
}
