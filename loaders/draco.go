package loaders

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/draco-go/draco"
	"github.com/qmuntal/gltf"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/r3d"
)

const extDracoMeshCompression = "KHR_draco_mesh_compression"

// DracoPrimitive is the KHR_draco_mesh_compression payload of a primitive.
// Attributes maps glTF attribute names to Draco unique ids.
type DracoPrimitive struct {
	BufferView uint32            `json:"bufferView"`
	Attributes map[string]uint32 `json:"attributes"`
}

func init() {
	gltf.RegisterExtension(extDracoMeshCompression, func(data []byte) (interface{}, error) {
		ext := new(DracoPrimitive)
		if err := json.Unmarshal(data, ext); err != nil {
			return nil, err
		}
		return ext, nil
	})
}

func dracoExtension(primitive *gltf.Primitive) (*DracoPrimitive, error) {
	raw, ok := primitive.Extensions[extDracoMeshCompression]
	if !ok {
		return nil, nil
	}
	switch ext := raw.(type) {
	case *DracoPrimitive:
		return ext, nil
	case DracoPrimitive:
		return &ext, nil
	case json.RawMessage:
		var dp DracoPrimitive
		if err := json.Unmarshal(ext, &dp); err != nil {
			return nil, errors.Wrapf(err, "bad %s payload", extDracoMeshCompression)
		}
		return &dp, nil
	}
	return nil, errors.Errorf("unexpected %s payload %T", extDracoMeshCompression, raw)
}

// DRACOLoader decodes Draco compressed primitives. The decoder is linked in;
// the decoder path only records where the scene expects the decoder assets.
type DRACOLoader struct {
	decoderPath string

	mu      sync.Mutex
	decoder *draco.Decoder
}

func NewDRACOLoader() *DRACOLoader {
	return &DRACOLoader{decoder: draco.NewDecoder()}
}

// SetDecoderPath records the decoder directory. A missing directory is logged, not fatal.
func (d *DRACOLoader) SetDecoderPath(path string) *DRACOLoader {
	d.decoderPath = filepath.Clean(path)
	if fi, err := os.Stat(d.decoderPath); err != nil || !fi.IsDir() {
		log.Warnf("[draco] Decoder path %q is not a directory", d.decoderPath)
	} else {
		log.Debugf("[draco] Decoder path %q", d.decoderPath)
	}
	return d
}

func (d *DRACOLoader) DecoderPath() string {
	return d.decoderPath
}

// Decode unpacks a compressed mesh into geometry. Attribute ids come from the
// primitive's extension payload.
func (d *DRACOLoader) Decode(data []byte, attributes map[string]uint32) (*r3d.Geometry, error) {
	if len(data) == 0 {
		return nil, errors.New("empty Draco buffer")
	}
	if t := draco.GetEncodedGeometryType(data); t != draco.EGT_TRIANGULAR_MESH {
		return nil, errors.Errorf("Draco buffer is not a triangular mesh (type %d)", t)
	}

	m := draco.NewMesh()
	d.mu.Lock()
	err := d.decoder.DecodeMesh(m, data)
	d.mu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode Draco mesh")
	}
	if m.NumPoints() == 0 {
		return nil, errors.New("Draco mesh has no points")
	}

	iPosition, ok := attributes["POSITION"]
	if !ok {
		return nil, errors.New("Draco primitive has no POSITION attribute")
	}
	positions, err := dracoAttribute(m, iPosition, 3)
	if err != nil {
		return nil, errors.Wrapf(err, "POSITION")
	}
	g := &r3d.Geometry{Positions: make([]mgl32.Vec3, len(positions)/3)}
	for i := range g.Positions {
		g.Positions[i] = mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}

	if nFaces := m.NumFaces(); nFaces > 0 {
		// Faces writes three indices per face
		indices := make([]uint32, nFaces*3)
		m.Faces(indices)
		for _, idx := range indices {
			if int(idx) >= len(g.Positions) {
				return nil, errors.Errorf("Draco index %d out of %d vertices", idx, len(g.Positions))
			}
		}
		g.Indices = indices
	}

	if id, ok := attributes["TEXCOORD_0"]; ok {
		uvs, err := dracoAttribute(m, id, 2)
		if err != nil {
			return nil, errors.Wrapf(err, "TEXCOORD_0")
		}
		g.UVs = make([]mgl32.Vec2, len(uvs)/2)
		for i := range g.UVs {
			g.UVs[i] = mgl32.Vec2{uvs[i*2], uvs[i*2+1]}
		}
	}
	if id, ok := attributes["NORMAL"]; ok {
		normals, err := dracoAttribute(m, id, 3)
		if err != nil {
			return nil, errors.Wrapf(err, "NORMAL")
		}
		g.Normals = make([]mgl32.Vec3, len(normals)/3)
		for i := range g.Normals {
			g.Normals[i] = mgl32.Vec3{normals[i*3], normals[i*3+1], normals[i*3+2]}
		}
	}
	if g.Normals == nil {
		g.ComputeVertexNormals()
	}
	return g, nil
}

func dracoAttribute(m *draco.Mesh, id uint32, components int8) ([]float32, error) {
	attr := m.AttrByUniqueID(id)
	if attr == nil {
		return nil, errors.Errorf("no Draco attribute with id %d", id)
	}
	if n := attr.NumComponents(); n != components {
		return nil, errors.Errorf("Draco attribute %d has %d components, expected %d", id, n, components)
	}
	buf := make([]float32, int(m.NumPoints())*int(components))
	data, ok := m.AttrData(attr, buf)
	if !ok {
		return nil, errors.Errorf("Failed to read Draco attribute %d", id)
	}
	return data.([]float32), nil
}
