package loaders

import (
	"bytes"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/gamestop/r3d"
	"github.com/mogaika/gamestop/utils"
)

// GLTF is a loaded model. Scene is the default scene, Scenes holds all of them.
type GLTF struct {
	Scene    *r3d.Node
	Scenes   []*r3d.Node
	Document *gltf.Document
}

type GLTFLoader struct {
	Manager *LoadingManager
	draco   *DRACOLoader
}

func (l *GLTFLoader) SetDRACOLoader(d *DRACOLoader) *GLTFLoader {
	l.draco = d
	return l
}

func (l *GLTFLoader) Load(path string, onLoad func(*GLTF)) *Future[*GLTF] {
	return start(l.Manager, path, func() (*GLTF, error) {
		return LoadGLTF(path, l.draco)
	}, onLoad)
}

// LoadGLTF reads a .gltf or .glb file with its external buffers and images.
func LoadGLTF(path string, draco *DRACOLoader) (*GLTF, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open gltf %s", path)
	}
	for _, ext := range doc.ExtensionsRequired {
		if ext == extDracoMeshCompression && draco == nil {
			return nil, errors.Errorf("%s requires %s but no DRACOLoader is set", path, ext)
		}
	}

	b := &gltfBuilder{
		doc:      doc,
		draco:    draco,
		dir:      filepath.Dir(path),
		nodes:    make(map[uint32]*r3d.Node),
		textures: make(map[uint32]*r3d.Texture),
		meshes:   make(map[uint32][]*r3d.Mesh),
	}

	result := &GLTF{Document: doc}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(doc.Scenes) == 0 {
		root := r3d.NewNode(base)
		for _, iNode := range rootNodes(doc) {
			n, err := b.node(iNode)
			if err != nil {
				return nil, err
			}
			root.Add(n)
		}
		result.Scenes = []*r3d.Node{root}
	} else {
		for iScene, scene := range doc.Scenes {
			name := scene.Name
			if name == "" {
				name = fmt.Sprintf("%s_scene%d", base, iScene)
			}
			root := r3d.NewNode(name)
			for _, iNode := range scene.Nodes {
				n, err := b.node(iNode)
				if err != nil {
					return nil, errors.Wrapf(err, "scene %d", iScene)
				}
				root.Add(n)
			}
			result.Scenes = append(result.Scenes, root)
		}
	}

	iDefault := 0
	if doc.Scene != nil && int(*doc.Scene) < len(result.Scenes) {
		iDefault = int(*doc.Scene)
	}
	result.Scene = result.Scenes[iDefault]

	meshes, triangles := result.Scene.CountMeshes()
	log.Infof("[gltf] %s: %d nodes, %d meshes, %d triangles", path, len(doc.Nodes), meshes, triangles)
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("[gltf] %s", utils.SDumpShallow(doc.Asset, doc.ExtensionsUsed, doc.Scenes))
	}
	return result, nil
}

func rootNodes(doc *gltf.Document) []uint32 {
	child := make(map[uint32]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	roots := make([]uint32, 0)
	for i := range doc.Nodes {
		if !child[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

type gltfBuilder struct {
	doc      *gltf.Document
	draco    *DRACOLoader
	dir      string
	nodes    map[uint32]*r3d.Node
	textures map[uint32]*r3d.Texture
	meshes   map[uint32][]*r3d.Mesh
}

var (
	identityMatrix = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	zeroMatrix     = [16]float32{}
)

func (b *gltfBuilder) node(id uint32) (*r3d.Node, error) {
	if int(id) >= len(b.doc.Nodes) {
		return nil, errors.Errorf("node %d out of range", id)
	}
	if n, ok := b.nodes[id]; ok {
		return n, nil
	}
	gn := b.doc.Nodes[id]

	name := gn.Name
	if name == "" {
		name = fmt.Sprintf("node%d", id)
	}
	n := r3d.NewNode(name)
	b.nodes[id] = n

	if gn.Matrix != identityMatrix && gn.Matrix != zeroMatrix {
		m := mgl32.Mat4(gn.Matrix)
		n.Matrix = &m
	} else {
		n.Position = mgl32.Vec3(gn.Translation)
		if gn.Scale != [3]float32{} {
			n.Scale = mgl32.Vec3(gn.Scale)
		}
		if gn.Rotation != [4]float32{} {
			n.Rotation = mgl32.Quat{
				W: gn.Rotation[3],
				V: mgl32.Vec3{gn.Rotation[0], gn.Rotation[1], gn.Rotation[2]},
			}
		}
	}

	if gn.Mesh != nil {
		meshes, err := b.mesh(*gn.Mesh)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", name)
		}
		if len(meshes) == 1 {
			n.Mesh = meshes[0]
		} else {
			for i, m := range meshes {
				n.Add(r3d.NewMeshNode(fmt.Sprintf("%s_primitive%d", name, i), m))
			}
		}
	}

	for _, c := range gn.Children {
		child, err := b.node(c)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func (b *gltfBuilder) mesh(id uint32) ([]*r3d.Mesh, error) {
	if meshes, ok := b.meshes[id]; ok {
		return meshes, nil
	}
	if int(id) >= len(b.doc.Meshes) {
		return nil, errors.Errorf("mesh %d out of range", id)
	}
	gm := b.doc.Meshes[id]

	meshes := make([]*r3d.Mesh, 0, len(gm.Primitives))
	for iPrimitive, primitive := range gm.Primitives {
		if primitive.Mode != gltf.PrimitiveTriangles {
			log.Debugf("[gltf] Skipping mesh %q primitive %d with mode %v", gm.Name, iPrimitive, primitive.Mode)
			continue
		}
		geom, err := b.geometry(primitive)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q primitive %d", gm.Name, iPrimitive)
		}
		mat, err := b.material(primitive.Material)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q primitive %d", gm.Name, iPrimitive)
		}
		meshes = append(meshes, &r3d.Mesh{Geometry: geom, Material: mat})
	}
	b.meshes[id] = meshes
	return meshes, nil
}

func (b *gltfBuilder) accessor(id uint32) (*gltf.Accessor, error) {
	if int(id) >= len(b.doc.Accessors) {
		return nil, errors.Errorf("accessor %d out of range", id)
	}
	acr := b.doc.Accessors[id]
	if acr == nil {
		return nil, errors.Errorf("accessor %d is null", id)
	}
	if acr.BufferView != nil {
		if int(*acr.BufferView) >= len(b.doc.BufferViews) {
			return nil, errors.Errorf("accessor %d: buffer view %d out of range", id, *acr.BufferView)
		}
		if acr.ByteOffset > b.doc.BufferViews[*acr.BufferView].ByteLength {
			return nil, errors.Errorf("accessor %d: offset %d past buffer view end", id, acr.ByteOffset)
		}
	}
	return acr, nil
}

func (b *gltfBuilder) geometry(primitive *gltf.Primitive) (*r3d.Geometry, error) {
	ext, err := dracoExtension(primitive)
	if err != nil {
		return nil, err
	}
	if ext != nil && b.draco != nil {
		data, err := b.bufferView(ext.BufferView)
		if err != nil {
			return nil, errors.Wrapf(err, "Draco buffer")
		}
		return b.draco.Decode(data, ext.Attributes)
	}

	iPosition, ok := primitive.Attributes["POSITION"]
	if !ok {
		if ext != nil {
			return nil, errors.Errorf("Draco compressed primitive without DRACOLoader has no fallback attributes")
		}
		return nil, errors.New("primitive has no POSITION attribute")
	}

	acr, err := b.accessor(iPosition)
	if err != nil {
		return nil, errors.Wrapf(err, "POSITION")
	}
	positions, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read positions")
	}
	g := &r3d.Geometry{Positions: make([]mgl32.Vec3, len(positions))}
	for i, p := range positions {
		g.Positions[i] = mgl32.Vec3(p)
	}

	if primitive.Indices != nil {
		acr, err := b.accessor(*primitive.Indices)
		if err != nil {
			return nil, errors.Wrapf(err, "indices")
		}
		indices, err := modeler.ReadIndices(b.doc, acr, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read indices")
		}
		for _, idx := range indices {
			if int(idx) >= len(positions) {
				return nil, errors.Errorf("index %d out of %d vertices", idx, len(positions))
			}
		}
		g.Indices = indices
	}

	if iUV, ok := primitive.Attributes["TEXCOORD_0"]; ok {
		acr, err := b.accessor(iUV)
		if err != nil {
			return nil, errors.Wrapf(err, "TEXCOORD_0")
		}
		uvs, err := modeler.ReadTextureCoord(b.doc, acr, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read texture coordinates")
		}
		if len(uvs) == len(positions) {
			g.UVs = make([]mgl32.Vec2, len(uvs))
			for i, uv := range uvs {
				g.UVs[i] = mgl32.Vec2(uv)
			}
		}
	}

	if iNormal, ok := primitive.Attributes["NORMAL"]; ok {
		acr, err := b.accessor(iNormal)
		if err != nil {
			return nil, errors.Wrapf(err, "NORMAL")
		}
		normals, err := modeler.ReadNormal(b.doc, acr, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read normals")
		}
		if len(normals) == len(positions) {
			g.Normals = make([]mgl32.Vec3, len(normals))
			for i, n := range normals {
				g.Normals[i] = mgl32.Vec3(n)
			}
		}
	}
	if g.Normals == nil {
		g.ComputeVertexNormals()
	}
	return g, nil
}

func (b *gltfBuilder) material(id *uint32) (*r3d.Material, error) {
	mat := &r3d.Material{Kind: r3d.MaterialStandard, Color: mgl32.Vec3{1, 1, 1}}
	if id == nil {
		return mat, nil
	}
	if int(*id) >= len(b.doc.Materials) {
		return nil, errors.Errorf("material %d out of range", *id)
	}
	gm := b.doc.Materials[*id]
	mat.Name = gm.Name
	mat.DoubleSided = gm.DoubleSided

	pbr := gm.PBRMetallicRoughness
	if pbr == nil {
		return mat, nil
	}
	if pbr.BaseColorFactor != nil {
		c := *pbr.BaseColorFactor
		mat.Color = mgl32.Vec3{c[0], c[1], c[2]}
	}
	if pbr.BaseColorTexture != nil {
		tex, err := b.texture(pbr.BaseColorTexture.Index)
		if err != nil {
			// untextured is still drawable
			log.Warnf("[gltf] Material %q: %v", gm.Name, err)
		} else {
			mat.Map = tex
		}
	}
	return mat, nil
}

func (b *gltfBuilder) texture(id uint32) (*r3d.Texture, error) {
	if tex, ok := b.textures[id]; ok {
		return tex, nil
	}
	if int(id) >= len(b.doc.Textures) || b.doc.Textures[id].Source == nil {
		return nil, errors.Errorf("texture %d has no source", id)
	}
	iImage := *b.doc.Textures[id].Source
	if int(iImage) >= len(b.doc.Images) {
		return nil, errors.Errorf("image %d out of range", iImage)
	}

	data, err := b.imageData(b.doc.Images[iImage])
	if err != nil {
		return nil, errors.Wrapf(err, "image %d", iImage)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode image %d", iImage)
	}
	tex := r3d.NewTexture(img)
	b.textures[id] = tex
	return tex, nil
}

func (b *gltfBuilder) bufferView(id uint32) ([]byte, error) {
	if int(id) >= len(b.doc.BufferViews) {
		return nil, errors.Errorf("buffer view %d out of range", id)
	}
	data, err := modeler.ReadBufferView(b.doc, b.doc.BufferViews[id])
	return data, errors.Wrapf(err, "buffer view %d", id)
}

func (b *gltfBuilder) imageData(img *gltf.Image) ([]byte, error) {
	if img.BufferView != nil {
		return b.bufferView(*img.BufferView)
	}
	if img.IsEmbeddedResource() {
		return img.MarshalData()
	}
	if img.URI == "" {
		return nil, errors.New("image has neither uri nor buffer view")
	}
	uri, err := url.PathUnescape(img.URI)
	if err != nil {
		return nil, errors.Wrapf(err, "bad image uri %q", img.URI)
	}
	return os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(uri)))
}
