package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// errMissingPositions is returned for a primitive without a POSITION attribute.
var errMissingPositions = fmt.Errorf("primitive has no POSITION attribute: %w", ErrMalformedAsset)

// gltfPrimitiveGeometry is the decoded vertex data of one glTF primitive.
// Position, normal and UV slices may alias accessor memory and must be treated as read-only.
type gltfPrimitiveGeometry struct {
	Indices   []uint32
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2

	// HasNormals is false when the primitive lacks NORMAL; Normals is then zero-filled.
	HasNormals bool

	// Lightmapped is set when the primitive carries TEXCOORD_1.
	Lightmapped bool

	// Material is the primitive's glTF material index.
	Material *int
}

// gltfSkinnedGeometry adds per-vertex joint influences.
type gltfSkinnedGeometry struct {
	gltfPrimitiveGeometry
	Joints  [][4]uint32
	Weights []mgl32.Vec4
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
	logger *zap.Logger
}

// gltfMeshExtractor decodes mesh primitives of a parsed glTF document.
type gltfMeshExtractor interface {
	// PrimitiveCount returns the number of primitives of a mesh.
	//
	// Parameters:
	//   - meshIndex: the mesh to inspect
	//
	// Returns:
	//   - int: the primitive count
	//   - error: an error if the mesh does not exist
	PrimitiveCount(meshIndex int) (int, error)

	// Triangles reports whether a primitive uses the TRIANGLES topology.
	Triangles(meshIndex, primIndex int) bool

	// ExtractPrimitive decodes indices, positions, normals and UVs of one primitive.
	// Missing indices become sequential ones; missing normals and UVs are zero-filled.
	//
	// Parameters:
	//   - meshIndex: the mesh holding the primitive
	//   - primIndex: the primitive within the mesh
	//
	// Returns:
	//   - *gltfPrimitiveGeometry: the decoded geometry
	//   - error: an error if an accessor is malformed or unsupported
	ExtractPrimitive(meshIndex, primIndex int) (*gltfPrimitiveGeometry, error)

	// ExtractSkinnedPrimitive decodes a primitive together with JOINTS_0 and WEIGHTS_0.
	// Vertices without joints bind fully to defaultJoint.
	//
	// Parameters:
	//   - meshIndex: the mesh holding the primitive
	//   - primIndex: the primitive within the mesh
	//   - defaultJoint: joint used for every lane when JOINTS_0 is absent
	//
	// Returns:
	//   - *gltfSkinnedGeometry: the decoded geometry
	//   - error: an error if an accessor is malformed or unsupported
	ExtractSkinnedPrimitive(meshIndex, primIndex int, defaultJoint uint32) (*gltfSkinnedGeometry, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - logger: receives warnings
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser, logger *zap.Logger) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser, logger: logger}
}

func (e *gltfMeshExtractorImpl) mesh(meshIndex int) (*gltfMesh, error) {
	doc := e.parser.Document()
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh %d: %w", meshIndex, errIndexOutOfRange)
	}
	return &doc.Meshes[meshIndex], nil
}

func (e *gltfMeshExtractorImpl) PrimitiveCount(meshIndex int) (int, error) {
	mesh, err := e.mesh(meshIndex)
	if err != nil {
		return 0, err
	}
	return len(mesh.Primitives), nil
}

func (e *gltfMeshExtractorImpl) Triangles(meshIndex, primIndex int) bool {
	mesh, err := e.mesh(meshIndex)
	if err != nil || primIndex < 0 || primIndex >= len(mesh.Primitives) {
		return false
	}
	mode := mesh.Primitives[primIndex].Mode
	return mode == nil || *mode == gltfPrimitiveModeTriangles
}

func (e *gltfMeshExtractorImpl) ExtractPrimitive(meshIndex, primIndex int) (*gltfPrimitiveGeometry, error) {
	mesh, err := e.mesh(meshIndex)
	if err != nil {
		return nil, err
	}
	if primIndex < 0 || primIndex >= len(mesh.Primitives) {
		return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIndex, errIndexOutOfRange)
	}
	prim := &mesh.Primitives[primIndex]
	g, err := e.extractGeometry(newPrimitiveReader(e.parser, prim), prim)
	if err != nil {
		return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIndex, err)
	}
	return g, nil
}

func (e *gltfMeshExtractorImpl) ExtractSkinnedPrimitive(meshIndex, primIndex int, defaultJoint uint32) (*gltfSkinnedGeometry, error) {
	base, err := e.ExtractPrimitive(meshIndex, primIndex)
	if err != nil {
		return nil, err
	}
	prim := &e.parser.Document().Meshes[meshIndex].Primitives[primIndex]
	reader := newPrimitiveReader(e.parser, prim)
	n := len(base.Positions)

	joints, ok, err := reader.Joints()
	if err != nil {
		return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIndex, err)
	}
	if !ok {
		joints = make([][4]uint32, n)
		for i := range joints {
			joints[i] = [4]uint32{defaultJoint, defaultJoint, defaultJoint, defaultJoint}
		}
	} else if len(joints) != n {
		return nil, fmt.Errorf("mesh %d primitive %d: %d joints for %d vertices: %w",
			meshIndex, primIndex, len(joints), n, ErrMalformedAsset)
	}

	weights, ok, err := reader.Weights()
	if err != nil {
		return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIndex, err)
	}
	if !ok {
		weights = make([]mgl32.Vec4, n)
		for i := range weights {
			weights[i] = mgl32.Vec4{1, 0, 0, 0}
		}
	} else if len(weights) != n {
		return nil, fmt.Errorf("mesh %d primitive %d: %d weights for %d vertices: %w",
			meshIndex, primIndex, len(weights), n, ErrMalformedAsset)
	}

	return &gltfSkinnedGeometry{gltfPrimitiveGeometry: *base, Joints: joints, Weights: weights}, nil
}

func (e *gltfMeshExtractorImpl) extractGeometry(reader *PrimitiveReader, prim *gltfPrimitive) (*gltfPrimitiveGeometry, error) {
	positions, ok, err := reader.Positions()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errMissingPositions
	}
	n := len(positions)

	g := &gltfPrimitiveGeometry{
		Positions:   positions,
		Material:    prim.Material,
		Lightmapped: reader.HasAttribute(gltfAttributeTexCoord1),
	}

	indices, ok, err := reader.Indices()
	if err != nil {
		return nil, err
	}
	if ok {
		for _, idx := range indices {
			if int(idx) >= n {
				return nil, fmt.Errorf("index %d with %d vertices: %w", idx, n, ErrMalformedAsset)
			}
		}
		g.Indices = indices
	} else {
		e.logger.Warn("no indices specified, using per-vertex indices", zap.Int("vertices", n))
		g.Indices = make([]uint32, n)
		for i := range g.Indices {
			g.Indices[i] = uint32(i)
		}
	}

	normals, ok, err := reader.Normals()
	if err != nil {
		return nil, err
	}
	g.HasNormals = ok
	if ok && len(normals) != n {
		return nil, fmt.Errorf("%d normals for %d positions: %w", len(normals), n, ErrMalformedAsset)
	}
	if !ok {
		normals = make([]mgl32.Vec3, n)
	}
	g.Normals = normals

	uvs, ok, err := reader.UVs(0)
	if err != nil {
		return nil, err
	}
	if ok && len(uvs) != n {
		return nil, fmt.Errorf("%d uvs for %d positions: %w", len(uvs), n, ErrMalformedAsset)
	}
	if !ok {
		uvs = make([]mgl32.Vec2, n)
	}
	g.UVs = uvs

	return g, nil
}

// applyTextureTransform bakes t into the geometry's UVs, replacing the slice so accessor memory is untouched.
func (g *gltfPrimitiveGeometry) applyTextureTransform(t common.TextureTransform) {
	if t == common.DefaultTextureTransform() {
		return
	}
	out := make([]mgl32.Vec2, len(g.UVs))
	for i, uv := range g.UVs {
		out[i] = t.Apply(uv)
	}
	g.UVs = out
}

// staging copies the geometry into fresh staging buffers.
func (g *gltfPrimitiveGeometry) staging() model.StagingBuffers {
	var s model.StagingBuffers
	s.Extend(g.Indices, g.Positions, g.Normals, g.UVs)
	return s
}

// staging copies the skinned geometry into fresh staging buffers.
func (g *gltfSkinnedGeometry) staging() model.AnimatedStagingBuffers {
	var s model.AnimatedStagingBuffers
	s.Extend(g.Indices, g.Positions, g.Normals, g.UVs, g.Joints, g.Weights)
	return s
}
