// gltf_types.go holds the glTF 2.0 JSON schema subset the loader decodes, including the
// extensions it understands (EXT_meshopt_compression, MSFT_lod, KHR_texture_transform,
// KHR_materials_unlit and KHR_materials_emissive_strength).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

import "encoding/json"

// gltfDocument is the root of a glTF JSON document.
type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       *int             `json:"scene,omitempty"`
	Scenes      []gltfScene      `json:"scenes,omitempty"`
	Nodes       []gltfNode       `json:"nodes,omitempty"`
	Meshes      []gltfMesh       `json:"meshes,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
	Materials   []gltfMaterial   `json:"materials,omitempty"`
	Textures    []gltfTexture    `json:"textures,omitempty"`
	Images      []gltfImage      `json:"images,omitempty"`
	Samplers    []gltfSampler    `json:"samplers,omitempty"`
	Skins       []gltfSkin       `json:"skins,omitempty"`
	Animations  []gltfAnimation  `json:"animations,omitempty"`

	// ExtensionsUsed lists extensions used by this asset.
	ExtensionsUsed []string `json:"extensionsUsed,omitempty"`

	// ExtensionsRequired lists extensions a loader must understand to display the asset.
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

// gltfAsset is the asset metadata block. Only Version is checked.
type gltfAsset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
}

// gltfScene names the root nodes of a scene.
type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode is a node in the transform hierarchy.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`
	Mesh     *int   `json:"mesh,omitempty"`
	Skin     *int   `json:"skin,omitempty"`

	// Matrix is a column-major 4x4 transform. When present TRS is ignored.
	Matrix *[16]float32 `json:"matrix,omitempty"`

	Translation *[3]float32 `json:"translation,omitempty"`

	// Rotation is a quaternion (x, y, z, w).
	Rotation *[4]float32 `json:"rotation,omitempty"`

	Scale *[3]float32 `json:"scale,omitempty"`

	Extensions gltfNodeExtensions `json:"extensions,omitempty"`
	Extras     gltfNodeExtras     `json:"extras,omitempty"`
}

// gltfNodeExtensions are the node extensions the importer reads.
type gltfNodeExtensions struct {
	// MSFTLod lists the nodes holding the lower levels of detail of this node's mesh.
	MSFTLod *gltfMSFTLod `json:"MSFT_lod,omitempty"`
}

// gltfMSFTLod is the MSFT_lod node extension.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Vendor/MSFT_lod
type gltfMSFTLod struct {
	IDs []int `json:"ids"`
}

// gltfNodeExtras holds the extras MSFT_lod places on the LOD 0 node.
type gltfNodeExtras struct {
	// ScreenCoverage lists ascending coverage thresholds, one per LOD switch.
	ScreenCoverage []float32 `json:"MSFT_screencoverage,omitempty"`
}

// UnmarshalJSON tolerates extras that are not objects. glTF allows any JSON value there.
func (e *gltfNodeExtras) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	coverage, ok := raw["MSFT_screencoverage"]
	if !ok {
		return nil
	}
	return json.Unmarshal(coverage, &e.ScreenCoverage)
}

// gltfMesh is a list of primitives.
type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

// gltfPrimitive is one draw of a mesh.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type gltfPrimitive struct {
	// Attributes maps semantics (POSITION, NORMAL, TEXCOORD_0, TEXCOORD_1, JOINTS_0, WEIGHTS_0)
	// to accessor indices.
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`

	// Mode is the topology, TRIANGLES when omitted.
	Mode *int `json:"mode,omitempty"`
}

const gltfPrimitiveModeTriangles = 4

// Attribute semantics read by the importer.
const (
	gltfAttributePosition  = "POSITION"
	gltfAttributeNormal    = "NORMAL"
	gltfAttributeTexCoord0 = "TEXCOORD_0"
	gltfAttributeTexCoord1 = "TEXCOORD_1"
	gltfAttributeJoints0   = "JOINTS_0"
	gltfAttributeWeights0  = "WEIGHTS_0"
)

// gltfAccessor describes a typed view into a buffer view.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type gltfAccessor struct {
	Name          string           `json:"name,omitempty"`
	BufferView    *int             `json:"bufferView,omitempty"`
	ByteOffset    int              `json:"byteOffset,omitempty"`
	ComponentType int              `json:"componentType"`
	Normalized    bool             `json:"normalized,omitempty"`
	Count         int              `json:"count"`
	Type          string           `json:"type"`
	Max           []float32        `json:"max,omitempty"`
	Min           []float32        `json:"min,omitempty"`
	Sparse        *json.RawMessage `json:"sparse,omitempty"`
}

// Component types.
const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126
)

// Accessor element types.
const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec2   = "VEC2"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat2   = "MAT2"
	gltfAccessorTypeMat3   = "MAT3"
	gltfAccessorTypeMat4   = "MAT4"
)

// gltfBufferView is a byte range of a buffer, optionally meshopt-compressed.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-bufferview
type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`

	Extensions gltfBufferViewExtensions `json:"extensions,omitempty"`
}

// gltfBufferViewExtensions are the buffer view extensions the parser decodes.
type gltfBufferViewExtensions struct {
	Meshopt *gltfMeshoptCompression `json:"EXT_meshopt_compression,omitempty"`
}

// gltfMeshoptCompression points at the compressed bytes of a buffer view.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Vendor/EXT_meshopt_compression
type gltfMeshoptCompression struct {
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride"`
	Count      int    `json:"count"`
	Mode       string `json:"mode"`
	Filter     string `json:"filter,omitempty"`
}

// gltfBuffer is a binary blob, either the GLB BIN chunk or a URI.
type gltfBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	Extensions gltfBufferExtensions `json:"extensions,omitempty"`

	// Data is populated during load.
	Data []byte `json:"-"`
}

// gltfBufferExtensions marks fallback buffers that only exist for loaders without meshopt support.
type gltfBufferExtensions struct {
	Meshopt *struct {
		Fallback bool `json:"fallback,omitempty"`
	} `json:"EXT_meshopt_compression,omitempty"`
}

// fallback reports whether the buffer may be left unloaded.
func (b *gltfBuffer) fallback() bool {
	return b.Extensions.Meshopt != nil && b.Extensions.Meshopt.Fallback
}

// --- Materials and Textures ---

// gltfMaterial is a metallic-roughness material.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material
type gltfMaterial struct {
	Name                 string                    `json:"name,omitempty"`
	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *gltfNormalTextureInfo    `json:"normalTexture,omitempty"`
	EmissiveTexture      *gltfTextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32               `json:"emissiveFactor,omitempty"`

	// AlphaMode is OPAQUE (default), MASK or BLEND.
	AlphaMode   string   `json:"alphaMode,omitempty"`
	AlphaCutoff *float32 `json:"alphaCutoff,omitempty"`
	DoubleSided bool     `json:"doubleSided,omitempty"`

	Extensions gltfMaterialExtensions `json:"extensions,omitempty"`
}

// gltfMaterialExtensions are the material extensions that affect shading settings.
type gltfMaterialExtensions struct {
	Unlit            *struct{}             `json:"KHR_materials_unlit,omitempty"`
	EmissiveStrength *gltfEmissiveStrength `json:"KHR_materials_emissive_strength,omitempty"`
}

// gltfEmissiveStrength is the KHR_materials_emissive_strength extension.
type gltfEmissiveStrength struct {
	EmissiveStrength *float32 `json:"emissiveStrength,omitempty"`
}

// gltfPbrMetallicRoughness is the metallic-roughness block of a material.
type gltfPbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32      `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *gltfTextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32         `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32         `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *gltfTextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// gltfTextureInfo references a texture and optionally transforms its UVs.
type gltfTextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`

	Extensions gltfTextureInfoExtensions `json:"extensions,omitempty"`
}

// gltfTextureInfoExtensions holds KHR_texture_transform.
type gltfTextureInfoExtensions struct {
	TextureTransform *gltfTextureTransform `json:"KHR_texture_transform,omitempty"`
}

// gltfTextureTransform is the KHR_texture_transform extension.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Khronos/KHR_texture_transform
type gltfTextureTransform struct {
	Offset   *[2]float32 `json:"offset,omitempty"`
	Rotation float32     `json:"rotation,omitempty"`
	Scale    *[2]float32 `json:"scale,omitempty"`
}

// gltfNormalTextureInfo references a normal map.
type gltfNormalTextureInfo struct {
	gltfTextureInfo

	Scale *float32 `json:"scale,omitempty"`
}

// gltfTexture pairs an image with a sampler.
type gltfTexture struct {
	Sampler *int `json:"sampler,omitempty"`
	Source  *int `json:"source,omitempty"`
}

// gltfImage is an encoded image, embedded in a buffer view or referenced by URI.
type gltfImage struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// gltfSampler holds texture filtering and wrapping parameters.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
type gltfSampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

// Sampler filter constants.
const (
	gltfFilterNearest              = 9728
	gltfFilterLinear               = 9729
	gltfFilterNearestMipmapNearest = 9984
	gltfFilterLinearMipmapNearest  = 9985
	gltfFilterNearestMipmapLinear  = 9986
	gltfFilterLinearMipmapLinear   = 9987
)

// Sampler wrap constants.
const (
	gltfWrapClampToEdge    = 33071
	gltfWrapMirroredRepeat = 33648
	gltfWrapRepeat         = 10497
)

// --- Skins and Animations ---

// gltfSkin binds a mesh to a set of joint nodes.
type gltfSkin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"`
	Skeleton            *int   `json:"skeleton,omitempty"`
	Joints              []int  `json:"joints"`
}

// gltfAnimation is a set of channels driven by samplers.
type gltfAnimation struct {
	Name     string            `json:"name,omitempty"`
	Channels []gltfAnimChannel `json:"channels"`
	Samplers []gltfAnimSampler `json:"samplers"`
}

// gltfAnimChannel connects a sampler to a node property.
type gltfAnimChannel struct {
	Sampler int            `json:"sampler"`
	Target  gltfAnimTarget `json:"target"`
}

// gltfAnimTarget is the animated node and property path.
type gltfAnimTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

// gltfAnimSampler holds keyframe times and values.
type gltfAnimSampler struct {
	Input  int `json:"input"`
	Output int `json:"output"`

	// Interpolation is LINEAR (default), STEP or CUBICSPLINE.
	Interpolation string `json:"interpolation,omitempty"`
}

// Animation target paths.
const (
	gltfAnimPathTranslation = "translation"
	gltfAnimPathRotation    = "rotation"
	gltfAnimPathScale       = "scale"
	gltfAnimPathWeights     = "weights"
)

// --- GLB Binary Format ---

// gltfGLBHeader is the 12 byte GLB header.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// gltfGLBChunkHeader precedes every GLB chunk.
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF"
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)
