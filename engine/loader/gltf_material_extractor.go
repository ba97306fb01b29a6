package loader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
	logger *zap.Logger

	materials  []model.Material
	transforms []common.TextureTransform
	variants   map[materialVariant]int
}

// materialVariant identifies a material derived from a glTF material (or the default material,
// source -1) for primitives that force unlit shading.
type materialVariant struct {
	source int
	unlit  bool
}

// gltfMaterialExtractor converts glTF materials into model materials and hands out the
// model material index each primitive draws with.
type gltfMaterialExtractor interface {
	// ExtractAllMaterials converts every material of the document, in glTF order.
	//
	// Returns:
	//   - error: an error if a texture or sampler reference is invalid
	ExtractAllMaterials() error

	// Resolve returns the model material used by a primitive.
	// Primitives without normals shade unlit, which may add an unlit copy of their material.
	//
	// Parameters:
	//   - index: the primitive's glTF material index, nil for the default material
	//   - hasNormals: whether the primitive has a NORMAL attribute
	//
	// Returns:
	//   - int: index into Materials
	Resolve(index *int, hasNormals bool) int

	// TextureTransform returns the UV transform baked into primitives drawn with material i.
	TextureTransform(i int) common.TextureTransform

	// Materials returns the converted materials followed by any derived variants.
	Materials() []model.Material
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a material extractor reading from parser.
//
// Parameters:
//   - parser: a parser holding a loaded document
//   - logger: receives warnings
//
// Returns:
//   - gltfMaterialExtractor: the extractor
func newGLTFMaterialExtractor(parser gltfParser, logger *zap.Logger) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		parser:   parser,
		logger:   logger,
		variants: make(map[materialVariant]int),
	}
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() error {
	doc := e.parser.Document()
	e.materials = make([]model.Material, 0, len(doc.Materials))
	e.transforms = make([]common.TextureTransform, 0, len(doc.Materials))

	for i := range doc.Materials {
		m, transform, err := e.extractMaterial(i)
		if err != nil {
			return fmt.Errorf("material %d: %w", i, err)
		}
		e.materials = append(e.materials, m)
		e.transforms = append(e.transforms, transform)
	}
	return nil
}

func (e *gltfMaterialExtractorImpl) Resolve(index *int, hasNormals bool) int {
	source := -1
	if index != nil && *index >= 0 && *index < len(e.materials) {
		source = *index
	} else if index != nil {
		e.logger.Warn("material index is invalid, using the default material", zap.Int("material", *index))
	}

	if source >= 0 && (hasNormals || e.materials[source].Settings.Unlit) {
		return source
	}

	key := materialVariant{source: source, unlit: !hasNormals}
	if i, ok := e.variants[key]; ok {
		return i
	}

	var (
		m         model.Material
		transform common.TextureTransform
	)
	if source >= 0 {
		m = e.materials[source]
		m.Textures = append([]common.TextureSource(nil), m.Textures...)
		transform = e.transforms[source]
	} else {
		settings := common.DefaultMaterialSettings()
		if !hasNormals {
			settings = common.DefaultUnlitMaterialSettings()
		}
		m = model.Material{Index: -1, Name: "default", Settings: settings}
		transform = common.DefaultTextureTransform()
	}
	m.Settings.Unlit = m.Settings.Unlit || !hasNormals

	e.materials = append(e.materials, m)
	e.transforms = append(e.transforms, transform)
	e.variants[key] = len(e.materials) - 1
	return len(e.materials) - 1
}

func (e *gltfMaterialExtractorImpl) TextureTransform(i int) common.TextureTransform {
	if i < 0 || i >= len(e.transforms) {
		return common.DefaultTextureTransform()
	}
	return e.transforms[i]
}

func (e *gltfMaterialExtractorImpl) Materials() []model.Material {
	return e.materials
}

// extractMaterial converts one glTF material.
func (e *gltfMaterialExtractorImpl) extractMaterial(index int) (model.Material, common.TextureTransform, error) {
	gm := &e.parser.Document().Materials[index]

	settings := common.DefaultMaterialSettings()
	m := model.Material{
		Index:       index,
		Name:        gm.Name,
		AlphaMode:   model.ParseAlphaMode(gm.AlphaMode),
		DoubleSided: gm.DoubleSided,
	}

	type slotInfo struct {
		slot common.TextureSlot
		info *gltfTextureInfo
	}
	var slots []slotInfo

	if pbr := gm.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			settings.BaseColorFactor = mgl32.Vec4(*pbr.BaseColorFactor)
		}
		if pbr.MetallicFactor != nil {
			settings.MetallicFactor = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			settings.RoughnessFactor = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			slots = append(slots, slotInfo{common.TextureSlotAlbedo, pbr.BaseColorTexture})
		}
		if pbr.MetallicRoughnessTexture != nil {
			slots = append(slots, slotInfo{common.TextureSlotMetallicRoughness, pbr.MetallicRoughnessTexture})
		}
	}
	if gm.NormalTexture != nil {
		slots = append(slots, slotInfo{common.TextureSlotNormal, &gm.NormalTexture.gltfTextureInfo})
		if gm.NormalTexture.Scale != nil {
			settings.NormalMapScale = *gm.NormalTexture.Scale
		}
	}
	if gm.EmissiveTexture != nil {
		slots = append(slots, slotInfo{common.TextureSlotEmissive, gm.EmissiveTexture})
	}

	if gm.EmissiveFactor != nil {
		settings.EmissiveFactor = mgl32.Vec3(*gm.EmissiveFactor)
	}
	if es := gm.Extensions.EmissiveStrength; es != nil && es.EmissiveStrength != nil {
		settings.EmissiveFactor = settings.EmissiveFactor.Mul(*es.EmissiveStrength)
	}
	if gm.AlphaCutoff != nil {
		settings.AlphaCutoff = *gm.AlphaCutoff
	}
	settings.Unlit = gm.Extensions.Unlit != nil

	transform := common.DefaultTextureTransform()
	transformSet := false
	for _, s := range slots {
		if !transformSet && s.info.Extensions.TextureTransform != nil {
			transform = gltfTextureTransformOf(s.info.Extensions.TextureTransform)
			transformSet = true
		}

		src, ok, err := e.loadTexture(s.info.Index, s.slot)
		if err != nil {
			return model.Material{}, transform, fmt.Errorf("%s texture: %w", s.slot, err)
		}
		if ok {
			m.Textures = append(m.Textures, src)
		}
	}
	settings.TextureTransform = transform
	m.Settings = settings

	return m, transform, nil
}

// gltfTextureTransformOf fills KHR_texture_transform defaults.
func gltfTextureTransformOf(t *gltfTextureTransform) common.TextureTransform {
	out := common.DefaultTextureTransform()
	if t.Offset != nil {
		out.Offset = mgl32.Vec2(*t.Offset)
	}
	if t.Scale != nil {
		out.Scale = mgl32.Vec2(*t.Scale)
	}
	out.Rotation = t.Rotation
	return out
}

// loadTexture describes where the encoded image of a texture lives. Embedded images carry
// their bytes; external images carry the URI resolved against the document URL.
func (e *gltfMaterialExtractorImpl) loadTexture(textureIndex int, slot common.TextureSlot) (common.TextureSource, bool, error) {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return common.TextureSource{}, false, fmt.Errorf("texture %d: %w", textureIndex, errIndexOutOfRange)
	}

	tex := &doc.Textures[textureIndex]
	if tex.Source == nil {
		return common.TextureSource{}, false, nil
	}

	src := common.TextureSource{Slot: slot}
	if tex.Sampler != nil {
		if *tex.Sampler < 0 || *tex.Sampler >= len(doc.Samplers) {
			return src, false, fmt.Errorf("sampler %d: %w", *tex.Sampler, errIndexOutOfRange)
		}
		src.SamplerData = gltfSamplerToStagingData(&doc.Samplers[*tex.Sampler])
	}

	imageIndex := *tex.Source
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return src, false, fmt.Errorf("image %d: %w", imageIndex, errIndexOutOfRange)
	}
	img := &doc.Images[imageIndex]
	src.MimeType = img.MimeType

	switch {
	case img.BufferView != nil:
		data, _, err := e.parser.BufferView(*img.BufferView)
		if err != nil {
			return src, false, fmt.Errorf("image %d: %w", imageIndex, err)
		}
		src.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, mimeType, err := gltfDecodeDataURI(img.URI)
		if err != nil {
			return src, false, fmt.Errorf("image %d: %w", imageIndex, err)
		}
		src.Data = data
		src.MimeType = common.Coalesce(src.MimeType, mimeType)
	case img.URI != "":
		uri, err := resolveURI(e.parser.URL(), img.URI)
		if err != nil {
			return src, false, fmt.Errorf("image %d: %w", imageIndex, err)
		}
		src.URI = uri
		return src, true, nil
	default:
		return src, false, nil
	}

	if src.MimeType == "" {
		src.MimeType = sniffImageMime(src.Data)
	}
	return src, true, nil
}

// sniffImageMime detects the format of encoded image bytes, or returns "" when unknown.
func sniffImageMime(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// gltfSamplerToStagingData converts a glTF sampler definition into engine-ready SamplerStagingData.
// Any unset fields in the glTF sampler fall back to the glTF spec defaults (linear filtering, repeat wrapping).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - *common.SamplerStagingData: the converted sampler staging data
func gltfSamplerToStagingData(s *gltfSampler) *common.SamplerStagingData {
	result := &common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeRepeat,
		AddressModeV: wgpu.AddressModeRepeat,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
	}

	if s.MagFilter != nil && *s.MagFilter == gltfFilterNearest {
		result.MagFilter = wgpu.FilterModeNearest
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
			result.MinFilter = wgpu.FilterModeNearest
		}
		switch *s.MinFilter {
		case gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest, gltfFilterNearest, gltfFilterLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = gltfWrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = gltfWrapToAddressMode(*s.WrapT)
	}

	return result
}

// gltfWrapToAddressMode converts a glTF wrap mode constant to a wgpu AddressMode.
func gltfWrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
