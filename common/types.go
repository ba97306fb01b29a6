// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// TextureTransform is the KHR_texture_transform of a material's first textured slot.
// It is baked into vertex UVs during import.
type TextureTransform struct {
	Offset   mgl32.Vec2
	Scale    mgl32.Vec2
	Rotation float32
}

// DefaultTextureTransform returns the transform that leaves UVs untouched.
func DefaultTextureTransform() TextureTransform {
	return TextureTransform{Scale: mgl32.Vec2{1, 1}}
}

// Apply transforms a UV coordinate: offset + rotate(rotation) * (scale * uv).
func (t TextureTransform) Apply(uv mgl32.Vec2) mgl32.Vec2 {
	scaled := mgl32.Vec2{t.Scale[0] * uv[0], t.Scale[1] * uv[1]}
	sin, cos := math32.Sincos(t.Rotation)
	return mgl32.Vec2{
		t.Offset[0] + cos*scaled[0] - sin*scaled[1],
		t.Offset[1] + sin*scaled[0] + cos*scaled[1],
	}
}

// MaterialSettings holds the scalar material parameters uploaded alongside a material's textures.
type MaterialSettings struct {
	// BaseColorFactor is the albedo multiplier (RGBA).
	BaseColorFactor mgl32.Vec4

	// EmissiveFactor is the emissive colour already multiplied by KHR_materials_emissive_strength.
	EmissiveFactor mgl32.Vec3

	// MetallicFactor (0.0 = dielectric, 1.0 = metal).
	MetallicFactor float32

	// RoughnessFactor (0.0 = smooth, 1.0 = rough).
	RoughnessFactor float32

	// NormalMapScale scales sampled normal map vectors.
	NormalMapScale float32

	// AlphaCutoff is the threshold used by alpha-clipped materials.
	AlphaCutoff float32

	// Unlit is set by KHR_materials_unlit or when the primitive has no normals.
	Unlit bool

	// TextureTransform is applied to UVs at import time and kept for reference.
	TextureTransform TextureTransform
}

// DefaultMaterialSettings returns the settings used for primitives without a material.
func DefaultMaterialSettings() MaterialSettings {
	return MaterialSettings{
		BaseColorFactor:  mgl32.Vec4{1, 1, 1, 1},
		MetallicFactor:   1,
		RoughnessFactor:  1,
		NormalMapScale:   1,
		AlphaCutoff:      0.5,
		TextureTransform: DefaultTextureTransform(),
	}
}

// DefaultUnlitMaterialSettings returns white, non-metallic, unlit settings.
func DefaultUnlitMaterialSettings() MaterialSettings {
	s := DefaultMaterialSettings()
	s.MetallicFactor = 0
	s.Unlit = true
	return s
}

// TextureSlot identifies which material texture a source belongs to.
type TextureSlot int

const (
	TextureSlotAlbedo TextureSlot = iota
	TextureSlotMetallicRoughness
	TextureSlotNormal
	TextureSlotEmissive
)

// String returns the slot name used in logs.
func (s TextureSlot) String() string {
	switch s {
	case TextureSlotAlbedo:
		return "albedo"
	case TextureSlotMetallicRoughness:
		return "metallic_roughness"
	case TextureSlotNormal:
		return "normal"
	case TextureSlotEmissive:
		return "emissive"
	default:
		return "unknown"
	}
}

// SRGB reports whether the slot holds colour data that should be sampled as sRGB.
func (s TextureSlot) SRGB() bool {
	return s == TextureSlotAlbedo || s == TextureSlotEmissive
}

// TextureSource describes where the encoded image for a texture slot lives.
// Exactly one of Data or URI is set. Decoding is left to the consumer.
type TextureSource struct {
	// Slot is the material slot the texture binds to.
	Slot TextureSlot

	// Data contains encoded image bytes taken from a buffer view or data URI.
	Data []byte

	// URI is the resolved location of an external image.
	URI string

	// MimeType indicates the image format (e.g., "image/png", "image/jpeg").
	MimeType string

	// SamplerData holds GPU sampler parameters extracted from the model file, or nil for defaults.
	SamplerData *SamplerStagingData
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
}

// WithDefaults fills unset fields with repeat addressing and linear filtering.
func (s SamplerStagingData) WithDefaults() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU: Coalesce(s.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV: Coalesce(s.AddressModeV, wgpu.AddressModeRepeat),
		MagFilter:    Coalesce(s.MagFilter, wgpu.FilterModeLinear),
		MinFilter:    Coalesce(s.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter: Coalesce(s.MipmapFilter, wgpu.MipmapFilterModeLinear),
	}
}
