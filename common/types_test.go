package common

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestMaterialSettingsDefaults(t *testing.T) {
	lit := DefaultMaterialSettings()
	unlit := DefaultUnlitMaterialSettings()

	assert.False(t, lit.Unlit)
	assert.Equal(t, float32(1), lit.MetallicFactor)
	assert.True(t, unlit.Unlit)
	assert.Zero(t, unlit.MetallicFactor)
	assert.Equal(t, lit.BaseColorFactor, unlit.BaseColorFactor)
}

func TestTextureSlot(t *testing.T) {
	assert.Equal(t, "metallic_roughness", TextureSlotMetallicRoughness.String())
	assert.Equal(t, "unknown", TextureSlot(42).String())
	assert.True(t, TextureSlotAlbedo.SRGB())
	assert.True(t, TextureSlotEmissive.SRGB())
	assert.False(t, TextureSlotNormal.SRGB())
}

func TestSamplerStagingDataWithDefaults(t *testing.T) {
	s := SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
	}.WithDefaults()

	assert.Equal(t, wgpu.AddressModeClampToEdge, s.AddressModeU)
	assert.Equal(t, wgpu.AddressModeRepeat, s.AddressModeV)
	assert.Equal(t, wgpu.FilterModeLinear, s.MagFilter)
	assert.Equal(t, wgpu.FilterModeLinear, s.MinFilter)
	assert.Equal(t, wgpu.MipmapFilterModeLinear, s.MipmapFilter)
}
