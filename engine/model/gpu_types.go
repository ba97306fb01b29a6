package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUVertex is the GPU-aligned representation of a single static mesh vertex.
// Size: 32 bytes (std430 aligned, no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in primitive space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 32)
	putFloats(buf[0:12], g.Position[:])
	putFloats(buf[12:24], g.Normal[:])
	putFloats(buf[24:32], g.TexCoord[:])
	return buf
}

// GPUSkinnedVertex extends GPUVertex with per-vertex joint skinning data.
// Size: 64 bytes (32 base vertex + 32 skinning data, std430 aligned).
type GPUSkinnedVertex struct {
	GPUVertex               // offset  0: base vertex data (32 bytes)
	JointIndices [4]uint32  // offset 32: indices of up to 4 influencing joints (16 bytes)
	JointWeights [4]float32 // offset 48: blend weights for each joint (16 bytes)
}

// Size returns the size of the GPUSkinnedVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUSkinnedVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSkinnedVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUSkinnedVertex) Marshal() []byte {
	buf := make([]byte, 64)
	copy(buf[0:32], g.GPUVertex.Marshal())
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[32+i*4:36+i*4], g.JointIndices[i])
	}
	putFloats(buf[48:64], g.JointWeights[:])
	return buf
}

// GPUInstance is the per-instance record consumed by the draw shaders.
// Size: 48 bytes (std430 aligned, 4 bytes of trailing padding).
type GPUInstance struct {
	Translation   [3]float32 // offset  0: world translation (12 bytes)
	Scale         float32    // offset 12: uniform scale (4 bytes)
	Rotation      [4]float32 // offset 16: rotation quaternion xyzw (16 bytes)
	JointsOffset  uint32     // offset 32: first joint transform of this instance (4 bytes)
	MaterialIndex uint32     // offset 36: material of the selected LOD (4 bytes)
	IsLightmapped uint32     // offset 40: 1 when the selected LOD samples a lightmap (4 bytes)
	_             uint32     // offset 44: padding
}

// NewGPUInstance packs a world transform and draw parameters into a GPUInstance.
//
// Parameters:
//   - transform: the instance's world similarity
//   - jointsOffset: offset of the instance's joints in the joint buffer, 0 for static models
//   - materialIndex: material of the LOD being drawn
//   - lightmapped: whether the LOD samples a lightmap
//
// Returns:
//   - GPUInstance: the packed record
func NewGPUInstance(transform common.Similarity, jointsOffset uint32, materialIndex int, lightmapped bool) GPUInstance {
	inst := GPUInstance{
		Translation:   transform.Translation,
		Scale:         transform.Scale,
		Rotation:      quatXYZW(transform.Rotation),
		JointsOffset:  jointsOffset,
		MaterialIndex: uint32(materialIndex),
	}
	if lightmapped {
		inst.IsLightmapped = 1
	}
	return inst
}

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, 48)
	putFloats(buf[0:12], g.Translation[:])
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Scale))
	putFloats(buf[16:32], g.Rotation[:])
	binary.LittleEndian.PutUint32(buf[32:36], g.JointsOffset)
	binary.LittleEndian.PutUint32(buf[36:40], g.MaterialIndex)
	binary.LittleEndian.PutUint32(buf[40:44], g.IsLightmapped)
	return buf
}

// MaxJointTransforms is how many JointTransforms fit in one 64 KiB joint buffer.
const MaxJointTransforms = 65536 / 32

// JointTransform is the GPU form of a joint's skinning similarity.
// Size: 32 bytes (std430 aligned, no padding required).
type JointTransform struct {
	TranslationAndScale [4]float32 // offset  0: xyz translation, w uniform scale (16 bytes)
	Rotation            [4]float32 // offset 16: rotation quaternion xyzw (16 bytes)
}

// NewJointTransform packs a skinning similarity.
func NewJointTransform(s common.Similarity) JointTransform {
	return JointTransform{
		TranslationAndScale: [4]float32{s.Translation[0], s.Translation[1], s.Translation[2], s.Scale},
		Rotation:            quatXYZW(s.Rotation),
	}
}

// Size returns the size of the JointTransform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *JointTransform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the JointTransform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *JointTransform) Marshal() []byte {
	buf := make([]byte, 32)
	putFloats(buf[0:16], g.TranslationAndScale[:])
	putFloats(buf[16:32], g.Rotation[:])
	return buf
}

func quatXYZW(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

func putFloats(dst []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:(i+1)*4], math.Float32bits(v))
	}
}
