package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// StagingBuffers holds decoded vertex streams on the CPU before upload.
// Indices are local to the buffers: index 0 is the first vertex of Positions.
type StagingBuffers struct {
	Indices   []uint32
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
}

// VertexCount returns the number of staged vertices.
func (s *StagingBuffers) VertexCount() int {
	return len(s.Positions)
}

// PositionData returns the staged positions.
func (s *StagingBuffers) PositionData() []mgl32.Vec3 {
	return s.Positions
}

// Extend appends one primitive's vertex streams, rebasing its indices by the current vertex count.
//
// Parameters:
//   - indices: primitive-local indices
//   - positions, normals, uvs: per-vertex streams of equal length
//
// Returns:
//   - common.Range: the span of Indices now holding the primitive's indices
func (s *StagingBuffers) Extend(indices []uint32, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2) common.Range {
	base := uint32(len(s.Positions))
	start := uint32(len(s.Indices))
	for _, idx := range indices {
		s.Indices = append(s.Indices, idx+base)
	}
	s.Positions = append(s.Positions, positions...)
	s.Normals = append(s.Normals, normals...)
	s.UVs = append(s.UVs, uvs...)
	return common.Range{Start: start, End: uint32(len(s.Indices))}
}

// Collect appends other into s and returns the index range other now occupies.
func (s *StagingBuffers) Collect(other *StagingBuffers) common.Range {
	return s.Extend(other.Indices, other.Positions, other.Normals, other.UVs)
}

// Vertices interleaves the streams into GPU vertex records.
func (s *StagingBuffers) Vertices() []GPUVertex {
	out := make([]GPUVertex, len(s.Positions))
	for i := range out {
		out[i].Position = s.Positions[i]
		if i < len(s.Normals) {
			out[i].Normal = s.Normals[i]
		}
		if i < len(s.UVs) {
			out[i].TexCoord = s.UVs[i]
		}
	}
	return out
}

// AnimatedStagingBuffers adds per-vertex joint influences to StagingBuffers.
type AnimatedStagingBuffers struct {
	StagingBuffers
	JointIndices [][4]uint32
	JointWeights []mgl32.Vec4
}

// Extend appends one skinned primitive's vertex streams.
//
// Parameters:
//   - indices: primitive-local indices
//   - positions, normals, uvs, joints, weights: per-vertex streams of equal length
//
// Returns:
//   - common.Range: the span of Indices now holding the primitive's indices
func (s *AnimatedStagingBuffers) Extend(indices []uint32, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2, joints [][4]uint32, weights []mgl32.Vec4) common.Range {
	r := s.StagingBuffers.Extend(indices, positions, normals, uvs)
	s.JointIndices = append(s.JointIndices, joints...)
	s.JointWeights = append(s.JointWeights, weights...)
	return r
}

// Collect appends other into s and returns the index range other now occupies.
func (s *AnimatedStagingBuffers) Collect(other *AnimatedStagingBuffers) common.Range {
	return s.Extend(other.Indices, other.Positions, other.Normals, other.UVs, other.JointIndices, other.JointWeights)
}

// Vertices interleaves the streams into skinned GPU vertex records.
func (s *AnimatedStagingBuffers) Vertices() []GPUSkinnedVertex {
	base := s.StagingBuffers.Vertices()
	out := make([]GPUSkinnedVertex, len(base))
	for i := range out {
		out[i].GPUVertex = base[i]
		if i < len(s.JointIndices) {
			out[i].JointIndices = s.JointIndices[i]
		}
		if i < len(s.JointWeights) {
			out[i].JointWeights = s.JointWeights[i]
		} else {
			out[i].JointWeights = [4]float32{1, 0, 0, 0}
		}
	}
	return out
}

// RebaseIndices shifts every index by base, turning buffer-local indices into absolute vertex indices.
func RebaseIndices(indices []uint32, base uint32) {
	for i := range indices {
		indices[i] += base
	}
}
