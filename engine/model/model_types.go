package model

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// --- Classification Types ---

// AlphaMode is how a material's alpha channel is interpreted.
type AlphaMode int

const (
	AlphaModeOpaque AlphaMode = iota
	AlphaModeClipped
	AlphaModeBlended
)

// ParseAlphaMode maps a glTF alphaMode string to an AlphaMode. Unknown values are opaque.
func ParseAlphaMode(s string) AlphaMode {
	switch strings.ToUpper(s) {
	case "MASK":
		return AlphaModeClipped
	case "BLEND":
		return AlphaModeBlended
	default:
		return AlphaModeOpaque
	}
}

// String returns a short name for logs.
func (a AlphaMode) String() string {
	switch a {
	case AlphaModeClipped:
		return "alpha_clipped"
	case AlphaModeBlended:
		return "alpha_blended"
	default:
		return "opaque"
	}
}

// FaceSides holds one value for single-sided and one for double-sided geometry.
type FaceSides[T any] struct {
	Single T
	Double T
}

// Get returns a pointer to the value for the given sidedness.
func (f *FaceSides[T]) Get(doubleSided bool) *T {
	if doubleSided {
		return &f.Double
	}
	return &f.Single
}

// BlendMode holds one value per alpha mode.
type BlendMode[T any] struct {
	Opaque       T
	AlphaClipped T
	AlphaBlended T
}

// Get returns a pointer to the value for the given alpha mode.
func (b *BlendMode[T]) Get(mode AlphaMode) *T {
	switch mode {
	case AlphaModeClipped:
		return &b.AlphaClipped
	case AlphaModeBlended:
		return &b.AlphaBlended
	default:
		return &b.Opaque
	}
}

// PrimitiveRanges records, per bucket, the span of Model.Primitives belonging to it.
type PrimitiveRanges = BlendMode[FaceSides[common.Range]]

// --- Bounds ---

// BoundingBox is an axis-aligned box in a primitive's local space.
type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// BoundingSphere is a sphere in a primitive's local space.
type BoundingSphere struct {
	Center mgl32.Vec3
	Radius float32
}

// --- Primitive Types ---

// PrimitiveLod is one level of detail of a primitive.
type PrimitiveLod struct {
	// IndexRange is the span of the index buffer drawn for this LOD.
	IndexRange common.Range

	// MaterialIndex references Model.Materials.
	MaterialIndex int

	// Lightmapped is set when the LOD's geometry carries a second UV set for a baked lightmap.
	Lightmapped bool
}

// Primitive is a drawable unit of a model with one or more levels of detail.
type Primitive struct {
	// Lods are ordered from most to least detailed. There is always at least one.
	Lods []PrimitiveLod

	// ScreenCoverages are ascending LOD switch thresholds. Only the first len(Lods)-1 are used.
	ScreenCoverages []float32

	// BoundingBox and BoundingSphere are computed from LOD 0 positions.
	BoundingBox    BoundingBox
	BoundingSphere BoundingSphere

	// Transform places the primitive within the model. Identity for animated models.
	Transform common.Similarity
}

// LodCount returns the number of levels of detail.
func (p *Primitive) LodCount() int {
	return len(p.Lods)
}

// --- Material Types ---

// Material describes how a batch of primitives is shaded.
type Material struct {
	// Index is the glTF material index, or -1 for the default material.
	Index int

	// Name is the material identifier.
	Name string

	AlphaMode   AlphaMode
	DoubleSided bool

	// Settings are the scalar shading parameters.
	Settings common.MaterialSettings

	// Textures lists the encoded images bound to this material, one per populated slot.
	Textures []common.TextureSource
}

// MaterialKey identifies a material within a bucket. The zero value is the "no material" key.
type MaterialKey struct {
	Index int
	Valid bool
}

// MaterialKeyOf returns the key for an optional glTF material index.
func MaterialKeyOf(index *int) MaterialKey {
	if index == nil {
		return MaterialKey{}
	}
	return MaterialKey{Index: *index, Valid: true}
}
