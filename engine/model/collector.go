package model

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrLodPrimitiveCountMismatch is returned when an MSFT_lod mesh has a different primitive count than LOD 0.
var ErrLodPrimitiveCountMismatch = errors.New("model: lod mesh primitive count differs from lod 0")

// Stager is the constraint satisfied by *StagingBuffers and *AnimatedStagingBuffers.
type Stager[B any] interface {
	*B
	Collect(other *B) common.Range
	PositionData() []mgl32.Vec3
}

// StagingLod is one level of detail of a primitive awaiting collection.
type StagingLod[B any] struct {
	Buffers       B
	MaterialIndex int
	Lightmapped   bool
}

// StagingPrimitive is a primitive with all its LODs decoded but not yet collected.
type StagingPrimitive[B any] struct {
	Lods            []StagingLod[B]
	ScreenCoverages []float32
	Transform       common.Similarity
}

// MaterialGroups keeps the staging primitives of one bucket grouped by material, in first-seen order.
type MaterialGroups[B any] struct {
	order  []MaterialKey
	groups map[MaterialKey][]StagingPrimitive[B]
}

func (g *MaterialGroups[B]) add(key MaterialKey, prim StagingPrimitive[B]) {
	if g.groups == nil {
		g.groups = make(map[MaterialKey][]StagingPrimitive[B])
	}
	if _, ok := g.groups[key]; !ok {
		g.order = append(g.order, key)
	}
	g.groups[key] = append(g.groups[key], prim)
}

// Len returns the number of staged primitives across all materials.
func (g *MaterialGroups[B]) Len() int {
	n := 0
	for _, prims := range g.groups {
		n += len(prims)
	}
	return n
}

// Buckets sorts staging primitives by alpha mode and face sidedness.
type Buckets[B any] struct {
	modes BlendMode[FaceSides[MaterialGroups[B]]]
}

// NewBuckets creates an empty set of buckets.
func NewBuckets[B any]() *Buckets[B] {
	return &Buckets[B]{}
}

// Add places a staging primitive into the bucket of its LOD 0 material.
//
// Parameters:
//   - mode: alpha mode of the LOD 0 material
//   - doubleSided: sidedness of the LOD 0 material
//   - key: LOD 0 material key used for grouping
//   - prim: the primitive to stage
func (b *Buckets[B]) Add(mode AlphaMode, doubleSided bool, key MaterialKey, prim StagingPrimitive[B]) {
	b.modes.Get(mode).Get(doubleSided).add(key, prim)
}

// Bucket returns the material groups of one bucket.
func (b *Buckets[B]) Bucket(mode AlphaMode, doubleSided bool) *MaterialGroups[B] {
	return b.modes.Get(mode).Get(doubleSided)
}

var (
	bucketModes = [...]AlphaMode{AlphaModeOpaque, AlphaModeClipped, AlphaModeBlended}
	bucketSides = [...]bool{false, true}
)

// CollectAll concatenates every staged primitive into one model-wide staging buffer.
// Buckets are walked in fixed order (opaque, clipped, blended; single then double sided)
// so each bucket's primitives form one contiguous span. Consecutive single-LOD primitives
// sharing a material and transform are merged into one primitive.
//
// Parameters:
//   - b: the filled buckets
//
// Returns:
//   - PrimitiveRanges: span of the returned primitives per bucket
//   - []Primitive: primitives with index ranges local to the returned buffer
//   - B: the model-wide staging buffer
func CollectAll[B any, P Stager[B]](b *Buckets[B]) (PrimitiveRanges, []Primitive, B) {
	var (
		staging    B
		ranges     PrimitiveRanges
		primitives []Primitive
		lod0       [][][]mgl32.Vec3
	)

	for _, mode := range bucketModes {
		for _, double := range bucketSides {
			groups := b.Bucket(mode, double)
			start := uint32(len(primitives))

			for _, key := range groups.order {
				mergeTarget := -1
				for _, sp := range groups.groups[key] {
					if len(sp.Lods) == 0 {
						continue
					}
					lod := &sp.Lods[0]
					if mergeTarget >= 0 && mergeable(&primitives[mergeTarget], &sp) {
						r := P(&staging).Collect(&lod.Buffers)
						primitives[mergeTarget].Lods[0].IndexRange.End = r.End
						lod0[mergeTarget] = append(lod0[mergeTarget], P(&lod.Buffers).PositionData())
						continue
					}

					prim := Primitive{
						Lods:            make([]PrimitiveLod, len(sp.Lods)),
						ScreenCoverages: sp.ScreenCoverages,
						Transform:       sp.Transform,
					}
					for i := range sp.Lods {
						prim.Lods[i] = PrimitiveLod{
							IndexRange:    P(&staging).Collect(&sp.Lods[i].Buffers),
							MaterialIndex: sp.Lods[i].MaterialIndex,
							Lightmapped:   sp.Lods[i].Lightmapped,
						}
					}
					primitives = append(primitives, prim)
					lod0 = append(lod0, [][]mgl32.Vec3{P(&lod.Buffers).PositionData()})
					mergeTarget = len(primitives) - 1
				}
			}

			*ranges.Get(mode).Get(double) = common.Range{Start: start, End: uint32(len(primitives))}
		}
	}

	for i := range primitives {
		primitives[i].BoundingBox, primitives[i].BoundingSphere = ComputeBounds(lod0[i]...)
	}
	return ranges, primitives, staging
}

func mergeable[B any](dst *Primitive, src *StagingPrimitive[B]) bool {
	return len(dst.Lods) == 1 &&
		len(src.Lods) == 1 &&
		len(src.ScreenCoverages) == 0 &&
		dst.Transform == src.Transform &&
		dst.Lods[0].MaterialIndex == src.Lods[0].MaterialIndex &&
		dst.Lods[0].Lightmapped == src.Lods[0].Lightmapped
}

// ComputeBounds returns the axis-aligned box of the positions and a sphere centred on
// the box that encloses every position.
//
// Parameters:
//   - sets: one or more position slices treated as a single cloud
//
// Returns:
//   - BoundingBox: the enclosing box, zero when there are no positions
//   - BoundingSphere: the enclosing sphere, zero when there are no positions
func ComputeBounds(sets ...[]mgl32.Vec3) (BoundingBox, BoundingSphere) {
	var box BoundingBox
	first := true
	for _, set := range sets {
		for _, p := range set {
			if first {
				box.Min, box.Max = p, p
				first = false
				continue
			}
			for k := 0; k < 3; k++ {
				box.Min[k] = math32.Min(box.Min[k], p[k])
				box.Max[k] = math32.Max(box.Max[k], p[k])
			}
		}
	}
	if first {
		return BoundingBox{}, BoundingSphere{}
	}

	center := box.Center()
	var radiusSq float32
	for _, set := range sets {
		for _, p := range set {
			radiusSq = math32.Max(radiusSq, p.Sub(center).LenSqr())
		}
	}
	return box, BoundingSphere{Center: center, Radius: math32.Sqrt(radiusSq)}
}

// RebasePrimitives shifts every LOD index range by indexStart, turning buffer-local
// ranges into absolute index buffer ranges.
func RebasePrimitives(primitives []Primitive, indexStart uint32) {
	for i := range primitives {
		for j := range primitives[i].Lods {
			primitives[i].Lods[j].IndexRange = primitives[i].Lods[j].IndexRange.Offset(indexStart)
		}
	}
}
