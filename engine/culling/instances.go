package culling

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// Instances collects one model's visible instances for a frame, grouped by primitive and LOD.
type Instances struct {
	primitives [][][]model.GPUInstance
}

// ReserveSpace makes room for every primitive and LOD of a model. Existing lists are kept.
func (in *Instances) ReserveSpace(primitives []model.Primitive) {
	for len(in.primitives) < len(primitives) {
		in.primitives = append(in.primitives, nil)
	}
	for i := range primitives {
		for len(in.primitives[i]) < primitives[i].LodCount() {
			in.primitives[i] = append(in.primitives[i], nil)
		}
	}
}

// Insert appends an instance to the list of a primitive's LOD. ReserveSpace must have been called.
func (in *Instances) Insert(primitive, lod int, instance model.GPUInstance) {
	in.primitives[primitive][lod] = append(in.primitives[primitive][lod], instance)
}

// Get returns the instances collected for a primitive's LOD.
func (in *Instances) Get(primitive, lod int) []model.GPUInstance {
	if primitive >= len(in.primitives) || lod >= len(in.primitives[primitive]) {
		return nil
	}
	return in.primitives[primitive][lod]
}

// Len returns the total number of instances collected.
func (in *Instances) Len() int {
	n := 0
	for _, lods := range in.primitives {
		for _, list := range lods {
			n += len(list)
		}
	}
	return n
}

// Each calls fn for every primitive LOD list in order, including empty ones.
func (in *Instances) Each(fn func(primitive, lod int, instances []model.GPUInstance) error) error {
	for p, lods := range in.primitives {
		for l, list := range lods {
			if err := fn(p, l, list); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clear empties every list while keeping its storage for the next frame.
func (in *Instances) Clear() {
	for _, lods := range in.primitives {
		for l := range lods {
			lods[l] = lods[l][:0]
		}
	}
}

// InstanceRanges records where each primitive LOD's instances landed in the instance buffer.
type InstanceRanges struct {
	ranges [][]common.Range
}

// Push records the uploaded range of a primitive's LOD.
func (r *InstanceRanges) Push(primitive, lod int, rng common.Range) {
	for len(r.ranges) <= primitive {
		r.ranges = append(r.ranges, nil)
	}
	for len(r.ranges[primitive]) <= lod {
		r.ranges[primitive] = append(r.ranges[primitive], common.Range{})
	}
	r.ranges[primitive][lod] = rng
}

// Get returns the uploaded range of a primitive's LOD, empty when nothing was uploaded.
func (r *InstanceRanges) Get(primitive, lod int) common.Range {
	if primitive >= len(r.ranges) || lod >= len(r.ranges[primitive]) {
		return common.Range{}
	}
	return r.ranges[primitive][lod]
}

// Clear forgets every range.
func (r *InstanceRanges) Clear() {
	for p := range r.ranges {
		r.ranges[p] = r.ranges[p][:0]
	}
}

// PushModelInstances culls and LOD-selects every primitive of a static model for one instance.
//
// Parameters:
//   - instances: the model's instance lists
//   - primitives: the model's primitives
//   - transform: the instance's world transform
//   - params: the frame's culling parameters
//
// Returns:
//   - pushed: how many primitive instances were inserted
//   - culled: how many primitive instances were rejected
func PushModelInstances(instances *Instances, primitives []model.Primitive, transform common.Similarity, params *Params) (pushed, culled int) {
	instances.ReserveSpace(primitives)
	fovY := common.Coalesce(params.FovY, CoverageFovY)

	for id := range primitives {
		prim := &primitives[id]
		world := transform.Mul(prim.Transform)

		coverage := ScreenCoverage(world, prim.BoundingSphere, params.CameraPosition, params.Width, params.Height, fovY)
		lod := SelectLod(prim.ScreenCoverages, coverage, prim.LodCount())

		if !params.Visible(prim, world) {
			culled++
			continue
		}

		l := prim.Lods[lod]
		instances.Insert(id, lod, model.NewGPUInstance(world, 0, l.MaterialIndex, l.Lightmapped))
		pushed++
	}
	return pushed, culled
}

// PushAnimatedInstances inserts every primitive of an animated model at LOD 0 without culling.
//
// Parameters:
//   - instances: the model's instance lists
//   - primitives: the model's primitives
//   - transform: the instance's world transform
//   - jointsOffset: the first joint transform of the instance
//
// Returns:
//   - int: how many primitive instances were inserted
func PushAnimatedInstances(instances *Instances, primitives []model.Primitive, transform common.Similarity, jointsOffset uint32) int {
	instances.ReserveSpace(primitives)
	for id := range primitives {
		prim := &primitives[id]
		instances.Insert(id, 0, model.NewGPUInstance(transform.Mul(prim.Transform), jointsOffset, prim.Lods[0].MaterialIndex, false))
	}
	return len(primitives)
}
