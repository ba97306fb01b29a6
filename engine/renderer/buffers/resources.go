package buffers

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// BackendFactory creates the storage for one buffer.
type BackendFactory func(label string, usage wgpu.BufferUsage, initialBytes uint64) (Backend, error)

// MemoryBackends is a BackendFactory producing host-memory backends.
func MemoryBackends(string, wgpu.BufferUsage, uint64) (Backend, error) {
	return NewMemoryBackend(), nil
}

// WGPUBackends returns a BackendFactory allocating GPU buffers on device.
func WGPUBackends(device *wgpu.Device, queue *wgpu.Queue) BackendFactory {
	return func(label string, usage wgpu.BufferUsage, initialBytes uint64) (Backend, error) {
		return NewWGPUBackend(device, queue, label, usage, initialBytes)
	}
}

// Capacities are the initial element counts of the shared buffers.
type Capacities struct {
	Vertices  int
	Indices   int
	Instances int
	Joints    int
}

// Resources is the set of shared buffers every loaded model and instance is written into.
type Resources struct {
	Vertices         *Buffer[model.GPUVertex]
	AnimatedVertices *Buffer[model.GPUSkinnedVertex]
	Indices          *Buffer[uint32]
	Instances        *Buffer[model.GPUInstance]
	Joints           *JointBuffers

	// Camera holds a single uniform record rewritten every frame.
	Camera *Buffer[camera.GPUCameraUniform]
}

// NewResources allocates the shared buffers.
//
// Parameters:
//   - factory: creates each buffer's backend
//   - caps: initial capacities in elements
//   - l: logger for buffer diagnostics, logger.Log when nil
//
// Returns:
//   - *Resources: the buffer set
//   - error: an error if any backend could not be created
func NewResources(factory BackendFactory, caps Capacities, l *zap.Logger) (*Resources, error) {
	if l == nil {
		l = logger.Log
	}
	vertices, err := factory("vertices", wgpu.BufferUsageVertex, uint64(caps.Vertices)*32)
	if err != nil {
		return nil, err
	}
	animated, err := factory("animated_vertices", wgpu.BufferUsageVertex, uint64(caps.Vertices)*64)
	if err != nil {
		return nil, err
	}
	indices, err := factory("indices", wgpu.BufferUsageIndex, uint64(caps.Indices)*4)
	if err != nil {
		return nil, err
	}
	instances, err := factory("instances", wgpu.BufferUsageStorage, uint64(caps.Instances)*48)
	if err != nil {
		return nil, err
	}
	cam, err := factory("camera", wgpu.BufferUsageUniform, 80)
	if err != nil {
		return nil, err
	}

	return &Resources{
		Vertices:         NewBuffer[model.GPUVertex]("vertices", 32, MarshalRecords[model.GPUVertex, *model.GPUVertex], WithBackend(vertices), WithLogger(l)),
		AnimatedVertices: NewBuffer[model.GPUSkinnedVertex]("animated_vertices", 64, MarshalRecords[model.GPUSkinnedVertex, *model.GPUSkinnedVertex], WithBackend(animated), WithLogger(l)),
		Indices:          NewBuffer[uint32]("indices", 4, EncodeUint32, WithBackend(indices), WithLogger(l)),
		Instances:        NewBuffer[model.GPUInstance]("instances", 48, MarshalRecords[model.GPUInstance, *model.GPUInstance], WithBackend(instances), WithLogger(l)),
		Joints:           NewJointBuffers(factory, uint32(caps.Joints), l),
		Camera:           NewBuffer[camera.GPUCameraUniform]("camera", 80, MarshalRecords[camera.GPUCameraUniform, *camera.GPUCameraUniform], WithBackend(cam), WithCapacity(1), WithLogger(l)),
	}, nil
}

// UploadStatic writes a static model's collected staging data. The vertices are inserted first,
// the indices are rebased by the vertex range start, and every primitive LOD range is rebased
// by the index range start. When the index insert fails the vertex range is rolled back unless
// a concurrent upload has already been placed after it; that range then stays allocated until
// the next Clear.
//
// Parameters:
//   - staging: the model-wide staging buffer from model.CollectAll
//   - primitives: the collected primitives, rebased in place
//
// Returns:
//   - common.Range: the vertex span
//   - common.Range: the index span
//   - error: an error if either insert fails
func (r *Resources) UploadStatic(staging *model.StagingBuffers, primitives []model.Primitive) (common.Range, common.Range, error) {
	vertexRange, err := r.Vertices.Insert(staging.Vertices())
	if err != nil {
		return common.Range{}, common.Range{}, fmt.Errorf("upload vertices: %w", err)
	}
	indexRange, err := r.uploadIndices(staging.Indices, vertexRange.Start, primitives)
	if err != nil {
		r.Vertices.Rollback(vertexRange)
		return common.Range{}, common.Range{}, err
	}
	return vertexRange, indexRange, nil
}

// UploadAnimated writes an animated model's collected staging data. See UploadStatic.
//
// Parameters:
//   - staging: the model-wide staging buffer from model.CollectAll
//   - primitives: the collected primitives, rebased in place
//
// Returns:
//   - common.Range: the skinned vertex span
//   - common.Range: the index span
//   - error: an error if either insert fails
func (r *Resources) UploadAnimated(staging *model.AnimatedStagingBuffers, primitives []model.Primitive) (common.Range, common.Range, error) {
	vertexRange, err := r.AnimatedVertices.Insert(staging.Vertices())
	if err != nil {
		return common.Range{}, common.Range{}, fmt.Errorf("upload animated vertices: %w", err)
	}
	indexRange, err := r.uploadIndices(staging.Indices, vertexRange.Start, primitives)
	if err != nil {
		r.AnimatedVertices.Rollback(vertexRange)
		return common.Range{}, common.Range{}, err
	}
	return vertexRange, indexRange, nil
}

func (r *Resources) uploadIndices(local []uint32, vertexStart uint32, primitives []model.Primitive) (common.Range, error) {
	indices := append([]uint32(nil), local...)
	model.RebaseIndices(indices, vertexStart)
	indexRange, err := r.Indices.Insert(indices)
	if err != nil {
		return common.Range{}, fmt.Errorf("upload indices: %w", err)
	}
	model.RebasePrimitives(primitives, indexRange.Start)
	return indexRange, nil
}

// Release frees every buffer.
func (r *Resources) Release() {
	r.Vertices.Release()
	r.AnimatedVertices.Release()
	r.Indices.Release()
	r.Instances.Release()
	r.Joints.Release()
	r.Camera.Release()
}
