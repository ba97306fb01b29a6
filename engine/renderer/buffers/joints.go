package buffers

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// JointsOffset locates an instance's joint transforms.
type JointsOffset struct {
	// Buffer is the index of the joint buffer holding the instance's joints.
	Buffer int

	// Offset is the first joint transform of the instance within that buffer.
	Offset uint32
}

// JointBuffers is a growable list of fixed-capacity joint buffers refilled every frame.
// An instance's joints never straddle two buffers.
type JointBuffers struct {
	mu       sync.Mutex
	buffers  []*Buffer[model.JointTransform]
	next     int
	capacity uint32
	factory  BackendFactory
	logger   *zap.Logger
	scratch  []model.JointTransform
}

// NewJointBuffers creates an empty set of joint buffers.
//
// Parameters:
//   - factory: creates the backend of each joint buffer
//   - capacity: joint transforms per buffer, model.MaxJointTransforms when zero
//   - l: logger for overflow warnings, logger.Log when nil
//
// Returns:
//   - *JointBuffers: the buffer set
func NewJointBuffers(factory BackendFactory, capacity uint32, l *zap.Logger) *JointBuffers {
	if capacity == 0 {
		capacity = model.MaxJointTransforms
	}
	if l == nil {
		l = logger.Log
	}
	return &JointBuffers{factory: factory, capacity: capacity, logger: l}
}

func (j *JointBuffers) newBuffer() (*Buffer[model.JointTransform], error) {
	label := fmt.Sprintf("joints[%d]", len(j.buffers))
	backend, err := j.factory(label, wgpu.BufferUsageStorage, uint64(j.capacity)*32)
	if err != nil {
		return nil, err
	}
	return NewBuffer[model.JointTransform](label, 32, MarshalRecords[model.JointTransform, *model.JointTransform],
		WithBackend(backend),
		WithCapacity(j.capacity),
		WithLogger(j.logger),
	), nil
}

// Clear empties every buffer and restarts filling at the first one.
func (j *JointBuffers) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, b := range j.buffers {
		b.Clear()
	}
	j.next = 0
}

// Push stores one instance's joint transforms, moving on to the next buffer when the current
// one cannot hold all of them. Joints past a buffer's capacity are dropped with a warning.
//
// Parameters:
//   - joints: skinning transforms of one instance
//
// Returns:
//   - JointsOffset: where the first joint was written
//   - error: an error if a buffer could not be created or written
func (j *JointBuffers) Push(joints []common.Similarity) (JointsOffset, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.buffers) == 0 {
		b, err := j.newBuffer()
		if err != nil {
			return JointsOffset{}, err
		}
		j.buffers = append(j.buffers, b)
	}
	if j.buffers[j.next].Remaining() < len(joints) && j.buffers[j.next].Len() > 0 {
		j.next++
		if j.next == len(j.buffers) {
			b, err := j.newBuffer()
			if err != nil {
				j.next--
				return JointsOffset{}, err
			}
			j.buffers = append(j.buffers, b)
		}
	}

	current := j.buffers[j.next]
	n := len(joints)
	if room := current.Remaining(); n > room {
		j.logger.Warn("joint buffer full, dropping joints",
			zap.Int("joints", n),
			zap.Int("capacity", int(j.capacity)),
		)
		n = room
	}

	j.scratch = j.scratch[:0]
	for _, s := range joints[:n] {
		j.scratch = append(j.scratch, model.NewJointTransform(s))
	}
	r, err := current.Insert(j.scratch)
	if err != nil {
		return JointsOffset{}, err
	}
	return JointsOffset{Buffer: j.next, Offset: r.Start}, nil
}

// Count returns the number of joint buffers allocated so far.
func (j *JointBuffers) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.buffers)
}

// Buffer returns joint buffer i.
func (j *JointBuffers) Buffer(i int) *Buffer[model.JointTransform] {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.buffers[i]
}

// Release frees every joint buffer.
func (j *JointBuffers) Release() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, b := range j.buffers {
		b.Release()
	}
	j.buffers = nil
	j.next = 0
}
