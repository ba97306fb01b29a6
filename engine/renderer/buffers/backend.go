package buffers

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Backend is the byte storage behind a Buffer.
type Backend interface {
	// Write stores data at offset, growing the storage when needed.
	//
	// Parameters:
	//   - offset: byte offset to write at
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the storage could not grow or be written
	Write(offset uint64, data []byte) error

	// Size returns the current storage size in bytes.
	//
	// Returns:
	//   - uint64: the size in bytes
	Size() uint64

	// Release frees any resources held by the backend.
	Release()
}

// MemoryBackend keeps buffer contents in host memory. It backs headless runs and tests.
type MemoryBackend struct {
	data []byte
}

var _ Backend = &MemoryBackend{}

// NewMemoryBackend creates an empty host-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Write(offset uint64, data []byte) error {
	end := offset + uint64(len(data))
	if end > uint64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[offset:end], data)
	return nil
}

func (m *MemoryBackend) Size() uint64 {
	return uint64(len(m.data))
}

// Bytes returns the stored contents.
func (m *MemoryBackend) Bytes() []byte {
	return m.data
}

func (m *MemoryBackend) Release() {
	m.data = nil
}

// WGPUBackend stores buffer contents in a GPU buffer, reallocating and copying on growth.
type WGPUBackend struct {
	mu     sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
	buffer *wgpu.Buffer
	label  string
	usage  wgpu.BufferUsage
	size   uint64
}

var _ Backend = &WGPUBackend{}

// NewWGPUBackend creates a GPU buffer of initialSize bytes.
//
// Parameters:
//   - device: the device to allocate on
//   - queue: the queue used for writes and growth copies
//   - label: debug label for the buffer
//   - usage: usage flags; CopyDst and CopySrc are always added
//   - initialSize: starting capacity in bytes
//
// Returns:
//   - *WGPUBackend: the backend
//   - error: an error if the buffer could not be created
func NewWGPUBackend(device *wgpu.Device, queue *wgpu.Queue, label string, usage wgpu.BufferUsage, initialSize uint64) (*WGPUBackend, error) {
	b := &WGPUBackend{
		device: device,
		queue:  queue,
		label:  label,
		usage:  usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	}
	buf, err := b.create(align4(max(initialSize, 4)))
	if err != nil {
		return nil, err
	}
	b.buffer = buf
	return b, nil
}

func (b *WGPUBackend) create(size uint64) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            b.label,
		Size:             size,
		Usage:            b.usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer of %d bytes: %w", b.label, size, err)
	}
	b.size = size
	return buf, nil
}

func (b *WGPUBackend) grow(needed uint64) error {
	size := b.size
	for size < needed {
		size *= 2
	}
	oldBuf, oldSize := b.buffer, b.size

	buf, err := b.create(align4(size))
	if err != nil {
		b.size = oldSize
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		buf.Release()
		b.size = oldSize
		return err
	}
	encoder.CopyBufferToBuffer(oldBuf, 0, buf, 0, oldSize)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		buf.Release()
		b.size = oldSize
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	oldBuf.Release()
	b.buffer = buf
	return nil
}

func (b *WGPUBackend) Write(offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(data) == 0 {
		return nil
	}
	if end := offset + uint64(len(data)); end > b.size {
		if err := b.grow(end); err != nil {
			return err
		}
	}
	b.queue.WriteBuffer(b.buffer, offset, data)
	return nil
}

func (b *WGPUBackend) Size() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Buffer returns the current GPU buffer handle. It changes when the backend grows.
func (b *WGPUBackend) Buffer() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer
}

func (b *WGPUBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}
