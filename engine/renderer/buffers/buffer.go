package buffers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"go.uber.org/zap"
)

// ErrBufferFull is returned when an insert would exceed a fixed-capacity buffer.
var ErrBufferFull = errors.New("buffers: capacity exceeded")

// Record is the constraint satisfied by pointers to GPU record types with a Marshal method.
type Record[T any] interface {
	*T
	Marshal() []byte
}

// Encoder turns a slice of elements into their GPU byte layout.
type Encoder[T any] func(items []T) []byte

// MarshalRecords is an Encoder for record types that marshal themselves.
func MarshalRecords[T any, P Record[T]](items []T) []byte {
	if len(items) == 0 {
		return nil
	}
	out := make([]byte, 0, len(items)*len(P(&items[0]).Marshal()))
	for i := range items {
		out = append(out, P(&items[i]).Marshal()...)
	}
	return out
}

// EncodeUint32 is an Encoder for index data.
func EncodeUint32(items []uint32) []byte {
	return append([]byte(nil), common.SliceToBytes(items)...)
}

// Buffer is an append-only array of fixed-size elements stored in a Backend.
// Insert is safe for concurrent use; concurrent inserts receive disjoint ranges.
type Buffer[T any] struct {
	mu       sync.Mutex
	label    string
	stride   uint64
	capacity uint32
	length   uint32
	encode   Encoder[T]
	backend  Backend
	logger   *zap.Logger
}

// NewBuffer creates a Buffer with the specified options applied.
//
// Parameters:
//   - label: debug label used in logs and errors
//   - stride: size of one element in bytes
//   - encode: converts elements to bytes
//   - options: a variadic list of BufferOption functions
//
// Returns:
//   - *Buffer[T]: the buffer, backed by host memory unless WithBackend is given
func NewBuffer[T any](label string, stride uint64, encode Encoder[T], options ...BufferOption) *Buffer[T] {
	cfg := bufferConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.backend == nil {
		cfg.backend = NewMemoryBackend()
	}
	if cfg.logger == nil {
		cfg.logger = logger.Log
	}
	return &Buffer[T]{
		label:    label,
		stride:   stride,
		capacity: cfg.capacity,
		encode:   encode,
		backend:  cfg.backend,
		logger:   cfg.logger.With(zap.String("buffer", label)),
	}
}

// Insert appends items and returns the element range they occupy.
//
// Parameters:
//   - items: the elements to append
//
// Returns:
//   - common.Range: the element span written
//   - error: ErrBufferFull for a fixed-capacity buffer without room, or a backend error
func (b *Buffer[T]) Insert(items []T) (common.Range, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.length
	if len(items) == 0 {
		return common.Range{Start: start, End: start}, nil
	}
	end := start + uint32(len(items))
	if b.capacity > 0 && end > b.capacity {
		return common.Range{}, fmt.Errorf("%s: insert %d at %d of %d: %w", b.label, len(items), start, b.capacity, ErrBufferFull)
	}
	if err := b.backend.Write(uint64(start)*b.stride, b.encode(items)); err != nil {
		return common.Range{}, fmt.Errorf("%s: %w", b.label, err)
	}
	b.length = end
	b.logger.Debug("inserted", zap.Uint32("start", start), zap.Uint32("end", end))
	return common.Range{Start: start, End: end}, nil
}

// Rollback undoes the insert that returned r when nothing was inserted after it.
// It reports whether the range was released.
func (b *Buffer[T]) Rollback(r common.Range) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.Empty() || r.End != b.length {
		return false
	}
	b.length = r.Start
	return true
}

// Len returns the number of elements stored.
func (b *Buffer[T]) Len() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Remaining returns how many more elements fit, or -1 for an unbounded buffer.
func (b *Buffer[T]) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.capacity == 0 {
		return -1
	}
	return int(b.capacity) - int(b.length)
}

// Clear forgets every element while keeping the backend's storage.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.length = 0
}

// Backend returns the storage behind the buffer.
func (b *Buffer[T]) Backend() Backend {
	return b.backend
}

// Label returns the debug label.
func (b *Buffer[T]) Label() string {
	return b.label
}

// Release frees the backend.
func (b *Buffer[T]) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backend.Release()
	b.length = 0
}
