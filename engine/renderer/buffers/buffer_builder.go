package buffers

import "go.uber.org/zap"

type bufferConfig struct {
	backend  Backend
	capacity uint32
	logger   *zap.Logger
}

// BufferOption is a functional option used to configure a Buffer during construction.
type BufferOption func(*bufferConfig)

// WithBackend sets the storage behind the buffer.
//
// Parameters:
//   - backend: the backend to write to
//
// Returns:
//   - BufferOption: a function that sets the backend
func WithBackend(backend Backend) BufferOption {
	return func(c *bufferConfig) {
		c.backend = backend
	}
}

// WithCapacity fixes the maximum number of elements. Zero means unbounded.
//
// Parameters:
//   - capacity: maximum element count
//
// Returns:
//   - BufferOption: a function that sets the capacity
func WithCapacity(capacity uint32) BufferOption {
	return func(c *bufferConfig) {
		c.capacity = capacity
	}
}

// WithLogger sets the logger used for buffer diagnostics.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - BufferOption: a function that sets the logger
func WithLogger(l *zap.Logger) BufferOption {
	return func(c *bufferConfig) {
		c.logger = l
	}
}
