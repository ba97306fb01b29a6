package scene

import (
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithLogger sets the logger the scene writes load and frame diagnostics to.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(l *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers sets the number of worker goroutines used to sample animations.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithTickRate sets how many frames make up one second of animation time.
//
// Parameters:
//   - rate: frames per animation second, ignored when not positive
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTickRate(rate float32) SceneBuilderOption {
	return func(s *scene) {
		if rate > 0 {
			s.tickRate = rate
		}
	}
}

// WithCullingDisabled makes every static instance pass culling. LOD selection still applies.
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}

// WithErrorSampling bounds how often per-frame lookup errors are logged: the first `first`
// occurrences of each message per tick.
//
// Parameters:
//   - tick: the sampling interval
//   - first: messages allowed per interval
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithErrorSampling(tick time.Duration, first int) SceneBuilderOption {
	return func(s *scene) {
		if tick > 0 {
			s.sampleTick = tick
		}
		if first > 0 {
			s.sampleFirst = first
		}
	}
}

// WithConfig applies the scene, culling and animation sections of a loaded configuration.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg *config.Config) SceneBuilderOption {
	return func(s *scene) {
		if cfg == nil {
			return
		}
		if cfg.Scene.Workers > 0 {
			WithWorkers(cfg.Scene.Workers)(s)
		}
		WithErrorSampling(cfg.Scene.ErrorSampleTick.Std(), cfg.Scene.ErrorSampleFirst)(s)
		WithTickRate(cfg.Animation.TickRate)(s)
		WithCullingDisabled(!cfg.Culling.Enabled)(s)
	}
}
