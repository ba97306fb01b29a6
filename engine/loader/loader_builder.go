package loader

import (
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/buffers"
	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithResources is an option builder that sets the shared buffers models are uploaded into.
//
// Parameters:
//   - r: the buffer set
//
// Returns:
//   - LoaderBuilderOption: a function that applies the resources option to a loader
func WithResources(r *buffers.Resources) LoaderBuilderOption {
	return func(l *loader) {
		l.resources = r
	}
}

// WithFetcher is an option builder that sets how asset bytes are retrieved.
//
// Parameters:
//   - f: the fetcher used for documents and external buffers
//
// Returns:
//   - LoaderBuilderOption: a function that applies the fetcher option to a loader
func WithFetcher(f Fetcher) LoaderBuilderOption {
	return func(l *loader) {
		l.fetcher = f
	}
}

// WithMaterialBinder is an option builder that sets the callback receiving each model's materials.
//
// Parameters:
//   - b: the binder
//
// Returns:
//   - LoaderBuilderOption: a function that applies the binder option to a loader
func WithMaterialBinder(b MaterialBinder) LoaderBuilderOption {
	return func(l *loader) {
		l.binder = b
	}
}

// WithLogger is an option builder that sets the loader's logger.
func WithLogger(log *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = log
	}
}

// WithErrorLogger sets the logger load failures are reported through.
// By default the loader's logger is used.
func WithErrorLogger(log *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.errLog = log
	}
}

// WithWorkers is an option builder that sizes the load worker pool.
//
// Parameters:
//   - workers: maximum concurrent loads
//   - queueSize: loads that may wait for a worker before LoadModel blocks
//   - idleTimeout: how long an idle worker lives
//
// Returns:
//   - LoaderBuilderOption: a function that applies the pool options to a loader
func WithWorkers(workers, queueSize int, idleTimeout time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(workers, 1)
		l.queueSize = max(queueSize, 0)
		l.idleTimeout = idleTimeout
	}
}

// WithConfig applies the loader section of the engine configuration: pool sizing and a
// scheme-dispatching fetcher rooted at the asset root.
//
// Parameters:
//   - cfg: the loader configuration
//
// Returns:
//   - LoaderBuilderOption: a function that applies the configuration to a loader
func WithConfig(cfg config.LoaderConfig) LoaderBuilderOption {
	return func(l *loader) {
		WithWorkers(cfg.Workers, cfg.QueueSize, cfg.IdleTimeout.Std())(l)
		l.fetcher = SchemeFetcher{
			File: FileFetcher{Root: cfg.AssetRoot},
			HTTP: NewHTTPFetcher(cfg.HTTPTimeout.Std()),
		}
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}

// WithAnimatedModel is an option builder that pre-populates the animated model cache.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithAnimatedModel(key string, model model.AnimatedModel) LoaderBuilderOption {
	return func(l *loader) {
		l.animatedCache[key] = model
	}
}
