package loader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/buffers"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for asset URLs whose extension no backend handles.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// ErrNoResources is returned when a load is started on a Loader built without buffers.
var ErrNoResources = errors.New("loader has no buffer resources")

// ErrLoadPanicked is returned when decoding an asset panicked.
var ErrLoadPanicked = errors.New("model load panicked")

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// MaterialBinder receives the materials of every successfully imported model before it is published.
// Texture decoding and bind group creation happen there. A returned error fails the load.
type MaterialBinder func(url string, materials []model.Material) error

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	backendType LoaderBackendType
	backend     loaderBackend
	fetcher     Fetcher
	resources   *buffers.Resources
	binder      MaterialBinder

	logger *zap.Logger
	errLog *zap.Logger

	pool        worker.DynamicWorkerPool
	workers     int
	queueSize   int
	idleTimeout time.Duration
	taskID      atomic.Int64

	modelCache    map[string]model.Model
	animatedCache map[string]model.AnimatedModel
}

// Loader defines the public-facing interface for loading and caching 3D models.
// Loads run on a worker pool; each call returns a pending cell immediately.
// Models are cached by URL and shared read-only by every instance.
type Loader interface {
	// LoadModel starts loading a static model.
	// A cached model is returned in an already completed cell.
	//
	// Parameters:
	//   - ctx: cancels the fetch and any nested buffer fetches
	//   - url: the asset path or URL
	//
	// Returns:
	//   - *PendingModel: filled when the load succeeds, left empty when it fails
	LoadModel(ctx context.Context, url string) *PendingModel

	// LoadAnimatedModel starts loading a skinned, animated model.
	//
	// Parameters:
	//   - ctx: cancels the fetch and any nested buffer fetches
	//   - url: the asset path or URL
	//
	// Returns:
	//   - *PendingAnimatedModel: filled when the load succeeds, left empty when it fails
	LoadAnimatedModel(ctx context.Context, url string) *PendingAnimatedModel

	// Get retrieves a cached static model by URL. Returns nil if not found.
	//
	// Parameters:
	//   - url: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(url string) model.Model

	// GetAnimated retrieves a cached animated model by URL. Returns nil if not found.
	GetAnimated(url string) model.AnimatedModel

	// Models returns a snapshot of the static model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by URL
	Models() map[string]model.Model

	// Invalidate drops url from both caches so the next load reads it again.
	Invalidate(url string)

	// Close stops the worker pool. Loads still queued are abandoned.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		backendType:   backendType,
		fetcher:       SchemeFetcher{HTTP: NewHTTPFetcher(30 * time.Second)},
		logger:        logger.Named("loader"),
		workers:       1,
		queueSize:     64,
		idleTimeout:   5 * time.Second,
		modelCache:    make(map[string]model.Model),
		animatedCache: make(map[string]model.AnimatedModel),
	}

	for _, option := range options {
		option(l)
	}

	if l.errLog == nil {
		l.errLog = l.logger
	}
	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.fetcher, l.resources, l.logger)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, l.queueSize, l.idleTimeout)
	return l
}

func (l *loader) LoadModel(ctx context.Context, url string) *PendingModel {
	l.mu.RLock()
	cached, ok := l.modelCache[url]
	l.mu.RUnlock()
	if ok {
		return completedPending(cached)
	}

	p := newPending[model.Model]()
	submitLoad(l, ctx, url, p, loaderBackend.Load, func(m model.Model) {
		l.mu.Lock()
		l.modelCache[url] = m
		l.mu.Unlock()
	})
	return p
}

func (l *loader) LoadAnimatedModel(ctx context.Context, url string) *PendingAnimatedModel {
	l.mu.RLock()
	cached, ok := l.animatedCache[url]
	l.mu.RUnlock()
	if ok {
		return completedPending(cached)
	}

	p := newPending[model.AnimatedModel]()
	submitLoad(l, ctx, url, p, loaderBackend.LoadAnimated, func(m model.AnimatedModel) {
		l.mu.Lock()
		l.animatedCache[url] = m
		l.mu.Unlock()
	})
	return p
}

// submitLoad queues the fetch, import and bind of one asset on the worker pool.
// Failures are logged once through the error logger and leave p empty.
func submitLoad[T model.Model](l *loader, ctx context.Context, url string, p *Pending[T],
	load func(loaderBackend, context.Context, string, []byte) (T, error), cache func(T)) {

	l.pool.SubmitTask(worker.Task{
		ID:      int(l.taskID.Add(1)),
		Payload: url,
		Do: func() (any, error) {
			m, err := l.loadRecovered(ctx, url, func(b loaderBackend, data []byte) (model.Model, error) {
				return load(b, ctx, url, data)
			})
			if err != nil {
				l.errLog.Error("model load failed", zap.String("url", url), zap.Error(err))
				p.fail(err)
				return nil, err
			}
			v := m.(T)
			cache(v)
			p.complete(v)
			l.logger.Debug("model loaded",
				zap.String("url", url),
				zap.String("name", v.Name()),
				zap.Int("primitives", len(v.Primitives())),
				zap.Int("materials", len(v.Materials())))
			return v, nil
		},
	})
}

// loadRecovered runs load and turns a panic raised while decoding one asset into its load error.
func (l *loader) loadRecovered(ctx context.Context, url string, importFn func(loaderBackend, []byte) (model.Model, error)) (m model.Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("%w: %s: %v", ErrLoadPanicked, url, r)
		}
	}()
	return l.load(ctx, url, importFn)
}

func (l *loader) load(ctx context.Context, url string, importFn func(loaderBackend, []byte) (model.Model, error)) (model.Model, error) {
	if l.resources == nil {
		return nil, ErrNoResources
	}
	backend, err := l.resolveBackend(url)
	if err != nil {
		return nil, err
	}
	data, err := l.fetcher.FetchBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	m, err := importFn(backend, data)
	if err != nil {
		return nil, err
	}
	if l.binder != nil {
		if err := l.binder(url, m.Materials()); err != nil {
			return nil, fmt.Errorf("bind materials of %s: %w", url, err)
		}
	}
	return m, nil
}

func (l *loader) Get(url string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[url]
}

func (l *loader) GetAnimated(url string) model.AnimatedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.animatedCache[url]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Invalidate(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.modelCache, url)
	delete(l.animatedCache, url)
}

func (l *loader) Close() {
	l.pool.Stop()
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(rawURL string) (loaderBackend, error) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".gltf", ".glb":
		if l.backend == nil {
			return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
		}
		return l.backend, nil
	default:
		return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
}
