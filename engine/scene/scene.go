package scene

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/culling"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/buffers"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownInstance is returned for operations on an instance id the scene does not hold.
var ErrUnknownInstance = errors.New("unknown instance")

// Scene owns model instances and runs the per-frame systems that turn them into GPU buffers:
// finishing loads, advancing and sampling animations, pushing joints, culling and pushing
// instances, then uploading instance and camera data.
// Thread-safe for concurrent access; Frame runs on the caller's goroutine.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Camera returns the camera used for culling and LOD selection.
	Camera() camera.Camera

	// Load starts loading a static model. Instances of it are drawn once the load finishes.
	//
	// Parameters:
	//   - ctx: cancels the load
	//   - url: the asset URL
	Load(ctx context.Context, url string)

	// LoadAnimated starts loading an animated model.
	//
	// Parameters:
	//   - ctx: cancels the load
	//   - url: the asset URL
	LoadAnimated(ctx context.Context, url string)

	// Reload drops the cached model for url and loads it again. The current model keeps being
	// drawn until the new one is ready.
	//
	// Parameters:
	//   - ctx: cancels the load
	//   - url: the asset URL
	Reload(ctx context.Context, url string)

	// Spawn adds an instance of a static model.
	//
	// Parameters:
	//   - url: the model the instance draws
	//   - transform: the instance's world transform
	//
	// Returns:
	//   - uuid.UUID: the instance id
	Spawn(url string, transform common.Similarity) uuid.UUID

	// SpawnAnimated adds an instance of an animated model playing one of its animations.
	//
	// Parameters:
	//   - url: the model the instance draws
	//   - transform: the instance's world transform
	//   - animation: index of the animation to play
	//
	// Returns:
	//   - uuid.UUID: the instance id
	SpawnAnimated(url string, transform common.Similarity, animation int) uuid.UUID

	// Remove deletes an instance. It reports whether the instance existed.
	Remove(id uuid.UUID) bool

	// SetTransform moves an instance.
	SetTransform(id uuid.UUID, transform common.Similarity) error

	// SetAnimation switches an animated instance to another animation, restarting it.
	SetAnimation(id uuid.UUID, animation int) error

	// AnimationState returns an animated instance's playback position.
	AnimationState(id uuid.UUID) (animator.AnimationState, bool)

	// SkeletonLines returns an animated instance's bone segments in model space, for debug drawing.
	// Nil until the instance has been animated once.
	SkeletonLines(id uuid.UUID) [][2]mgl32.Vec3

	// Count returns the number of instances.
	Count() int

	// Frame runs every per-frame system once.
	//
	// Returns:
	//   - FrameStats: counters describing the frame
	//   - error: an upload error; lookup errors are logged and the instance skipped
	Frame() (FrameStats, error)

	// Draws returns the draw list produced by the last Frame.
	Draws() []Draw

	// Close stops the animation worker pool.
	Close()
}

// Draw is one instanced draw: a primitive LOD's indices drawn for a range of instance records.
// Animated draws read their joints from Resources.Joints.Buffer(JointBuffer).
type Draw struct {
	URL           string
	Animated      bool
	Primitive     int
	Lod           int
	IndexRange    common.Range
	MaterialIndex int
	Instances     common.Range
	JointBuffer   int
}

// FrameStats are the counters of one Frame.
type FrameStats struct {
	Models            int
	PendingLoads      int
	Instances         int
	AnimatedInstances int
	Skipped           int
	PrimitivesPushed  int
	PrimitivesCulled  int
	JointsPushed      int
	JointBuffers      int
	Draws             int
}

// modelEntry tracks one model URL from load request to drawable model.
type modelEntry struct {
	url             string
	animated        bool
	pending         *loader.PendingModel
	pendingAnimated *loader.PendingAnimatedModel

	static model.Model
	anim   model.AnimatedModel

	// Instance lists and their uploaded ranges, one per joint buffer. Static models use only the first.
	instances []culling.Instances
	ranges    []culling.InstanceRanges
}

// current returns the loaded model, or nil.
func (e *modelEntry) current() model.Model {
	if e.animated {
		if e.anim == nil {
			return nil
		}
		return e.anim
	}
	return e.static
}

func (e *modelEntry) isPending() bool {
	return e.pending != nil || e.pendingAnimated != nil
}

// instance is one placed copy of a model. Animated instances own their pose.
type instance struct {
	id        uuid.UUID
	url       string
	animated  bool
	transform common.Similarity

	state        animator.AnimationState
	joints       *animator.AnimationJoints
	jointsModel  model.AnimatedModel
	skin         []common.Similarity
	jointsOffset buffers.JointsOffset
	posed        bool // joints written this frame
}

type scene struct {
	mu *sync.Mutex

	name      string
	cam       camera.Camera
	loader    loader.Loader
	resources *buffers.Resources
	logger    *zap.Logger
	frameLog  *zap.Logger

	cullingDisabled bool
	tickRate        float32
	workers         int
	sampleTick      time.Duration
	sampleFirst     int

	models     map[string]*modelEntry
	modelOrder []string
	instances  map[uuid.UUID]*instance
	order      []uuid.UUID
	draws      []Draw

	pool worker.DynamicWorkerPool
}

var _ Scene = &scene{}

// NewScene creates a Scene drawing through the given camera, loading with l and writing into res.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera used for culling
//   - l: the model loader
//   - res: the shared GPU buffers
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, l loader.Loader, res *buffers.Resources, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:          &sync.Mutex{},
		name:        name,
		cam:         cam,
		loader:      l,
		resources:   res,
		logger:      logger.Named("scene"),
		tickRate:    60,
		workers:     max(runtime.NumCPU()-1, 1),
		sampleTick:  time.Second,
		sampleFirst: 5,
		models:      make(map[string]*modelEntry),
		instances:   make(map[uuid.UUID]*instance),
	}
	for _, option := range options {
		option(s)
	}
	if s.cam == nil {
		s.cam = camera.NewCamera()
	}
	s.logger = s.logger.With(zap.String("scene", name))
	s.frameLog = logger.Sampled(s.logger, s.sampleTick, s.sampleFirst)

	// Queue size of 256 accommodates large instance counts; SubmitTask blocks beyond that.
	s.pool = worker.NewDynamicWorkerPool(s.workers, 256, time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Load(ctx context.Context, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(url, false)
	if e.current() == nil && !e.isPending() {
		e.pending = s.loader.LoadModel(ctx, url)
	}
}

func (s *scene) LoadAnimated(ctx context.Context, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(url, true)
	if e.current() == nil && !e.isPending() {
		e.pendingAnimated = s.loader.LoadAnimatedModel(ctx, url)
	}
}

func (s *scene) Reload(ctx context.Context, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.models[url]
	if !ok {
		return
	}
	s.loader.Invalidate(url)
	if e.animated {
		e.pendingAnimated = s.loader.LoadAnimatedModel(ctx, url)
	} else {
		e.pending = s.loader.LoadModel(ctx, url)
	}
	s.logger.Info("reloading model", zap.String("url", url))
}

// entry returns the tracking entry for url, creating it on first use.
// Caller must hold the mutex.
func (s *scene) entry(url string, animated bool) *modelEntry {
	if e, ok := s.models[url]; ok {
		return e
	}
	e := &modelEntry{url: url, animated: animated}
	s.models[url] = e
	s.modelOrder = append(s.modelOrder, url)
	return e
}

func (s *scene) Spawn(url string, transform common.Similarity) uuid.UUID {
	return s.spawn(&instance{url: url, transform: transform})
}

func (s *scene) SpawnAnimated(url string, transform common.Similarity, animation int) uuid.UUID {
	return s.spawn(&instance{
		url:       url,
		animated:  true,
		transform: transform,
		state:     animator.AnimationState{AnimationIndex: animation},
	})
}

func (s *scene) spawn(inst *instance) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst.id = uuid.New()
	s.instances[inst.id] = inst
	s.order = append(s.order, inst.id)
	return inst.id
}

func (s *scene) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[id]; !ok {
		return false
	}
	delete(s.instances, id)
	s.order = slices.DeleteFunc(s.order, func(o uuid.UUID) bool { return o == id })
	return true
}

func (s *scene) SetTransform(id uuid.UUID, transform common.Similarity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownInstance)
	}
	inst.transform = transform
	return nil
}

func (s *scene) SetAnimation(id uuid.UUID, animation int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok || !inst.animated {
		return fmt.Errorf("%s: %w", id, ErrUnknownInstance)
	}
	inst.state = animator.AnimationState{AnimationIndex: animation}
	return nil
}

func (s *scene) AnimationState(id uuid.UUID) (animator.AnimationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok || !inst.animated {
		return animator.AnimationState{}, false
	}
	return inst.state, true
}

func (s *scene) SkeletonLines(id uuid.UUID) [][2]mgl32.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok || inst.joints == nil {
		return nil
	}
	return inst.joints.Lines(inst.jointsModel.DepthFirstNodes())
}

func (s *scene) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

func (s *scene) Draws() []Draw {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.draws)
}

func (s *scene) Close() {
	s.pool.Stop()
}
