package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/culling"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	fov    float32
	near   float32
	far    float32
	width  uint32
	height uint32

	fallbackWidth  uint32
	fallbackHeight uint32
	frustumTest    bool
	stereo         *StereoViews

	position             mgl32.Vec3
	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	controller CameraController
}

// StereoViews are the per-eye matrices of a head-mounted display. When set, culling tests both
// eyes and skips the frustum separating axis test.
type StereoViews struct {
	LeftView, LeftProjection   mgl32.Mat4
	RightView, RightProjection mgl32.Mat4
	Position                   mgl32.Vec3
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings and computes view/projection matrices
// from an attached CameraController each frame via Update().
type Camera interface {
	// Position returns the world-space camera position used for LOD selection.
	//
	// Returns:
	//   - mgl32.Vec3: the camera position
	Position() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio of the viewport, or of the fallback size when the viewport is unknown.
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Viewport returns the surface size in pixels, zero when unknown.
	Viewport() (width, height uint32)

	// ViewMatrix returns the current view matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns the combined projection * view matrix.
	ViewProjectionMatrix() mgl32.Mat4

	// Controller returns the attached CameraController, or nil.
	Controller() CameraController

	// Update reads position/target from controller and recomputes matrices.
	// Should be called once per frame. If no controller is attached, this method does nothing.
	Update()

	// SetFov sets the field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetViewport sets the surface size. Zero dimensions mark the size as unknown.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	SetViewport(width, height uint32)

	// SetStereo switches culling to two eyes, or back to the desktop view when views is nil.
	//
	// Parameters:
	//   - views: the per-eye matrices
	SetStereo(views *StereoViews)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)

	// CullingParams builds the frame's culling parameters from the current matrices.
	//
	// Returns:
	//   - culling.Params: parameters for culling.PushModelInstances
	CullingParams() culling.Params

	// Uniform packs the view-projection matrix and position for the GPU.
	//
	// Returns:
	//   - GPUCameraUniform: the uniform record
	Uniform() GPUCameraUniform
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:             &sync.Mutex{},
		up:             mgl32.Vec3{0, 1, 0},
		fov:            culling.CoverageFovY,
		near:           0.001,
		far:            1000,
		fallbackWidth:  culling.FallbackWidth,
		fallbackHeight: culling.FallbackHeight,
		frustumTest:    true,
		viewMatrix:     mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stereo != nil {
		return c.stereo.Position
	}
	return c.position
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect()
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Viewport() (uint32, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetViewport(width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
	c.updateMatrices()
}

func (c *cameraImpl) SetStereo(views *StereoViews) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stereo = views
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) CullingParams() culling.Params {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := culling.Params{
		View:           c.viewMatrix,
		CameraPosition: c.position,
		Width:          c.width,
		Height:         c.height,
		FovY:           culling.CoverageFovY,
	}
	if p.Width == 0 || p.Height == 0 {
		p.Width, p.Height = c.fallbackWidth, c.fallbackHeight
	}

	if c.stereo != nil {
		p.CameraPosition = c.stereo.Position
		p.Spheres.Views = []culling.BoundingSphereView{
			culling.NewBoundingSphereView(c.stereo.LeftView, c.stereo.LeftProjection, c.near),
			culling.NewBoundingSphereView(c.stereo.RightView, c.stereo.RightProjection, c.near),
		}
		return p
	}

	p.Spheres.Views = []culling.BoundingSphereView{
		culling.NewBoundingSphereView(c.viewMatrix, c.projectionMatrix, c.near),
	}
	if c.frustumTest {
		frustum := culling.NewCullingFrustum(c.fov, c.aspect(), c.near, c.far)
		p.Frustum = &frustum
	}
	return p
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		ViewProj:       c.viewProjectionMatrix,
		CameraPosition: c.position,
	}
}

// aspect returns width / height, using the fallback size when the viewport is unknown.
// Caller must hold the mutex.
func (c *cameraImpl) aspect() float32 {
	w, h := c.width, c.height
	if w == 0 || h == 0 {
		w, h = c.fallbackWidth, c.fallbackHeight
	}
	return float32(w) / float32(h)
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// The view matrix is only rebuilt when a controller is attached.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil {
		c.position = c.controller.Position()
		c.viewMatrix = mgl32.LookAtV(c.position, c.controller.Target(), c.up)
	}
	c.projectionMatrix = mgl32.Perspective(c.fov, c.aspect(), c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
}
