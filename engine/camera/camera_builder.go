package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*cameraImpl)

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the world up direction
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithViewport sets the surface size in pixels.
//
// Parameters:
//   - width, height: the surface size
//
// Returns:
//   - CameraBuilderOption: a function that sets the viewport
func WithViewport(width, height uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.width, c.height = width, height
	}
}

// WithFallbackViewport sets the size assumed while the surface size is unknown.
//
// Parameters:
//   - width, height: the assumed size in pixels
//
// Returns:
//   - CameraBuilderOption: a function that sets the fallback viewport
func WithFallbackViewport(width, height uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if width > 0 && height > 0 {
			c.fallbackWidth, c.fallbackHeight = width, height
		}
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithFrustumTest toggles the separating axis test in the culling parameters.
//
// Parameters:
//   - enabled: whether the frustum test runs for desktop views
//
// Returns:
//   - CameraBuilderOption: functional option to set the frustum test
func WithFrustumTest(enabled bool) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.frustumTest = enabled
	}
}

// WithController attaches a controller to the camera.
// After all options are applied, the camera recomputes its matrices from the controller's state.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
