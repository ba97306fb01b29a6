package culling

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundingSphereView holds the view-space planes a bounding sphere is tested against for one eye.
// The far plane is not tested so infinite projections cull correctly.
type BoundingSphereView struct {
	View   mgl32.Mat4
	planes [5]common.Plane
}

// NewBoundingSphereView derives the side planes from a projection matrix and places the near plane
// at the given distance in front of the camera.
//
// Parameters:
//   - view: the world-to-view matrix
//   - projection: the view-to-clip matrix
//   - near: the near plane distance
//
// Returns:
//   - BoundingSphereView: the culling planes in view space
func NewBoundingSphereView(view, projection mgl32.Mat4, near float32) BoundingSphereView {
	f := common.ExtractFrustumFromMatrix(projection)
	return BoundingSphereView{
		View: view,
		planes: [5]common.Plane{
			f.Planes[common.FrustumLeft],
			f.Planes[common.FrustumRight],
			f.Planes[common.FrustumBottom],
			f.Planes[common.FrustumTop],
			{Normal: mgl32.Vec3{0, 0, -1}, Distance: -near},
		},
	}
}

// BoundingSphereParams lists the views a primitive must be visible from. One view for desktop,
// two for stereo; a primitive passes when any view sees it.
type BoundingSphereParams struct {
	Views []BoundingSphereView
}

// CullingFrustum is a symmetric perspective frustum used by the separating axis test.
type CullingFrustum struct {
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32
}

// NewCullingFrustum creates a frustum from a vertical field of view in radians.
func NewCullingFrustum(fovY, aspect, near, far float32) CullingFrustum {
	return CullingFrustum{FovY: fovY, Aspect: aspect, Near: near, Far: far}
}

// corners returns the view-space corners, near plane first, counter-clockwise from bottom left.
func (f CullingFrustum) corners() [8]mgl32.Vec3 {
	tanY := math32.Tan(f.FovY / 2)
	tanX := tanY * f.Aspect
	var out [8]mgl32.Vec3
	for i, d := range [2]float32{f.Near, f.Far} {
		x, y := d*tanX, d*tanY
		out[i*4+0] = mgl32.Vec3{-x, -y, -d}
		out[i*4+1] = mgl32.Vec3{x, -y, -d}
		out[i*4+2] = mgl32.Vec3{x, y, -d}
		out[i*4+3] = mgl32.Vec3{-x, y, -d}
	}
	return out
}

// Params is everything the instance culling pass needs for one frame.
type Params struct {
	// Spheres is always tested.
	Spheres BoundingSphereParams

	// Frustum enables the separating axis test when set. It is relative to View.
	Frustum *CullingFrustum
	View    mgl32.Mat4

	// CameraPosition, Width, Height and FovY drive the screen coverage estimate.
	// A zero Width or Height falls back to FallbackWidth by FallbackHeight.
	CameraPosition mgl32.Vec3
	Width, Height  uint32
	FovY           float32
}

// Visible applies the pass rule: any sphere view passes, and the separating axis test passes
// when a frustum is present.
//
// Parameters:
//   - prim: the primitive being tested
//   - transform: the primitive's world transform
//
// Returns:
//   - bool: true when the primitive should be drawn
func (p *Params) Visible(prim *model.Primitive, transform common.Similarity) bool {
	passed := len(p.Spheres.Views) == 0
	for _, v := range p.Spheres.Views {
		if SphereVisible(prim.BoundingSphere, transform, v) {
			passed = true
			break
		}
	}
	if passed && p.Frustum != nil {
		passed = BoxOverlapsFrustum(*p.Frustum, p.View, transform, prim.BoundingBox)
	}
	return passed
}

// SphereVisible reports whether a transformed sphere intersects the view's side and near planes.
func SphereVisible(sphere model.BoundingSphere, transform common.Similarity, view BoundingSphereView) bool {
	center := view.View.Mul4x1(transform.Apply(sphere.Center).Vec4(1)).Vec3()
	radius := sphere.Radius * math32.Abs(transform.Scale)
	for _, plane := range view.planes {
		if plane.SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// BoxOverlapsFrustum reports whether an oriented box overlaps the frustum. The box is the
// local-space bounding box placed by transform and moved into view space.
//
// Parameters:
//   - frustum: the camera frustum in view space
//   - view: the world-to-view matrix
//   - transform: the primitive's world transform
//   - box: the primitive's local bounding box
//
// Returns:
//   - bool: false only when a separating axis exists
func BoxOverlapsFrustum(frustum CullingFrustum, view mgl32.Mat4, transform common.Similarity, box model.BoundingBox) bool {
	center := view.Mul4x1(transform.Apply(box.Center()).Vec4(1)).Vec3()
	half := box.Max.Sub(box.Min).Mul(0.5 * math32.Abs(transform.Scale))

	var axes [3]mgl32.Vec3
	for i := range axes {
		var unit mgl32.Vec3
		unit[i] = 1
		axes[i] = view.Mul4x1(transform.Rotation.Rotate(unit).Vec4(0)).Vec3().Normalize()
	}

	var boxCorners [8]mgl32.Vec3
	for i := range boxCorners {
		c := center
		for a := range axes {
			sign := float32(1)
			if i&(1<<a) != 0 {
				sign = -1
			}
			c = c.Add(axes[a].Mul(sign * half[a]))
		}
		boxCorners[i] = c
	}

	corners := frustum.corners()
	edges := [6]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, corners[0], corners[1], corners[2], corners[3]}

	candidates := make([]mgl32.Vec3, 0, 26)
	candidates = append(candidates, mgl32.Vec3{0, 0, 1})
	for i := range 4 {
		candidates = append(candidates, corners[i].Cross(corners[(i+1)%4]))
	}
	candidates = append(candidates, axes[:]...)
	for _, a := range axes {
		for _, e := range edges {
			candidates = append(candidates, a.Cross(e))
		}
	}

	for _, axis := range candidates {
		if axis.Len() < 1e-6 {
			continue
		}
		fMin, fMax := project(axis, corners[:])
		bMin, bMax := project(axis, boxCorners[:])
		if bMax < fMin || bMin > fMax {
			return false
		}
	}
	return true
}

func project(axis mgl32.Vec3, points []mgl32.Vec3) (lo, hi float32) {
	lo, hi = math32.Inf(1), math32.Inf(-1)
	for _, p := range points {
		d := axis.Dot(p)
		lo = min(lo, d)
		hi = max(hi, d)
	}
	return lo, hi
}
