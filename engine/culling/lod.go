package culling

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CoverageFovY is the vertical field of view, in radians, the screen coverage estimate assumes.
var CoverageFovY = mgl32.DegToRad(59)

// Fallback viewport used when the surface size is unknown, as in XR sessions.
const (
	FallbackWidth  = 1024
	FallbackHeight = 1024
)

// ScreenCoverage estimates the fraction of the screen a primitive's bounding sphere covers.
//
// Parameters:
//   - transform: the primitive's world transform
//   - sphere: the primitive's local bounding sphere
//   - cameraPosition: the world-space camera position
//   - width, height: the viewport size in pixels, 0 when unknown
//   - fovY: the vertical field of view in radians
//
// Returns:
//   - float32: projected sphere area over screen area; +Inf when the camera is at the primitive
func ScreenCoverage(transform common.Similarity, sphere model.BoundingSphere, cameraPosition mgl32.Vec3, width, height uint32, fovY float32) float32 {
	if width == 0 || height == 0 {
		width, height = FallbackWidth, FallbackHeight
	}
	distance := transform.Translation.Sub(cameraPosition).Len()
	visibleRadius := sphere.Radius * transform.Scale / distance
	meshArea := visibleRadius * visibleRadius * math32.Pi

	y := math32.Tan(fovY / 2)
	x := y * float32(width) / float32(height)
	return meshArea / (x * y)
}

// SelectLod picks the level of detail a coverage falls into: the insertion index of coverage in
// the ascending thresholds, clamped to the available levels.
//
// Parameters:
//   - coverages: ascending switch thresholds
//   - coverage: the primitive's screen coverage
//   - lodCount: how many levels the primitive has
//
// Returns:
//   - int: the LOD index in [0, lodCount)
func SelectLod(coverages []float32, coverage float32, lodCount int) int {
	lod, _ := slices.BinarySearch(coverages, coverage)
	return common.Clamp(lod, 0, max(lodCount-1, 0))
}
