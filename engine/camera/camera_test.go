package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/culling"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3(t *testing.T, expected, actual mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], delta, "component %d of %v", i, actual)
	}
}

func TestOrbitControllerPosition(t *testing.T) {
	cc := NewOrbitController(WithRadius(5), WithElevation(0), WithTarget(mgl32.Vec3{1, 0, 0}))
	assertVec3(t, mgl32.Vec3{1, 0, 5}, cc.Position(), 1e-5)

	cc.Orbit(math32.Pi/2, 0)
	assertVec3(t, mgl32.Vec3{6, 0, 0}, cc.Position(), 1e-5)

	cc.Orbit(0, 10)
	assert.InDelta(t, math32.Pi/2-0.1, cc.Elevation(), 1e-6)

	cc.Zoom(100)
	assert.Equal(t, float32(0.1), cc.Radius())
	cc.SetRadius(1e6)
	assert.Equal(t, float32(2000), cc.Radius())
}

func TestCameraFollowsController(t *testing.T) {
	cc := NewOrbitController(WithRadius(10), WithElevation(0))
	c := NewCamera(WithController(cc), WithViewport(1920, 1080))

	assertVec3(t, mgl32.Vec3{0, 0, 10}, c.Position(), 1e-5)
	assert.InDelta(t, 1920.0/1080.0, c.Aspect(), 1e-6)

	origin := c.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -10, origin[2], 1e-4)

	cc.Orbit(math32.Pi, 0)
	c.Update()
	assertVec3(t, mgl32.Vec3{0, 0, -10}, c.Position(), 1e-4)
}

func TestCameraAspectFallsBack(t *testing.T) {
	c := NewCamera(WithFallbackViewport(200, 100))
	assert.Equal(t, float32(2), c.Aspect())

	p := c.CullingParams()
	assert.Equal(t, uint32(200), p.Width)
	assert.Equal(t, uint32(100), p.Height)

	c.SetViewport(100, 100)
	assert.Equal(t, float32(1), c.Aspect())
}

func TestCameraCullingParams(t *testing.T) {
	c := NewCamera(WithController(NewOrbitController(WithRadius(10), WithElevation(0))), WithFar(100))
	p := c.CullingParams()

	require.Len(t, p.Spheres.Views, 1)
	require.NotNil(t, p.Frustum)
	assert.Equal(t, float32(100), p.Frustum.Far)
	assert.Equal(t, culling.CoverageFovY, p.FovY)

	prim := model.Primitive{
		Lods:           []model.PrimitiveLod{{}},
		BoundingBox:    model.BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
		BoundingSphere: model.BoundingSphere{Radius: 2},
		Transform:      common.IdentitySimilarity(),
	}
	behind := common.IdentitySimilarity()
	behind.Translation = mgl32.Vec3{0, 0, 30}

	assert.True(t, p.Visible(&prim, common.IdentitySimilarity()))
	assert.False(t, p.Visible(&prim, behind))

	noFrustum := NewCamera(WithFrustumTest(false)).CullingParams()
	assert.Nil(t, noFrustum.Frustum)
}

func TestCameraStereoCullingParams(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 100)
	c := NewCamera()
	c.SetStereo(&StereoViews{
		LeftView:        mgl32.Translate3D(1, 0, 0),
		LeftProjection:  proj,
		RightView:       mgl32.Translate3D(-1, 0, 0),
		RightProjection: proj,
		Position:        mgl32.Vec3{0, 1.6, 0},
	})

	p := c.CullingParams()
	assert.Len(t, p.Spheres.Views, 2)
	assert.Nil(t, p.Frustum)
	assert.Equal(t, mgl32.Vec3{0, 1.6, 0}, p.CameraPosition)
	assert.Equal(t, mgl32.Vec3{0, 1.6, 0}, c.Position())

	c.SetStereo(nil)
	assert.Len(t, c.CullingParams().Spheres.Views, 1)
}

func TestCameraUniformMarshal(t *testing.T) {
	c := NewCamera(WithController(NewOrbitController(WithRadius(3), WithElevation(0))))
	u := c.Uniform()
	buf := u.Marshal()

	require.Len(t, buf, 80)
	assert.Equal(t, u.ViewProj[5], math.Float32frombits(binary.LittleEndian.Uint32(buf[20:])))
	assert.InDelta(t, 3, math.Float32frombits(binary.LittleEndian.Uint32(buf[72:])), 1e-5)
}
