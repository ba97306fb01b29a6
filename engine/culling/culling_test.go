package culling

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookForward() mgl32.Mat4 {
	return mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
}

func unitPrimitive(lods int, coverages ...float32) model.Primitive {
	p := model.Primitive{
		BoundingBox:     model.BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
		BoundingSphere:  model.BoundingSphere{Radius: math32.Sqrt(3)},
		ScreenCoverages: coverages,
		Transform:       common.IdentitySimilarity(),
	}
	for i := range lods {
		p.Lods = append(p.Lods, model.PrimitiveLod{MaterialIndex: i + 10, Lightmapped: i == 1})
	}
	return p
}

func at(x, y, z float32) common.Similarity {
	s := common.IdentitySimilarity()
	s.Translation = mgl32.Vec3{x, y, z}
	return s
}

func desktopParams() *Params {
	fov := mgl32.DegToRad(60)
	view := lookForward()
	frustum := NewCullingFrustum(fov, 1, 0.1, 100)
	return &Params{
		Spheres: BoundingSphereParams{Views: []BoundingSphereView{
			NewBoundingSphereView(view, mgl32.Perspective(fov, 1, 0.1, 100), 0.1),
		}},
		Frustum: &frustum,
		View:    view,
		Width:   800,
		Height:  800,
	}
}

func TestSelectLod(t *testing.T) {
	coverages := []float32{0.1, 0.5}
	tests := []struct {
		coverage float32
		lodCount int
		want     int
	}{
		{coverage: 0.05, lodCount: 3, want: 0},
		{coverage: 0.1, lodCount: 3, want: 0},
		{coverage: 0.3, lodCount: 3, want: 1},
		{coverage: 0.9, lodCount: 3, want: 2},
		{coverage: 0.9, lodCount: 2, want: 1},
		{coverage: math32.Inf(1), lodCount: 1, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectLod(coverages, tt.coverage, tt.lodCount), "coverage %v", tt.coverage)
	}
	assert.Equal(t, 0, SelectLod(nil, 4, 1))
}

func TestScreenCoverage(t *testing.T) {
	sphere := model.BoundingSphere{Radius: 1}
	fov := mgl32.DegToRad(90)

	near := ScreenCoverage(at(0, 0, -2), sphere, mgl32.Vec3{}, 100, 100, fov)
	far := ScreenCoverage(at(0, 0, -4), sphere, mgl32.Vec3{}, 100, 100, fov)
	assert.InDelta(t, math32.Pi/4, near, 1e-5)
	assert.InDelta(t, near/4, far, 1e-5)

	wide := ScreenCoverage(at(0, 0, -2), sphere, mgl32.Vec3{}, 200, 100, fov)
	assert.InDelta(t, near/2, wide, 1e-5)

	assert.Equal(t,
		ScreenCoverage(at(0, 0, -2), sphere, mgl32.Vec3{}, FallbackWidth, FallbackHeight, fov),
		ScreenCoverage(at(0, 0, -2), sphere, mgl32.Vec3{}, 0, 0, fov))

	scaled := at(0, 0, -2)
	scaled.Scale = 2
	assert.InDelta(t, near*4, ScreenCoverage(scaled, sphere, mgl32.Vec3{}, 100, 100, fov), 1e-5)
}

func TestSphereVisible(t *testing.T) {
	params := desktopParams()
	view := params.Spheres.Views[0]
	sphere := model.BoundingSphere{Radius: 1}

	tests := []struct {
		name      string
		transform common.Similarity
		visible   bool
	}{
		{name: "ahead", transform: at(0, 0, -10), visible: true},
		{name: "behind", transform: at(0, 0, 10), visible: false},
		{name: "left", transform: at(-50, 0, -10), visible: false},
		{name: "above", transform: at(0, 50, -10), visible: false},
		{name: "edge overlap", transform: at(-6.2, 0, -10), visible: true},
		{name: "far away is kept", transform: at(0, 0, -10000), visible: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, SphereVisible(sphere, tt.transform, view))
		})
	}
}

func TestBoxOverlapsFrustum(t *testing.T) {
	frustum := NewCullingFrustum(mgl32.DegToRad(60), 1, 0.1, 100)
	box := model.BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	view := lookForward()

	rotated := at(-7, 0, -10)
	rotated.Rotation = mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})

	tests := []struct {
		name      string
		transform common.Similarity
		visible   bool
	}{
		{name: "inside", transform: at(0, 0, -10), visible: true},
		{name: "behind", transform: at(0, 0, 5), visible: false},
		{name: "beyond far", transform: at(0, 0, -150), visible: false},
		{name: "left", transform: at(-20, 0, -10), visible: false},
		{name: "straddles near", transform: at(0, 0, 0), visible: true},
		{name: "rotated into view", transform: rotated, visible: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, BoxOverlapsFrustum(frustum, view, tt.transform, box))
		})
	}
}

func TestVisibleStereoIsAnyView(t *testing.T) {
	fov := mgl32.DegToRad(60)
	proj := mgl32.Perspective(fov, 1, 0.1, 100)
	left := NewBoundingSphereView(mgl32.LookAtV(mgl32.Vec3{-30, 0, 0}, mgl32.Vec3{-30, 0, -1}, mgl32.Vec3{0, 1, 0}), proj, 0.1)
	right := NewBoundingSphereView(mgl32.LookAtV(mgl32.Vec3{30, 0, 0}, mgl32.Vec3{30, 0, -1}, mgl32.Vec3{0, 1, 0}), proj, 0.1)

	prim := unitPrimitive(1)
	stereo := &Params{Spheres: BoundingSphereParams{Views: []BoundingSphereView{left, right}}}
	assert.True(t, stereo.Visible(&prim, at(30, 0, -10)))
	assert.True(t, stereo.Visible(&prim, at(-30, 0, -10)))
	assert.False(t, stereo.Visible(&prim, at(0, 0, -10)))

	single := &Params{Spheres: BoundingSphereParams{Views: []BoundingSphereView{left}}}
	assert.False(t, single.Visible(&prim, at(30, 0, -10)))
}

func TestPushModelInstances(t *testing.T) {
	prims := []model.Primitive{unitPrimitive(3, 0.1, 0.5), unitPrimitive(1)}
	prims[1].Transform = at(0, 0, 1000)

	var in Instances
	pushed, culled := PushModelInstances(&in, prims, at(0, 0, -20), desktopParams())
	assert.Equal(t, 1, pushed)
	assert.Equal(t, 1, culled)
	assert.Equal(t, 1, in.Len())

	var found []model.GPUInstance
	lod := -1
	require.NoError(t, in.Each(func(p, l int, list []model.GPUInstance) error {
		if len(list) > 0 {
			assert.Equal(t, 0, p)
			lod = l
			found = list
		}
		return nil
	}))
	require.Len(t, found, 1)
	assert.Equal(t, uint32(10+lod), found[0].MaterialIndex)
	assert.Equal(t, [3]float32{0, 0, -20}, found[0].Translation)
	assert.Zero(t, found[0].JointsOffset)

	in.Clear()
	assert.Zero(t, in.Len())
	assert.Empty(t, in.Get(0, lod))
}

func TestPushModelInstancesPicksLodByDistance(t *testing.T) {
	prims := []model.Primitive{unitPrimitive(3, 0.01, 0.5)}
	params := desktopParams()

	var in Instances
	PushModelInstances(&in, prims, at(0, 0, -90), params)
	PushModelInstances(&in, prims, at(0, 0, -2), params)

	assert.Len(t, in.Get(0, 0), 1)
	assert.Len(t, in.Get(0, 2), 1)
	assert.True(t, in.Get(0, 2)[0].IsLightmapped == 0)
}

func TestPushAnimatedInstances(t *testing.T) {
	prims := []model.Primitive{unitPrimitive(2, 0.5), unitPrimitive(1)}
	var in Instances
	n := PushAnimatedInstances(&in, prims, at(0, 0, 500), 64)

	assert.Equal(t, 2, n)
	require.Len(t, in.Get(0, 0), 1)
	require.Len(t, in.Get(1, 0), 1)
	assert.Empty(t, in.Get(0, 1))
	assert.Equal(t, uint32(64), in.Get(1, 0)[0].JointsOffset)
	assert.Equal(t, uint32(10), in.Get(1, 0)[0].MaterialIndex)
}

func TestInstanceRanges(t *testing.T) {
	var r InstanceRanges
	r.Push(1, 2, common.Range{Start: 4, End: 9})
	assert.Equal(t, common.Range{Start: 4, End: 9}, r.Get(1, 2))
	assert.True(t, r.Get(0, 0).Empty())
	assert.True(t, r.Get(5, 0).Empty())

	r.Clear()
	assert.True(t, r.Get(1, 2).Empty())
}
