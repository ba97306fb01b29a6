package scene

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/buffers"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func at(x, y, z float32) common.Similarity {
	s := common.IdentitySimilarity()
	s.Translation = mgl32.Vec3{x, y, z}
	return s
}

func boxPrimitive(lods int, coverages ...float32) model.Primitive {
	p := model.Primitive{
		BoundingBox:     model.BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
		BoundingSphere:  model.BoundingSphere{Radius: math32.Sqrt(3)},
		ScreenCoverages: coverages,
		Transform:       common.IdentitySimilarity(),
	}
	for i := range lods {
		p.Lods = append(p.Lods, model.PrimitiveLod{
			IndexRange:    common.Range{Start: uint32(i * 36), End: uint32(i*36 + 36)},
			MaterialIndex: i,
		})
	}
	return p
}

func boxModel() model.Model {
	return model.NewModel(
		model.WithName("box"),
		model.WithURL("box"),
		model.WithPrimitives([]model.Primitive{boxPrimitive(2, 0.5)}, model.PrimitiveRanges{}),
	)
}

// rigModel is a two-node skeleton whose child joint rises from y=0 to y=2 over one second.
func rigModel(t *testing.T) model.AnimatedModel {
	t.Helper()
	nodes := []animator.NodeSource{
		{Transform: common.IdentitySimilarity(), Children: []int{1}},
		{Transform: common.IdentitySimilarity()},
	}
	tree, err := animator.NewNodeTree(nodes)
	require.NoError(t, err)
	dfn, err := animator.NewDepthFirstNodes(nodes, tree)
	require.NoError(t, err)

	lift := animator.NewAnimation("lift", []animator.Channel[mgl32.Vec3]{{
		Interpolation: animator.InterpolationLinear,
		Inputs:        []float32{0, 1},
		Outputs:       []mgl32.Vec3{{0, 0, 0}, {0, 2, 0}},
		NodeIndex:     1,
	}}, nil, nil)

	locals := []common.Similarity{common.IdentitySimilarity(), common.IdentitySimilarity()}
	return model.NewAnimatedModel(
		model.WithName("rig"),
		model.WithURL("rig"),
		model.WithPrimitives([]model.Primitive{boxPrimitive(1)}, model.PrimitiveRanges{}),
		model.WithAnimationData(&model.AnimationData{
			Animations:      []*animator.Animation{lift},
			DepthFirstNodes: dfn,
			InverseBind:     locals,
			JointToNode:     []int{0, 1},
			Joints:          animator.NewAnimationJoints(locals, dfn),
		}),
	)
}

type fixture struct {
	scene     Scene
	resources *buffers.Resources
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T, options ...SceneBuilderOption) *fixture {
	t.Helper()
	return newFixtureWithBackends(t, buffers.MemoryBackends, options...)
}

func newFixtureWithBackends(t *testing.T, factory buffers.BackendFactory, options ...SceneBuilderOption) *fixture {
	t.Helper()
	res, err := buffers.NewResources(factory, buffers.Capacities{}, zap.NewNop())
	require.NoError(t, err)

	// The loader and the scene share one observed core.
	core, logs := observer.New(zapcore.WarnLevel)
	l := loader.NewLoader(loader.BackendTypeGLTF,
		loader.WithModel("box", boxModel()),
		loader.WithAnimatedModel("rig", rigModel(t)),
		loader.WithLogger(zap.New(core)),
	)
	cam := camera.NewCamera(
		camera.WithController(camera.NewOrbitController(camera.WithRadius(10), camera.WithElevation(0))),
		camera.WithViewport(800, 800),
	)

	options = append([]SceneBuilderOption{WithLogger(zap.New(core)), WithTickRate(4), WithWorkers(2)}, options...)
	s := NewScene("test", cam, l, res, options...)
	t.Cleanup(func() {
		s.Close()
		l.Close()
		res.Release()
	})
	return &fixture{scene: s, resources: res, logs: logs}
}

func TestFrameCullsAndSelectsLods(t *testing.T) {
	f := newFixture(t)
	f.scene.Load(context.Background(), "box")
	f.scene.Spawn("box", at(0, 0, 0))
	f.scene.Spawn("box", at(0, 0, 8))
	f.scene.Spawn("box", at(0, 0, 30))

	stats, err := f.scene.Frame()
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Models)
	assert.Equal(t, 3, stats.Instances)
	assert.Equal(t, 2, stats.PrimitivesPushed)
	assert.Equal(t, 1, stats.PrimitivesCulled)

	draws := f.scene.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, Draw{
		URL:        "box",
		Primitive:  0,
		Lod:        0,
		IndexRange: common.Range{Start: 0, End: 36},
		Instances:  common.Range{Start: 0, End: 1},
	}, draws[0])
	assert.Equal(t, 1, draws[1].Lod)
	assert.Equal(t, 1, draws[1].MaterialIndex)
	assert.Equal(t, common.Range{Start: 1, End: 2}, draws[1].Instances)
	assert.Equal(t, uint32(2), f.resources.Instances.Len())
}

func TestFrameWithCullingDisabled(t *testing.T) {
	f := newFixture(t, WithCullingDisabled(true))
	f.scene.Load(context.Background(), "box")
	f.scene.Spawn("box", at(0, 0, 30))

	stats, err := f.scene.Frame()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PrimitivesPushed)
	assert.Zero(t, stats.PrimitivesCulled)
}

func TestFrameRebuildsEveryFrame(t *testing.T) {
	f := newFixture(t)
	f.scene.Load(context.Background(), "box")
	id := f.scene.Spawn("box", at(0, 0, 0))

	for range 3 {
		_, err := f.scene.Frame()
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(1), f.resources.Instances.Len())

	require.NoError(t, f.scene.SetTransform(id, at(0, 0, 30)))
	stats, err := f.scene.Frame()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PrimitivesCulled)
	assert.Empty(t, f.scene.Draws())
	assert.Zero(t, f.resources.Instances.Len())

	assert.True(t, f.scene.Remove(id))
	assert.False(t, f.scene.Remove(id))
	assert.Zero(t, f.scene.Count())
}

func TestFrameAnimatesInstances(t *testing.T) {
	f := newFixture(t)
	f.scene.LoadAnimated(context.Background(), "rig")
	id := f.scene.SpawnAnimated("rig", at(0, 0, 0), 0)
	assert.Nil(t, f.scene.SkeletonLines(id))

	stats, err := f.scene.Frame()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AnimatedInstances)
	assert.Equal(t, 2, stats.JointsPushed)
	assert.Equal(t, 1, stats.JointBuffers)
	assert.Equal(t, 1, stats.PrimitivesPushed)

	state, ok := f.scene.AnimationState(id)
	require.True(t, ok)
	assert.InDelta(t, 0.25, state.Time, 1e-6)

	lines := f.scene.SkeletonLines(id)
	require.Len(t, lines, 1)
	tip := lines[0][1]
	assert.InDeltaSlice(t, []float32{0, 0.5, 0}, tip[:], 1e-5)

	draws := f.scene.Draws()
	require.Len(t, draws, 1)
	assert.True(t, draws[0].Animated)
	assert.Equal(t, 0, draws[0].JointBuffer)

	for range 3 {
		_, err = f.scene.Frame()
		require.NoError(t, err)
	}
	state, _ = f.scene.AnimationState(id)
	assert.InDelta(t, 0, state.Time, 1e-6)
}

func TestInstancesHaveIndependentPoses(t *testing.T) {
	f := newFixture(t)
	f.scene.LoadAnimated(context.Background(), "rig")
	a := f.scene.SpawnAnimated("rig", at(0, 0, 0), 0)
	_, err := f.scene.Frame()
	require.NoError(t, err)

	b := f.scene.SpawnAnimated("rig", at(1, 0, 0), 0)
	stats, err := f.scene.Frame()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.JointsPushed)

	sa, _ := f.scene.AnimationState(a)
	sb, _ := f.scene.AnimationState(b)
	assert.InDelta(t, 0.5, sa.Time, 1e-6)
	assert.InDelta(t, 0.25, sb.Time, 1e-6)
	assert.InDelta(t, 1.0, f.scene.SkeletonLines(a)[0][1].Y(), 1e-5)
	assert.InDelta(t, 0.5, f.scene.SkeletonLines(b)[0][1].Y(), 1e-5)

	require.NoError(t, f.scene.SetAnimation(a, 0))
	sa, _ = f.scene.AnimationState(a)
	assert.Zero(t, sa.Time)
}

func TestFrameSkipsUnresolvableInstances(t *testing.T) {
	f := newFixture(t)
	f.scene.LoadAnimated(context.Background(), "rig")
	f.scene.SpawnAnimated("rig", at(0, 0, 0), 5)
	f.scene.Spawn("missing", at(0, 0, 0))

	stats, err := f.scene.Frame()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Zero(t, stats.JointsPushed)
	assert.Empty(t, f.scene.Draws())

	assert.Equal(t, 1, f.logs.FilterMessage("animation index out of range").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("model not loaded").Len())
}

func TestFrameSkipsInstanceWhenJointsCannotBePushed(t *testing.T) {
	outOfMemory := errors.New("out of device memory")
	factory := func(label string, usage wgpu.BufferUsage, size uint64) (buffers.Backend, error) {
		if strings.HasPrefix(label, "joints") {
			return nil, outOfMemory
		}
		return buffers.MemoryBackends(label, usage, size)
	}
	f := newFixtureWithBackends(t, factory)
	f.scene.Load(context.Background(), "box")
	f.scene.LoadAnimated(context.Background(), "rig")
	f.scene.SpawnAnimated("rig", at(0, 0, 0), 0)
	f.scene.Spawn("box", at(0, 0, 0))

	for range 2 {
		stats, err := f.scene.Frame()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Skipped)
		assert.Zero(t, stats.JointsPushed)
		assert.Equal(t, 1, stats.PrimitivesPushed)

		draws := f.scene.Draws()
		require.Len(t, draws, 1)
		assert.False(t, draws[0].Animated)
	}
	assert.Equal(t, 2, f.logs.FilterMessage("joints push failed").Len())
}

func TestUnknownInstance(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	assert.ErrorIs(t, f.scene.SetTransform(id, at(0, 0, 0)), ErrUnknownInstance)
	assert.ErrorIs(t, f.scene.SetAnimation(id, 0), ErrUnknownInstance)

	static := f.scene.Spawn("box", at(0, 0, 0))
	assert.ErrorIs(t, f.scene.SetAnimation(static, 0), ErrUnknownInstance)
	_, ok := f.scene.AnimationState(static)
	assert.False(t, ok)
}

func TestFailedReloadKeepsModel(t *testing.T) {
	f := newFixture(t)
	f.scene.Load(context.Background(), "box")
	f.scene.Spawn("box", at(0, 0, 0))
	_, err := f.scene.Frame()
	require.NoError(t, err)

	// The loader has no resources, so loading for real fails.
	f.scene.Reload(context.Background(), "box")
	require.Eventually(t, func() bool {
		stats, err := f.scene.Frame()
		return err == nil && stats.PendingLoads == 0
	}, 5*time.Second, 10*time.Millisecond)

	stats, err := f.scene.Frame()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Models)
	assert.Equal(t, 1, stats.PrimitivesPushed)
	assert.Equal(t, 1, f.logs.FilterMessage("model load failed").Len())
}

func TestFrameWritesCameraUniform(t *testing.T) {
	f := newFixture(t)
	for range 2 {
		_, err := f.scene.Frame()
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(1), f.resources.Camera.Len())

	mem, ok := f.resources.Camera.Backend().(*buffers.MemoryBackend)
	require.True(t, ok)
	u := f.scene.Camera().Uniform()
	assert.Equal(t, u.Marshal(), mem.Bytes()[:80])
}
