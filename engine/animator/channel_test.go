package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterpolation(t *testing.T) {
	assert.Equal(t, InterpolationStep, ParseInterpolation("STEP"))
	assert.Equal(t, InterpolationCubicSpline, ParseInterpolation("CUBICSPLINE"))
	assert.Equal(t, InterpolationLinear, ParseInterpolation("LINEAR"))
	assert.Equal(t, InterpolationLinear, ParseInterpolation(""))
}

func TestChannelSampleLinearAndStep(t *testing.T) {
	linear := Channel[float32]{
		Interpolation: InterpolationLinear,
		Inputs:        []float32{0, 1, 2},
		Outputs:       []float32{0, 10, 20},
		NodeIndex:     3,
	}
	step := linear
	step.Interpolation = InterpolationStep

	tests := []struct {
		name       string
		t          float32
		ok         bool
		linearWant float32
		stepWant   float32
	}{
		{name: "before first", t: -0.1, ok: false},
		{name: "after last", t: 2.5, ok: false},
		{name: "exact first", t: 0, ok: true, linearWant: 0, stepWant: 0},
		{name: "midpoint", t: 0.5, ok: true, linearWant: 5, stepWant: 0},
		{name: "exact middle", t: 1, ok: true, linearWant: 10, stepWant: 10},
		{name: "second interval", t: 1.25, ok: true, linearWant: 12.5, stepWant: 10},
		{name: "exact last", t: 2, ok: true, linearWant: 20, stepWant: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, v, ok := linear.Sample(tt.t)
			assert.Equal(t, 3, node)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.linearWant, v, 1e-5)
			}

			_, v, ok = step.Sample(tt.t)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.stepWant, v)
			}
		})
	}
}

func TestChannelSampleVec3Linear(t *testing.T) {
	c := Channel[mgl32.Vec3]{
		Inputs:  []float32{1, 3},
		Outputs: []mgl32.Vec3{{0, 0, 0}, {2, 4, -2}},
	}
	_, v, ok := c.Sample(2)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 2, -1}, v)
}

func TestChannelSampleQuatSlerp(t *testing.T) {
	axis := mgl32.Vec3{0, 1, 0}
	c := Channel[mgl32.Quat]{
		Inputs:  []float32{0, 1},
		Outputs: []mgl32.Quat{mgl32.QuatIdent(), mgl32.QuatRotate(mgl32.DegToRad(90), axis)},
	}
	_, v, ok := c.Sample(0.5)
	require.True(t, ok)

	want := mgl32.QuatRotate(mgl32.DegToRad(45), axis)
	assert.InDelta(t, 1, v.Len(), 1e-5)
	assert.InDelta(t, want.W, v.W, 1e-4)
	for i := range want.V {
		assert.InDelta(t, want.V[i], v.V[i], 1e-4, "got %v want %v", v, want)
	}
}

func TestChannelSampleCubicSpline(t *testing.T) {
	// in-tangent, value, out-tangent per keyframe
	c := Channel[float32]{
		Interpolation: InterpolationCubicSpline,
		Inputs:        []float32{0, 2},
		Outputs: []float32{
			0, 0, 1,
			1, 4, 0,
		},
	}
	require.NoError(t, c.Validate())

	// t = 0.5 of the interval: p0=0 m0=1*2 p1=4 m1=1*2
	// h00=0.5 h10=0.125 h01=0.5 h11=-0.125 -> 0 + 0.25 + 2 - 0.25
	_, v, ok := c.Sample(1)
	require.True(t, ok)
	assert.InDelta(t, 2, v, 1e-5)

	_, v, ok = c.Sample(0)
	require.True(t, ok)
	assert.InDelta(t, 0, v, 1e-6)

	_, v, ok = c.Sample(2)
	require.True(t, ok)
	assert.InDelta(t, 4, v, 1e-6)
}

func TestChannelSampleCubicSplineQuatIsNormalized(t *testing.T) {
	zero := mgl32.Quat{}
	c := Channel[mgl32.Quat]{
		Interpolation: InterpolationCubicSpline,
		Inputs:        []float32{0, 1},
		Outputs: []mgl32.Quat{
			zero, mgl32.QuatIdent(), zero,
			zero, mgl32.QuatRotate(1, mgl32.Vec3{1, 0, 0}), zero,
		},
	}
	_, v, ok := c.Sample(0.3)
	require.True(t, ok)
	assert.InDelta(t, 1, v.Len(), 1e-5)
}

func TestChannelValidate(t *testing.T) {
	c := Channel[float32]{Interpolation: InterpolationCubicSpline, Inputs: []float32{0, 1}, Outputs: []float32{1, 2}}
	assert.ErrorIs(t, c.Validate(), ErrChannelLayout)

	empty := Channel[float32]{}
	assert.ErrorIs(t, empty.Validate(), ErrChannelLayout)
}

func TestAnimationTotalTimeAndLastWins(t *testing.T) {
	translations := []Channel[mgl32.Vec3]{
		{Inputs: []float32{0, 1}, Outputs: []mgl32.Vec3{{1, 0, 0}, {1, 0, 0}}, NodeIndex: 0},
		{Inputs: []float32{0, 2}, Outputs: []mgl32.Vec3{{5, 0, 0}, {5, 0, 0}}, NodeIndex: 0},
	}
	scales := []Channel[float32]{
		{Inputs: []float32{0, 3.5}, Outputs: []float32{2, 2}, NodeIndex: 1},
	}
	anim := NewAnimation("walk", translations, nil, scales)

	assert.Equal(t, float32(3.5), anim.TotalTime)
	assert.Equal(t, 3, anim.ChannelCount())

	nodes := []NodeSource{
		{Transform: common.SimilarityIdentity, Children: []int{1}},
		{Transform: common.SimilarityIdentity},
	}
	tree, err := NewNodeTree(nodes)
	require.NoError(t, err)
	dfn, err := NewDepthFirstNodes(nodes, tree)
	require.NoError(t, err)
	joints := NewAnimationJoints([]common.Similarity{common.SimilarityIdentity, common.SimilarityIdentity}, dfn)

	anim.Animate(joints, 0.5)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, joints.Local(0).Translation)
	assert.Equal(t, float32(2), joints.Local(1).Scale)

	// past the first channel's range only the second still samples
	joints.SetLocal(0, common.SimilarityIdentity)
	anim.Animate(joints, 1.5)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, joints.Local(0).Translation)

	// past every translation channel the pose persists
	joints.SetLocal(0, translation(7, 0, 0))
	anim.Animate(joints, 3)
	assert.Equal(t, mgl32.Vec3{7, 0, 0}, joints.Local(0).Translation)
}
