package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const standardTol = float32(1.0e-5)

func assertVec3(t *testing.T, expected, actual mgl32.Vec3) {
	t.Helper()
	assert.InDelta(t, expected[0], actual[0], 1e-4)
	assert.InDelta(t, expected[1], actual[1], 1e-4)
	assert.InDelta(t, expected[2], actual[2], 1e-4)
}

func TestSimilarityIdentity(t *testing.T) {
	p := mgl32.Vec3{1, 2, 3}
	assert.Equal(t, p, IdentitySimilarity().Apply(p))
	assert.True(t, IdentitySimilarity().Mul(IdentitySimilarity()).ApproxEqual(SimilarityIdentity, standardTol))
}

func TestSimilarityApply(t *testing.T) {
	s := NewSimilarity(mgl32.Vec3{1, 0, 0}, 2, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}))

	// (1,0,0) -> scale 2 -> (2,0,0) -> rotate 90 about z -> (0,2,0) -> translate -> (1,2,0)
	assertVec3(t, mgl32.Vec3{1, 2, 0}, s.Apply(mgl32.Vec3{1, 0, 0}))
	assertVec3(t, mgl32.Vec3{0, 2, 0}, s.ApplyVector(mgl32.Vec3{1, 0, 0}))
}

func TestSimilarityMulMatchesSequentialApply(t *testing.T) {
	a := NewSimilarity(mgl32.Vec3{1, 2, 3}, 2, mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0}))
	b := NewSimilarity(mgl32.Vec3{-4, 0.5, 2}, 0.5, mgl32.QuatRotate(-1.1, mgl32.Vec3{1, 0, 0}))
	p := mgl32.Vec3{0.3, -2, 5}

	assertVec3(t, a.Apply(b.Apply(p)), a.Mul(b).Apply(p))
	assert.False(t, a.Mul(b).ApproxEqual(b.Mul(a), standardTol))
}

func TestSimilarityMulAssociative(t *testing.T) {
	a := NewSimilarity(mgl32.Vec3{1, 0, 0}, 2, mgl32.QuatRotate(0.3, mgl32.Vec3{0, 0, 1}))
	b := NewSimilarity(mgl32.Vec3{0, 1, 0}, 3, mgl32.QuatRotate(0.9, mgl32.Vec3{1, 0, 0}))
	c := NewSimilarity(mgl32.Vec3{0, 0, 1}, 0.25, mgl32.QuatRotate(-0.4, mgl32.Vec3{0, 1, 0}))

	assert.True(t, a.Mul(b).Mul(c).ApproxEqual(a.Mul(b.Mul(c)), 1e-4))
}

func TestSimilarityInverse(t *testing.T) {
	s := NewSimilarity(mgl32.Vec3{3, -1, 2}, 4, mgl32.QuatRotate(1.2, mgl32.Vec3{1, 1, 0}.Normalize()))

	assert.True(t, s.Mul(s.Inverse()).ApproxEqual(SimilarityIdentity, 1e-4))
	assert.True(t, s.Inverse().Mul(s).ApproxEqual(SimilarityIdentity, 1e-4))

	p := mgl32.Vec3{7, 8, 9}
	assertVec3(t, p, s.Inverse().Apply(s.Apply(p)))
}

func TestSimilarityApproxEqualNearZero(t *testing.T) {
	near := NewSimilarity(mgl32.Vec3{0, 1e-6, -1e-6}, 1, mgl32.QuatIdent())
	assert.True(t, near.ApproxEqual(SimilarityIdentity, 1e-4))

	far := NewSimilarity(mgl32.Vec3{0, 2e-4, 0}, 1, mgl32.QuatIdent())
	assert.False(t, far.ApproxEqual(SimilarityIdentity, 1e-4))
}

func TestSimilarityMat4(t *testing.T) {
	s := NewSimilarity(mgl32.Vec3{1, 2, 3}, 1.5, mgl32.QuatRotate(0.5, mgl32.Vec3{0, 1, 0}))
	p := mgl32.Vec3{-1, 4, 2}

	assertVec3(t, s.Apply(p), s.Mat4().Mul4x1(p.Vec4(1)).Vec3())
}

func TestSimilarityFromGLTF(t *testing.T) {
	tests := []struct {
		name          string
		scale         [3]float32
		expectedScale float32
		uniform       bool
	}{
		{name: "uniform", scale: [3]float32{2, 2, 2}, expectedScale: 2, uniform: true},
		{name: "non-uniform takes max", scale: [3]float32{1, 3, 2}, expectedScale: 3, uniform: false},
		{name: "within epsilon", scale: [3]float32{1, 1 + 1e-7, 1}, expectedScale: 1 + 1e-7, uniform: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, uniform := SimilarityFromGLTF([3]float32{1, 2, 3}, [4]float32{0, 0, 0, 1}, tt.scale)
			assert.Equal(t, tt.uniform, uniform)
			assert.InDelta(t, tt.expectedScale, s.Scale, 1e-6)
			assert.Equal(t, mgl32.Vec3{1, 2, 3}, s.Translation)
		})
	}
}

func TestSimilarityFromMat4(t *testing.T) {
	expected := NewSimilarity(mgl32.Vec3{5, -2, 1}, 2, mgl32.QuatRotate(0.8, mgl32.Vec3{0, 0, 1}))

	s, uniform := SimilarityFromMat4(expected.Mat4())
	assert.True(t, uniform)
	assert.True(t, s.ApproxEqual(expected, 1e-4), "decomposed %+v, expected %+v", s, expected)
}
