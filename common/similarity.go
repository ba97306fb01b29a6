package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// uniformScaleEpsilon is the tolerance used when deciding whether a glTF scale vector is uniform.
const uniformScaleEpsilon = 10 * 1.1920929e-07

// Similarity is a rigid transform with a single uniform scale factor.
// Applying it to a point computes Translation + Rotation.Rotate(Scale * p).
type Similarity struct {
	Translation mgl32.Vec3
	Scale       float32
	Rotation    mgl32.Quat
}

// SimilarityIdentity is the transform that leaves every point unchanged.
var SimilarityIdentity = Similarity{
	Scale:    1,
	Rotation: mgl32.QuatIdent(),
}

// IdentitySimilarity returns the identity transform.
func IdentitySimilarity() Similarity {
	return SimilarityIdentity
}

// NewSimilarity creates a transform from its translation, uniform scale and rotation.
//
// Parameters:
//   - translation: the translation applied last
//   - scale: the uniform scale applied first
//   - rotation: the rotation applied after scaling
//
// Returns:
//   - Similarity: the composed transform
func NewSimilarity(translation mgl32.Vec3, scale float32, rotation mgl32.Quat) Similarity {
	return Similarity{Translation: translation, Scale: scale, Rotation: rotation}
}

// Mul composes two transforms so that the result applies o first and then s.
// It is associative but not commutative.
//
// Parameters:
//   - o: the transform expressed in s's local space
//
// Returns:
//   - Similarity: the composed transform s * o
func (s Similarity) Mul(o Similarity) Similarity {
	return Similarity{
		Translation: s.Apply(o.Translation),
		Scale:       s.Scale * o.Scale,
		Rotation:    s.Rotation.Mul(o.Rotation),
	}
}

// Inverse returns the transform that undoes s. The scale must be non-zero.
func (s Similarity) Inverse() Similarity {
	inv := s.Rotation.Inverse()
	invScale := 1 / s.Scale
	return Similarity{
		Translation: inv.Rotate(s.Translation.Mul(-1)).Mul(invScale),
		Scale:       invScale,
		Rotation:    inv,
	}
}

// Apply transforms a point.
func (s Similarity) Apply(v mgl32.Vec3) mgl32.Vec3 {
	return s.Translation.Add(s.Rotation.Rotate(v.Mul(s.Scale)))
}

// ApplyVector rotates and scales a direction without translating it.
func (s Similarity) ApplyVector(v mgl32.Vec3) mgl32.Vec3 {
	return s.Rotation.Rotate(v.Mul(s.Scale))
}

// Mat4 returns the column-major matrix T * R * S.
func (s Similarity) Mat4() mgl32.Mat4 {
	return mgl32.Translate3D(s.Translation[0], s.Translation[1], s.Translation[2]).
		Mul4(s.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s.Scale, s.Scale, s.Scale))
}

// ApproxEqual reports whether every component of s and o differs by at most eps.
// Rotations q and -q describe the same orientation and compare equal.
func (s Similarity) ApproxEqual(o Similarity, eps float32) bool {
	for k := range s.Translation {
		if math32.Abs(s.Translation[k]-o.Translation[k]) > eps {
			return false
		}
	}
	if math32.Abs(s.Scale-o.Scale) > eps {
		return false
	}
	return math32.Abs(math32.Abs(s.Rotation.Normalize().Dot(o.Rotation.Normalize()))-1) <= eps
}

// SimilarityFromGLTF builds a transform from glTF TRS components.
// A non-uniform scale is collapsed to its largest component; the caller is told through the
// returned flag so it can warn about it.
//
// Parameters:
//   - translation: the node translation
//   - rotation: the node rotation as (x, y, z, w)
//   - scale: the node scale
//
// Returns:
//   - Similarity: the converted transform
//   - bool: true when the scale was uniform
func SimilarityFromGLTF(translation [3]float32, rotation [4]float32, scale [3]float32) (Similarity, bool) {
	uniform := math32.Abs(scale[0]-scale[1]) <= uniformScaleEpsilon &&
		math32.Abs(scale[1]-scale[2]) <= uniformScaleEpsilon &&
		math32.Abs(scale[0]-scale[2]) <= uniformScaleEpsilon

	return Similarity{
		Translation: mgl32.Vec3(translation),
		Scale:       MaxOf(scale[0], scale[1], scale[2]),
		Rotation:    mgl32.Quat{W: rotation[3], V: mgl32.Vec3{rotation[0], rotation[1], rotation[2]}}.Normalize(),
	}, uniform
}

// SimilarityFromMat4 decomposes a column-major matrix into a Similarity.
// Shear is ignored and non-uniform scale is collapsed as in SimilarityFromGLTF.
func SimilarityFromMat4(m mgl32.Mat4) (Similarity, bool) {
	t, r, s := DecomposeMatrix(m)
	return SimilarityFromGLTF(t, r, s)
}
