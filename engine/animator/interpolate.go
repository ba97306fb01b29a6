package animator

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Interpolation selects how a channel blends between keyframes.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

// ParseInterpolation maps a glTF sampler interpolation string to an Interpolation.
// An empty or unknown value is LINEAR, the glTF default.
func ParseInterpolation(s string) Interpolation {
	switch strings.ToUpper(s) {
	case "STEP":
		return InterpolationStep
	case "CUBICSPLINE":
		return InterpolationCubicSpline
	default:
		return InterpolationLinear
	}
}

// String returns the glTF name of the interpolation.
func (i Interpolation) String() string {
	switch i {
	case InterpolationStep:
		return "STEP"
	case InterpolationCubicSpline:
		return "CUBICSPLINE"
	default:
		return "LINEAR"
	}
}

// Value is the set of types an animation channel can output.
type Value interface {
	float32 | mgl32.Vec3 | mgl32.Quat
}

// lerp blends a towards b. Quaternions use a shortest-path slerp.
func lerp[T Value](a, b T, t float32) T {
	switch av := any(a).(type) {
	case float32:
		bv := any(b).(float32)
		return any(av*(1-t) + bv*t).(T)
	case mgl32.Vec3:
		bv := any(b).(mgl32.Vec3)
		return any(av.Add(bv.Sub(av).Mul(t))).(T)
	case mgl32.Quat:
		bv := any(b).(mgl32.Quat)
		return any(mgl32.QuatSlerp(av, bv, t)).(T)
	}
	return a
}

// hermite evaluates the cubic Hermite spline between p0 and p1 with tangents already
// scaled by the keyframe delta. Quaternion results are renormalized.
//
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#appendix-c-interpolation
func hermite[T Value](p0, m0, p1, m1 T, t float32) T {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	switch v0 := any(p0).(type) {
	case float32:
		return any(v0*h00 + any(m0).(float32)*h10 + any(p1).(float32)*h01 + any(m1).(float32)*h11).(T)
	case mgl32.Vec3:
		out := v0.Mul(h00).
			Add(any(m0).(mgl32.Vec3).Mul(h10)).
			Add(any(p1).(mgl32.Vec3).Mul(h01)).
			Add(any(m1).(mgl32.Vec3).Mul(h11))
		return any(out).(T)
	case mgl32.Quat:
		out := v0.Scale(h00).
			Add(any(m0).(mgl32.Quat).Scale(h10)).
			Add(any(p1).(mgl32.Quat).Scale(h01)).
			Add(any(m1).(mgl32.Quat).Scale(h11))
		return any(out.Normalize()).(T)
	}
	return p0
}

// scale multiplies a tangent by the keyframe delta.
func scale[T Value](v T, s float32) T {
	switch tv := any(v).(type) {
	case float32:
		return any(tv * s).(T)
	case mgl32.Vec3:
		return any(tv.Mul(s)).(T)
	case mgl32.Quat:
		return any(tv.Scale(s)).(T)
	}
	return v
}
