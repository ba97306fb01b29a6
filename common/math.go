package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/constraints"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// BytesToSlice reinterprets a byte slice as a slice of T without copying.
// The second return value is false when the length is not a multiple of T's size
// or the data is not aligned for T; callers then fall back to a converting read.
func BytesToSlice[T any](data []byte) ([]T, bool) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	align := uintptr(unsafe.Alignof(zero))
	if len(data) == 0 || size == 0 {
		return nil, len(data) == 0
	}
	if len(data)%size != 0 || uintptr(unsafe.Pointer(&data[0]))%align != 0 {
		return nil, false
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), len(data)/size), true
}

// Clamp restricts v to the closed range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// MaxOf returns the largest of the given values, or the zero value when none are given.
func MaxOf[T constraints.Ordered](values ...T) T {
	var out T
	for i, v := range values {
		if i == 0 || v > out {
			out = v
		}
	}
	return out
}

// DecomposeMatrix decomposes a 4x4 column-major matrix into translation, rotation (x, y, z, w) and scale.
// This is an approximation that assumes no shear.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - [3]float32: translation (column 3)
//   - [4]float32: rotation quaternion as (x, y, z, w)
//   - [3]float32: scale (length of each basis column)
func DecomposeMatrix(m mgl32.Mat4) ([3]float32, [4]float32, [3]float32) {
	translation := [3]float32{m[12], m[13], m[14]}
	scale := [3]float32{
		m.Col(0).Vec3().Len(),
		m.Col(1).Vec3().Len(),
		m.Col(2).Vec3().Len(),
	}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}

	div := scale
	for i := range div {
		if math32.Abs(div[i]) < 0.0001 {
			div[i] = 1
		}
	}

	rot := mgl32.Mat4FromCols(
		m.Col(0).Mul(1/div[0]),
		m.Col(1).Mul(1/div[1]),
		m.Col(2).Mul(1/div[2]),
		mgl32.Vec4{0, 0, 0, 1},
	)
	q := mgl32.Mat4ToQuat(rot).Normalize()

	return translation, [4]float32{q.V[0], q.V[1], q.V[2], q.W}, scale
}
