package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnsupportedAccessor is matched by every *UnsupportedAccessorError.
var ErrUnsupportedAccessor = errors.New("unsupported accessor layout")

// UnsupportedAccessorError names an accessor layout a reader has no conversion for.
type UnsupportedAccessorError struct {
	Reader        string
	ComponentType int
	Normalized    bool

	// ByteStride is the buffer view's declared stride, 0 when the view declares none.
	ByteStride int
}

func (e *UnsupportedAccessorError) Error() string {
	stride := "none"
	if e.ByteStride != 0 {
		stride = fmt.Sprint(e.ByteStride)
	}
	return fmt.Sprintf("%s: unsupported accessor (componentType=%s, normalized=%t, byteStride=%s)",
		e.Reader, componentTypeName(e.ComponentType), e.Normalized, stride)
}

// Is reports whether target is ErrUnsupportedAccessor.
func (e *UnsupportedAccessorError) Is(target error) bool {
	return target == ErrUnsupportedAccessor
}

func componentTypeName(ct int) string {
	switch ct {
	case gltfComponentTypeByte:
		return "BYTE"
	case gltfComponentTypeUnsignedByte:
		return "UNSIGNED_BYTE"
	case gltfComponentTypeShort:
		return "SHORT"
	case gltfComponentTypeUnsignedShort:
		return "UNSIGNED_SHORT"
	case gltfComponentTypeUnsignedInt:
		return "UNSIGNED_INT"
	case gltfComponentTypeFloat:
		return "FLOAT"
	default:
		return fmt.Sprint(ct)
	}
}

// accessorLayout is one row of the conversion table. Stride 0 means the view declares none.
type accessorLayout struct {
	componentType int
	normalized    bool
	stride        int
}

var (
	layoutsF32 = []accessorLayout{
		{gltfComponentTypeFloat, false, 0},
	}
	layoutsF32x2 = []accessorLayout{
		{gltfComponentTypeFloat, false, 0},
		{gltfComponentTypeFloat, false, 8},
		{gltfComponentTypeUnsignedShort, true, 4},
		{gltfComponentTypeUnsignedShort, true, 0},
		{gltfComponentTypeUnsignedByte, true, 2},
		{gltfComponentTypeUnsignedByte, true, 0},
	}
	layoutsF32x3 = []accessorLayout{
		{gltfComponentTypeFloat, false, 0},
		{gltfComponentTypeFloat, false, 12},
		{gltfComponentTypeUnsignedShort, false, 8},
		{gltfComponentTypeUnsignedShort, true, 8},
		{gltfComponentTypeShort, true, 8},
		{gltfComponentTypeByte, true, 4},
	}
	layoutsF32x4 = []accessorLayout{
		{gltfComponentTypeFloat, false, 0},
		{gltfComponentTypeFloat, false, 16},
		{gltfComponentTypeUnsignedByte, true, 4},
		{gltfComponentTypeUnsignedByte, true, 0},
		{gltfComponentTypeUnsignedShort, true, 8},
		{gltfComponentTypeUnsignedShort, true, 0},
		{gltfComponentTypeShort, true, 0},
		{gltfComponentTypeShort, true, 8},
	}
	layoutsU32 = []accessorLayout{
		{gltfComponentTypeUnsignedByte, false, 0},
		{gltfComponentTypeUnsignedShort, false, 0},
		{gltfComponentTypeUnsignedInt, false, 0},
	}
	layoutsU32x4 = []accessorLayout{
		{gltfComponentTypeUnsignedByte, false, 4},
		{gltfComponentTypeUnsignedByte, false, 0},
		{gltfComponentTypeUnsignedShort, false, 8},
		{gltfComponentTypeUnsignedShort, false, 0},
	}
	layoutsMat4 = []accessorLayout{
		{gltfComponentTypeFloat, false, 0},
		{gltfComponentTypeFloat, false, 64},
	}
)

// accessorView is an accessor's bytes, starting at its first element.
type accessorView struct {
	accessor *gltfAccessor
	data     []byte

	// stride is the declared stride of the buffer view, 0 when none.
	stride int
}

func (v accessorView) layout() accessorLayout {
	return accessorLayout{v.accessor.ComponentType, v.accessor.Normalized, v.stride}
}

func (v accessorView) check(reader string, components int, accepted []accessorLayout) error {
	l := v.layout()
	if !slices.Contains(accepted, l) {
		return &UnsupportedAccessorError{
			Reader:        reader,
			ComponentType: l.componentType,
			Normalized:    l.normalized,
			ByteStride:    l.stride,
		}
	}
	if got := gltfAccessorTypeComponentCount(v.accessor.Type); got != components {
		return fmt.Errorf("%s: accessor type %s has %d components, want %d: %w",
			reader, v.accessor.Type, got, components, ErrMalformedAsset)
	}
	return nil
}

// elementStride returns the distance between elements of n components.
func (v accessorView) elementStride(n int) int {
	if v.stride != 0 {
		return v.stride
	}
	return n * gltfComponentTypeSize(v.accessor.ComponentType)
}

// tight returns the element bytes when they are tightly packed floats.
func (v accessorView) tight(n int) ([]byte, bool) {
	size := n * 4
	if v.accessor.ComponentType != gltfComponentTypeFloat || v.elementStride(n) != size {
		return nil, false
	}
	return v.data[:v.accessor.Count*size], true
}

type componentDecoder func(b []byte) float32

func floatComponent(ct int, normalized bool) componentDecoder {
	switch ct {
	case gltfComponentTypeFloat:
		return func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }
	case gltfComponentTypeUnsignedByte:
		if normalized {
			return func(b []byte) float32 { return float32(b[0]) / 255 }
		}
		return func(b []byte) float32 { return float32(b[0]) }
	case gltfComponentTypeUnsignedShort:
		if normalized {
			return func(b []byte) float32 { return float32(binary.LittleEndian.Uint16(b)) / 65535 }
		}
		return func(b []byte) float32 { return float32(binary.LittleEndian.Uint16(b)) }
	case gltfComponentTypeByte:
		if normalized {
			return func(b []byte) float32 { return max(float32(int8(b[0]))/127, -1) }
		}
		return func(b []byte) float32 { return float32(int8(b[0])) }
	case gltfComponentTypeShort:
		if normalized {
			return func(b []byte) float32 { return max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1) }
		}
		return func(b []byte) float32 { return float32(int16(binary.LittleEndian.Uint16(b))) }
	default:
		return nil
	}
}

func uintComponent(ct int) func(b []byte) uint32 {
	switch ct {
	case gltfComponentTypeUnsignedByte:
		return func(b []byte) uint32 { return uint32(b[0]) }
	case gltfComponentTypeUnsignedShort:
		return func(b []byte) uint32 { return uint32(binary.LittleEndian.Uint16(b)) }
	default:
		return binary.LittleEndian.Uint32
	}
}

// floats decodes every element into a flat slice of count*n values.
func (v accessorView) floats(n int) []float32 {
	decode := floatComponent(v.accessor.ComponentType, v.accessor.Normalized)
	size := gltfComponentTypeSize(v.accessor.ComponentType)
	stride := v.elementStride(n)

	out := make([]float32, v.accessor.Count*n)
	for i := 0; i < v.accessor.Count; i++ {
		for k := 0; k < n; k++ {
			out[i*n+k] = decode(v.data[i*stride+k*size:])
		}
	}
	return out
}

func (v accessorView) uints(n int) []uint32 {
	decode := uintComponent(v.accessor.ComponentType)
	size := gltfComponentTypeSize(v.accessor.ComponentType)
	stride := v.elementStride(n)

	out := make([]uint32, v.accessor.Count*n)
	for i := 0; i < v.accessor.Count; i++ {
		for k := 0; k < n; k++ {
			out[i*n+k] = decode(v.data[i*stride+k*size:])
		}
	}
	return out
}

// readFloatElements converts an accessor into elements of n floats. Tightly packed float data is
// reinterpreted in place when alignment allows; the result must then be treated as read-only.
func readFloatElements[T any](v accessorView, reader string, n int, accepted []accessorLayout) ([]T, error) {
	if err := v.check(reader, n, accepted); err != nil {
		return nil, err
	}
	if raw, ok := v.tight(n); ok {
		if out, ok := common.BytesToSlice[T](raw); ok {
			return out, nil
		}
	}
	flat := v.floats(n)
	if len(flat) == 0 {
		return []T{}, nil
	}
	out, _ := common.BytesToSlice[T](common.SliceToBytes(flat))
	return out, nil
}

func readF32(v accessorView) ([]float32, error) {
	return readFloatElements[float32](v, "readF32", 1, layoutsF32)
}

func readF32x2(v accessorView) ([]mgl32.Vec2, error) {
	return readFloatElements[mgl32.Vec2](v, "readF32x2", 2, layoutsF32x2)
}

func readF32x3(v accessorView) ([]mgl32.Vec3, error) {
	return readFloatElements[mgl32.Vec3](v, "readF32x3", 3, layoutsF32x3)
}

func readF32x4(v accessorView) ([]mgl32.Vec4, error) {
	return readFloatElements[mgl32.Vec4](v, "readF32x4", 4, layoutsF32x4)
}

func readMat4(v accessorView) ([]mgl32.Mat4, error) {
	return readFloatElements[mgl32.Mat4](v, "readMat4", 16, layoutsMat4)
}

func readU32(v accessorView) ([]uint32, error) {
	if err := v.check("readU32", 1, layoutsU32); err != nil {
		return nil, err
	}
	return v.uints(1), nil
}

func readU32x4(v accessorView) ([][4]uint32, error) {
	if err := v.check("readU32x4", 4, layoutsU32x4); err != nil {
		return nil, err
	}
	flat := v.uints(4)
	out := make([][4]uint32, v.accessor.Count)
	for i := range out {
		copy(out[i][:], flat[i*4:])
	}
	return out, nil
}

// PrimitiveReader decodes the vertex attributes and indices of one primitive.
// Each method reports whether the attribute is present; absent attributes are not errors.
type PrimitiveReader struct {
	parser    gltfParser
	primitive *gltfPrimitive
}

func newPrimitiveReader(parser gltfParser, primitive *gltfPrimitive) *PrimitiveReader {
	return &PrimitiveReader{parser: parser, primitive: primitive}
}

func (r *PrimitiveReader) attribute(semantic string) (accessorView, bool, error) {
	index, ok := r.primitive.Attributes[semantic]
	if !ok {
		return accessorView{}, false, nil
	}
	v, err := r.parser.Accessor(index)
	if err != nil {
		return accessorView{}, true, fmt.Errorf("%s: %w", semantic, err)
	}
	return v, true, nil
}

// Indices returns the primitive's index list.
func (r *PrimitiveReader) Indices() ([]uint32, bool, error) {
	if r.primitive.Indices == nil {
		return nil, false, nil
	}
	v, err := r.parser.Accessor(*r.primitive.Indices)
	if err != nil {
		return nil, true, fmt.Errorf("indices: %w", err)
	}
	out, err := readU32(v)
	return out, true, err
}

// Positions returns POSITION. Callers must not modify the returned slice.
func (r *PrimitiveReader) Positions() ([]mgl32.Vec3, bool, error) {
	v, ok, err := r.attribute(gltfAttributePosition)
	if !ok || err != nil {
		return nil, ok, err
	}
	out, err := readF32x3(v)
	return out, true, err
}

// Normals returns NORMAL. Callers must not modify the returned slice.
func (r *PrimitiveReader) Normals() ([]mgl32.Vec3, bool, error) {
	v, ok, err := r.attribute(gltfAttributeNormal)
	if !ok || err != nil {
		return nil, ok, err
	}
	out, err := readF32x3(v)
	return out, true, err
}

// UVs returns TEXCOORD_<set>. Callers must not modify the returned slice.
func (r *PrimitiveReader) UVs(set int) ([]mgl32.Vec2, bool, error) {
	semantic := gltfAttributeTexCoord0
	if set == 1 {
		semantic = gltfAttributeTexCoord1
	}
	v, ok, err := r.attribute(semantic)
	if !ok || err != nil {
		return nil, ok, err
	}
	out, err := readF32x2(v)
	return out, true, err
}

// Joints returns JOINTS_0.
func (r *PrimitiveReader) Joints() ([][4]uint32, bool, error) {
	v, ok, err := r.attribute(gltfAttributeJoints0)
	if !ok || err != nil {
		return nil, ok, err
	}
	out, err := readU32x4(v)
	return out, true, err
}

// Weights returns WEIGHTS_0.
func (r *PrimitiveReader) Weights() ([]mgl32.Vec4, bool, error) {
	v, ok, err := r.attribute(gltfAttributeWeights0)
	if !ok || err != nil {
		return nil, ok, err
	}
	out, err := readF32x4(v)
	return out, true, err
}

// HasAttribute reports whether the primitive declares semantic.
func (r *PrimitiveReader) HasAttribute(semantic string) bool {
	_, ok := r.primitive.Attributes[semantic]
	return ok
}

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
