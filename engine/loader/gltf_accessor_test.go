package loader

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rawView(componentType int, typ string, count int, normalized bool, stride int, data []byte) accessorView {
	return accessorView{
		accessor: &gltfAccessor{ComponentType: componentType, Type: typ, Count: count, Normalized: normalized},
		data:     data,
		stride:   stride,
	}
}

func u16le(values ...uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func TestReadF32x2Normalized(t *testing.T) {
	t.Run("unsigned short", func(t *testing.T) {
		v := rawView(gltfComponentTypeUnsignedShort, gltfAccessorTypeVec2, 2, true, 0, u16le(0, 65535, 32768, 0))
		out, err := readF32x2(v)
		require.NoError(t, err)
		assert.Equal(t, mgl32.Vec2{0, 1}, out[0])
		assert.InDelta(t, 0.5, out[1][0], 1e-4)
	})

	t.Run("unsigned short stride 4", func(t *testing.T) {
		v := rawView(gltfComponentTypeUnsignedShort, gltfAccessorTypeVec2, 1, true, 4, u16le(65535, 0))
		out, err := readF32x2(v)
		require.NoError(t, err)
		assert.Equal(t, []mgl32.Vec2{{1, 0}}, out)
	})

	t.Run("unsigned byte", func(t *testing.T) {
		v := rawView(gltfComponentTypeUnsignedByte, gltfAccessorTypeVec2, 1, true, 2, []byte{255, 0})
		out, err := readF32x2(v)
		require.NoError(t, err)
		assert.Equal(t, []mgl32.Vec2{{1, 0}}, out)
	})
}

func TestReadF32x3SignedClampsToMinusOne(t *testing.T) {
	v := rawView(gltfComponentTypeByte, gltfAccessorTypeVec3, 1, true, 4, []byte{0x80, 0x81, 127, 0})
	out, err := readF32x3(v)
	require.NoError(t, err)
	assert.Equal(t, []mgl32.Vec3{{-1, -1, 1}}, out)

	s := rawView(gltfComponentTypeShort, gltfAccessorTypeVec3, 1, true, 8, u16le(0x8000, 32767, 0, 0))
	out, err = readF32x3(s)
	require.NoError(t, err)
	assert.Equal(t, []mgl32.Vec3{{-1, 1, 0}}, out)
}

func TestReadF32x2Strided(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(1))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(2))
	binary.LittleEndian.PutUint32(data[8:], math.Float32bits(3))
	binary.LittleEndian.PutUint32(data[12:], math.Float32bits(4))

	out, err := readF32x2(rawView(gltfComponentTypeFloat, gltfAccessorTypeVec2, 2, false, 8, data))
	require.NoError(t, err)
	assert.Equal(t, []mgl32.Vec2{{1, 2}, {3, 4}}, out)
}

func TestReadU32x4(t *testing.T) {
	out, err := readU32x4(rawView(gltfComponentTypeUnsignedByte, gltfAccessorTypeVec4, 2, false, 4,
		[]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, err)
	assert.Equal(t, [][4]uint32{{1, 2, 3, 4}, {5, 6, 7, 8}}, out)
}

func TestUnsupportedAccessorNamesCombination(t *testing.T) {
	tests := []struct {
		name string
		read func(accessorView) error
		view accessorView
		want string
	}{
		{
			name: "float scalar with stride",
			read: func(v accessorView) error { _, err := readF32(v); return err },
			view: rawView(gltfComponentTypeFloat, gltfAccessorTypeScalar, 1, false, 8, make([]byte, 8)),
			want: "readF32: unsupported accessor (componentType=FLOAT, normalized=false, byteStride=8)",
		},
		{
			name: "normalized indices",
			read: func(v accessorView) error { _, err := readU32(v); return err },
			view: rawView(gltfComponentTypeUnsignedShort, gltfAccessorTypeScalar, 1, true, 0, make([]byte, 2)),
			want: "readU32: unsupported accessor (componentType=UNSIGNED_SHORT, normalized=true, byteStride=none)",
		},
		{
			name: "unnormalized byte positions",
			read: func(v accessorView) error { _, err := readF32x3(v); return err },
			view: rawView(gltfComponentTypeByte, gltfAccessorTypeVec3, 1, false, 4, make([]byte, 4)),
			want: "readF32x3: unsupported accessor (componentType=BYTE, normalized=false, byteStride=4)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(tt.view)
			require.Error(t, err)
			assert.EqualError(t, err, tt.want)
			assert.ErrorIs(t, err, ErrUnsupportedAccessor)

			var ua *UnsupportedAccessorError
			require.True(t, errors.As(err, &ua))
			assert.Equal(t, tt.view.stride, ua.ByteStride)
		})
	}
}

func TestReaderRejectsWrongComponentCount(t *testing.T) {
	_, err := readF32x3(rawView(gltfComponentTypeFloat, gltfAccessorTypeVec2, 1, false, 0, make([]byte, 8)))
	assert.ErrorIs(t, err, ErrMalformedAsset)
}

func TestAccessorBounds(t *testing.T) {
	a := newTestAsset()
	pos := a.addFloats(gltfAccessorTypeVec3, 0, 0, 0, 1, 1, 1)
	a.doc.Accessors[pos].Count = 3

	p := a.parse(t, zap.NewNop())
	_, err := p.Accessor(pos)
	assert.ErrorIs(t, err, errShortBufferView)
	assert.ErrorIs(t, err, ErrMalformedAsset)

	_, err = p.Accessor(99)
	assert.ErrorIs(t, err, errIndexOutOfRange)
}

func TestAccessorRejectsOverflowingCount(t *testing.T) {
	const huge = (1 << 62) / 3

	a := newTestAsset()
	pos := a.addFloats(gltfAccessorTypeVec3, 0, 0, 0, 1, 1, 1)
	a.doc.Accessors[pos].Count = huge
	a.doc.Accessors = append(a.doc.Accessors, gltfAccessor{
		ComponentType: gltfComponentTypeFloat,
		Type:          gltfAccessorTypeVec3,
		Count:         huge,
	})
	p := a.parse(t, zap.NewNop())

	_, err := p.Accessor(pos)
	assert.ErrorIs(t, err, errShortBufferView)

	_, err = p.Accessor(pos + 1)
	assert.ErrorIs(t, err, errAccessorTooLarge)
	assert.ErrorIs(t, err, ErrMalformedAsset)
}

func TestMeshoptViewLargerThanDeclaredLength(t *testing.T) {
	a := newTestAsset()
	view := a.addView(make([]byte, 16), 0)
	a.doc.BufferViews[view].Extensions.Meshopt = &gltfMeshoptCompression{
		ByteLength: 16,
		ByteStride: 4,
		Count:      1 << 40,
		Mode:       meshoptModeAttributes,
	}

	_, _, err := a.parse(t, zap.NewNop()).BufferView(view)
	assert.ErrorIs(t, err, ErrMeshoptMalformed)
}

func TestSparseAccessorIsUnsupported(t *testing.T) {
	a := newTestAsset()
	pos := a.addFloats(gltfAccessorTypeVec3, 0, 0, 0)
	sparse := json.RawMessage(`{"count":1}`)
	a.doc.Accessors[pos].Sparse = &sparse

	_, err := a.parse(t, zap.NewNop()).Accessor(pos)
	assert.ErrorIs(t, err, ErrUnsupportedAccessor)
}

func TestAccessorWithoutBufferViewIsZeroFilled(t *testing.T) {
	a := newTestAsset()
	a.doc.Accessors = append(a.doc.Accessors, gltfAccessor{
		ComponentType: gltfComponentTypeFloat,
		Type:          gltfAccessorTypeVec3,
		Count:         2,
	})

	v, err := a.parse(t, zap.NewNop()).Accessor(0)
	require.NoError(t, err)
	out, err := readF32x3(v)
	require.NoError(t, err)
	assert.Equal(t, []mgl32.Vec3{{}, {}}, out)
}

func TestPrimitiveReaderBorrowsTightFloats(t *testing.T) {
	a := newTestAsset()
	prim := a.triangle(true)
	p := a.parse(t, zap.NewNop())

	r := newPrimitiveReader(p, &prim)
	positions, ok, err := r.Positions()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, positions[1])

	_, ok, err = r.UVs(0)
	require.NoError(t, err)
	assert.False(t, ok)

	indices, ok, err := r.Indices()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []uint32{0, 1, 2}, indices)
}
