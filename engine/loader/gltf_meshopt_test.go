package loader

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func zeros(n int) []byte { return make([]byte, n) }

func TestMeshoptSequence(t *testing.T) {
	tests := []struct {
		name  string
		src   []byte
		count int
		size  int
		want  []uint32
	}{
		{
			name:  "ascending u32",
			src:   []byte{0xd1, 0x00, 0x04, 0x04, 0, 0, 0, 0},
			count: 3,
			size:  4,
			want:  []uint32{0, 1, 2},
		},
		{
			name:  "deltas u16",
			src:   []byte{0xd1, 0x14, 0x06, 0, 0, 0, 0},
			count: 2,
			size:  2,
			want:  []uint32{5, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := decodeMeshopt(&gltfMeshoptCompression{
				ByteStride: tt.size,
				Count:      tt.count,
				Mode:       meshoptModeIndices,
			}, tt.src)
			require.NoError(t, err)

			got := make([]uint32, tt.count)
			for i := range got {
				if tt.size == 2 {
					got[i] = uint32(binary.LittleEndian.Uint16(out[i*2:]))
				} else {
					got[i] = binary.LittleEndian.Uint32(out[i*4:])
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMeshoptSequenceRejectsTrailingData(t *testing.T) {
	src := []byte{0xd1, 0x00, 0x04, 0x04, 0x04, 0, 0, 0, 0}
	_, err := decodeMeshopt(&gltfMeshoptCompression{ByteStride: 4, Count: 3, Mode: meshoptModeIndices}, src)
	assert.ErrorIs(t, err, ErrMeshoptMalformed)
}

func TestMeshoptVerticesBaseline(t *testing.T) {
	// Every lane uses zero deltas, so each vertex repeats the baseline taken from the tail.
	src := []byte{0xa0, 0x00, 0x00, 0x00, 0x00}
	tail := zeros(32)
	copy(tail[28:], []byte{1, 2, 3, 4})
	src = append(src, tail...)

	out, err := decodeMeshopt(&gltfMeshoptCompression{ByteStride: 4, Count: 2, Mode: meshoptModeAttributes}, src)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 1, 2, 3, 4}, out)
}

func TestMeshoptVerticesLiteralGroup(t *testing.T) {
	src := []byte{0xa0, 0x03}
	literal := zeros(16)
	literal[0], literal[1] = 2, 2
	src = append(src, literal...)
	src = append(src, 0x00, 0x00, 0x00)
	src = append(src, zeros(32)...)

	out, err := decodeMeshopt(&gltfMeshoptCompression{ByteStride: 4, Count: 2, Mode: meshoptModeAttributes}, src)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, out)
}

func TestMeshoptRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		ext  gltfMeshoptCompression
		src  []byte
	}{
		{"vertex header", gltfMeshoptCompression{ByteStride: 4, Count: 1, Mode: meshoptModeAttributes}, append([]byte{0xb0}, zeros(40)...)},
		{"vertex too short", gltfMeshoptCompression{ByteStride: 4, Count: 1, Mode: meshoptModeAttributes}, []byte{0xa0, 0x00}},
		{"vertex stride", gltfMeshoptCompression{ByteStride: 6, Count: 1, Mode: meshoptModeAttributes}, append([]byte{0xa0}, zeros(40)...)},
		{"sequence header", gltfMeshoptCompression{ByteStride: 4, Count: 1, Mode: meshoptModeIndices}, []byte{0xd2, 0x00, 0, 0, 0, 0}},
		{"index size", gltfMeshoptCompression{ByteStride: 3, Count: 1, Mode: meshoptModeIndices}, []byte{0xd1, 0x00, 0, 0, 0, 0}},
		{"triangle header", gltfMeshoptCompression{ByteStride: 4, Count: 3, Mode: meshoptModeTriangles}, append([]byte{0x10}, zeros(40)...)},
		{"mode", gltfMeshoptCompression{ByteStride: 4, Count: 1, Mode: "STRIPS"}, zeros(8)},
		{"filter", gltfMeshoptCompression{ByteStride: 4, Count: 1, Mode: meshoptModeIndices, Filter: "BOGUS"}, []byte{0xd1, 0x00, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeMeshopt(&tt.ext, tt.src)
			assert.ErrorIs(t, err, ErrMeshoptMalformed)
		})
	}
}

func TestMeshoptFilterExp(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], 0xFF000003)
	binary.LittleEndian.PutUint32(data[4:], 0x00000003)

	require.NoError(t, meshoptFilterExp(data, 2, 4))
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(data[0:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(data[4:])))
}

func TestMeshoptFilterQuat(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[6:], 0x7FFF)

	require.NoError(t, meshoptFilterQuat(data, 1, 8))
	got := [4]int16{}
	for k := range got {
		got[k] = int16(binary.LittleEndian.Uint16(data[k*2:]))
	}
	assert.Equal(t, [4]int16{0, 0, 0, 32767}, got)

	assert.ErrorIs(t, meshoptFilterQuat(make([]byte, 4), 1, 4), ErrMeshoptMalformed)
}

func TestMeshoptFilterOct(t *testing.T) {
	data := []byte{0, 0, 127, 42}
	require.NoError(t, meshoptFilterOct(data, 1, 4))
	assert.Equal(t, []byte{0, 0, 127, 42}, data)

	assert.ErrorIs(t, meshoptFilterOct(make([]byte, 12), 1, 12), ErrMeshoptMalformed)
}

func TestParserDecodesMeshoptView(t *testing.T) {
	a := newTestAsset()
	compressed := []byte{0xd1, 0x00, 0x04, 0x04, 0, 0, 0, 0}
	a.bin = append(a.bin, compressed...)
	a.doc.BufferViews = append(a.doc.BufferViews, gltfBufferView{
		ByteLength: 12,
		Extensions: gltfBufferViewExtensions{Meshopt: &gltfMeshoptCompression{
			ByteLength: len(compressed),
			ByteStride: 4,
			Count:      3,
			Mode:       meshoptModeIndices,
		}},
	})
	acc := a.addAccessor(0, gltfComponentTypeUnsignedInt, gltfAccessorTypeScalar, 3, false)

	p := a.parse(t, zap.NewNop())
	view, err := p.Accessor(acc)
	require.NoError(t, err)
	assert.Equal(t, 0, view.stride)

	indices, err := readU32(view)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, indices)
}
