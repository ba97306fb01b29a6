package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// gltfJSON returns the asset as a .gltf document with its buffer behind uri.
func (a *testAsset) gltfJSON(t *testing.T, uri string) []byte {
	t.Helper()
	doc := a.doc
	doc.Buffers = []gltfBuffer{{URI: uri, ByteLength: len(a.bin)}}
	js, err := json.Marshal(doc)
	require.NoError(t, err)
	return js
}

func TestParseGLB(t *testing.T) {
	a := newTestAsset()
	a.addMesh(a.triangle(false))

	p := a.parse(t, zap.NewNop())
	doc := p.Document()
	require.NotNil(t, doc)
	assert.Equal(t, "2.0", doc.Asset.Version)
	assert.Len(t, doc.Meshes, 1)
	assert.Equal(t, "mem://asset.glb", p.URL())

	view, stride, err := p.BufferView(0)
	require.NoError(t, err)
	assert.Zero(t, stride)
	assert.Len(t, view, 36)
}

func TestParseRejectsBadHeaders(t *testing.T) {
	valid := newTestAsset().glb(t)

	t.Run("magic", func(t *testing.T) {
		data := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(data[0:], 0x12345678)
		_, _, err := splitGLB(data)
		assert.ErrorIs(t, err, errInvalidGLBMagic)
	})

	t.Run("version", func(t *testing.T) {
		data := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(data[4:], 1)
		_, err := parseDocument(context.Background(), "a.glb", data, FileFetcher{}, zap.NewNop())
		assert.ErrorIs(t, err, errInvalidGLBVersion)
		assert.ErrorIs(t, err, ErrMalformedAsset)
	})

	t.Run("missing json chunk", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: 20}))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: 0, ChunkType: gltfGLBChunkBIN}))
		_, err := parseDocument(context.Background(), "a.glb", buf.Bytes(), FileFetcher{}, zap.NewNop())
		assert.ErrorIs(t, err, errMissingJSONChunk)
	})

	t.Run("truncated chunk", func(t *testing.T) {
		_, err := parseDocument(context.Background(), "a.glb", valid[:len(valid)-4], FileFetcher{}, zap.NewNop())
		assert.ErrorIs(t, err, ErrMalformedAsset)
	})

	t.Run("gltf version", func(t *testing.T) {
		_, err := parseDocument(context.Background(), "a.gltf", []byte(`{"asset":{"version":"1.0"}}`), FileFetcher{}, zap.NewNop())
		assert.ErrorIs(t, err, errInvalidGLTFVersion)
	})

	t.Run("json", func(t *testing.T) {
		_, err := parseDocument(context.Background(), "a.gltf", []byte(`{"asset":`), FileFetcher{}, zap.NewNop())
		assert.ErrorIs(t, err, ErrMalformedAsset)
	})
}

func TestParseDataURIBufferWarns(t *testing.T) {
	a := newTestAsset()
	pos := a.addFloats(gltfAccessorTypeVec3, 1, 2, 3)
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(a.bin)

	core, logs := observer.New(zapcore.WarnLevel)
	p, err := parseDocument(context.Background(), "a.gltf", a.gltfJSON(t, uri), FileFetcher{}, zap.New(core))
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "embedded base64")

	v, err := p.Accessor(pos)
	require.NoError(t, err)
	out, err := readF32x3(v)
	require.NoError(t, err)
	assert.Equal(t, float32(3), out[0][2])
}

func TestParseExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	a := newTestAsset()
	a.addFloats(gltfAccessorTypeVec3, 1, 2, 3)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mesh.bin"), a.bin, 0o644))

	p, err := parseDocument(context.Background(), filepath.Join(dir, "mesh.gltf"), a.gltfJSON(t, "mesh.bin"), FileFetcher{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, a.bin, p.Document().Buffers[0].Data)
}

func TestParseBufferErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		a := newTestAsset()
		a.addFloats(gltfAccessorTypeScalar, 1)
		_, err := parseDocument(context.Background(), filepath.Join(t.TempDir(), "m.gltf"), a.gltfJSON(t, "nope.bin"), FileFetcher{}, zap.NewNop())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("short buffer", func(t *testing.T) {
		a := newTestAsset()
		a.addFloats(gltfAccessorTypeScalar, 1)
		js := a.gltfJSON(t, "data:application/octet-stream;base64,AAA=")
		_, err := parseDocument(context.Background(), "m.gltf", js, FileFetcher{}, zap.NewNop())
		assert.ErrorIs(t, err, errBufferSizeMismatch)
	})

	t.Run("no uri outside glb", func(t *testing.T) {
		a := newTestAsset()
		a.addFloats(gltfAccessorTypeScalar, 1)
		_, err := parseDocument(context.Background(), "m.gltf", a.gltfJSON(t, ""), FileFetcher{}, zap.NewNop())
		assert.ErrorIs(t, err, ErrMalformedAsset)
	})

	t.Run("buffer view out of range", func(t *testing.T) {
		a := newTestAsset()
		a.addFloats(gltfAccessorTypeScalar, 1)
		a.doc.BufferViews[0].ByteLength = 64
		p := a.parse(t, zap.NewNop())
		_, _, err := p.BufferView(0)
		assert.ErrorIs(t, err, errShortBufferView)

		_, _, err = p.BufferView(7)
		assert.ErrorIs(t, err, errIndexOutOfRange)
	})
}

func TestParseSkipsMeshoptFallbackBuffer(t *testing.T) {
	js := []byte(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": 64, "extensions": {"EXT_meshopt_compression": {"fallback": true}}}]
	}`)
	p, err := parseDocument(context.Background(), "m.gltf", js, FileFetcher{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p.Document().Buffers[0].Data)
}
