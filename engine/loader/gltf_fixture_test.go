package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testAsset assembles a glTF document and its binary buffer in memory.
type testAsset struct {
	doc gltfDocument
	bin []byte
}

func newTestAsset() *testAsset {
	return &testAsset{doc: gltfDocument{Asset: gltfAsset{Version: "2.0"}}}
}

func intPtr(v int) *int { return &v }

func float32Ptr(v float32) *float32 { return &v }

// addView appends data to the binary buffer at a 4-byte boundary and adds a buffer view over it.
func (a *testAsset) addView(data []byte, stride int) int {
	for len(a.bin)%4 != 0 {
		a.bin = append(a.bin, 0)
	}
	view := gltfBufferView{Buffer: 0, ByteOffset: len(a.bin), ByteLength: len(data)}
	if stride != 0 {
		view.ByteStride = intPtr(stride)
	}
	a.bin = append(a.bin, data...)
	a.doc.BufferViews = append(a.doc.BufferViews, view)
	return len(a.doc.BufferViews) - 1
}

func (a *testAsset) addAccessor(view, componentType int, typ string, count int, normalized bool) int {
	a.doc.Accessors = append(a.doc.Accessors, gltfAccessor{
		BufferView:    intPtr(view),
		ComponentType: componentType,
		Type:          typ,
		Count:         count,
		Normalized:    normalized,
	})
	return len(a.doc.Accessors) - 1
}

// addFloats stores tightly packed float32 values as an accessor of typ.
func (a *testAsset) addFloats(typ string, values ...float32) int {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	n := gltfAccessorTypeComponentCount(typ)
	return a.addAccessor(a.addView(raw, 0), gltfComponentTypeFloat, typ, len(values)/n, false)
}

func (a *testAsset) addUint16s(typ string, normalized bool, values ...uint16) int {
	raw := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(raw[i*2:], v)
	}
	n := gltfAccessorTypeComponentCount(typ)
	return a.addAccessor(a.addView(raw, 0), gltfComponentTypeUnsignedShort, typ, len(values)/n, normalized)
}

func (a *testAsset) addMesh(prims ...gltfPrimitive) int {
	a.doc.Meshes = append(a.doc.Meshes, gltfMesh{Primitives: prims})
	return len(a.doc.Meshes) - 1
}

func (a *testAsset) addNode(n gltfNode) int {
	a.doc.Nodes = append(a.doc.Nodes, n)
	return len(a.doc.Nodes) - 1
}

// triangle adds a single triangle primitive and returns it.
func (a *testAsset) triangle(withNormals bool) gltfPrimitive {
	attrs := map[string]int{
		gltfAttributePosition: a.addFloats(gltfAccessorTypeVec3, 0, 0, 0, 1, 0, 0, 0, 1, 0),
	}
	if withNormals {
		attrs[gltfAttributeNormal] = a.addFloats(gltfAccessorTypeVec3, 0, 0, 1, 0, 0, 1, 0, 0, 1)
	}
	return gltfPrimitive{
		Attributes: attrs,
		Indices:    intPtr(a.addUint16s(gltfAccessorTypeScalar, false, 0, 1, 2)),
	}
}

// glb packs the document and binary buffer into a GLB container.
func (a *testAsset) glb(t *testing.T) []byte {
	t.Helper()
	doc := a.doc
	if len(a.bin) > 0 {
		doc.Buffers = []gltfBuffer{{ByteLength: len(a.bin)}}
	}
	js, err := json.Marshal(doc)
	require.NoError(t, err)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := append([]byte(nil), a.bin...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	total := 12 + 8 + len(js)
	if len(bin) > 0 {
		total += 8 + len(bin)
	}

	var out bytes.Buffer
	write := func(v any) { require.NoError(t, binary.Write(&out, binary.LittleEndian, v)) }
	write(gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	write(gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON})
	out.Write(js)
	if len(bin) > 0 {
		write(gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
		out.Write(bin)
	}
	return out.Bytes()
}

// parse runs the parser over the packed asset.
func (a *testAsset) parse(t *testing.T, logger *zap.Logger) gltfParser {
	t.Helper()
	p, err := parseDocument(context.Background(), "mem://asset.glb", a.glb(t), FileFetcher{}, logger)
	require.NoError(t, err)
	return p
}
