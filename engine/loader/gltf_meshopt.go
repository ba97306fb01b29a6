package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// ErrMeshoptMalformed is returned when an EXT_meshopt_compression stream cannot be decoded.
var ErrMeshoptMalformed = errors.New("meshopt: malformed stream")

// Compression modes and filters of EXT_meshopt_compression.
const (
	meshoptModeAttributes = "ATTRIBUTES"
	meshoptModeTriangles  = "TRIANGLES"
	meshoptModeIndices    = "INDICES"

	meshoptFilterNone        = "NONE"
	meshoptFilterOctahedral  = "OCTAHEDRAL"
	meshoptFilterQuaternion  = "QUATERNION"
	meshoptFilterExponential = "EXPONENTIAL"
)

const (
	meshoptVertexHeader   = 0xa0
	meshoptIndexHeader    = 0xe0
	meshoptSequenceHeader = 0xd0

	meshoptByteGroupSize        = 16
	meshoptByteGroupDecodeLimit = 24
	meshoptVertexBlockSizeBytes = 8192
	meshoptVertexBlockMaxSize   = 256
	meshoptTailMaxSize          = 32
)

// decodeMeshopt expands one compressed buffer view into count*stride bytes.
//
// Parameters:
//   - ext: the buffer view's EXT_meshopt_compression block
//   - src: the compressed bytes
//
// Returns:
//   - []byte: the decoded view
//   - error: ErrMeshoptMalformed (wrapped) for unknown modes, filters or corrupt streams
func decodeMeshopt(ext *gltfMeshoptCompression, src []byte) ([]byte, error) {
	if ext.Count < 0 || ext.ByteStride <= 0 || ext.Count > math.MaxInt32/ext.ByteStride {
		return nil, fmt.Errorf("count %d stride %d: %w", ext.Count, ext.ByteStride, ErrMeshoptMalformed)
	}
	dst := make([]byte, ext.Count*ext.ByteStride)

	var err error
	switch ext.Mode {
	case meshoptModeAttributes:
		if ext.ByteStride%4 != 0 || ext.ByteStride > 256 {
			return nil, fmt.Errorf("attribute stride %d: %w", ext.ByteStride, ErrMeshoptMalformed)
		}
		err = decodeMeshoptVertices(dst, ext.Count, ext.ByteStride, src)
	case meshoptModeTriangles:
		err = decodeMeshoptTriangles(dst, ext.Count, ext.ByteStride, src)
	case meshoptModeIndices:
		err = decodeMeshoptSequence(dst, ext.Count, ext.ByteStride, src)
	default:
		return nil, fmt.Errorf("mode %q: %w", ext.Mode, ErrMeshoptMalformed)
	}
	if err != nil {
		return nil, err
	}

	switch ext.Filter {
	case "", meshoptFilterNone:
	case meshoptFilterOctahedral:
		err = meshoptFilterOct(dst, ext.Count, ext.ByteStride)
	case meshoptFilterQuaternion:
		err = meshoptFilterQuat(dst, ext.Count, ext.ByteStride)
	case meshoptFilterExponential:
		err = meshoptFilterExp(dst, ext.Count, ext.ByteStride)
	default:
		err = fmt.Errorf("filter %q: %w", ext.Filter, ErrMeshoptMalformed)
	}
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// --- Attribute codec ---

func meshoptVertexBlockSize(stride int) int {
	n := (meshoptVertexBlockSizeBytes / stride) &^ (meshoptByteGroupSize - 1)
	return min(n, meshoptVertexBlockMaxSize)
}

func decodeMeshoptVertices(dst []byte, count, stride int, src []byte) error {
	tail := max(stride, meshoptTailMaxSize)
	if len(src) < 1+tail {
		return fmt.Errorf("attribute stream too short: %w", ErrMeshoptMalformed)
	}
	if src[0]&0xf0 != meshoptVertexHeader || src[0]&0x0f != 0 {
		return fmt.Errorf("attribute header %#x: %w", src[0], ErrMeshoptMalformed)
	}

	last := make([]byte, stride)
	copy(last, src[len(src)-stride:])

	data := src[1:]
	blockSize := meshoptVertexBlockSize(stride)
	buffer := make([]byte, meshoptVertexBlockMaxSize)

	for offset := 0; offset < count; {
		n := min(blockSize, count-offset)
		aligned := (n + meshoptByteGroupSize - 1) &^ (meshoptByteGroupSize - 1)
		block := dst[offset*stride : (offset+n)*stride]

		for k := 0; k < stride; k++ {
			var err error
			data, err = meshoptDecodeBytes(data, buffer[:aligned])
			if err != nil {
				return err
			}
			p := last[k]
			for i := 0; i < n; i++ {
				v := meshoptUnzigzag8(buffer[i]) + p
				block[i*stride+k] = v
				p = v
			}
		}
		copy(last, block[(n-1)*stride:])
		offset += n
	}

	if len(data) != tail {
		return fmt.Errorf("%d trailing bytes, want %d: %w", len(data), tail, ErrMeshoptMalformed)
	}
	return nil
}

func meshoptUnzigzag8(v byte) byte {
	return -(v & 1) ^ (v >> 1)
}

// meshoptDecodeBytes decodes len(out) bytes of one attribute byte lane.
func meshoptDecodeBytes(data, out []byte) ([]byte, error) {
	headerSize := (len(out)/meshoptByteGroupSize + 3) / 4
	if len(data) < headerSize {
		return nil, fmt.Errorf("group header truncated: %w", ErrMeshoptMalformed)
	}
	header := data[:headerSize]
	data = data[headerSize:]

	for i := 0; i < len(out); i += meshoptByteGroupSize {
		if len(data) < meshoptByteGroupDecodeLimit {
			return nil, fmt.Errorf("group data truncated: %w", ErrMeshoptMalformed)
		}
		group := i / meshoptByteGroupSize
		bitsLog2 := (header[group/4] >> ((group % 4) * 2)) & 3
		data = meshoptDecodeGroup(data, out[i:i+meshoptByteGroupSize], bitsLog2)
	}
	return data, nil
}

// meshoptDecodeGroup decodes 16 values packed at 0, 2, 4 or 8 bits. Packed values equal to the
// all-ones sentinel are replaced by the next literal byte after the packed block.
func meshoptDecodeGroup(data, out []byte, bitsLog2 byte) []byte {
	switch bitsLog2 {
	case 0:
		clear(out)
		return data
	case 3:
		copy(out, data[:meshoptByteGroupSize])
		return data[meshoptByteGroupSize:]
	}

	bits := uint(1) << bitsLog2
	packed := meshoptByteGroupSize * int(bits) / 8
	sentinel := byte(1)<<bits - 1
	extra := packed

	o := 0
	for _, b := range data[:packed] {
		for s := 8 - int(bits); s >= 0; s -= int(bits) {
			enc := (b >> uint(s)) & sentinel
			if enc == sentinel {
				enc = data[extra]
				extra++
			}
			out[o] = enc
			o++
		}
	}
	return data[extra:]
}

// --- Index codecs ---

func meshoptWriteIndex(dst []byte, i, size int, v uint32) {
	if size == 2 {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
		return
	}
	binary.LittleEndian.PutUint32(dst[i*4:], v)
}

// meshoptReader reads variable-length integers with bounds checking.
type meshoptReader struct {
	data []byte
	pos  int
	err  error
}

func (r *meshoptReader) readByte() byte {
	if r.pos >= len(r.data) {
		r.err = fmt.Errorf("read past end: %w", ErrMeshoptMalformed)
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *meshoptReader) vbyte() uint32 {
	lead := r.readByte()
	if lead < 128 {
		return uint32(lead)
	}
	result := uint32(lead & 127)
	shift := uint(7)
	for i := 0; i < 4; i++ {
		group := r.readByte()
		result |= uint32(group&127) << shift
		shift += 7
		if group < 128 {
			break
		}
	}
	return result
}

func (r *meshoptReader) index(last uint32) uint32 {
	v := r.vbyte()
	d := (v >> 1) ^ -(v & 1)
	return last + d
}

type meshoptFifo struct {
	edges      [16][2]uint32
	vertices   [16]uint32
	edgeOffset int
	vertOffset int
}

func (f *meshoptFifo) pushVertex(v uint32, cond bool) {
	f.vertices[f.vertOffset] = v
	if cond {
		f.vertOffset = (f.vertOffset + 1) & 15
	}
}

func (f *meshoptFifo) pushEdge(a, b uint32) {
	f.edges[f.edgeOffset] = [2]uint32{a, b}
	f.edgeOffset = (f.edgeOffset + 1) & 15
}

func (f *meshoptFifo) vertex(back int) uint32 {
	return f.vertices[(f.vertOffset-back)&15]
}

func decodeMeshoptTriangles(dst []byte, count, size int, src []byte) error {
	if size != 2 && size != 4 {
		return fmt.Errorf("index size %d: %w", size, ErrMeshoptMalformed)
	}
	if count%3 != 0 {
		return fmt.Errorf("index count %d not a multiple of 3: %w", count, ErrMeshoptMalformed)
	}
	if len(src) < 1+count/3+16 {
		return fmt.Errorf("triangle stream too short: %w", ErrMeshoptMalformed)
	}
	if src[0]&0xf0 != meshoptIndexHeader || src[0]&0x0f > 1 {
		return fmt.Errorf("triangle header %#x: %w", src[0], ErrMeshoptMalformed)
	}
	version := src[0] & 0x0f
	fecMax := 15
	if version >= 1 {
		fecMax = 13
	}

	var fifo meshoptFifo
	for i := range fifo.edges {
		fifo.edges[i] = [2]uint32{math.MaxUint32, math.MaxUint32}
		fifo.vertices[i] = math.MaxUint32
	}

	codes := src[1 : 1+count/3]
	safeEnd := len(src) - 16
	codeAux := src[safeEnd:]
	r := &meshoptReader{data: src[:safeEnd], pos: 1 + count/3}

	var next, last uint32
	for t, codeTri := range codes {
		if r.pos > safeEnd {
			return fmt.Errorf("triangle data overrun: %w", ErrMeshoptMalformed)
		}
		i := t * 3
		var a, b, c uint32

		switch {
		case codeTri < 0xf0:
			fe := int(codeTri >> 4)
			edge := fifo.edges[(fifo.edgeOffset-1-fe)&15]
			a, b = edge[0], edge[1]
			fec := int(codeTri & 15)

			if fec < fecMax {
				fec0 := fec == 0
				if fec0 {
					c = next
					next++
				} else {
					c = fifo.vertex(1 + fec)
				}
				fifo.pushVertex(c, fec0)
			} else {
				if fec != 15 {
					c = last + uint32(fec-(fec^3))
				} else {
					c = r.index(last)
				}
				last = c
				fifo.pushVertex(c, true)
			}
			fifo.pushEdge(c, b)
			fifo.pushEdge(a, c)

		case codeTri < 0xfe:
			aux := codeAux[codeTri&15]
			feb, fec := int(aux>>4), int(aux&15)

			a = next
			next++
			if feb == 0 {
				b = next
				next++
			} else {
				b = fifo.vertex(feb)
			}
			if fec == 0 {
				c = next
				next++
			} else {
				c = fifo.vertex(fec)
			}
			fifo.pushVertex(a, true)
			fifo.pushVertex(b, feb == 0)
			fifo.pushVertex(c, fec == 0)
			fifo.pushEdge(b, a)
			fifo.pushEdge(c, b)
			fifo.pushEdge(a, c)

		default:
			aux := r.readByte()
			fea := 15
			if codeTri == 0xfe {
				fea = 0
			}
			feb, fec := int(aux>>4), int(aux&15)
			if aux == 0 {
				next = 0
			}

			if fea == 0 {
				a = next
				next++
			}
			if feb == 0 {
				b = next
				next++
			} else {
				b = fifo.vertex(feb)
			}
			if fec == 0 {
				c = next
				next++
			} else {
				c = fifo.vertex(fec)
			}
			if fea == 15 {
				a = r.index(last)
				last = a
			}
			if feb == 15 {
				b = r.index(last)
				last = b
			}
			if fec == 15 {
				c = r.index(last)
				last = c
			}
			fifo.pushVertex(a, true)
			fifo.pushVertex(b, feb == 0 || feb == 15)
			fifo.pushVertex(c, fec == 0 || fec == 15)
			fifo.pushEdge(b, a)
			fifo.pushEdge(c, b)
			fifo.pushEdge(a, c)
		}
		if r.err != nil {
			return r.err
		}

		meshoptWriteIndex(dst, i, size, a)
		meshoptWriteIndex(dst, i+1, size, b)
		meshoptWriteIndex(dst, i+2, size, c)
	}

	if r.pos != safeEnd {
		return fmt.Errorf("triangle data ends at %d, want %d: %w", r.pos, safeEnd, ErrMeshoptMalformed)
	}
	return nil
}

func decodeMeshoptSequence(dst []byte, count, size int, src []byte) error {
	if size != 2 && size != 4 {
		return fmt.Errorf("index size %d: %w", size, ErrMeshoptMalformed)
	}
	if len(src) < 1+count+4 {
		return fmt.Errorf("index stream too short: %w", ErrMeshoptMalformed)
	}
	if src[0]&0xf0 != meshoptSequenceHeader || src[0]&0x0f > 1 {
		return fmt.Errorf("index header %#x: %w", src[0], ErrMeshoptMalformed)
	}

	safeEnd := len(src) - 4
	r := &meshoptReader{data: src, pos: 1}
	var last [2]uint32

	for i := 0; i < count; i++ {
		if r.pos >= safeEnd {
			return fmt.Errorf("index data overrun: %w", ErrMeshoptMalformed)
		}
		v := r.vbyte()
		current := v & 1
		v >>= 1
		d := (v >> 1) ^ -(v & 1)
		index := last[current] + d
		last[current] = index
		meshoptWriteIndex(dst, i, size, index)
	}
	if r.err != nil {
		return r.err
	}
	if r.pos != safeEnd {
		return fmt.Errorf("index data ends at %d, want %d: %w", r.pos, safeEnd, ErrMeshoptMalformed)
	}
	return nil
}

// --- Filters ---

func meshoptRound(v float32) int32 {
	if v >= 0 {
		return int32(v + 0.5)
	}
	return int32(v - 0.5)
}

func meshoptOct(x, y, z, maxValue float32) (int32, int32, int32) {
	z = z - math32.Abs(x) - math32.Abs(y)
	t := min(z, 0)
	if x >= 0 {
		x += t
	} else {
		x -= t
	}
	if y >= 0 {
		y += t
	} else {
		y -= t
	}
	s := maxValue / math32.Sqrt(x*x+y*y+z*z)
	return meshoptRound(x * s), meshoptRound(y * s), meshoptRound(z * s)
}

func meshoptFilterOct(data []byte, count, stride int) error {
	switch stride {
	case 4:
		for i := 0; i < count; i++ {
			e := data[i*4 : i*4+4]
			x, y, z := meshoptOct(float32(int8(e[0])), float32(int8(e[1])), float32(int8(e[2])), 127)
			e[0], e[1], e[2] = byte(int8(x)), byte(int8(y)), byte(int8(z))
		}
	case 8:
		for i := 0; i < count; i++ {
			e := data[i*8 : i*8+8]
			x, y, z := meshoptOct(
				float32(int16(binary.LittleEndian.Uint16(e[0:]))),
				float32(int16(binary.LittleEndian.Uint16(e[2:]))),
				float32(int16(binary.LittleEndian.Uint16(e[4:]))),
				32767,
			)
			binary.LittleEndian.PutUint16(e[0:], uint16(int16(x)))
			binary.LittleEndian.PutUint16(e[2:], uint16(int16(y)))
			binary.LittleEndian.PutUint16(e[4:], uint16(int16(z)))
		}
	default:
		return fmt.Errorf("octahedral filter stride %d: %w", stride, ErrMeshoptMalformed)
	}
	return nil
}

func meshoptFilterQuat(data []byte, count, stride int) error {
	if stride != 8 {
		return fmt.Errorf("quaternion filter stride %d: %w", stride, ErrMeshoptMalformed)
	}
	scale := 1 / math32.Sqrt(2)

	for i := 0; i < count; i++ {
		e := data[i*8 : i*8+8]
		var q [4]int16
		for k := range q {
			q[k] = int16(binary.LittleEndian.Uint16(e[k*2:]))
		}

		ss := scale / float32(q[3]|3)
		x := float32(q[0]) * ss
		y := float32(q[1]) * ss
		z := float32(q[2]) * ss
		w := math32.Sqrt(max(1-x*x-y*y-z*z, 0))

		qc := int(q[3] & 3)
		out := [4]int32{}
		out[(qc+1)&3] = meshoptRound(x * 32767)
		out[(qc+2)&3] = meshoptRound(y * 32767)
		out[(qc+3)&3] = meshoptRound(z * 32767)
		out[(qc+0)&3] = meshoptRound(w * 32767)
		for k, v := range out {
			binary.LittleEndian.PutUint16(e[k*2:], uint16(int16(v)))
		}
	}
	return nil
}

func meshoptFilterExp(data []byte, count, stride int) error {
	if stride%4 != 0 {
		return fmt.Errorf("exponential filter stride %d: %w", stride, ErrMeshoptMalformed)
	}
	for i := 0; i < count*stride/4; i++ {
		v := binary.LittleEndian.Uint32(data[i*4:])
		e := int32(v) >> 24
		m := int32(v<<8) >> 8
		r := math.Float32frombits(uint32(e+127)<<23) * float32(m)
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(r))
	}
	return nil
}
