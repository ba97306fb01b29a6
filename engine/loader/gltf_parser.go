package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// ErrMalformedAsset is wrapped by every error caused by an invalid document or binary layout.
var ErrMalformedAsset = errors.New("malformed glTF asset")

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = fmt.Errorf("%w: invalid glTF version: must be 2.0", ErrMalformedAsset)
	errInvalidGLBMagic    = fmt.Errorf("%w: invalid GLB magic number", ErrMalformedAsset)
	errInvalidGLBVersion  = fmt.Errorf("%w: invalid GLB version: must be 2", ErrMalformedAsset)
	errMissingJSONChunk   = fmt.Errorf("%w: GLB file missing JSON chunk", ErrMalformedAsset)
	errInvalidBufferURI   = fmt.Errorf("%w: invalid buffer URI", ErrMalformedAsset)
	errBufferSizeMismatch = fmt.Errorf("%w: buffer size mismatch", ErrMalformedAsset)
	errIndexOutOfRange    = fmt.Errorf("%w: index out of range", ErrMalformedAsset)
	errShortBufferView    = fmt.Errorf("%w: accessor exceeds buffer view", ErrMalformedAsset)
	errSparseAccessor     = fmt.Errorf("%w: sparse accessors", ErrUnsupportedAccessor)
	errAccessorTooLarge   = fmt.Errorf("%w: accessor too large", ErrMalformedAsset)
)

// maxZeroFilledAccessorBytes bounds the allocation for accessors without a buffer view.
const maxZeroFilledAccessorBytes = 1 << 28

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	url            string
	fetcher        Fetcher
	logger         *zap.Logger
	document       *gltfDocument
	glbBinaryChunk []byte

	views       [][]byte
	viewStrides []int
	viewLoaded  []bool
}

// gltfParser loads a glTF/GLB document and hands out decoded buffer views and accessors.
// A parser is used by one load at a time and is not safe for concurrent use.
type gltfParser interface {
	// Parse decodes a glTF JSON or GLB document and fetches its external buffers.
	// The format is detected from the GLB magic number.
	//
	// Parameters:
	//   - ctx: cancels buffer fetches
	//   - data: the document bytes
	//
	// Returns:
	//   - error: ErrMalformedAsset (wrapped) for invalid input, or a fetch error
	Parse(ctx context.Context, data []byte) error

	// Document returns the parsed document, or nil before a successful Parse.
	Document() *gltfDocument

	// URL returns the location the document was loaded from.
	URL() string

	// BufferView returns the bytes of a buffer view, decompressing EXT_meshopt_compression
	// views on first access.
	//
	// Parameters:
	//   - index: the buffer view index
	//
	// Returns:
	//   - []byte: the view bytes
	//   - int: the effective byte stride, 0 when the view declares none
	//   - error: an error if the index or buffer ranges are invalid
	BufferView(index int) ([]byte, int, error)

	// Accessor returns the bounds-checked bytes of an accessor.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - accessorView: the accessor and its bytes
	//   - error: an error if the accessor is out of range or does not fit its buffer view
	Accessor(index int) (accessorView, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a parser for the document at url.
//
// Parameters:
//   - url: location of the document, used to resolve relative URIs
//   - fetcher: retrieves external buffers
//   - logger: receives non-fatal warnings
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser(url string, fetcher Fetcher, logger *zap.Logger) gltfParser {
	return &gltfParserImpl{url: url, fetcher: fetcher, logger: logger}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) URL() string {
	return p.url
}

func (p *gltfParserImpl) Parse(ctx context.Context, data []byte) error {
	jsonData := data
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		var err error
		jsonData, p.glbBinaryChunk, err = splitGLB(data)
		if err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("%w: failed to parse glTF JSON: %w", ErrMalformedAsset, err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}

	if err := p.loadBuffers(ctx, &doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}

	p.document = &doc
	p.views = make([][]byte, len(doc.BufferViews))
	p.viewStrides = make([]int, len(doc.BufferViews))
	p.viewLoaded = make([]bool, len(doc.BufferViews))
	return nil
}

// splitGLB returns the JSON and BIN chunks of a GLB file.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func splitGLB(data []byte) ([]byte, []byte, error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("%w: GLB file too small", ErrMalformedAsset)
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read GLB header: %w", ErrMalformedAsset, err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, nil, errInvalidGLBVersion
	}

	var jsonData, binData []byte
	for {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("%w: failed to read chunk header: %w", ErrMalformedAsset, err)
		}
		if int64(chunkHeader.ChunkLength) > int64(r.Len()) {
			return nil, nil, fmt.Errorf("%w: chunk of %d bytes exceeds file", ErrMalformedAsset, chunkHeader.ChunkLength)
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, nil, fmt.Errorf("%w: failed to read chunk data: %w", ErrMalformedAsset, err)
		}

		switch chunkHeader.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = chunkData
		case gltfGLBChunkBIN:
			binData = chunkData
		}
	}

	if jsonData == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonData, binData, nil
}

// loadBuffers populates every buffer from the GLB BIN chunk, a data URI or the fetcher.
// Meshopt fallback buffers without a URI are left empty.
func (p *gltfParserImpl) loadBuffers(ctx context.Context, doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case buf.URI == "" && buf.fallback():
			continue
		case buf.URI == "":
			return fmt.Errorf("%w: buffer %d has no URI and no GLB binary chunk", ErrMalformedAsset, i)
		case strings.HasPrefix(buf.URI, "data:"):
			p.logger.Warn("loading buffers from embedded base64 is inefficient, consider moving the buffers into a separate file",
				zap.String("url", p.url),
				zap.Int("buffer", i),
			)
			data, _, err := gltfDecodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			resolved, err := resolveURI(p.url, buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			data, err := p.fetcher.FetchBytes(ctx, resolved)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}

	return nil
}

// gltfDecodeDataURI decodes a base64 data URI into raw bytes and extracts the MIME type.
// Format: data:[<mediatype>][;base64],<data>
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	header, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", errInvalidBufferURI
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: unsupported data URI encoding %q", ErrMalformedAsset, header)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to decode base64: %w", ErrMalformedAsset, err)
	}
	return data, mimeType, nil
}

// bufferRange returns length bytes of buffer starting at offset.
func (p *gltfParserImpl) bufferRange(buffer, offset, length int) ([]byte, error) {
	if buffer < 0 || buffer >= len(p.document.Buffers) {
		return nil, fmt.Errorf("buffer %d: %w", buffer, errIndexOutOfRange)
	}
	data := p.document.Buffers[buffer].Data
	if offset < 0 || length < 0 || offset+length > len(data) {
		return nil, fmt.Errorf("range [%d, %d) of buffer %d (%d bytes): %w",
			offset, offset+length, buffer, len(data), errShortBufferView)
	}
	return data[offset : offset+length], nil
}

func (p *gltfParserImpl) BufferView(index int) ([]byte, int, error) {
	if index < 0 || index >= len(p.document.BufferViews) {
		return nil, 0, fmt.Errorf("buffer view %d: %w", index, errIndexOutOfRange)
	}
	if p.viewLoaded[index] {
		return p.views[index], p.viewStrides[index], nil
	}

	bv := &p.document.BufferViews[index]
	var (
		data   []byte
		stride int
		err    error
	)
	if ext := bv.Extensions.Meshopt; ext != nil {
		var src []byte
		src, err = p.bufferRange(ext.Buffer, ext.ByteOffset, ext.ByteLength)
		if err != nil {
			return nil, 0, fmt.Errorf("buffer view %d: %w", index, err)
		}
		if ext.ByteStride > 0 && ext.Count > bv.ByteLength/ext.ByteStride {
			return nil, 0, fmt.Errorf("buffer view %d: decoded %d x %d exceeds %d bytes: %w",
				index, ext.Count, ext.ByteStride, bv.ByteLength, ErrMeshoptMalformed)
		}
		data, err = decodeMeshopt(ext, src)
		if err != nil {
			return nil, 0, fmt.Errorf("buffer view %d: %w", index, err)
		}
		if ext.Mode == meshoptModeAttributes {
			stride = ext.ByteStride
		} else if bv.ByteStride != nil {
			stride = *bv.ByteStride
		}
	} else {
		data, err = p.bufferRange(bv.Buffer, bv.ByteOffset, bv.ByteLength)
		if err != nil {
			return nil, 0, fmt.Errorf("buffer view %d: %w", index, err)
		}
		if bv.ByteStride != nil {
			stride = *bv.ByteStride
		}
	}

	p.views[index] = data
	p.viewStrides[index] = stride
	p.viewLoaded[index] = true
	return data, stride, nil
}

func (p *gltfParserImpl) Accessor(index int) (accessorView, error) {
	if index < 0 || index >= len(p.document.Accessors) {
		return accessorView{}, fmt.Errorf("accessor %d: %w", index, errIndexOutOfRange)
	}
	acc := &p.document.Accessors[index]
	if acc.Sparse != nil {
		return accessorView{}, fmt.Errorf("accessor %d: %w", index, errSparseAccessor)
	}

	elementSize := gltfComponentTypeSize(acc.ComponentType) * gltfAccessorTypeComponentCount(acc.Type)
	if elementSize == 0 || acc.Count < 0 {
		return accessorView{}, fmt.Errorf("accessor %d: %w: type %s component %d",
			index, ErrMalformedAsset, acc.Type, acc.ComponentType)
	}

	if acc.BufferView == nil {
		if acc.Count > maxZeroFilledAccessorBytes/elementSize {
			return accessorView{}, fmt.Errorf("accessor %d count %d: %w", index, acc.Count, errAccessorTooLarge)
		}
		return accessorView{accessor: acc, data: make([]byte, acc.Count*elementSize)}, nil
	}

	view, stride, err := p.BufferView(*acc.BufferView)
	if err != nil {
		return accessorView{}, fmt.Errorf("accessor %d: %w", index, err)
	}

	step := elementSize
	if stride != 0 {
		step = stride
	}
	if acc.ByteOffset < 0 || acc.ByteOffset > len(view) {
		return accessorView{}, fmt.Errorf("accessor %d offset %d of %d: %w", index, acc.ByteOffset, len(view), errShortBufferView)
	}
	// Count is bounded by the view before any multiplication.
	if avail := len(view) - acc.ByteOffset; acc.Count > 0 && (avail < elementSize || acc.Count-1 > (avail-elementSize)/step) {
		return accessorView{}, fmt.Errorf("accessor %d count %d exceeds %d bytes: %w", index, acc.Count, avail, errShortBufferView)
	}

	return accessorView{accessor: acc, data: view[acc.ByteOffset:], stride: stride}, nil
}

// parseDocument creates a parser for url and parses data with it.
func parseDocument(ctx context.Context, url string, data []byte, fetcher Fetcher, logger *zap.Logger) (gltfParser, error) {
	p := newGLTFParser(url, fetcher, logger)
	if err := p.Parse(ctx, data); err != nil {
		return nil, err
	}
	return p, nil
}
