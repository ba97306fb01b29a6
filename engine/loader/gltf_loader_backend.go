package loader

import (
	"context"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/buffers"
	"go.uber.org/zap"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It delegates to the gltfImporter for parsing, extraction and upload.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - fetcher: loads external buffers referenced by documents
//   - resources: the shared buffers models are uploaded into
//   - logger: receives import warnings
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(fetcher Fetcher, resources *buffers.Resources, logger *zap.Logger) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(fetcher, resources, logger),
	}
}

func (b *gltfLoaderBackendImpl) Load(ctx context.Context, url string, data []byte) (model.Model, error) {
	return b.importer.ImportStatic(ctx, url, data)
}

func (b *gltfLoaderBackendImpl) LoadAnimated(ctx context.Context, url string, data []byte) (model.AnimatedModel, error) {
	return b.importer.ImportAnimated(ctx, url, data)
}
