package loader

import (
	"context"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// loaderBackend defines the generic interface for turning fetched asset bytes into uploaded models.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load imports a static model.
	//
	// Parameters:
	//   - ctx: cancels any nested fetches
	//   - url: the asset URL the bytes came from
	//   - data: the asset bytes
	//
	// Returns:
	//   - model.Model: the uploaded model
	//   - error: error if loading fails
	Load(ctx context.Context, url string, data []byte) (model.Model, error)

	// LoadAnimated imports a skinned, animated model.
	//
	// Parameters:
	//   - ctx: cancels any nested fetches
	//   - url: the asset URL the bytes came from
	//   - data: the asset bytes
	//
	// Returns:
	//   - model.AnimatedModel: the uploaded model
	//   - error: error if loading fails
	LoadAnimated(ctx context.Context, url string, data []byte) (model.AnimatedModel, error)
}
