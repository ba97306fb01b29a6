package model

import "github.com/Carmen-Shannon/oxy-gltf/common"

// ModelBuilderOption is a functional option for configuring a model via NewModel or NewAnimatedModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithURL is an option builder that records where the Model was loaded from.
//
// Parameters:
//   - url: the asset URL
//
// Returns:
//   - ModelBuilderOption: a function that applies the URL option to a model
func WithURL(url string) ModelBuilderOption {
	return func(m *model) {
		m.url = url
	}
}

// WithPrimitives is an option builder that sets the uploaded primitives and their bucket spans.
//
// Parameters:
//   - primitives: primitives with absolute index ranges
//   - ranges: span of primitives per bucket
//
// Returns:
//   - ModelBuilderOption: a function that applies the primitives option to a model
func WithPrimitives(primitives []Primitive, ranges PrimitiveRanges) ModelBuilderOption {
	return func(m *model) {
		m.primitives = primitives
		m.primitiveRanges = ranges
	}
}

// WithMaterials is an option builder that sets the materials of the Model.
//
// Parameters:
//   - materials: the materials to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the materials option to a model
func WithMaterials(materials []Material) ModelBuilderOption {
	return func(m *model) {
		m.materials = materials
	}
}

// WithBufferRanges is an option builder that sets where the Model lives in the shared vertex and index buffers.
//
// Parameters:
//   - vertices: the vertex buffer span
//   - indices: the index buffer span
//
// Returns:
//   - ModelBuilderOption: a function that applies the buffer ranges option to a model
func WithBufferRanges(vertices, indices common.Range) ModelBuilderOption {
	return func(m *model) {
		m.vertexRange = vertices
		m.indexRange = indices
	}
}

// WithAnimationData is an option builder that attaches the skeleton and clips. Only meaningful for NewAnimatedModel.
//
// Parameters:
//   - data: the animation payload
//
// Returns:
//   - ModelBuilderOption: a function that applies the animation option to a model
func WithAnimationData(data *AnimationData) ModelBuilderOption {
	return func(m *model) {
		m.animation = data
	}
}
