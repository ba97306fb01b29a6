package loader

import (
	"context"
	"fmt"
	"path"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/buffers"
	"go.uber.org/zap"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	fetcher   Fetcher
	logger    *zap.Logger
	resources *buffers.Resources
}

// gltfImporter defines the interface for orchestrating a full glTF/GLB import.
// It combines the parser and all extractors, batches primitives and uploads them into the shared buffers.
type gltfImporter interface {
	// ImportStatic decodes a document into a static model. Node world transforms are kept
	// per primitive; positions stay in mesh space.
	//
	// Parameters:
	//   - ctx: cancels external buffer fetches
	//   - url: the asset URL, used to resolve relative URIs and as the fallback name
	//   - data: the glTF JSON or GLB bytes
	//
	// Returns:
	//   - model.Model: the uploaded model
	//   - error: error if decoding or upload fails
	ImportStatic(ctx context.Context, url string, data []byte) (model.Model, error)

	// ImportAnimated decodes a document into a skinned model with its skin, node hierarchy and animations.
	//
	// Parameters:
	//   - ctx: cancels external buffer fetches
	//   - url: the asset URL
	//   - data: the glTF JSON or GLB bytes
	//
	// Returns:
	//   - model.AnimatedModel: the uploaded model
	//   - error: error if decoding or upload fails
	ImportAnimated(ctx context.Context, url string, data []byte) (model.AnimatedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - fetcher: loads external buffers
//   - resources: the shared buffers models are uploaded into
//   - logger: receives import warnings
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(fetcher Fetcher, resources *buffers.Resources, logger *zap.Logger) gltfImporter {
	return &gltfImporterImpl{fetcher: fetcher, resources: resources, logger: logger}
}

// gltfStaged is a decoded model whose primitives are collected but not yet uploaded.
type gltfStaged[B any] struct {
	name       string
	ranges     model.PrimitiveRanges
	primitives []model.Primitive
	staging    B
	materials  []model.Material
}

// gltfAnimatedStaged adds the skeletal payload to gltfStaged.
type gltfAnimatedStaged struct {
	gltfStaged[model.AnimatedStagingBuffers]
	animation *model.AnimationData
}

func (imp *gltfImporterImpl) ImportStatic(ctx context.Context, url string, data []byte) (model.Model, error) {
	staged, err := imp.decodeStatic(ctx, url, data)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", url, err)
	}

	vertexRange, indexRange, err := imp.resources.UploadStatic(&staged.staging, staged.primitives)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", url, err)
	}

	return model.NewModel(
		model.WithName(staged.name),
		model.WithURL(url),
		model.WithPrimitives(staged.primitives, staged.ranges),
		model.WithMaterials(staged.materials),
		model.WithBufferRanges(vertexRange, indexRange),
	), nil
}

func (imp *gltfImporterImpl) ImportAnimated(ctx context.Context, url string, data []byte) (model.AnimatedModel, error) {
	staged, err := imp.decodeAnimated(ctx, url, data)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", url, err)
	}

	vertexRange, indexRange, err := imp.resources.UploadAnimated(&staged.staging, staged.primitives)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", url, err)
	}

	return model.NewAnimatedModel(
		model.WithName(staged.name),
		model.WithURL(url),
		model.WithPrimitives(staged.primitives, staged.ranges),
		model.WithMaterials(staged.materials),
		model.WithBufferRanges(vertexRange, indexRange),
		model.WithAnimationData(staged.animation),
	), nil
}

// decodeStatic parses and batches a static model without touching the GPU buffers.
func (imp *gltfImporterImpl) decodeStatic(ctx context.Context, url string, data []byte) (*gltfStaged[model.StagingBuffers], error) {
	parser, err := parseDocument(ctx, url, data, imp.fetcher, imp.logger)
	if err != nil {
		return nil, err
	}

	materials := newGLTFMaterialExtractor(parser, imp.logger)
	if err := materials.ExtractAllMaterials(); err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}
	skeleton := newGLTFSkeletonExtractor(parser, imp.logger)
	tree, err := skeleton.NodeTree()
	if err != nil {
		return nil, err
	}
	meshes := newGLTFMeshExtractor(parser, imp.logger)

	buckets, err := gltfStagePrimitives[model.StagingBuffers](parser.Document(), meshes, materials, imp.logger, tree.TransformOf,
		func(meshIndex, primIndex, _ int) (model.StagingLod[model.StagingBuffers], error) {
			g, err := meshes.ExtractPrimitive(meshIndex, primIndex)
			if err != nil {
				return model.StagingLod[model.StagingBuffers]{}, err
			}
			mat := materials.Resolve(g.Material, g.HasNormals)
			g.applyTextureTransform(materials.TextureTransform(mat))
			return model.StagingLod[model.StagingBuffers]{
				Buffers:       g.staging(),
				MaterialIndex: mat,
				Lightmapped:   g.Lightmapped,
			}, nil
		})
	if err != nil {
		return nil, err
	}

	ranges, primitives, staging := model.CollectAll[model.StagingBuffers](buckets)
	return &gltfStaged[model.StagingBuffers]{
		name:       gltfExtractModelName(parser.Document(), url),
		ranges:     ranges,
		primitives: primitives,
		staging:    staging,
		materials:  materials.Materials(),
	}, nil
}

// decodeAnimated parses and batches a skinned model and reads its skeleton and animations.
func (imp *gltfImporterImpl) decodeAnimated(ctx context.Context, url string, data []byte) (*gltfAnimatedStaged, error) {
	parser, err := parseDocument(ctx, url, data, imp.fetcher, imp.logger)
	if err != nil {
		return nil, err
	}

	materials := newGLTFMaterialExtractor(parser, imp.logger)
	if err := materials.ExtractAllMaterials(); err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}

	skeleton := newGLTFSkeletonExtractor(parser, imp.logger)
	tree, err := skeleton.NodeTree()
	if err != nil {
		return nil, err
	}
	dfn, err := skeleton.DepthFirstNodes(tree)
	if err != nil {
		return nil, err
	}
	skin, err := skeleton.ExtractSkin()
	if err != nil {
		return nil, fmt.Errorf("skin extraction failed: %w", err)
	}
	animations, err := newGLTFAnimationExtractor(parser, imp.logger).ExtractAllAnimations()
	if err != nil {
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}

	jointOf := make(map[int]uint32, len(skin.JointToNode))
	for j, node := range skin.JointToNode {
		if _, ok := jointOf[node]; !ok {
			jointOf[node] = uint32(j)
		}
	}

	meshes := newGLTFMeshExtractor(parser, imp.logger)
	identity := func(int) common.Similarity { return common.IdentitySimilarity() }

	buckets, err := gltfStagePrimitives[model.AnimatedStagingBuffers](parser.Document(), meshes, materials, imp.logger, identity,
		func(meshIndex, primIndex, node int) (model.StagingLod[model.AnimatedStagingBuffers], error) {
			defaultJoint, ok := jointOf[node]
			if !ok {
				defaultJoint = uint32(node)
			}
			g, err := meshes.ExtractSkinnedPrimitive(meshIndex, primIndex, defaultJoint)
			if err != nil {
				return model.StagingLod[model.AnimatedStagingBuffers]{}, err
			}
			mat := materials.Resolve(g.Material, g.HasNormals)
			g.applyTextureTransform(materials.TextureTransform(mat))
			return model.StagingLod[model.AnimatedStagingBuffers]{
				Buffers:       g.staging(),
				MaterialIndex: mat,
				Lightmapped:   g.Lightmapped,
			}, nil
		})
	if err != nil {
		return nil, err
	}

	sources := skeleton.NodeSources()
	locals := make([]common.Similarity, len(sources))
	for i, s := range sources {
		locals[i] = s.Transform
	}

	ranges, primitives, staging := model.CollectAll[model.AnimatedStagingBuffers](buckets)
	return &gltfAnimatedStaged{
		gltfStaged: gltfStaged[model.AnimatedStagingBuffers]{
			name:       gltfExtractModelName(parser.Document(), url),
			ranges:     ranges,
			primitives: primitives,
			staging:    staging,
			materials:  materials.Materials(),
		},
		animation: &model.AnimationData{
			Animations:      animations,
			DepthFirstNodes: dfn,
			InverseBind:     skin.InverseBind,
			JointToNode:     skin.JointToNode,
			Joints:          animator.NewAnimationJoints(locals, dfn),
		},
	}, nil
}

// gltfLodExtractor decodes LOD geometry of one primitive for a node.
type gltfLodExtractor[B any] func(meshIndex, primIndex, node int) (model.StagingLod[B], error)

// gltfStagePrimitives walks every mesh node and buckets its primitives by the LOD 0 material.
// Nodes referenced by another node's MSFT_lod list are staged only as LODs of that node.
//
// Parameters:
//   - doc: the parsed document
//   - meshes: reads primitive counts and topology
//   - materials: supplies alpha mode and sidedness of resolved materials
//   - logger: receives warnings for skipped primitives
//   - transformOf: the primitive transform of a node
//   - extract: decodes one LOD of a primitive
//
// Returns:
//   - *model.Buckets[B]: the staged primitives
//   - error: an error if an LOD list is malformed or a primitive fails to decode
func gltfStagePrimitives[B any](doc *gltfDocument, meshes gltfMeshExtractor, materials gltfMaterialExtractor,
	logger *zap.Logger, transformOf func(int) common.Similarity, extract gltfLodExtractor[B]) (*model.Buckets[B], error) {

	lodOnly := make(map[int]bool)
	for i := range doc.Nodes {
		if ext := doc.Nodes[i].Extensions.MSFTLod; ext != nil {
			for _, id := range ext.IDs {
				lodOnly[id] = true
			}
		}
	}

	buckets := model.NewBuckets[B]()
	for ni := range doc.Nodes {
		node := &doc.Nodes[ni]
		if node.Mesh == nil || lodOnly[ni] {
			continue
		}

		lodMeshes, err := gltfLodMeshes(doc, ni)
		if err != nil {
			return nil, err
		}
		count, err := meshes.PrimitiveCount(lodMeshes[0])
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", ni, err)
		}
		for li, mi := range lodMeshes[1:] {
			n, err := meshes.PrimitiveCount(mi)
			if err != nil {
				return nil, fmt.Errorf("node %d lod %d: %w", ni, li+1, err)
			}
			if n != count {
				return nil, fmt.Errorf("node %d lod %d has %d primitives, lod 0 has %d: %w",
					ni, li+1, n, count, model.ErrLodPrimitiveCountMismatch)
			}
		}

		transform := transformOf(ni)
		for p := 0; p < count; p++ {
			if !meshes.Triangles(lodMeshes[0], p) {
				logger.Warn("primitive mode is not triangles, skipping",
					zap.Int("node", ni), zap.Int("primitive", p))
				continue
			}

			sp := model.StagingPrimitive[B]{
				ScreenCoverages: node.Extras.ScreenCoverage,
				Transform:       transform,
			}
			for li, mi := range lodMeshes {
				if !meshes.Triangles(mi, p) {
					logger.Warn("lod primitive mode is not triangles, dropping remaining lods",
						zap.Int("node", ni), zap.Int("lod", li), zap.Int("primitive", p))
					break
				}
				lod, err := extract(mi, p, ni)
				if err != nil {
					return nil, fmt.Errorf("node %d lod %d: %w", ni, li, err)
				}
				sp.Lods = append(sp.Lods, lod)
			}

			mat := materials.Materials()[sp.Lods[0].MaterialIndex]
			buckets.Add(mat.AlphaMode, mat.DoubleSided,
				model.MaterialKey{Index: sp.Lods[0].MaterialIndex, Valid: true}, sp)
		}
	}
	return buckets, nil
}

// gltfLodMeshes returns the mesh of a node followed by the meshes of its MSFT_lod nodes.
func gltfLodMeshes(doc *gltfDocument, nodeIndex int) ([]int, error) {
	node := &doc.Nodes[nodeIndex]
	out := []int{*node.Mesh}
	if node.Extensions.MSFTLod == nil {
		return out, nil
	}
	for _, id := range node.Extensions.MSFTLod.IDs {
		if id < 0 || id >= len(doc.Nodes) {
			return nil, fmt.Errorf("node %d lod node %d: %w", nodeIndex, id, errIndexOutOfRange)
		}
		if doc.Nodes[id].Mesh == nil {
			return nil, fmt.Errorf("node %d lod node %d has no mesh: %w", nodeIndex, id, ErrMalformedAsset)
		}
		out = append(out, *doc.Nodes[id].Mesh)
	}
	return out, nil
}

// gltfExtractModelName derives a model name from the default scene or the asset URL.
func gltfExtractModelName(doc *gltfDocument, url string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	if url != "" {
		return path.Base(url)
	}
	return "unnamed_model"
}
