package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
	"go.uber.org/zap"
)

// errMissingInverseBind is returned for a skin without inverseBindMatrices.
var errMissingInverseBind = fmt.Errorf("skin has no inverse bind matrices: %w", ErrMalformedAsset)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser
	logger *zap.Logger

	sources []animator.NodeSource
}

// gltfSkinData is the joint set of an animated model.
type gltfSkinData struct {
	// JointToNode maps each joint to the node it animates.
	JointToNode []int

	// InverseBind holds one inverse bind transform per joint.
	InverseBind []common.Similarity
}

// gltfSkeletonExtractor converts the node hierarchy and skin of a parsed glTF document.
type gltfSkeletonExtractor interface {
	// NodeSources converts every node's local transform, in document order.
	// Non-uniform scales are collapsed to their largest component with a warning.
	//
	// Returns:
	//   - []animator.NodeSource: one entry per node
	NodeSources() []animator.NodeSource

	// NodeTree builds the parent links of the hierarchy.
	//
	// Returns:
	//   - *animator.NodeTree: the tree
	//   - error: an error if a child index is invalid
	NodeTree() (*animator.NodeTree, error)

	// DepthFirstNodes orders the hierarchy parent before child.
	//
	// Parameters:
	//   - tree: the tree returned by NodeTree
	//
	// Returns:
	//   - *animator.DepthFirstNodes: the ordering
	//   - error: an error if a node has several parents
	DepthFirstNodes(tree *animator.NodeTree) (*animator.DepthFirstNodes, error)

	// ExtractSkin reads the document's skin. Only the first skin is used.
	// Without a skin every node is its own joint with an identity inverse bind.
	//
	// Returns:
	//   - *gltfSkinData: the joint mapping
	//   - error: an error if the skin references missing nodes or lacks inverse bind matrices
	ExtractSkin() (*gltfSkinData, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - logger: receives warnings
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(parser gltfParser, logger *zap.Logger) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser, logger: logger}
}

func (e *gltfSkeletonExtractorImpl) NodeSources() []animator.NodeSource {
	if e.sources != nil {
		return e.sources
	}

	nodes := e.parser.Document().Nodes
	e.sources = make([]animator.NodeSource, len(nodes))
	for i := range nodes {
		transform, uniform := gltfNodeTransform(&nodes[i])
		if !uniform {
			e.logger.Warn("node has a non-uniform scale, using its largest component",
				zap.Int("node", i), zap.String("name", nodes[i].Name))
		}
		e.sources[i] = animator.NodeSource{Transform: transform, Children: nodes[i].Children}
	}
	return e.sources
}

func (e *gltfSkeletonExtractorImpl) NodeTree() (*animator.NodeTree, error) {
	tree, err := animator.NewNodeTree(e.NodeSources())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedAsset, err)
	}
	return tree, nil
}

func (e *gltfSkeletonExtractorImpl) DepthFirstNodes(tree *animator.NodeTree) (*animator.DepthFirstNodes, error) {
	dfn, err := animator.NewDepthFirstNodes(e.NodeSources(), tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedAsset, err)
	}
	return dfn, nil
}

func (e *gltfSkeletonExtractorImpl) ExtractSkin() (*gltfSkinData, error) {
	doc := e.parser.Document()

	if len(doc.Skins) == 0 {
		skin := &gltfSkinData{
			JointToNode: make([]int, len(doc.Nodes)),
			InverseBind: make([]common.Similarity, len(doc.Nodes)),
		}
		for i := range skin.JointToNode {
			skin.JointToNode[i] = i
			skin.InverseBind[i] = common.IdentitySimilarity()
		}
		return skin, nil
	}
	if len(doc.Skins) > 1 {
		e.logger.Warn("model has more than one skin, only the first is used", zap.Int("skins", len(doc.Skins)))
	}

	gs := &doc.Skins[0]
	for _, node := range gs.Joints {
		if node < 0 || node >= len(doc.Nodes) {
			return nil, fmt.Errorf("skin joint node %d: %w", node, errIndexOutOfRange)
		}
	}
	if gs.InverseBindMatrices == nil {
		return nil, errMissingInverseBind
	}

	view, err := e.parser.Accessor(*gs.InverseBindMatrices)
	if err != nil {
		return nil, fmt.Errorf("inverse bind matrices: %w", err)
	}
	matrices, err := readMat4(view)
	if err != nil {
		return nil, fmt.Errorf("inverse bind matrices: %w", err)
	}
	if len(matrices) < len(gs.Joints) {
		return nil, fmt.Errorf("%d inverse bind matrices for %d joints: %w",
			len(matrices), len(gs.Joints), ErrMalformedAsset)
	}

	skin := &gltfSkinData{
		JointToNode: append([]int(nil), gs.Joints...),
		InverseBind: make([]common.Similarity, len(gs.Joints)),
	}
	nonUniform := 0
	for i := range skin.InverseBind {
		s, uniform := common.SimilarityFromMat4(matrices[i])
		if !uniform {
			nonUniform++
		}
		skin.InverseBind[i] = s
	}
	if nonUniform > 0 {
		e.logger.Warn("inverse bind matrices with non-uniform scale were approximated", zap.Int("count", nonUniform))
	}
	return skin, nil
}

// gltfNodeTransform returns the local transform of a node from its matrix or TRS.
func gltfNodeTransform(n *gltfNode) (common.Similarity, bool) {
	if n.Matrix != nil {
		return common.SimilarityFromMat4(*n.Matrix)
	}

	t := [3]float32{}
	r := [4]float32{0, 0, 0, 1}
	s := [3]float32{1, 1, 1}
	if n.Translation != nil {
		t = *n.Translation
	}
	if n.Rotation != nil {
		r = *n.Rotation
	}
	if n.Scale != nil {
		s = *n.Scale
	}
	return common.SimilarityFromGLTF(t, r, s)
}
