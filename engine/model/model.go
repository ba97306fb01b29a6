package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
)

// model is the implementation of the Model interface.
type model struct {
	name            string
	url             string
	primitives      []Primitive
	primitiveRanges PrimitiveRanges
	materials       []Material
	vertexRange     common.Range
	indexRange      common.Range
	animation       *AnimationData
}

// animatedModel is the implementation of the AnimatedModel interface.
type animatedModel struct {
	*model
}

// AnimationData is the skeletal and animation payload of an animated model.
type AnimationData struct {
	// Animations are the model's clips, in glTF order.
	Animations []*animator.Animation

	// DepthFirstNodes orders every node parent before child.
	DepthFirstNodes *animator.DepthFirstNodes

	// InverseBind is the inverse bind transform of each joint.
	InverseBind []common.Similarity

	// JointToNode maps each joint to its node.
	JointToNode []int

	// Joints is the rest pose every instance clones.
	Joints *animator.AnimationJoints
}

// Model defines the interface for a loaded, uploaded glTF model.
// A Model is immutable once built and is shared read-only between instances.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// URL retrieves the location the model was loaded from.
	//
	// Returns:
	//   - string: the asset URL
	URL() string

	// Primitives retrieves the drawable primitives, ordered by bucket.
	//
	// Returns:
	//   - []Primitive: the primitives with absolute index ranges
	Primitives() []Primitive

	// PrimitiveRanges retrieves the span of Primitives belonging to each bucket.
	//
	// Returns:
	//   - PrimitiveRanges: per-bucket primitive spans
	PrimitiveRanges() PrimitiveRanges

	// Materials retrieves the model's materials.
	//
	// Returns:
	//   - []Material: the materials
	Materials() []Material

	// VertexRange retrieves the span of the shared vertex buffer holding this model.
	//
	// Returns:
	//   - common.Range: the vertex span
	VertexRange() common.Range

	// IndexRange retrieves the span of the shared index buffer holding this model.
	//
	// Returns:
	//   - common.Range: the index span
	IndexRange() common.Range
}

// AnimatedModel is a Model carrying a skeleton and animation clips.
type AnimatedModel interface {
	Model

	// Animations retrieves all animation clips bundled with this model.
	//
	// Returns:
	//   - []*animator.Animation: the animation clips
	Animations() []*animator.Animation

	// AnimationCount returns the number of available animation clips.
	//
	// Returns:
	//   - int: the animation count
	AnimationCount() int

	// AnimationNames returns the names of all animation clips.
	//
	// Returns:
	//   - []string: the animation clip names
	AnimationNames() []string

	// GetAnimationIndex returns the index of an animation by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the animation clip name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	GetAnimationIndex(name string) int

	// DepthFirstNodes retrieves the parent-before-child node ordering.
	//
	// Returns:
	//   - *animator.DepthFirstNodes: the node ordering
	DepthFirstNodes() *animator.DepthFirstNodes

	// InverseBind retrieves the inverse bind transform of each joint.
	//
	// Returns:
	//   - []common.Similarity: one transform per joint
	InverseBind() []common.Similarity

	// JointToNode retrieves the node index of each joint.
	//
	// Returns:
	//   - []int: one node index per joint
	JointToNode() []int

	// JointCount returns the number of skinning joints.
	//
	// Returns:
	//   - int: the joint count
	JointCount() int

	// NewJoints returns a fresh copy of the rest pose for a new instance.
	//
	// Returns:
	//   - *animator.AnimationJoints: an independent pose
	NewJoints() *animator.AnimationJoints
}

var (
	_ Model         = &model{}
	_ AnimatedModel = &animatedModel{}
)

// NewModel creates a new static Model with the specified options applied.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// NewAnimatedModel creates a new AnimatedModel with the specified options applied.
// Without WithAnimationData the model has no joints and no clips.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - AnimatedModel: a new instance of AnimatedModel configured with the provided options
func NewAnimatedModel(options ...ModelBuilderOption) AnimatedModel {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	if m.animation == nil {
		m.animation = &AnimationData{}
	}
	return &animatedModel{model: m}
}

func (m *model) Name() string {
	return m.name
}

func (m *model) URL() string {
	return m.url
}

func (m *model) Primitives() []Primitive {
	return m.primitives
}

func (m *model) PrimitiveRanges() PrimitiveRanges {
	return m.primitiveRanges
}

func (m *model) Materials() []Material {
	return m.materials
}

func (m *model) VertexRange() common.Range {
	return m.vertexRange
}

func (m *model) IndexRange() common.Range {
	return m.indexRange
}

func (a *animatedModel) Animations() []*animator.Animation {
	return a.animation.Animations
}

func (a *animatedModel) AnimationCount() int {
	return len(a.animation.Animations)
}

func (a *animatedModel) AnimationNames() []string {
	names := make([]string, len(a.animation.Animations))
	for i, anim := range a.animation.Animations {
		names[i] = anim.Name
	}
	return names
}

func (a *animatedModel) GetAnimationIndex(name string) int {
	for i, anim := range a.animation.Animations {
		if anim.Name == name {
			return i
		}
	}
	return -1
}

func (a *animatedModel) DepthFirstNodes() *animator.DepthFirstNodes {
	return a.animation.DepthFirstNodes
}

func (a *animatedModel) InverseBind() []common.Similarity {
	return a.animation.InverseBind
}

func (a *animatedModel) JointToNode() []int {
	return a.animation.JointToNode
}

func (a *animatedModel) JointCount() int {
	return len(a.animation.JointToNode)
}

func (a *animatedModel) NewJoints() *animator.AnimationJoints {
	if a.animation.Joints == nil {
		return nil
	}
	return a.animation.Joints.Clone()
}
