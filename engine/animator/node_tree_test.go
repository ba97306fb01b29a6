package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translation(x, y, z float32) common.Similarity {
	return common.NewSimilarity(mgl32.Vec3{x, y, z}, 1, mgl32.QuatIdent())
}

// chain builds n nodes where node i is the parent of node i+1, listed in reverse so
// that children appear before their parents in the node array.
func chain(n int) []NodeSource {
	nodes := make([]NodeSource, n)
	for i := 0; i < n; i++ {
		idx := n - 1 - i
		nodes[idx].Transform = translation(1, 0, 0)
		if i+1 < n {
			nodes[idx].Children = []int{n - 2 - i}
		}
	}
	return nodes
}

func TestNodeTreeParents(t *testing.T) {
	nodes := []NodeSource{
		{Transform: translation(1, 0, 0), Children: []int{1, 2}},
		{Transform: translation(0, 1, 0)},
		{Transform: translation(0, 0, 1), Children: []int{3}},
		{Transform: translation(1, 1, 1)},
		{Transform: translation(5, 5, 5)},
	}
	tree, err := NewNodeTree(nodes)
	require.NoError(t, err)

	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, NoParent, tree.Parent(0))
	assert.Equal(t, 0, tree.Parent(1))
	assert.Equal(t, 0, tree.Parent(2))
	assert.Equal(t, 2, tree.Parent(3))
	assert.Equal(t, NoParent, tree.Parent(4))

	assert.Equal(t, mgl32.Vec3{2, 1, 2}, tree.TransformOf(3).Translation)
	assert.Equal(t, mgl32.Vec3{5, 5, 5}, tree.TransformOf(4).Translation)
}

func TestNodeTreeRejectsOutOfRangeChild(t *testing.T) {
	_, err := NewNodeTree([]NodeSource{{Children: []int{3}}})
	assert.ErrorIs(t, err, ErrNodeIndexOutOfRange)
}

func TestDepthFirstNodesParentBeforeChild(t *testing.T) {
	nodes := chain(7)
	// add a second branch off the root
	nodes = append(nodes, NodeSource{Transform: translation(0, 2, 0)})
	root := len(nodes) - 2 // chain(7) puts the root at index 6
	nodes[root].Children = append(nodes[root].Children, len(nodes)-1)

	tree, err := NewNodeTree(nodes)
	require.NoError(t, err)
	dfn, err := NewDepthFirstNodes(nodes, tree)
	require.NoError(t, err)

	assert.Equal(t, []int{root}, dfn.Roots())
	require.Len(t, dfn.Children(), len(nodes)-1)

	position := map[int]int{}
	for i, edge := range dfn.Children() {
		_, seen := position[edge.Index]
		assert.False(t, seen, "node %d appears twice", edge.Index)
		position[edge.Index] = i
	}
	for _, edge := range dfn.Children() {
		if edge.Parent == root {
			continue
		}
		assert.Less(t, position[edge.Parent], position[edge.Index], "parent %d must precede child %d", edge.Parent, edge.Index)
	}
}

func TestDepthFirstNodesRejectsSharedChild(t *testing.T) {
	nodes := []NodeSource{
		{Children: []int{2}},
		{Children: []int{2}},
		{},
	}
	tree, err := NewNodeTree(nodes)
	require.NoError(t, err)

	_, err = NewDepthFirstNodes(nodes, tree)
	assert.ErrorIs(t, err, ErrNodeHierarchy)
}

func TestAnimationJointsPropagatesPose(t *testing.T) {
	nodes := chain(6)
	tree, err := NewNodeTree(nodes)
	require.NoError(t, err)
	dfn, err := NewDepthFirstNodes(nodes, tree)
	require.NoError(t, err)

	locals := make([]common.Similarity, len(nodes))
	for i := range nodes {
		locals[i] = nodes[i].Transform
	}
	joints := NewAnimationJoints(locals, dfn)

	// node 0 is the deepest leaf of the chain
	assert.Equal(t, mgl32.Vec3{6, 0, 0}, joints.Global(0).Translation)
	for i := range nodes {
		assert.True(t, joints.Global(i).ApproxEqual(tree.TransformOf(i), 1e-5), "node %d", i)
	}

	// rotate the root 90 degrees about z; every descendant swings onto the y axis
	root := dfn.Roots()[0]
	rotated := joints.Local(root)
	rotated.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	joints.SetLocal(root, rotated)
	joints.Update(dfn)

	leaf := joints.Global(0).Translation
	assert.InDelta(t, 1, leaf[0], 1e-4)
	assert.InDelta(t, 5, leaf[1], 1e-4)

	lines := joints.Lines(dfn)
	require.Len(t, lines, len(nodes)-1)
	assert.Equal(t, joints.Global(root).Translation, lines[0][0])
}

func TestAnimationJointsJointMatrix(t *testing.T) {
	nodes := []NodeSource{
		{Transform: translation(0, 1, 0), Children: []int{1}},
		{Transform: translation(0, 1, 0)},
	}
	tree, err := NewNodeTree(nodes)
	require.NoError(t, err)
	dfn, err := NewDepthFirstNodes(nodes, tree)
	require.NoError(t, err)

	joints := NewAnimationJoints([]common.Similarity{nodes[0].Transform, nodes[1].Transform}, dfn)
	jointToNode := []int{0, 1}
	inverseBind := []common.Similarity{
		tree.TransformOf(0).Inverse(),
		tree.TransformOf(1).Inverse(),
	}

	// bind pose yields identity skinning transforms
	out := joints.Joints(jointToNode, inverseBind, dfn, nil)
	require.Len(t, out, 2)
	for _, m := range out {
		assert.True(t, m.ApproxEqual(common.SimilarityIdentity, 1e-5))
	}

	joints.JointLocal(1, jointToNode).Translation = mgl32.Vec3{0, 2, 0}
	out = joints.Joints(jointToNode, inverseBind, dfn, out[:0])
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, out[1].Translation)

	clone := joints.Clone()
	clone.SetLocal(0, translation(9, 9, 9))
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, joints.Local(0).Translation)
}

func TestAnimationStateAdvanceWraps(t *testing.T) {
	s := AnimationState{}
	for i := 0; i < 90; i++ {
		s.Advance(1.0/60.0, 1)
	}
	assert.InDelta(t, 0.5, s.Time, 1e-3)

	s.Advance(1, 0)
	assert.Equal(t, float32(0), s.Time)
}
