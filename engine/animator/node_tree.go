// Package animator evaluates glTF node hierarchies and skeletal animations on the CPU.
//
// A NodeTree answers "what is the world transform of node i" for static imports, while
// DepthFirstNodes and AnimationJoints drive per-frame pose evaluation for animated models.
package animator

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// NoParent marks a root node in a NodeTree.
const NoParent = -1

var (
	// ErrNodeIndexOutOfRange is returned when a node lists a child that does not exist.
	ErrNodeIndexOutOfRange = errors.New("node index out of range")
	// ErrNodeHierarchy is returned when a node is reachable from more than one parent.
	ErrNodeHierarchy = errors.New("node hierarchy is not a forest")
)

// NodeSource is the minimal description of a glTF node needed to build the hierarchy.
type NodeSource struct {
	Transform common.Similarity
	Children  []int
}

type nodeEntry struct {
	transform common.Similarity
	parent    int
}

// NodeTree stores each node's local transform and parent index.
type NodeTree struct {
	nodes []nodeEntry
}

// NewNodeTree records (transform, parent) for every node in a single pass.
//
// Parameters:
//   - nodes: the document's nodes in index order
//
// Returns:
//   - *NodeTree: the tree
//   - error: ErrNodeIndexOutOfRange if a child index is invalid
func NewNodeTree(nodes []NodeSource) (*NodeTree, error) {
	entries := make([]nodeEntry, len(nodes))
	for i := range entries {
		entries[i].parent = NoParent
	}

	for i, node := range nodes {
		entries[i].transform = node.Transform
		for _, child := range node.Children {
			if child < 0 || child >= len(nodes) {
				return nil, fmt.Errorf("node %d child %d: %w", i, child, ErrNodeIndexOutOfRange)
			}
			entries[child].parent = i
		}
	}

	return &NodeTree{nodes: entries}, nil
}

// Len returns the number of nodes.
func (t *NodeTree) Len() int {
	return len(t.nodes)
}

// Parent returns the parent of node i, or NoParent for roots.
func (t *NodeTree) Parent(i int) int {
	return t.nodes[i].parent
}

// Local returns the local transform of node i.
func (t *NodeTree) Local(i int) common.Similarity {
	return t.nodes[i].transform
}

// TransformOf walks from node i up to its root, accumulating parent * acc.
// The walk is bounded by the node count so a malformed cyclic hierarchy terminates.
func (t *NodeTree) TransformOf(i int) common.Similarity {
	acc := common.SimilarityIdentity
	for steps := 0; i != NoParent && steps <= len(t.nodes); steps++ {
		entry := t.nodes[i]
		acc = entry.transform.Mul(acc)
		i = entry.parent
	}
	return acc
}

// ChildEdge links a node to its parent in depth-first order.
type ChildEdge struct {
	Index  int
	Parent int
}

// DepthFirstNodes lists the roots of a hierarchy and every parent/child edge,
// ordered so that a parent's edge always precedes its children's edges.
type DepthFirstNodes struct {
	roots    []int
	children []ChildEdge
}

// NewDepthFirstNodes walks the hierarchy with an explicit stack seeded with the roots.
//
// Parameters:
//   - nodes: the same node list the tree was built from
//   - tree: the tree providing parent links
//
// Returns:
//   - *DepthFirstNodes: the ordering
//   - error: ErrNodeHierarchy if a node would be visited twice
func NewDepthFirstNodes(nodes []NodeSource, tree *NodeTree) (*DepthFirstNodes, error) {
	var roots []int
	for i := 0; i < tree.Len(); i++ {
		if tree.Parent(i) == NoParent {
			roots = append(roots, i)
		}
	}

	visited := make([]bool, len(nodes))
	children := make([]ChildEdge, 0, len(nodes)-len(roots))
	stack := append([]int(nil), roots...)

	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range nodes[parent].Children {
			if visited[child] {
				return nil, fmt.Errorf("node %d: %w", child, ErrNodeHierarchy)
			}
			visited[child] = true
			children = append(children, ChildEdge{Index: child, Parent: parent})
			stack = append(stack, child)
		}
	}

	return &DepthFirstNodes{roots: roots, children: children}, nil
}

// Roots returns the nodes without a parent.
func (d *DepthFirstNodes) Roots() []int {
	return d.roots
}

// Children returns the parent/child edges in evaluation order.
func (d *DepthFirstNodes) Children() []ChildEdge {
	return d.children
}
