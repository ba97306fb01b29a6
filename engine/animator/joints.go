package animator

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AnimationJoints holds the local and global transform of every node of an animated model.
// Locals are written by animation sampling or procedural posing; globals are derived from
// them by Update and are never written anywhere else.
type AnimationJoints struct {
	locals  []common.Similarity
	globals []common.Similarity
}

// NewAnimationJoints creates a pose from the nodes' initial local transforms and resolves the globals.
//
// Parameters:
//   - locals: initial local transform of every node
//   - dfn: depth-first ordering of the same nodes
//
// Returns:
//   - *AnimationJoints: the resolved pose
func NewAnimationJoints(locals []common.Similarity, dfn *DepthFirstNodes) *AnimationJoints {
	j := &AnimationJoints{
		locals:  append([]common.Similarity(nil), locals...),
		globals: append([]common.Similarity(nil), locals...),
	}
	j.Update(dfn)
	return j
}

// Len returns the number of nodes in the pose.
func (j *AnimationJoints) Len() int {
	return len(j.locals)
}

func (j *AnimationJoints) valid(node int) bool {
	return node >= 0 && node < len(j.locals)
}

// Update recomputes every global transform from the locals in depth-first order.
func (j *AnimationJoints) Update(dfn *DepthFirstNodes) {
	for _, root := range dfn.Roots() {
		j.globals[root] = j.locals[root]
	}
	for _, edge := range dfn.Children() {
		j.globals[edge.Index] = j.globals[edge.Parent].Mul(j.locals[edge.Index])
	}
}

// Local returns node i's local transform.
func (j *AnimationJoints) Local(i int) common.Similarity {
	return j.locals[i]
}

// SetLocal replaces node i's local transform.
func (j *AnimationJoints) SetLocal(i int, s common.Similarity) {
	j.locals[i] = s
}

// Global returns node i's global transform as of the last Update.
func (j *AnimationJoints) Global(i int) common.Similarity {
	return j.globals[i]
}

// JointMatrix returns the skinning transform of a joint: global(node) * inverseBind.
func (j *AnimationJoints) JointMatrix(jointIndex int, jointToNode []int, inverseBind []common.Similarity) common.Similarity {
	return j.globals[jointToNode[jointIndex]].Mul(inverseBind[jointIndex])
}

// Joints updates the globals and appends every joint's skinning transform to dst.
//
// Parameters:
//   - jointToNode: node index of each joint
//   - inverseBind: inverse bind transform of each joint
//   - dfn: depth-first ordering used for the update
//   - dst: slice to append to, may be nil
//
// Returns:
//   - []common.Similarity: dst extended with one transform per joint
func (j *AnimationJoints) Joints(jointToNode []int, inverseBind []common.Similarity, dfn *DepthFirstNodes, dst []common.Similarity) []common.Similarity {
	j.Update(dfn)
	for jointIndex := range jointToNode {
		dst = append(dst, j.JointMatrix(jointIndex, jointToNode, inverseBind))
	}
	return dst
}

// JointLocal gives mutable access to a joint's local transform for procedural posing.
func (j *AnimationJoints) JointLocal(jointIndex int, jointToNode []int) *common.Similarity {
	return &j.locals[jointToNode[jointIndex]]
}

// Lines returns one (parent, child) global translation pair per hierarchy edge, for skeleton debug drawing.
func (j *AnimationJoints) Lines(dfn *DepthFirstNodes) [][2]mgl32.Vec3 {
	lines := make([][2]mgl32.Vec3, 0, len(dfn.Children()))
	for _, edge := range dfn.Children() {
		lines = append(lines, [2]mgl32.Vec3{
			j.globals[edge.Parent].Translation,
			j.globals[edge.Index].Translation,
		})
	}
	return lines
}

// Clone returns an independent copy, used to give each instance its own pose.
func (j *AnimationJoints) Clone() *AnimationJoints {
	return &AnimationJoints{
		locals:  append([]common.Similarity(nil), j.locals...),
		globals: append([]common.Similarity(nil), j.globals...),
	}
}

// AnimationState is an instance's position within one of its model's animations.
type AnimationState struct {
	AnimationIndex int
	Time           float32
}

// Advance moves the time forward by dt, wrapping modulo totalTime.
// A non-positive totalTime pins the time at zero.
func (s *AnimationState) Advance(dt, totalTime float32) {
	if totalTime <= 0 {
		s.Time = 0
		return
	}
	s.Time = math32.Mod(s.Time+dt, totalTime)
	if s.Time < 0 {
		s.Time += totalTime
	}
}
