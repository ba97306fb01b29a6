package animator

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Animation is a decoded glTF animation split into per-property channel lists.
// Scale channels carry a single uniform factor per keyframe.
type Animation struct {
	Name                string
	TotalTime           float32
	TranslationChannels []Channel[mgl32.Vec3]
	RotationChannels    []Channel[mgl32.Quat]
	ScaleChannels       []Channel[float32]
}

// NewAnimation builds an Animation and computes its total time as the latest final keyframe
// across every channel.
func NewAnimation(name string, translations []Channel[mgl32.Vec3], rotations []Channel[mgl32.Quat], scales []Channel[float32]) *Animation {
	a := &Animation{
		Name:                name,
		TranslationChannels: translations,
		RotationChannels:    rotations,
		ScaleChannels:       scales,
	}
	for i := range translations {
		a.TotalTime = max(a.TotalTime, translations[i].LastTime())
	}
	for i := range rotations {
		a.TotalTime = max(a.TotalTime, rotations[i].LastTime())
	}
	for i := range scales {
		a.TotalTime = max(a.TotalTime, scales[i].LastTime())
	}
	return a
}

// ChannelCount returns the number of channels of all kinds.
func (a *Animation) ChannelCount() int {
	return len(a.TranslationChannels) + len(a.RotationChannels) + len(a.ScaleChannels)
}

// Animate samples every channel at time t and writes the results into the joints' local transforms.
// Translations apply first, then rotations, then scales. Channels of one kind apply in
// declaration order, so when two channels target the same node property the later one wins.
// Channels whose node is outside the joint set are ignored.
//
// Parameters:
//   - joints: the pose to write into
//   - t: the animation time in seconds
func (a *Animation) Animate(joints *AnimationJoints, t float32) {
	for i := range a.TranslationChannels {
		if node, v, ok := a.TranslationChannels[i].Sample(t); ok && joints.valid(node) {
			joints.locals[node].Translation = v
		}
	}
	for i := range a.RotationChannels {
		if node, v, ok := a.RotationChannels[i].Sample(t); ok && joints.valid(node) {
			joints.locals[node].Rotation = v
		}
	}
	for i := range a.ScaleChannels {
		if node, v, ok := a.ScaleChannels[i].Sample(t); ok && joints.valid(node) {
			joints.locals[node].Scale = v
		}
	}
}
