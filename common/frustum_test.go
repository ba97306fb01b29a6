package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestFrustumIntersectsSphere(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustumFromMatrix(proj.Mul4(view))

	tests := []struct {
		name    string
		center  mgl32.Vec3
		radius  float32
		visible bool
	}{
		{name: "in front", center: mgl32.Vec3{0, 0, -10}, radius: 1, visible: true},
		{name: "behind", center: mgl32.Vec3{0, 0, 10}, radius: 1, visible: false},
		{name: "far left", center: mgl32.Vec3{-100, 0, -10}, radius: 1, visible: false},
		{name: "beyond far", center: mgl32.Vec3{0, 0, -200}, radius: 1, visible: false},
		{name: "straddles near", center: mgl32.Vec3{0, 0, 0.5}, radius: 1, visible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, f.IntersectsSphere(tt.center, tt.radius))
		})
	}
}

func TestNewPlaneNormalizes(t *testing.T) {
	p := NewPlane(mgl32.Vec4{0, 2, 0, 4})
	assert.InDelta(t, 1, p.Normal.Len(), 1e-6)
	assert.InDelta(t, 2, p.Distance, 1e-6)
	assert.InDelta(t, 3, p.SignedDistance(mgl32.Vec3{0, 1, 0}), 1e-6)
}
