package animator

import (
	"errors"
	"fmt"
	"slices"
)

// ErrChannelLayout is returned when a channel's output count does not match its keyframes.
var ErrChannelLayout = errors.New("animation channel output count does not match its inputs")

// Channel animates one property of one node.
//
// Inputs are ascending keyframe timestamps. Outputs hold one value per keyframe, or for
// cubic splines three values per keyframe laid out as (in-tangent, value, out-tangent).
type Channel[T Value] struct {
	Interpolation Interpolation
	Inputs        []float32
	Outputs       []T
	NodeIndex     int
}

// Validate checks that the output count matches the interpolation's layout.
func (c *Channel[T]) Validate() error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("node %d: no keyframes: %w", c.NodeIndex, ErrChannelLayout)
	}
	want := len(c.Inputs)
	if c.Interpolation == InterpolationCubicSpline {
		want *= 3
	}
	if len(c.Outputs) != want {
		return fmt.Errorf("node %d: %d outputs for %d %s keyframes: %w",
			c.NodeIndex, len(c.Outputs), len(c.Inputs), c.Interpolation, ErrChannelLayout)
	}
	return nil
}

// LastTime returns the timestamp of the final keyframe.
func (c *Channel[T]) LastTime() float32 {
	if len(c.Inputs) == 0 {
		return 0
	}
	return c.Inputs[len(c.Inputs)-1]
}

// value returns keyframe i's value regardless of layout.
func (c *Channel[T]) value(i int) T {
	if c.Interpolation == InterpolationCubicSpline {
		return c.Outputs[i*3+1]
	}
	return c.Outputs[i]
}

// Sample evaluates the channel at time t.
//
// Parameters:
//   - t: the animation time in seconds
//
// Returns:
//   - int: the target node index
//   - T: the sampled value
//   - bool: false when t lies outside the keyframe range, in which case the pose is left untouched
func (c *Channel[T]) Sample(t float32) (int, T, bool) {
	var zero T
	if len(c.Inputs) == 0 || t < c.Inputs[0] || t > c.Inputs[len(c.Inputs)-1] {
		return c.NodeIndex, zero, false
	}

	i, found := slices.BinarySearch(c.Inputs, t)
	if !found {
		i--
	}

	if i >= len(c.Inputs)-1 {
		return c.NodeIndex, c.value(len(c.Inputs) - 1), true
	}

	previousTime := c.Inputs[i]
	delta := c.Inputs[i+1] - previousTime
	factor := float32(0)
	if delta > 0 {
		factor = (t - previousTime) / delta
	}

	switch c.Interpolation {
	case InterpolationStep:
		return c.NodeIndex, c.Outputs[i], true
	case InterpolationCubicSpline:
		p0 := c.Outputs[i*3+1]
		m0 := scale(c.Outputs[i*3+2], delta)
		m1 := scale(c.Outputs[i*3+3], delta)
		p1 := c.Outputs[i*3+4]
		return c.NodeIndex, hermite(p0, m0, p1, m1, factor), true
	default:
		return c.NodeIndex, lerp(c.Outputs[i], c.Outputs[i+1], factor), true
	}
}
