package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateKeepsRadiusAndHeight(t *testing.T) {
	c := New(mgl32.Vec3{2, 2, 2})

	start := c.Position
	radius := math.Hypot(float64(start.X()), float64(start.Z()))

	for i := 0; i < 10; i++ {
		c.Rotate(0.1)
		got := math.Hypot(float64(c.Position.X()), float64(c.Position.Z()))
		require.InDelta(t, radius, got, 1e-4)
		require.InDelta(t, 2, c.Position.Y(), 1e-4)
	}

	assert.NotEqual(t, start, c.Position, "rotation must move the camera")
}

func TestProjectionFlipsY(t *testing.T) {
	c := New(mgl32.Vec3{0, 0, 3})

	proj := c.Projection(800, 600)
	assert.Negative(t, proj[5], "Vulkan clip space Y points down")

	// A point in front of the camera stays inside clip bounds.
	clip := proj.Mul4(c.View()).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	assert.Less(t, math.Abs(float64(ndc.X())), 1.0)
	assert.Less(t, math.Abs(float64(ndc.Y())), 1.0)
}
