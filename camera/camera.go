// Package camera provides the view and projection math for the engine.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a simple orbiting camera: it circles the target at a fixed
// radius and height, advancing by Speed radians per simulated second.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	// Speed is the orbit rate in radians per second.
	Speed float32

	FOV  float32
	Near float32
	Far  float32

	angle  float32
	radius float32
	height float32
}

// New places the camera at pos looking at the origin.
func New(pos mgl32.Vec3) *Camera {
	radius := float32(math.Hypot(float64(pos.X()), float64(pos.Z())))
	return &Camera{
		Position: pos,
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		Speed:    math.Pi / 4,
		FOV:      mgl32.DegToRad(45),
		Near:     0.1,
		Far:      10,
		angle:    float32(math.Atan2(float64(pos.Z()), float64(pos.X()))),
		radius:   radius,
		height:   pos.Y(),
	}
}

// Rotate advances the orbit by dt seconds of simulated time.
func (c *Camera) Rotate(dt float32) {
	c.angle += c.Speed * dt
	sin, cos := math.Sincos(float64(c.angle))
	c.Position = mgl32.Vec3{
		c.radius * float32(cos),
		c.height,
		c.radius * float32(sin),
	}
}

// View is the look-at matrix for the current position.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection is the perspective matrix for the given surface size. The
// Y axis is flipped for Vulkan clip space, which points down.
func (c *Camera) Projection(width, height int) mgl32.Mat4 {
	aspect := float32(width) / float32(height)
	proj := mgl32.Perspective(c.FOV, aspect, c.Near, c.Far)
	proj[5] *= -1
	return proj
}
