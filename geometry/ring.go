package geometry

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// Ring builds a flat annulus in the XY plane facing +Z, from inner to
// outer radius, split into the given number of sectors. The inner
// radius must be strictly smaller than the outer one and at least three
// sectors are needed to close the loop.
func Ring(inner, outer float32, sectors int) (Mesh, error) {
	if inner <= 0 || outer <= 0 {
		return Mesh{}, errors.Newf("ring radii must be positive, got inner %v outer %v", inner, outer)
	}
	if inner >= outer {
		return Mesh{}, errors.Newf("ring inner radius %v must be smaller than outer radius %v", inner, outer)
	}
	if sectors < 3 {
		return Mesh{}, errors.Newf("ring needs at least 3 sectors, got %d", sectors)
	}

	normal := mgl32.Vec3{0, 0, 1}

	var mesh Mesh
	mesh.Vertices = make([]Vertex, 0, 2*(sectors+1))
	mesh.Indices = make([]uint32, 0, 6*sectors)

	for i := 0; i <= sectors; i++ {
		angle := 2 * math.Pi * float64(i) / float64(sectors)
		sin, cos := math.Sincos(angle)
		dir := mgl32.Vec2{float32(cos), float32(sin)}
		u := float32(i) / float32(sectors)

		mesh.Vertices = append(mesh.Vertices,
			Vertex{
				Pos:      mgl32.Vec3{dir.X() * inner, dir.Y() * inner, 0},
				Colour:   white,
				TexCoord: mgl32.Vec2{u, 1},
				Normal:   normal,
			},
			Vertex{
				Pos:      mgl32.Vec3{dir.X() * outer, dir.Y() * outer, 0},
				Colour:   white,
				TexCoord: mgl32.Vec2{u, 0},
				Normal:   normal,
			},
		)
	}

	for i := 0; i < sectors; i++ {
		base := uint32(2 * i)
		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base+2, base+1, base+3,
		)
	}

	return mesh, nil
}
