package geometry

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// Sphere builds a UV sphere of the given radius with sectors longitude
// divisions and stacks latitude divisions.
func Sphere(radius float32, sectors, stacks int) (Mesh, error) {
	if radius <= 0 {
		return Mesh{}, errors.Newf("sphere radius must be positive, got %v", radius)
	}
	if sectors < 3 || stacks < 2 {
		return Mesh{}, errors.Newf("sphere needs at least 3 sectors and 2 stacks, got %d and %d", sectors, stacks)
	}

	var mesh Mesh
	mesh.Vertices = make([]Vertex, 0, (stacks+1)*(sectors+1))

	for i := 0; i <= stacks; i++ {
		stackAngle := math.Pi/2 - math.Pi*float64(i)/float64(stacks)
		xy := float64(radius) * math.Cos(stackAngle)
		z := float64(radius) * math.Sin(stackAngle)

		for j := 0; j <= sectors; j++ {
			sectorAngle := 2 * math.Pi * float64(j) / float64(sectors)
			sin, cos := math.Sincos(sectorAngle)

			pos := mgl32.Vec3{float32(xy * cos), float32(xy * sin), float32(z)}
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Pos:      pos,
				Colour:   white,
				TexCoord: mgl32.Vec2{float32(j) / float32(sectors), float32(i) / float32(stacks)},
				Normal:   pos.Mul(1 / radius),
			})
		}
	}

	// Two triangles per quad, except the degenerate pole rows.
	for i := 0; i < stacks; i++ {
		k1 := uint32(i * (sectors + 1))
		k2 := k1 + uint32(sectors) + 1

		for j := 0; j < sectors; j, k1, k2 = j+1, k1+1, k2+1 {
			if i != 0 {
				mesh.Indices = append(mesh.Indices, k1, k2, k1+1)
			}
			if i != stacks-1 {
				mesh.Indices = append(mesh.Indices, k1+1, k2, k2+1)
			}
		}
	}

	return mesh, nil
}
