package geometry

import "github.com/go-gl/mathgl/mgl32"

// cubeFaces lists each face's outward normal and the two in-plane axes
// spanning it, in counter-clockwise winding order.
var cubeFaces = [6]struct {
	normal, u, v mgl32.Vec3
}{
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
}

// Cube builds an axis-aligned cube with the given side length, centred
// on the origin. Each face has its own four vertices so normals and
// texture coordinates stay per-face.
func Cube(side float32) Mesh {
	half := side / 2

	var mesh Mesh
	mesh.Vertices = make([]Vertex, 0, 24)
	mesh.Indices = make([]uint32, 0, 36)

	for _, face := range cubeFaces {
		base := uint32(len(mesh.Vertices))
		centre := face.normal.Mul(half)

		corners := [4]struct {
			u, v float32
		}{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		uvs := [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

		for i, corner := range corners {
			pos := centre.
				Add(face.u.Mul(corner.u * half)).
				Add(face.v.Mul(corner.v * half))
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Pos:      pos,
				Colour:   white,
				TexCoord: uvs[i],
				Normal:   face.normal,
			})
		}

		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base+2, base+3, base,
		)
	}

	return mesh
}
