package geometry

import "github.com/go-gl/mathgl/mgl32"

// Plane builds a square in the XY plane with the given side length,
// centred on the origin and facing +Z.
func Plane(side float32) Mesh {
	half := side / 2
	normal := mgl32.Vec3{0, 0, 1}

	return Mesh{
		Vertices: []Vertex{
			{Pos: mgl32.Vec3{-half, -half, 0}, Colour: white, TexCoord: mgl32.Vec2{0, 1}, Normal: normal},
			{Pos: mgl32.Vec3{half, -half, 0}, Colour: white, TexCoord: mgl32.Vec2{1, 1}, Normal: normal},
			{Pos: mgl32.Vec3{half, half, 0}, Colour: white, TexCoord: mgl32.Vec2{1, 0}, Normal: normal},
			{Pos: mgl32.Vec3{-half, half, 0}, Colour: white, TexCoord: mgl32.Vec2{0, 0}, Normal: normal},
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}
