// Package geometry produces the vertex and index data the renderer
// consumes: procedural primitives, OBJ model loading, and the scene
// description that groups meshes with their textures and transforms.
package geometry

import "github.com/go-gl/mathgl/mgl32"

// Vertex is the interleaved vertex layout shared by every mesh.
type Vertex struct {
	Pos      mgl32.Vec3
	Colour   mgl32.Vec3
	TexCoord mgl32.Vec2
	Normal   mgl32.Vec3
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

var white = mgl32.Vec3{1, 1, 1}
