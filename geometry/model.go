package geometry

import (
	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
)

// LoadModel reads a Wavefront OBJ file into an indexed mesh,
// triangulating faces and deduplicating shared vertices. A material
// file with the same base name is picked up when present.
func LoadModel(path string) (Mesh, error) {
	decoder, err := obj.Decode(path, "")
	if err != nil {
		return Mesh{}, errors.Wrapf(err, "decode obj %s", path)
	}

	var mesh Mesh
	uniqueVertices := make(map[int]uint32)

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			// Faces may be polygons; fan-triangulate them.
			for i := 2; i < len(face.Vertices); i++ {
				addVertex(decoder, &mesh, uniqueVertices, face, 0)
				addVertex(decoder, &mesh, uniqueVertices, face, i-1)
				addVertex(decoder, &mesh, uniqueVertices, face, i)
			}
		}
	}

	if len(mesh.Indices) == 0 {
		return Mesh{}, errors.Newf("obj %s contains no faces", path)
	}

	return mesh, nil
}

func addVertex(decoder *obj.Decoder, mesh *Mesh, uniqueVertices map[int]uint32, face obj.Face, faceIndex int) {
	vertInd := face.Vertices[faceIndex]

	index, exists := uniqueVertices[vertInd]
	if !exists {
		vert := Vertex{
			Pos: mgl32.Vec3{
				decoder.Vertices[vertInd*3],
				decoder.Vertices[vertInd*3+1],
				decoder.Vertices[vertInd*3+2],
			},
			Colour: white,
		}

		if faceIndex < len(face.Uvs) {
			if uvInd := face.Uvs[faceIndex]; uvInd >= 0 && uvInd*2+1 < len(decoder.Uvs) {
				vert.TexCoord = mgl32.Vec2{
					decoder.Uvs[uvInd*2],
					1 - decoder.Uvs[uvInd*2+1],
				}
			}
		}

		if faceIndex < len(face.Normals) {
			if normInd := face.Normals[faceIndex]; normInd >= 0 && normInd*3+2 < len(decoder.Normals) {
				vert.Normal = mgl32.Vec3{
					decoder.Normals[normInd*3],
					decoder.Normals[normInd*3+1],
					decoder.Normals[normInd*3+2],
				}
			}
		}

		index = uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, vert)
		uniqueVertices[vertInd] = index
	}

	mesh.Indices = append(mesh.Indices, index)
}
