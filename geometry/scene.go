package geometry

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Source produces a mesh on demand; scene objects hold sources so mesh
// generation can be deferred to Build and run concurrently.
type Source func() (Mesh, error)

// CubeOf returns a Source for Cube.
func CubeOf(side float32) Source {
	return func() (Mesh, error) { return Cube(side), nil }
}

// PlaneOf returns a Source for Plane.
func PlaneOf(side float32) Source {
	return func() (Mesh, error) { return Plane(side), nil }
}

// SphereOf returns a Source for Sphere.
func SphereOf(radius float32, sectors, stacks int) Source {
	return func() (Mesh, error) { return Sphere(radius, sectors, stacks) }
}

// RingOf returns a Source for Ring.
func RingOf(inner, outer float32, sectors int) Source {
	return func() (Mesh, error) { return Ring(inner, outer, sectors) }
}

// ModelOf returns a Source loading an OBJ file.
func ModelOf(path string) Source {
	return func() (Mesh, error) { return LoadModel(path) }
}

// Object is one renderable entity: a mesh source, an optional texture,
// and a model transform. Objects carry a unique id so collaborators can
// refer to them across rebuilds.
type Object struct {
	id        uuid.UUID
	name      string
	source    Source
	mesh      Mesh
	texture   string
	transform mgl32.Mat4
}

// NewObject creates an object around a mesh source.
func NewObject(name string, source Source) *Object {
	return &Object{
		id:        uuid.New(),
		name:      name,
		source:    source,
		transform: mgl32.Ident4(),
	}
}

// WithTexture sets the texture image path.
func (o *Object) WithTexture(path string) *Object {
	o.texture = path
	return o
}

// WithTransform sets the model transform.
func (o *Object) WithTransform(transform mgl32.Mat4) *Object {
	o.transform = transform
	return o
}

func (o *Object) ID() uuid.UUID         { return o.id }
func (o *Object) Name() string          { return o.name }
func (o *Object) Texture() string       { return o.texture }
func (o *Object) Transform() mgl32.Mat4 { return o.transform }

// Mesh returns the built mesh. It is empty until the scene is built.
func (o *Object) Mesh() Mesh { return o.mesh }

// Scene is an ordered collection of objects.
type Scene struct {
	objects []*Object
}

func NewScene() *Scene {
	return &Scene{}
}

// Add appends an object and returns the scene for chaining.
func (s *Scene) Add(o *Object) *Scene {
	s.objects = append(s.objects, o)
	return s
}

func (s *Scene) Objects() []*Object {
	return s.objects
}

// Build generates every object's mesh, running the sources
// concurrently. A failing source fails the whole build.
func (s *Scene) Build() error {
	var group errgroup.Group

	for _, object := range s.objects {
		object := object
		group.Go(func() error {
			mesh, err := object.source()
			if err != nil {
				return errors.Wrapf(err, "build mesh for %q", object.name)
			}
			object.mesh = mesh
			return nil
		})
	}

	return group.Wait()
}
