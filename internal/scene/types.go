// Package scene provides the in-memory scene graph handed from the loader to
// the normalization stage, the animation binder and the render boundary.
package scene

import "github.com/go-gl/mathgl/mgl32"

// Material holds the per-primitive surface flags the viewer controls.
type Material struct {
	Name      string
	BaseColor [4]float32
	Wireframe bool
}

// Primitive is one drawable batch of a mesh.
type Primitive struct {
	Positions []mgl32.Vec3
	Indices   []uint32 // nil for non-indexed geometry
	Material  *Material
}

// Mesh groups primitives that share a node transform.
type Mesh struct {
	Name       string
	Primitives []*Primitive
}

// Node is a transform in the hierarchy with an optional mesh.
type Node struct {
	Name        string
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
	// Matrix, when HasMatrix is set, replaces the TRS components.
	Matrix    mgl32.Mat4
	HasMatrix bool
	Mesh      *Mesh
	Children  []*Node
}

// Graph is one loaded asset. Root is synthetic: its transform is owned by the
// viewer and is the only transform the normalization stage writes.
type Graph struct {
	Root *Node
}

// Stats holds model information counts.
type Stats struct {
	Nodes     int
	Meshes    int
	Vertices  int
	Triangles int
}
