package scene

import "github.com/go-gl/mathgl/mgl32"

// NewNode returns a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// NewGraph wraps top-level nodes under a fresh identity root.
func NewGraph(nodes ...*Node) *Graph {
	root := NewNode("root")
	root.Children = nodes
	return &Graph{Root: root}
}

// Local returns the node's transform relative to its parent.
func (n *Node) Local() mgl32.Mat4 {
	if n.HasMatrix {
		return n.Matrix
	}
	t := mgl32.Translate3D(n.Translation[0], n.Translation[1], n.Translation[2])
	r := n.Rotation.Normalize().Mat4()
	s := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(r).Mul4(s)
}

// Visitor is called for every node with its accumulated transform.
// Returning false skips the node's children.
type Visitor func(n *Node, world mgl32.Mat4) bool

// Walk visits the graph depth-first, root included.
func (g *Graph) Walk(fn Visitor) {
	if g == nil || g.Root == nil {
		return
	}
	walk(g.Root, mgl32.Ident4(), fn, make(map[*Node]bool))
}

func walk(n *Node, parent mgl32.Mat4, fn Visitor, visited map[*Node]bool) {
	// Cycles are invalid in glTF but nothing stops a malformed file.
	if visited[n] {
		return
	}
	visited[n] = true
	defer delete(visited, n)

	world := parent.Mul4(n.Local())
	if !fn(n, world) {
		return
	}
	for _, c := range n.Children {
		if c != nil {
			walk(c, world, fn, visited)
		}
	}
}

// ContentBounds returns the box of all vertices in the root's local space,
// ignoring the root's own transform.
func (g *Graph) ContentBounds() Bounds {
	b := EmptyBounds()
	if g == nil || g.Root == nil {
		return b
	}
	visited := make(map[*Node]bool)
	for _, c := range g.Root.Children {
		if c == nil {
			continue
		}
		walk(c, mgl32.Ident4(), func(n *Node, world mgl32.Mat4) bool {
			extendMesh(&b, n.Mesh, world)
			return true
		}, visited)
	}
	extendMesh(&b, g.Root.Mesh, mgl32.Ident4())
	return b
}

// WorldBounds returns the box of all vertices with every transform applied.
func (g *Graph) WorldBounds() Bounds {
	b := EmptyBounds()
	g.Walk(func(n *Node, world mgl32.Mat4) bool {
		extendMesh(&b, n.Mesh, world)
		return true
	})
	return b
}

func extendMesh(b *Bounds, m *Mesh, world mgl32.Mat4) {
	if m == nil {
		return
	}
	for _, p := range m.Primitives {
		for _, v := range p.Positions {
			b.Extend(TransformPoint(world, v))
		}
	}
}

// Stats counts nodes, mesh instances, vertices and triangles.
func (g *Graph) Stats() Stats {
	var s Stats
	g.Walk(func(n *Node, _ mgl32.Mat4) bool {
		s.Nodes++
		if n.Mesh == nil {
			return true
		}
		s.Meshes++
		for _, p := range n.Mesh.Primitives {
			s.Vertices += len(p.Positions)
			if p.Indices != nil {
				s.Triangles += len(p.Indices) / 3
			} else {
				s.Triangles += len(p.Positions) / 3
			}
		}
		return true
	})
	return s
}

// Materials returns every distinct material in visit order.
func (g *Graph) Materials() []*Material {
	var out []*Material
	seen := make(map[*Material]bool)
	g.Walk(func(n *Node, _ mgl32.Mat4) bool {
		if n.Mesh == nil {
			return true
		}
		for _, p := range n.Mesh.Primitives {
			if p.Material != nil && !seen[p.Material] {
				seen[p.Material] = true
				out = append(out, p.Material)
			}
		}
		return true
	})
	return out
}
