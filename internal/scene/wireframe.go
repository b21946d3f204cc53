package scene

// Clone returns a structural copy of the graph. Nodes, meshes, primitives and
// materials are new values; vertex and index slices are shared and must be
// treated as read-only. Shared meshes stay shared in the copy.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	c := cloner{
		nodes:     make(map[*Node]*Node),
		meshes:    make(map[*Mesh]*Mesh),
		materials: make(map[*Material]*Material),
	}
	return &Graph{Root: c.node(g.Root)}
}

// ApplyWireframe returns a copy of g whose materials all carry the given
// wireframe flag. g itself is not modified.
func ApplyWireframe(g *Graph, enabled bool) *Graph {
	out := g.Clone()
	for _, m := range out.Materials() {
		m.Wireframe = enabled
	}
	return out
}

type cloner struct {
	nodes     map[*Node]*Node
	meshes    map[*Mesh]*Mesh
	materials map[*Material]*Material
}

func (c *cloner) node(n *Node) *Node {
	if n == nil {
		return nil
	}
	if dup, ok := c.nodes[n]; ok {
		return dup
	}
	dup := *n
	c.nodes[n] = &dup
	dup.Mesh = c.mesh(n.Mesh)
	if n.Children != nil {
		dup.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			dup.Children[i] = c.node(ch)
		}
	}
	return &dup
}

func (c *cloner) mesh(m *Mesh) *Mesh {
	if m == nil {
		return nil
	}
	if dup, ok := c.meshes[m]; ok {
		return dup
	}
	dup := &Mesh{Name: m.Name, Primitives: make([]*Primitive, len(m.Primitives))}
	c.meshes[m] = dup
	for i, p := range m.Primitives {
		if p == nil {
			continue
		}
		dp := *p
		dp.Material = c.material(p.Material)
		dup.Primitives[i] = &dp
	}
	return dup
}

func (c *cloner) material(m *Material) *Material {
	if m == nil {
		return nil
	}
	if dup, ok := c.materials[m]; ok {
		return dup
	}
	dup := *m
	c.materials[m] = &dup
	return &dup
}
