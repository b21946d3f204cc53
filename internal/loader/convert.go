package loader

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/asset-viewer/internal/scene"
)

// converter builds a scene graph from one glTF document.
type converter struct {
	doc       *gltf.Document
	nodes     map[uint32]*scene.Node
	meshes    map[uint32]*scene.Mesh
	materials map[uint32]*scene.Material
	building  map[uint32]bool
}

// convert returns the graph of the document's active scene and its clips.
func convert(doc *gltf.Document) (*scene.Graph, []Clip, error) {
	c := &converter{
		doc:       doc,
		nodes:     make(map[uint32]*scene.Node),
		meshes:    make(map[uint32]*scene.Mesh),
		materials: make(map[uint32]*scene.Material),
		building:  make(map[uint32]bool),
	}

	var roots []*scene.Node
	for _, idx := range c.rootIndices() {
		n, err := c.node(idx)
		if err != nil {
			return nil, nil, err
		}
		if n != nil {
			roots = append(roots, n)
		}
	}
	return scene.NewGraph(roots...), c.clips(), nil
}

// rootIndices picks the default scene, then scene 0, then every node without
// a parent.
func (c *converter) rootIndices() []uint32 {
	doc := c.doc
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) && doc.Scenes[*doc.Scene] != nil {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 && doc.Scenes[0] != nil {
		return doc.Scenes[0].Nodes
	}

	child := make(map[uint32]bool)
	for _, n := range doc.Nodes {
		if n == nil {
			continue
		}
		for _, ch := range n.Children {
			child[ch] = true
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !child[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (c *converter) node(idx uint32) (*scene.Node, error) {
	if n, ok := c.nodes[idx]; ok {
		return n, nil
	}
	if int(idx) >= len(c.doc.Nodes) || c.doc.Nodes[idx] == nil {
		return nil, fmt.Errorf("node %d out of range", idx)
	}
	if c.building[idx] {
		return nil, fmt.Errorf("node %d is its own ancestor", idx)
	}
	c.building[idx] = true
	defer delete(c.building, idx)

	src := c.doc.Nodes[idx]
	n := scene.NewNode(src.Name)
	applyTransform(n, src)

	if src.Mesh != nil {
		m, err := c.mesh(*src.Mesh)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", idx, err)
		}
		n.Mesh = m
	}
	for _, ch := range src.Children {
		cn, err := c.node(ch)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cn)
	}

	c.nodes[idx] = n
	return n, nil
}

// applyTransform copies the node's matrix or TRS. Zero-valued fields mean
// the glTF default.
func applyTransform(n *scene.Node, src *gltf.Node) {
	m := mgl32.Mat4(src.Matrix)
	if m != (mgl32.Mat4{}) && m != mgl32.Ident4() {
		n.Matrix = m
		n.HasMatrix = true
		return
	}
	n.Translation = mgl32.Vec3(src.Translation)
	if src.Rotation != ([4]float32{}) {
		r := src.Rotation
		n.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if src.Scale != ([3]float32{}) {
		n.Scale = mgl32.Vec3(src.Scale)
	}
}

func (c *converter) mesh(idx uint32) (*scene.Mesh, error) {
	if m, ok := c.meshes[idx]; ok {
		return m, nil
	}
	if int(idx) >= len(c.doc.Meshes) || c.doc.Meshes[idx] == nil {
		return nil, fmt.Errorf("mesh %d out of range", idx)
	}
	src := c.doc.Meshes[idx]
	m := &scene.Mesh{Name: src.Name}
	for i, p := range src.Primitives {
		if p == nil {
			continue
		}
		prim, err := c.primitive(p)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", idx, i, err)
		}
		if prim != nil {
			m.Primitives = append(m.Primitives, prim)
		}
	}
	c.meshes[idx] = m
	return m, nil
}

// primitive reads positions and indices. Primitives without POSITION carry
// no renderable geometry and are skipped.
func (c *converter) primitive(p *gltf.Primitive) (*scene.Primitive, error) {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	acc, err := c.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	raw, err := modeler.ReadPosition(c.doc, acc, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}
	positions := make([]mgl32.Vec3, len(raw))
	for i, v := range raw {
		positions[i] = mgl32.Vec3(v)
	}

	prim := &scene.Primitive{Positions: positions, Material: c.material(p.Material)}
	if p.Indices != nil {
		acc, err := c.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		indices, err := modeler.ReadIndices(c.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
		for _, ix := range indices {
			if int(ix) >= len(positions) {
				return nil, fmt.Errorf("index %d out of range for %d vertices", ix, len(positions))
			}
		}
		prim.Indices = indices
	}
	return prim, nil
}

func (c *converter) accessor(idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(c.doc.Accessors) || c.doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return c.doc.Accessors[idx], nil
}

// material returns one scene material per document material; primitives
// without one share a default white material.
func (c *converter) material(idx *uint32) *scene.Material {
	key := ^uint32(0)
	if idx != nil && int(*idx) < len(c.doc.Materials) && c.doc.Materials[*idx] != nil {
		key = *idx
	}
	if m, ok := c.materials[key]; ok {
		return m
	}

	m := &scene.Material{Name: "default", BaseColor: [4]float32{1, 1, 1, 1}}
	if key != ^uint32(0) {
		src := c.doc.Materials[key]
		m.Name = src.Name
		if pbr := src.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			m.BaseColor = *pbr.BaseColorFactor
		}
	}
	c.materials[key] = m
	return m
}

// clips lists the document animations with unique names.
func (c *converter) clips() []Clip {
	if len(c.doc.Animations) == 0 {
		return nil
	}
	names := make([]string, len(c.doc.Animations))
	clips := make([]Clip, len(c.doc.Animations))
	for i, a := range c.doc.Animations {
		clips[i].Index = i
		if a == nil {
			continue
		}
		names[i] = a.Name
		clips[i].Channels = len(a.Channels)
		clips[i].Duration = c.duration(a)
	}
	for i, n := range UniqueNames(names) {
		clips[i].Name = n
	}
	return clips
}

// duration is the largest sampler input time. Unreadable samplers count as 0.
func (c *converter) duration(a *gltf.Animation) float32 {
	var longest float32
	for _, s := range a.Samplers {
		if s == nil || s.Input == nil {
			continue
		}
		acc, err := c.accessor(*s.Input)
		if err != nil {
			continue
		}
		data, err := modeler.ReadAccessor(c.doc, acc, nil)
		if err != nil {
			continue
		}
		times, ok := data.([]float32)
		if !ok {
			continue
		}
		for _, t := range times {
			if t > longest {
				longest = t
			}
		}
	}
	return longest
}
