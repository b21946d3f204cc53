package normalize

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/asset-viewer/internal/scene"
)

func graphWithBox(min, max mgl32.Vec3) *scene.Graph {
	n := scene.NewNode("mesh")
	n.Mesh = &scene.Mesh{Primitives: []*scene.Primitive{{
		Positions: []mgl32.Vec3{min, max},
		Material:  &scene.Material{},
	}}}
	return scene.NewGraph(n)
}

func TestNormalizeScenario(t *testing.T) {
	g := graphWithBox(mgl32.Vec3{-3, 0, -1}, mgl32.Vec3{5, 4, 1})

	res := Normalize(g)

	if res.Degenerate {
		t.Fatal("box should not be degenerate")
	}
	if res.Scale != 0.25 {
		t.Errorf("scale = %v, want 0.25", res.Scale)
	}

	world := g.WorldBounds()
	if h := world.Max[1] - world.Min[1]; h != 1.0 {
		t.Errorf("height = %v, want 1.0", h)
	}
	if world.Min[1] != 0 {
		t.Errorf("lowest point = %v, want 0", world.Min[1])
	}
	c := world.Center()
	if mgl32.Abs(c[0]) > 1e-6 || mgl32.Abs(c[2]) > 1e-6 {
		t.Errorf("X/Z center = (%v, %v), want origin", c[0], c[2])
	}
	if !res.Fitted.Min.ApproxEqual(world.Min) || !res.Fitted.Max.ApproxEqual(world.Max) {
		t.Errorf("Fitted = %v, world bounds = %v", res.Fitted, world)
	}
}

func TestNormalizeLargestAxisIsTwo(t *testing.T) {
	tests := []struct {
		name     string
		min, max mgl32.Vec3
	}{
		{"tiny units", mgl32.Vec3{0.001, 0.001, 0.001}, mgl32.Vec3{0.002, 0.003, 0.0015}},
		{"huge units", mgl32.Vec3{-1000, 200, 50}, mgl32.Vec3{3000, 900, 70}},
		{"below ground", mgl32.Vec3{-1, -10, -1}, mgl32.Vec3{1, -8, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graphWithBox(tt.min, tt.max)
			Normalize(g)
			world := g.WorldBounds()
			if got := world.MaxExtent(); mgl32.Abs(got-TargetExtent) > 1e-4 {
				t.Errorf("max extent = %v, want %v", got, TargetExtent)
			}
			if mgl32.Abs(world.Min[1]) > 1e-4 {
				t.Errorf("lowest point = %v, want 0", world.Min[1])
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	g := graphWithBox(mgl32.Vec3{-3, 0, -1}, mgl32.Vec3{5, 4, 1})
	Normalize(g)
	first := g.Root.Local()

	Normalize(g)
	second := g.Root.Local()

	if !first.ApproxEqualThreshold(second, 1e-6) {
		t.Errorf("second Normalize changed the root:\n%v\n%v", first, second)
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	tests := []struct {
		name  string
		graph *scene.Graph
	}{
		{"empty graph", scene.NewGraph()},
		{"single point", graphWithBox(mgl32.Vec3{4, 4, 4}, mgl32.Vec3{4, 4, 4})},
		{"non-finite", graphWithBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{float32(math.Inf(1)), 1, 1})},
		{"nil graph", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.graph)
			if !res.Degenerate {
				t.Error("expected degenerate result")
			}
			if res.Scale != 1 {
				t.Errorf("scale = %v, want 1", res.Scale)
			}
			if res.Translation != (mgl32.Vec3{}) {
				t.Errorf("translation = %v, want zero", res.Translation)
			}
			if tt.graph == nil {
				return
			}
			for i, v := range tt.graph.Root.Local() {
				if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
					t.Fatalf("root matrix[%d] = %v", i, v)
				}
			}
		})
	}
}

func TestNormalizeReplacesExistingRootTransform(t *testing.T) {
	g := graphWithBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 2, 2})
	g.Root.Translation = mgl32.Vec3{100, 100, 100}
	g.Root.Scale = mgl32.Vec3{7, 7, 7}

	Normalize(g)

	if g.Root.Scale != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("root scale = %v, want 1", g.Root.Scale)
	}
	want := mgl32.Vec3{-1, 0, -1}
	if !g.Root.Translation.ApproxEqual(want) {
		t.Errorf("root translation = %v, want %v", g.Root.Translation, want)
	}
}
