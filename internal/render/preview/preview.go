// Package preview is a headless software renderer for viewer frames. It
// draws the ground grid, the axes helper and flat-shaded triangles with
// painter's ordering, which is enough for thumbnails and CLI snapshots.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gg"

	"github.com/Faultbox/asset-viewer/internal/render"
	"github.com/Faultbox/asset-viewer/internal/scene"
)

// Clip planes of the preview camera.
const (
	Near = 0.1
	Far  = 1000
)

// Grid and axes helper dimensions, in world units.
const (
	GridHalfExtent = 5
	GridStep       = 1
	AxisLength     = 1
)

var (
	gridColor = color.RGBA{0x55, 0x55, 0x55, 0xff}
	axisX     = color.RGBA{0xff, 0x00, 0x00, 0xff}
	axisY     = color.RGBA{0x00, 0xff, 0x00, 0xff}
	axisZ     = color.RGBA{0x00, 0x00, 0xff, 0xff}
)

// Config sizes the output image.
type Config struct {
	Width     int
	Height    int
	LineWidth float64
}

// DefaultConfig returns an 800x600 preview.
func DefaultConfig() Config {
	return Config{Width: 800, Height: 600, LineWidth: 1}
}

// Renderer implements render.Renderer on a gg software context.
type Renderer struct {
	cfg Config
}

var _ render.Renderer = (*Renderer)(nil)

// New creates a renderer.
func New(cfg Config) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.LineWidth <= 0 {
		cfg.LineWidth = 1
	}
	return &Renderer{cfg: cfg}, nil
}

// triangle is one projected face ready to paint.
type triangle struct {
	pts   [3]mgl32.Vec2
	depth float32
	fill  color.RGBA
}

// Render draws f. The frame's graph is only read.
func (r *Renderer) Render(f render.Frame) (image.Image, error) {
	dc := gg.NewContext(r.cfg.Width, r.cfg.Height)
	defer dc.Close()

	dc.ClearWithColor(gg.FromColor(f.Background))
	dc.SetLineWidth(r.cfg.LineWidth)

	cam := newCamera(f.Camera, r.cfg.Width, r.cfg.Height)

	var errs []error
	if f.ShowGrid {
		for i := -GridHalfExtent; i <= GridHalfExtent; i += GridStep {
			x := float32(i)
			errs = append(errs,
				r.line(dc, cam, mgl32.Vec3{x, 0, -GridHalfExtent}, mgl32.Vec3{x, 0, GridHalfExtent}, gridColor),
				r.line(dc, cam, mgl32.Vec3{-GridHalfExtent, 0, x}, mgl32.Vec3{GridHalfExtent, 0, x}, gridColor))
		}
	}

	if f.Graph != nil {
		tris := collect(f.Graph, cam, f.Light)
		for _, t := range tris {
			errs = append(errs, r.triangle(dc, t, f.Wireframe))
		}
	}

	if f.ShowAxes {
		var o mgl32.Vec3
		errs = append(errs,
			r.line(dc, cam, o, mgl32.Vec3{AxisLength, 0, 0}, axisX),
			r.line(dc, cam, o, mgl32.Vec3{0, AxisLength, 0}, axisY),
			r.line(dc, cam, o, mgl32.Vec3{0, 0, AxisLength}, axisZ))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("preview render: %w", err)
	}
	return dc.Image(), nil
}

func (r *Renderer) line(dc *gg.Context, cam camera, a, b mgl32.Vec3, c color.RGBA) error {
	pa, _, okA := cam.project(a)
	pb, _, okB := cam.project(b)
	if !okA || !okB {
		return nil
	}
	dc.SetColor(c)
	dc.DrawLine(float64(pa.X()), float64(pa.Y()), float64(pb.X()), float64(pb.Y()))
	return dc.Stroke()
}

func (r *Renderer) triangle(dc *gg.Context, t triangle, wireframe bool) error {
	dc.MoveTo(float64(t.pts[0].X()), float64(t.pts[0].Y()))
	dc.LineTo(float64(t.pts[1].X()), float64(t.pts[1].Y()))
	dc.LineTo(float64(t.pts[2].X()), float64(t.pts[2].Y()))
	dc.ClosePath()
	dc.SetColor(t.fill)
	if wireframe {
		return dc.Stroke()
	}
	return dc.Fill()
}

// collect projects every triangle of g and sorts them far to near.
func collect(g *scene.Graph, cam camera, light render.Light) []triangle {
	var tris []triangle
	g.Walk(func(n *scene.Node, world mgl32.Mat4) bool {
		if n.Mesh == nil {
			return true
		}
		for _, p := range n.Mesh.Primitives {
			base := [4]float32{1, 1, 1, 1}
			if p.Material != nil {
				base = p.Material.BaseColor
			}
			forEachFace(p, func(a, b, c mgl32.Vec3) {
				wa := scene.TransformPoint(world, a)
				wb := scene.TransformPoint(world, b)
				wc := scene.TransformPoint(world, c)

				var t triangle
				var depth float32
				for i, w := range [3]mgl32.Vec3{wa, wb, wc} {
					pt, d, ok := cam.project(w)
					if !ok {
						return
					}
					t.pts[i] = pt
					depth += d
				}
				t.depth = depth / 3
				t.fill = shade(base, wa, wb, wc, light)
				tris = append(tris, t)
			})
		}
		return true
	})
	sort.SliceStable(tris, func(i, j int) bool { return tris[i].depth > tris[j].depth })
	return tris
}

func forEachFace(p *scene.Primitive, fn func(a, b, c mgl32.Vec3)) {
	if p.Indices != nil {
		for i := 0; i+2 < len(p.Indices); i += 3 {
			fn(p.Positions[p.Indices[i]], p.Positions[p.Indices[i+1]], p.Positions[p.Indices[i+2]])
		}
		return
	}
	for i := 0; i+2 < len(p.Positions); i += 3 {
		fn(p.Positions[i], p.Positions[i+1], p.Positions[i+2])
	}
}

// shade applies ambient plus two-sided Lambert lighting from the key light.
func shade(base [4]float32, a, b, c mgl32.Vec3, light render.Light) color.RGBA {
	k := light.Ambient
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() > 0 {
		centroid := a.Add(b).Add(c).Mul(1.0 / 3)
		l := light.Position.Sub(centroid)
		if l.Len() > 0 {
			d := n.Normalize().Dot(l.Normalize())
			if d < 0 {
				d = -d
			}
			k += light.Directional * d
		}
	}
	k = mgl32.Clamp(k, 0, 1)
	ch := func(v float32) uint8 { return uint8(mgl32.Clamp(v*k, 0, 1)*255 + 0.5) }
	return color.RGBA{R: ch(base[0]), G: ch(base[1]), B: ch(base[2]), A: 0xff}
}

// camera maps world points to pixel coordinates.
type camera struct {
	view, viewProj mgl32.Mat4
	width, height  float32
}

func newCamera(c render.Camera, width, height int) camera {
	up := c.Up
	if up.Len() == 0 {
		up = mgl32.Vec3{0, 1, 0}
	}
	fov := c.FovY
	if fov <= 0 {
		fov = render.DefaultFovY
	}
	view := mgl32.LookAtV(c.Position, c.Target, up)
	proj := mgl32.Perspective(mgl32.DegToRad(fov), float32(width)/float32(height), Near, Far)
	return camera{
		view:     view,
		viewProj: proj.Mul4(view),
		width:    float32(width),
		height:   float32(height),
	}
}

// project returns the pixel position and view distance of p. ok is false
// for points behind the near plane.
func (c camera) project(p mgl32.Vec3) (mgl32.Vec2, float32, bool) {
	clip := c.viewProj.Mul4x1(p.Vec4(1))
	if clip.W() < Near {
		return mgl32.Vec2{}, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x := (ndc.X() + 1) / 2 * c.width
	y := (1 - ndc.Y()) / 2 * c.height
	depth := -c.view.Mul4x1(p.Vec4(1)).Z()
	return mgl32.Vec2{x, y}, depth, true
}
