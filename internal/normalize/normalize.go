// Package normalize fits a loaded scene graph into the canonical viewing
// volume: a roughly 2-unit cube centered on the origin in X/Z and resting on
// the ground plane.
package normalize

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/asset-viewer/internal/scene"
)

// TargetExtent is the size of the largest axis after fitting.
const TargetExtent = 2.0

// Result describes the transform written to the graph root.
type Result struct {
	Source      scene.Bounds // content bounds before fitting
	Fitted      scene.Bounds // content bounds with the root transform applied
	Scale       float32
	Translation mgl32.Vec3
	// Degenerate is set for empty graphs and zero-size or non-finite boxes.
	// The root then gets scale 1 and no translation.
	Degenerate bool
}

// Fit computes the root transform for content bounds b.
func Fit(b scene.Bounds) Result {
	res := Result{Source: b, Fitted: b, Scale: 1}
	if b.IsEmpty() || !b.IsFinite() {
		res.Degenerate = true
		return res
	}
	extent := b.MaxExtent()
	if extent <= 0 {
		res.Degenerate = true
		return res
	}

	s := float32(TargetExtent) / extent
	center := b.Center()
	res.Scale = s
	res.Translation = mgl32.Vec3{-center[0] * s, -b.Min[1] * s, -center[2] * s}
	res.Fitted = scene.Bounds{
		Min: b.Min.Mul(s).Add(res.Translation),
		Max: b.Max.Mul(s).Add(res.Translation),
	}
	return res
}

// Normalize replaces the root transform of g so its content fits the
// canonical volume. Bounds are measured without the root transform, so
// calling it again on an unchanged graph leaves the root as it is.
func Normalize(g *scene.Graph) Result {
	if g == nil || g.Root == nil {
		return Result{Source: scene.EmptyBounds(), Fitted: scene.EmptyBounds(), Scale: 1, Degenerate: true}
	}
	res := Fit(g.ContentBounds())

	root := g.Root
	root.HasMatrix = false
	root.Rotation = mgl32.QuatIdent()
	root.Scale = mgl32.Vec3{res.Scale, res.Scale, res.Scale}
	root.Translation = res.Translation
	return res
}
