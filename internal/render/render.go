// Package render defines the boundary between the viewer core and whatever
// draws its frames. The core builds a Frame; a Renderer turns it into pixels
// and must treat everything it is handed as read-only.
package render

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/asset-viewer/internal/scene"
)

// Lighting factors of the default rig.
const (
	AmbientFactor = 0.5
	DefaultFovY   = 50 // degrees
)

// KeyLightPosition is where the directional light sits.
var KeyLightPosition = mgl32.Vec3{5, 5, 5}

// Light holds the lighting parameters of a frame.
type Light struct {
	Ambient     float32
	Directional float32
	Position    mgl32.Vec3
}

// LightFor derives the rig from the viewer's light intensity.
func LightFor(intensity float32) Light {
	return Light{
		Ambient:     intensity * AmbientFactor,
		Directional: intensity,
		Position:    KeyLightPosition,
	}
}

// Camera is the viewing pose. The camera always looks at Target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 // degrees
}

// Frame is everything a renderer needs for one image.
type Frame struct {
	// Graph is borrowed for the duration of the call; nil when no model is
	// installed. Wireframe has already been applied to its materials.
	Graph      *scene.Graph
	Wireframe  bool
	Background color.RGBA
	Light      Light
	Camera     Camera
	ShowGrid   bool
	ShowAxes   bool

	Clip     string // active clip, empty when none
	ClipTime float32
	Playing  bool
}

// Renderer draws frames.
type Renderer interface {
	Render(f Frame) (image.Image, error)
}
