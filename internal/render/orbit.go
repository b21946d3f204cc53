package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Orbit places a camera on a sphere around Target.
type Orbit struct {
	Target mgl32.Vec3

	// Spherical coordinates
	Distance float32
	Pitch    float32 // elevation above the XZ plane, radians
	Yaw      float32 // around +Y from +Z towards +X, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbit derives the orbit that puts the camera at position looking at
// target.
func NewOrbit(position, target mgl32.Vec3) *Orbit {
	o := &Orbit{
		Target:          target,
		MinDistance:     0.5,
		MaxDistance:     100,
		MinPitch:        -1.55,
		MaxPitch:        1.55,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
	o.SetPosition(position)
	return o
}

// SetPosition moves the camera to p without changing the target.
func (o *Orbit) SetPosition(p mgl32.Vec3) {
	d := p.Sub(o.Target)
	o.Distance = d.Len()
	if o.Distance == 0 {
		o.Pitch, o.Yaw = 0, 0
		return
	}
	o.Pitch = float32(math.Asin(float64(mgl32.Clamp(d.Y()/o.Distance, -1, 1))))
	o.Yaw = float32(math.Atan2(float64(d.X()), float64(d.Z())))
}

// Position returns the camera position in world space.
func (o *Orbit) Position() mgl32.Vec3 {
	sp, cp := math.Sincos(float64(o.Pitch))
	sy, cy := math.Sincos(float64(o.Yaw))
	return o.Target.Add(mgl32.Vec3{
		o.Distance * float32(cp*sy),
		o.Distance * float32(sp),
		o.Distance * float32(cp*cy),
	})
}

// ViewMatrix returns the view matrix for this orbit.
func (o *Orbit) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(o.Position(), o.Target, mgl32.Vec3{0, 1, 0})
}

// Spin turns the camera around the vertical axis. Pitch and distance are
// left alone.
func (o *Orbit) Spin(angle float32) {
	o.Yaw = float32(math.Mod(float64(o.Yaw+angle), 2*math.Pi))
}

// Drag rotates by a pointer delta in pixels.
func (o *Orbit) Drag(dx, dy float32) {
	o.Yaw -= dx * o.DragSensitivity
	o.Pitch = mgl32.Clamp(o.Pitch+dy*o.DragSensitivity, o.MinPitch, o.MaxPitch)
}

// Zoom moves towards the target for positive delta.
func (o *Orbit) Zoom(delta float32) {
	o.Distance = mgl32.Clamp(o.Distance-delta*o.Distance*o.ZoomSensitivity, o.MinDistance, o.MaxDistance)
}
