// Package viewer holds the viewer state store and the event loop that keeps
// it consistent with asynchronous model loads and the animation binder.
package viewer

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/Faultbox/asset-viewer/internal/anim"
	"github.com/Faultbox/asset-viewer/internal/loader"
)

// Store errors.
var (
	ErrInvalidAnimationName  = errors.New("animation not in the current clip list")
	ErrNoAnimationSelected   = errors.New("no animation selected")
	ErrInvalidColor          = errors.New("invalid color spec")
	ErrInvalidLightIntensity = errors.New("invalid light intensity")
)

// Light intensity range.
const (
	MinLightIntensity = 0
	MaxLightIntensity = 2
)

// Binder receives the store's animation state. *anim.Binder implements it.
type Binder interface {
	Bind(clips []anim.Clip)
	Release()
	Reconcile(in anim.Input) anim.Directive
}

// SourceRef is a requested model source tagged with the generation that was
// current when it was requested.
type SourceRef struct {
	Source     loader.Source
	Generation uint64
}

// Preferences are the view settings that survive model changes and Reset.
type Preferences struct {
	Wireframe      bool
	AutoRotate     bool
	Background     string
	LightIntensity float32
	ShowGrid       bool
	ShowAxes       bool
	Camera         mgl32.Vec3
}

// DefaultPreferences returns the startup view.
func DefaultPreferences() Preferences {
	return Preferences{
		Background:     "#1a1a1a",
		LightIntensity: 1,
		ShowGrid:       true,
		ShowAxes:       true,
		Camera:         mgl32.Vec3{5, 5, 5},
	}
}

// State is a point-in-time copy of the store.
type State struct {
	Wireframe         bool
	AutoRotate        bool
	Background        color.RGBA
	BackgroundSpec    string
	LightIntensity    float32
	ShowGrid          bool
	ShowAxes          bool
	CameraPosition    mgl32.Vec3
	Playing           bool
	Source            *SourceRef
	SelectedAnimation string
	HasSelection      bool
	AnimationNames    []string
	Generation        uint64
}

// Store is the single source of truth for the viewer. Fields change only
// through its methods. It has one writer, the event loop, and no locking.
type Store struct {
	wireframe      bool
	autoRotate     bool
	background     color.RGBA
	backgroundSpec string
	lightIntensity float32
	showGrid       bool
	showAxes       bool
	camera         mgl32.Vec3
	playing        bool

	source      *SourceRef
	selected    string
	hasSelected bool
	names       []string
	generation  uint64

	// installed is the model currently displayed and the ref it came from.
	installed    *loader.Model
	installedRef *SourceRef

	binder Binder
}

// NewStore creates a store with the given preferences. A nil binder is
// replaced by one without logging.
func NewStore(p Preferences, b Binder) (*Store, error) {
	if b == nil {
		b = anim.NewBinder(nil)
	}
	s := &Store{
		wireframe:  p.Wireframe,
		autoRotate: p.AutoRotate,
		showGrid:   p.ShowGrid,
		showAxes:   p.ShowAxes,
		camera:     p.Camera,
		binder:     b,
	}
	if err := s.SetBackgroundColor(p.Background); err != nil {
		return nil, err
	}
	if err := s.SetLightIntensity(p.LightIntensity); err != nil {
		return nil, err
	}
	return s, nil
}

// Wireframe reports whether meshes render as wireframes.
func (s *Store) Wireframe() bool { return s.wireframe }

// SetWireframe toggles wireframe rendering.
func (s *Store) SetWireframe(v bool) { s.wireframe = v }

// AutoRotate reports whether the camera orbits on its own.
func (s *Store) AutoRotate() bool { return s.autoRotate }

// SetAutoRotate toggles the camera orbit.
func (s *Store) SetAutoRotate(v bool) { s.autoRotate = v }

// BackgroundColor returns the parsed background color.
func (s *Store) BackgroundColor() color.RGBA { return s.background }

// BackgroundSpec returns the background as it was given.
func (s *Store) BackgroundSpec() string { return s.backgroundSpec }

// SetBackgroundColor parses a "#rgb" or "#rrggbb" spec. Invalid specs leave
// the current color in place.
func (s *Store) SetBackgroundColor(spec string) error {
	if len(spec) != 4 && len(spec) != 7 {
		return fmt.Errorf("%w %q: want #rgb or #rrggbb", ErrInvalidColor, spec)
	}
	c, err := colorful.Hex(spec)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidColor, spec, err)
	}
	r, g, b := c.RGB255()
	s.background = color.RGBA{R: r, G: g, B: b, A: 0xff}
	s.backgroundSpec = spec
	return nil
}

// LightIntensity returns the light intensity in [0,2].
func (s *Store) LightIntensity() float32 { return s.lightIntensity }

// SetLightIntensity sets the intensity, clamped to [0,2]. NaN is rejected.
func (s *Store) SetLightIntensity(v float32) error {
	if math.IsNaN(float64(v)) {
		return ErrInvalidLightIntensity
	}
	s.lightIntensity = mgl32.Clamp(v, MinLightIntensity, MaxLightIntensity)
	return nil
}

// ShowGrid reports whether the ground grid is drawn.
func (s *Store) ShowGrid() bool { return s.showGrid }

// SetShowGrid toggles the ground grid.
func (s *Store) SetShowGrid(v bool) { s.showGrid = v }

// ShowAxes reports whether the axes helper is drawn.
func (s *Store) ShowAxes() bool { return s.showAxes }

// SetShowAxes toggles the axes helper.
func (s *Store) SetShowAxes(v bool) { s.showAxes = v }

// CameraPosition returns the camera position.
func (s *Store) CameraPosition() mgl32.Vec3 { return s.camera }

// SetCameraPosition moves the camera.
func (s *Store) SetCameraPosition(p mgl32.Vec3) { s.camera = p }

// Playing reports whether the selected clip is advancing.
func (s *Store) Playing() bool { return s.playing }

// SetPlaying starts or stops playback. Starting requires a selected clip.
func (s *Store) SetPlaying(v bool) error {
	if v && !s.hasSelected {
		return ErrNoAnimationSelected
	}
	s.playing = v
	s.reconcile()
	return nil
}

// Generation returns the current load generation.
func (s *Store) Generation() uint64 { return s.generation }

// ModelSource returns the requested source, if any.
func (s *Store) ModelSource() (SourceRef, bool) {
	if s.source == nil {
		return SourceRef{}, false
	}
	return *s.source, true
}

// Model returns the installed model, or nil.
func (s *Store) Model() *loader.Model { return s.installed }

// SetModelSource requests a new model, or clears it when src is nil. The
// clip list, selection and playback are cleared and the generation advances,
// so results of earlier loads are recognised as stale. Clearing also tears
// down the installed model; a new source leaves it displayed until its own
// load resolves.
func (s *Store) SetModelSource(src *loader.Source) SourceRef {
	s.generation++
	ref := SourceRef{Generation: s.generation}
	if src != nil {
		ref.Source = *src
		s.source = &ref
	} else {
		s.source = nil
	}

	s.names = nil
	s.selected, s.hasSelected = "", false
	s.playing = false
	s.reconcile()

	if src == nil {
		s.teardown()
	}
	return ref
}

// SelectedAnimation returns the selected clip name.
func (s *Store) SelectedAnimation() (string, bool) {
	return s.selected, s.hasSelected
}

// SetSelectedAnimation selects a clip from the current list. Unknown names
// return ErrInvalidAnimationName and change nothing.
func (s *Store) SetSelectedAnimation(name string) error {
	if !slices.Contains(s.names, name) {
		return fmt.Errorf("%w: %q", ErrInvalidAnimationName, name)
	}
	s.selected, s.hasSelected = name, true
	s.reconcile()
	return nil
}

// ClearSelectedAnimation deselects the clip and stops playback.
func (s *Store) ClearSelectedAnimation() {
	s.selected, s.hasSelected = "", false
	s.playing = false
	s.reconcile()
}

// AnimationNames returns a copy of the clip list.
func (s *Store) AnimationNames() []string {
	return slices.Clone(s.names)
}

// SetAnimationNames replaces the clip list. A selection that is missing or
// no longer listed moves to the first name, or to none for an empty list, in
// which case playback stops.
func (s *Store) SetAnimationNames(names []string) {
	s.names = slices.Clone(names)
	if !s.hasSelected || !slices.Contains(s.names, s.selected) {
		if len(s.names) > 0 {
			s.selected, s.hasSelected = s.names[0], true
		} else {
			s.selected, s.hasSelected = "", false
			s.playing = false
		}
	}
	s.reconcile()
}

// Reset restores per-model state: light intensity 1, playback off, no
// selection and no model. View preferences are kept.
func (s *Store) Reset() {
	s.lightIntensity = 1
	s.playing = false
	s.selected, s.hasSelected = "", false
	s.SetModelSource(nil)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	st := State{
		Wireframe:         s.wireframe,
		AutoRotate:        s.autoRotate,
		Background:        s.background,
		BackgroundSpec:    s.backgroundSpec,
		LightIntensity:    s.lightIntensity,
		ShowGrid:          s.showGrid,
		ShowAxes:          s.showAxes,
		CameraPosition:    s.camera,
		Playing:           s.playing,
		SelectedAnimation: s.selected,
		HasSelection:      s.hasSelected,
		AnimationNames:    slices.Clone(s.names),
		Generation:        s.generation,
	}
	if s.source != nil {
		ref := *s.source
		st.Source = &ref
	}
	return st
}

// install makes m the displayed model for ref. The outgoing model's active
// clip is stopped before the new handles are bound.
func (s *Store) install(ref SourceRef, m *loader.Model) {
	s.binder.Release()
	s.installed = m
	s.installedRef = &ref
	s.binder.Bind(bindClips(m.Clips))
	s.SetAnimationNames(m.ClipNames())
}

// revert goes back to the installed model after the current load failed.
func (s *Store) revert() {
	s.playing = false
	s.selected, s.hasSelected = "", false
	if s.installedRef == nil {
		s.source = nil
		s.SetAnimationNames(nil)
		return
	}
	ref := *s.installedRef
	s.source = &ref
	s.SetAnimationNames(s.installed.ClipNames())
}

func (s *Store) teardown() {
	s.binder.Release()
	s.installed = nil
	s.installedRef = nil
}

func (s *Store) reconcile() {
	s.binder.Reconcile(anim.Input{
		Names:       s.names,
		Selected:    s.selected,
		HasSelected: s.hasSelected,
		Playing:     s.playing,
	})
}

func bindClips(clips []loader.Clip) []anim.Clip {
	out := make([]anim.Clip, len(clips))
	for i, c := range clips {
		out[i] = anim.Clip{Name: c.Name, Index: c.Index, Duration: c.Duration}
	}
	return out
}
