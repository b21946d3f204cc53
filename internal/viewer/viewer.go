package viewer

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/asset-viewer/internal/anim"
	"github.com/Faultbox/asset-viewer/internal/loader"
	"github.com/Faultbox/asset-viewer/internal/normalize"
	"github.com/Faultbox/asset-viewer/internal/render"
	"github.com/Faultbox/asset-viewer/internal/scene"
)

// OrbitPeriod is one auto-rotate revolution at speed 1.
const OrbitPeriod = 60 * time.Second

// ModelLoader loads model sources. *loader.Loader implements it. Load is
// called from its own goroutine.
type ModelLoader interface {
	Load(ctx context.Context, src loader.Source) (*loader.Model, error)
}

// Options configures a Viewer.
type Options struct {
	Preferences Preferences
	// AutoRotateSpeed multiplies the orbit rate; 0 means 1.
	AutoRotateSpeed float32
	Logger          *zap.Logger
}

// loadResult is what a load goroutine hands back to the event loop.
type loadResult struct {
	ref   SourceRef
	model *loader.Model
	err   error
}

// Viewer drives the store from a single event loop. Open, Clear, Reset,
// Update, Await, Frame and the store setters must all be called from that
// loop; only the loads themselves run elsewhere.
type Viewer struct {
	store  *Store
	binder *anim.Binder
	loader ModelLoader
	log    *zap.Logger
	speed  float32

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	results chan loadResult
	pending map[uint64]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool

	lastErr error
	fit     normalize.Result

	// Cached wireframe copy of the installed graph.
	frameGraph *scene.Graph
	frameModel *loader.Model
	frameWire  bool
}

// New creates a viewer backed by l.
func New(l ModelLoader, opts Options) (*Viewer, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	binder := anim.NewBinder(log.Named("anim"))
	store, err := NewStore(opts.Preferences, binder)
	if err != nil {
		return nil, err
	}
	speed := opts.AutoRotateSpeed
	if speed == 0 {
		speed = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Viewer{
		store:   store,
		binder:  binder,
		loader:  l,
		log:     log,
		speed:   speed,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		results: make(chan loadResult, 8),
		pending: make(map[uint64]context.CancelFunc),
	}, nil
}

// Store returns the viewer's state store.
func (v *Viewer) Store() *Store { return v.store }

// Binder returns the animation binder.
func (v *Viewer) Binder() *anim.Binder { return v.binder }

// Model returns the installed model, or nil.
func (v *Viewer) Model() *loader.Model { return v.store.Model() }

// Fit returns the normalization applied to the installed model.
func (v *Viewer) Fit() normalize.Result { return v.fit }

// LastError returns the failure of the most recent current load, cleared by
// the next successful one.
func (v *Viewer) LastError() error { return v.lastErr }

// Loading reports whether the current generation's load is in flight.
func (v *Viewer) Loading() bool {
	_, ok := v.pending[v.store.Generation()]
	return ok
}

// Open requests src and starts loading it. Unsupported formats are rejected
// before any state changes. Loads still running for earlier sources are
// cancelled and their results will be discarded.
func (v *Viewer) Open(src loader.Source) (SourceRef, error) {
	if v.closed {
		return SourceRef{}, errors.New("viewer closed")
	}
	if _, err := loader.CheckFormat(src); err != nil {
		v.log.Warn("model rejected", zap.String("source", src.String()), zap.Error(err))
		return SourceRef{}, err
	}

	ref := v.store.SetModelSource(&src)
	v.supersede()

	ctx, cancel := context.WithCancel(v.ctx)
	v.pending[ref.Generation] = cancel
	v.wg.Add(1)
	go v.load(ctx, ref)

	v.log.Info("loading model",
		zap.String("source", src.String()),
		zap.Stringer("kind", src.Kind),
		zap.Uint64("generation", ref.Generation))
	return ref, nil
}

// Clear removes the model.
func (v *Viewer) Clear() {
	v.store.SetModelSource(nil)
	v.supersede()
	v.lastErr = nil
	v.fit = normalize.Result{}
}

// Reset restores per-model state and removes the model. View preferences
// are kept.
func (v *Viewer) Reset() {
	v.store.Reset()
	v.supersede()
	v.lastErr = nil
	v.fit = normalize.Result{}
}

// Reload requests the current source again under a new generation.
func (v *Viewer) Reload() (SourceRef, error) {
	ref, ok := v.store.ModelSource()
	if !ok {
		return SourceRef{}, errors.New("no model source to reload")
	}
	return v.Open(ref.Source)
}

func (v *Viewer) load(ctx context.Context, ref SourceRef) {
	defer v.wg.Done()
	m, err := v.loader.Load(ctx, ref.Source)
	select {
	case v.results <- loadResult{ref: ref, model: m, err: err}:
	case <-v.done:
	}
}

// supersede cancels every load that is no longer current.
func (v *Viewer) supersede() {
	cur := v.store.Generation()
	for gen, cancel := range v.pending {
		if gen != cur {
			cancel()
		}
	}
}

// Update applies finished loads without blocking and advances auto-rotate
// and animation by dt. It returns the number of results applied.
func (v *Viewer) Update(dt time.Duration) int {
	applied := 0
drain:
	for {
		select {
		case r := <-v.results:
			if v.apply(r) {
				applied++
			}
		default:
			break drain
		}
	}

	if v.store.AutoRotate() && dt > 0 {
		v.orbit(dt)
	}
	v.binder.Advance(float32(dt.Seconds()))
	return applied
}

// Await blocks until the current generation's load has been applied or ctx
// ends. It is meant for headless drivers and tests.
func (v *Viewer) Await(ctx context.Context) error {
	for v.Loading() {
		select {
		case r := <-v.results:
			v.apply(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return v.lastErr
}

// Run calls Update every interval until ctx ends.
func (v *Viewer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			v.Update(now.Sub(last))
			last = now
		}
	}
}

// apply installs or discards one load result. It reports whether the result
// was current.
func (v *Viewer) apply(r loadResult) bool {
	if cancel, ok := v.pending[r.ref.Generation]; ok {
		cancel()
		delete(v.pending, r.ref.Generation)
	}

	if r.ref.Generation != v.store.Generation() {
		v.log.Debug("stale load discarded",
			zap.String("source", r.ref.Source.String()),
			zap.Uint64("generation", r.ref.Generation),
			zap.Uint64("current", v.store.Generation()))
		return false
	}

	if r.err != nil {
		v.lastErr = r.err
		v.store.revert()
		v.log.Error("model load failed", zap.String("source", r.ref.Source.String()), zap.Error(r.err))
		return true
	}

	fit := normalize.Normalize(r.model.Graph)
	if fit.Degenerate {
		v.log.Debug("degenerate bounds, model left unscaled", zap.String("source", r.ref.Source.String()))
	}
	v.fit = fit
	v.lastErr = nil
	v.store.install(r.ref, r.model)

	v.log.Info("model ready",
		zap.String("source", r.ref.Source.String()),
		zap.Uint64("generation", r.ref.Generation),
		zap.Float32("scale", fit.Scale),
		zap.Strings("clips", r.model.ClipNames()))
	return true
}

// orbit turns the camera around the Y axis.
func (v *Viewer) orbit(dt time.Duration) {
	angle := float32(2*math.Pi*dt.Seconds()/OrbitPeriod.Seconds()) * v.speed
	o := render.NewOrbit(v.store.CameraPosition(), mgl32.Vec3{})
	o.Spin(angle)
	v.store.SetCameraPosition(o.Position())
}

// Drag orbits the camera by a pointer delta in pixels.
func (v *Viewer) Drag(dx, dy float32) {
	o := render.NewOrbit(v.store.CameraPosition(), mgl32.Vec3{})
	o.Drag(dx, dy)
	v.store.SetCameraPosition(o.Position())
}

// Zoom moves the camera towards the model for positive delta.
func (v *Viewer) Zoom(delta float32) {
	o := render.NewOrbit(v.store.CameraPosition(), mgl32.Vec3{})
	o.Zoom(delta)
	v.store.SetCameraPosition(o.Position())
}

// Frame assembles what the renderer needs right now.
func (v *Viewer) Frame() render.Frame {
	s := v.store
	f := render.Frame{
		Wireframe:  s.Wireframe(),
		Background: s.BackgroundColor(),
		Light:      render.LightFor(s.LightIntensity()),
		Camera: render.Camera{
			Position: s.CameraPosition(),
			Up:       mgl32.Vec3{0, 1, 0},
			FovY:     render.DefaultFovY,
		},
		ShowGrid: s.ShowGrid(),
		ShowAxes: s.ShowAxes(),
	}

	if m := s.Model(); m != nil {
		if v.frameModel != m || v.frameWire != f.Wireframe || v.frameGraph == nil {
			v.frameGraph = scene.ApplyWireframe(m.Graph, f.Wireframe)
			v.frameModel = m
			v.frameWire = f.Wireframe
		}
		f.Graph = v.frameGraph
	} else {
		v.frameGraph, v.frameModel = nil, nil
	}

	if a := v.binder.Active(); a != nil {
		f.Clip = a.Name()
		f.ClipTime = a.Time()
		f.Playing = a.Running()
	}
	return f
}

// Close cancels outstanding loads and waits for their goroutines.
func (v *Viewer) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.cancel()
	close(v.done)
	v.wg.Wait()
	v.binder.Release()
}
