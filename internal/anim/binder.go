package anim

import (
	"math"

	"go.uber.org/zap"
)

// Clip is the binder's view of an animation clip.
type Clip struct {
	Name     string
	Index    int     // index in the source document
	Duration float32 // seconds
}

// Action is the playable handle of one clip.
type Action struct {
	clip    Clip
	time    float32
	running bool

	// Speed scales Advance; 1 is normal speed.
	Speed float32
	// Loop wraps time at the clip duration, otherwise it clamps and stops.
	Loop bool
}

func newAction(c Clip) *Action {
	return &Action{clip: c, Speed: 1, Loop: true}
}

// Clip returns the clip the action plays.
func (a *Action) Clip() Clip { return a.clip }

// Name returns the clip name.
func (a *Action) Name() string { return a.clip.Name }

// Time returns the playhead in seconds.
func (a *Action) Time() float32 { return a.time }

// Running reports whether the action advances on Advance.
func (a *Action) Running() bool { return a.running }

// Play starts advancing from the current playhead.
func (a *Action) Play() { a.running = true }

// Stop halts the action and keeps its playhead.
func (a *Action) Stop() { a.running = false }

// Reset moves the playhead to the start.
func (a *Action) Reset() { a.time = 0 }

// Advance moves the playhead by dt seconds when running.
func (a *Action) Advance(dt float32) {
	if !a.running || dt <= 0 {
		return
	}
	a.time += dt * a.Speed
	d := a.clip.Duration
	if d <= 0 || math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
		return
	}
	if a.time < d {
		return
	}
	if a.Loop {
		a.time = float32(math.Mod(float64(a.time), float64(d)))
		if a.time >= d {
			// float32 rounding of the remainder
			a.time = 0
		}
		return
	}
	a.time = d
	a.running = false
}

// Binder owns the actions of the installed model and guarantees that at most
// one of them runs. It is driven from the viewer's event loop and is not safe
// for concurrent use.
type Binder struct {
	actions map[string]*Action
	order   []*Action
	active  *Action
	state   State
	log     *zap.Logger
}

// NewBinder returns a binder with no model bound.
func NewBinder(log *zap.Logger) *Binder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Binder{actions: make(map[string]*Action), log: log}
}

// Bind replaces the handles with ones for clips. The previous model's
// actions are stopped first.
func (b *Binder) Bind(clips []Clip) {
	b.Release()
	for _, c := range clips {
		if _, dup := b.actions[c.Name]; dup {
			b.log.Warn("duplicate clip name ignored", zap.String("clip", c.Name))
			continue
		}
		a := newAction(c)
		b.actions[c.Name] = a
		b.order = append(b.order, a)
	}
}

// Release stops the active action and drops every handle. Call it before the
// model's scene graph goes away.
func (b *Binder) Release() {
	if b.active != nil {
		b.active.Stop()
	}
	for _, a := range b.order {
		a.Stop()
	}
	b.active = nil
	b.state = Idle
	b.actions = make(map[string]*Action)
	b.order = nil
}

// Reconcile applies viewer state: the previously active action is halted
// before another one is started, so two clips never blend.
func (b *Binder) Reconcile(in Input) Directive {
	d := Resolve(in)

	var target *Action
	if d.Clip != "" {
		a, ok := b.actions[d.Clip]
		if !ok {
			b.log.Warn("selected clip has no bound handle", zap.String("clip", d.Clip))
		}
		target = a
	}

	if b.active != nil && b.active != target {
		b.active.Stop()
		b.log.Debug("clip stopped", zap.String("clip", b.active.Name()))
	}
	if target != nil && target != b.active {
		target.Reset()
	}
	b.active = target

	switch {
	case target == nil:
		d = Directive{State: Idle}
	case d.Run:
		if !target.Running() {
			b.log.Debug("clip playing", zap.String("clip", target.Name()))
		}
		target.Play()
	default:
		target.Stop()
	}
	b.state = d.State
	return d
}

// Advance moves the running action forward by dt seconds.
func (b *Binder) Advance(dt float32) {
	if b.active != nil {
		b.active.Advance(dt)
	}
}

// State returns the state of the last reconciliation.
func (b *Binder) State() State { return b.state }

// Active returns the selected action, or nil.
func (b *Binder) Active() *Action { return b.active }

// Action returns the handle for a clip name.
func (b *Binder) Action(name string) (*Action, bool) {
	a, ok := b.actions[name]
	return a, ok
}

// Actions returns the bound handles in clip order.
func (b *Binder) Actions() []*Action {
	return b.order
}
