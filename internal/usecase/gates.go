package usecase

import (
	"sync"
	"sync/atomic"

	"npctalk/internal/ports"
)

// DefaultTriggerSource is the collider tag that toggles the pause gate.
const DefaultTriggerSource = "watch"

// Gates bundles the process-wide interaction flags. It is built once by the
// application root and shared by reference.
type Gates struct {
	Permission *PermissionGate
	Proximity  *ProximityGate
	Pause      *PauseGate
}

// NewGates builds the default gate set. A nil probe means the platform needs
// no runtime authorization and permission is granted immediately. An empty
// trigger source selects DefaultTriggerSource.
func NewGates(probe ports.PermissionProbe, triggerSource string, onPause func(paused bool)) Gates {
	return Gates{
		Permission: NewPermissionGate(probe),
		Proximity:  &ProximityGate{},
		Pause:      NewPauseGate(triggerSource, onPause),
	}
}

// Eligible reports whether a capture attempt may start right now.
func (g Gates) Eligible() bool {
	return g.Permission.Granted() && g.Proximity.Active()
}

// PermissionGate tracks capture-device authorization.
type PermissionGate struct {
	probe   ports.PermissionProbe
	granted atomic.Bool
}

func NewPermissionGate(probe ports.PermissionProbe) *PermissionGate {
	g := &PermissionGate{probe: probe}
	if probe == nil {
		g.granted.Store(true)
	}
	return g
}

func (g *PermissionGate) Granted() bool {
	return g.granted.Load()
}

// Grant marks the device authorized. It reports whether this call changed state.
func (g *PermissionGate) Grant() bool {
	return g.granted.CompareAndSwap(false, true)
}

// Poll asks the probe once and reports whether permission was newly granted.
func (g *PermissionGate) Poll() bool {
	if g.Granted() || g.probe == nil {
		return false
	}
	if !g.probe.Authorized() {
		return false
	}
	return g.Grant()
}

// ProximityGate is set by look-at/proximity detection.
type ProximityGate struct {
	active atomic.Bool
}

func (g *ProximityGate) Set(active bool) {
	g.active.Store(active)
}

func (g *ProximityGate) Active() bool {
	return g.active.Load()
}

// PauseGate toggles between running and paused on trigger events.
type PauseGate struct {
	source   string
	onChange func(paused bool)

	mu     sync.Mutex
	paused bool
	pauses int
}

func NewPauseGate(source string, onChange func(paused bool)) *PauseGate {
	if source == "" {
		source = DefaultTriggerSource
	}
	return &PauseGate{source: source, onChange: onChange}
}

func (g *PauseGate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Pause shows the pause surface. Pausing an already paused gate is a no-op.
func (g *PauseGate) Pause() bool {
	return g.apply(func(bool) bool { return true })
}

// Resume hides the pause surface. Resuming a running gate is a no-op.
func (g *PauseGate) Resume() bool {
	return g.apply(func(bool) bool { return false })
}

// Trigger toggles the gate when source is the designated trigger.
func (g *PauseGate) Trigger(source string) bool {
	if source != g.source {
		return false
	}
	return g.apply(func(paused bool) bool { return !paused })
}

// Pauses returns how many Running to Paused transitions have happened.
func (g *PauseGate) Pauses() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pauses
}

func (g *PauseGate) apply(next func(paused bool) bool) bool {
	g.mu.Lock()
	paused := next(g.paused)
	if g.paused == paused {
		g.mu.Unlock()
		return false
	}
	g.paused = paused
	if paused {
		g.pauses++
	}
	onChange := g.onChange
	g.mu.Unlock()

	if onChange != nil {
		onChange(paused)
	}
	return true
}
