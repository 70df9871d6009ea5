package usecase

import (
	"sync"

	"npctalk/internal/domain"
)

// Presence tracks which person the player is facing and turns talk gestures
// into capture requests for the frame loop.
type Presence struct {
	gates Gates
	loop  *FrameLoop

	mu     sync.Mutex
	target *domain.InteractionTarget
}

func NewPresence(gates Gates, loop *FrameLoop) *Presence {
	return &Presence{gates: gates, loop: loop}
}

// Approach brings target into interaction range.
func (p *Presence) Approach(target domain.InteractionTarget) {
	p.mu.Lock()
	p.target = &target
	p.mu.Unlock()
	p.gates.Proximity.Set(true)
}

// Leave clears the current target. An attempt already running is not affected.
func (p *Presence) Leave() {
	p.mu.Lock()
	p.target = nil
	p.mu.Unlock()
	p.gates.Proximity.Set(false)
}

// Talk requests a capture attempt with the current target.
func (p *Presence) Talk() error {
	target, ok := p.Current()
	if !ok {
		return ErrInvalidTarget
	}
	p.loop.RequestTalk(target)
	return nil
}

// Current returns the person in range, if any.
func (p *Presence) Current() (domain.InteractionTarget, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target == nil {
		return domain.InteractionTarget{}, false
	}
	return *p.target, true
}
