package usecase

import (
	"sync"
	"testing"
)

func TestPermissionGateWithoutProbeIsGranted(t *testing.T) {
	t.Parallel()

	gate := NewPermissionGate(nil)
	if !gate.Granted() {
		t.Fatalf("expected permission granted without a probe")
	}
	if gate.Poll() {
		t.Fatalf("expected poll to report no change")
	}
}

func TestPermissionGatePollGrantsOnce(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{}
	gate := NewPermissionGate(probe)
	if gate.Granted() || gate.Poll() {
		t.Fatalf("expected permission to stay denied")
	}

	probe.set(true)
	if !gate.Poll() {
		t.Fatalf("expected poll to grant permission")
	}
	if gate.Poll() {
		t.Fatalf("expected second poll to report no change")
	}

	probe.set(false)
	if !gate.Granted() {
		t.Fatalf("expected permission to stay granted")
	}
}

func TestGatesEligibleNeedsPermissionAndProximity(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{}
	gates := NewGates(probe, "", nil)
	if gates.Eligible() {
		t.Fatalf("expected ineligible by default")
	}
	gates.Proximity.Set(true)
	if gates.Eligible() {
		t.Fatalf("expected ineligible without permission")
	}
	gates.Permission.Grant()
	if !gates.Eligible() {
		t.Fatalf("expected eligible")
	}
	gates.Proximity.Set(false)
	if gates.Eligible() {
		t.Fatalf("expected ineligible once the person leaves")
	}
}

func TestPauseGateIdempotentTransitions(t *testing.T) {
	t.Parallel()

	var changes []bool
	gate := NewPauseGate("", func(paused bool) { changes = append(changes, paused) })

	if gate.Resume() {
		t.Fatalf("expected resume on a running gate to be a no-op")
	}
	if !gate.Pause() || gate.Pause() {
		t.Fatalf("expected only the first pause to change state")
	}
	if !gate.Paused() {
		t.Fatalf("expected paused")
	}
	if !gate.Resume() || gate.Resume() {
		t.Fatalf("expected only the first resume to change state")
	}

	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Fatalf("unexpected change notifications: %v", changes)
	}
	if gate.Pauses() != 1 {
		t.Fatalf("expected one pause, got %d", gate.Pauses())
	}
}

func TestPauseGateTriggerTogglesOnlyForSource(t *testing.T) {
	t.Parallel()

	gate := NewPauseGate("", nil)

	if gate.Trigger("hand") {
		t.Fatalf("expected other colliders to be ignored")
	}
	if !gate.Trigger(DefaultTriggerSource) || !gate.Paused() {
		t.Fatalf("expected first touch to pause")
	}
	if !gate.Trigger(DefaultTriggerSource) || gate.Paused() {
		t.Fatalf("expected second touch to resume")
	}
	if gate.Pauses() != 1 {
		t.Fatalf("expected one pause, got %d", gate.Pauses())
	}
}

func TestPauseGateCustomSource(t *testing.T) {
	t.Parallel()

	gates := NewGates(nil, "wrist", nil)
	if gates.Pause.Trigger(DefaultTriggerSource) {
		t.Fatalf("expected default source to be ignored")
	}
	if !gates.Pause.Trigger("wrist") {
		t.Fatalf("expected configured source to toggle")
	}
}

func TestPauseGateConcurrentTriggers(t *testing.T) {
	t.Parallel()

	gate := NewPauseGate("", nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gate.Trigger(DefaultTriggerSource)
		}()
	}
	wg.Wait()

	if gate.Paused() {
		t.Fatalf("expected an even number of toggles to leave the gate running")
	}
	if gate.Pauses() != 50 {
		t.Fatalf("expected 50 pauses, got %d", gate.Pauses())
	}
}
