package usecase

import (
	"context"
	"errors"
	"sync"

	"npctalk/internal/domain"
	"npctalk/internal/ports"
)

// fakeFactory hands out recognizers whose outcome is delivered through release.
type fakeFactory struct {
	mu          sync.Mutex
	err         error
	recognizers []*fakeRecognizer
}

func (f *fakeFactory) NewRecognizer(_ context.Context) (ports.Recognizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r := &fakeRecognizer{release: make(chan domain.RecognitionOutcome, 1)}
	f.recognizers = append(f.recognizers, r)
	return r, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recognizers)
}

func (f *fakeFactory) last() *fakeRecognizer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.recognizers) == 0 {
		return nil
	}
	return f.recognizers[len(f.recognizers)-1]
}

type fakeRecognizer struct {
	release chan domain.RecognitionOutcome

	mu     sync.Mutex
	closed int
}

func (r *fakeRecognizer) RecognizeOnce(ctx context.Context) domain.RecognitionOutcome {
	select {
	case outcome := <-r.release:
		return outcome
	case <-ctx.Done():
		return domain.Canceled(domain.CancelReasonCancelledUser, ctx.Err().Error())
	}
}

func (r *fakeRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	if r.closed > 1 {
		return errors.New("closed twice")
	}
	return nil
}

func (r *fakeRecognizer) closeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type fakeProbe struct {
	mu         sync.Mutex
	authorized bool
}

func (p *fakeProbe) Authorized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authorized
}

func (p *fakeProbe) set(authorized bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authorized = authorized
}

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []domain.DialogueRequest
}

func (d *fakeDispatcher) Submit(req domain.DialogueRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
}

func (d *fakeDispatcher) snapshot() []domain.DialogueRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.DialogueRequest, len(d.requests))
	copy(out, d.requests)
	return out
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu         sync.Mutex
	statuses   []domain.Status
	pauses     []bool
	dispatched []domain.DialogueRequest
	replies    []string
	errors     []errEvent
}

func (f *fakeEventSink) StatusChanged(status domain.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func (f *fakeEventSink) PauseChanged(paused bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses = append(f.pauses, paused)
}

func (f *fakeEventSink) DialogueDispatched(req domain.DialogueRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, req)
}

func (f *fakeEventSink) DialogueReply(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStatuses() []domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Status, len(f.statuses))
	copy(out, f.statuses)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func barista() domain.InteractionTarget {
	return domain.InteractionTarget{
		ID:          "barista",
		DisplayName: "Sam",
		SessionID:   "session-1",
		Persona:     "barista",
		VoiceName:   "en-IE-EmilyNeural",
		HasTicket:   false,
	}
}

// readyGates returns gates with permission granted and a person in range.
func readyGates() Gates {
	gates := NewGates(nil, "", nil)
	gates.Proximity.Set(true)
	return gates
}
