package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"npctalk/internal/domain"
	"npctalk/internal/ports"
)

const defaultFrameInterval = 50 * time.Millisecond

// FrameLoop is the once-per-frame consumer of the recognition session.
type FrameLoop struct {
	session    *RecognitionSession
	gates      Gates
	dispatcher ports.Dispatcher
	events     ports.EventSink
	logger     *slog.Logger

	mu         sync.Mutex
	pending    *domain.InteractionTarget
	last       domain.Status
	emitted    bool
	dispatched int
}

func NewFrameLoop(
	session *RecognitionSession,
	gates Gates,
	dispatcher ports.Dispatcher,
	events ports.EventSink,
	logger *slog.Logger,
) *FrameLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameLoop{
		session:    session,
		gates:      gates,
		dispatcher: dispatcher,
		events:     events,
		logger:     logger.With("component", "frame_loop"),
	}
}

// RequestTalk asks for a capture attempt with target on the next frame.
func (l *FrameLoop) RequestTalk(target domain.InteractionTarget) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = &target
}

// Run ticks until ctx is done.
func (l *FrameLoop) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick advances one frame. It never waits on the recognition goroutine.
func (l *FrameLoop) Tick(ctx context.Context) {
	if l.gates.Pause.Paused() {
		l.mu.Lock()
		l.pending = nil
		l.mu.Unlock()
		return
	}

	if l.gates.Permission.Poll() {
		l.logger.Info("capture permission granted")
		l.session.Announce(domain.MessageInteract)
	}

	if _, utterance, ok := l.session.PollAndConsume(); ok {
		l.dispatch(utterance)
	}

	l.startPending(ctx)
	l.emitStatus()
}

func (l *FrameLoop) startPending(ctx context.Context) {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	if pending == nil || !l.gates.Permission.Granted() {
		return
	}
	err := l.session.Begin(ctx, *pending)
	switch {
	case err == nil:
	case errors.Is(err, ErrConcurrentSession):
		l.logger.Debug("talk request ignored while listening", "target", pending.ID)
	case errors.Is(err, ErrUtterancePending):
		// An attempt finished after this frame polled. Retry next frame,
		// after its utterance has been dispatched.
		l.mu.Lock()
		if l.pending == nil {
			l.pending = pending
		}
		l.mu.Unlock()
	default:
		l.events.SessionError(domain.ErrorCodeRecognition, err.Error())
	}
}

// Status returns the current runtime status.
func (l *FrameLoop) Status() domain.Status {
	status := domain.Status{
		State:             l.session.State(),
		Message:           l.session.Message(),
		PermissionGranted: l.gates.Permission.Granted(),
		PersonActive:      l.gates.Proximity.Active(),
		Paused:            l.gates.Pause.Paused(),
		LastOutcome:       l.session.LastOutcome(),
	}
	if target := l.session.Target(); target != nil {
		status.Target = target.ID
	}
	return status
}

// Dispatched returns how many dialogue requests have been submitted.
func (l *FrameLoop) Dispatched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dispatched
}

func (l *FrameLoop) dispatch(utterance string) {
	req, err := BuildDialogueRequest(l.session.Target(), utterance)
	if err != nil {
		l.logger.Error("dropping utterance", "error", err)
		l.events.SessionError(domain.ErrorCodeDispatch, err.Error())
		return
	}

	l.dispatcher.Submit(req)

	l.mu.Lock()
	l.dispatched++
	l.mu.Unlock()

	l.events.DialogueDispatched(req)
}

func (l *FrameLoop) emitStatus() {
	status := l.Status()

	l.mu.Lock()
	changed := !l.emitted || status != l.last
	l.last = status
	l.emitted = true
	l.mu.Unlock()

	if changed {
		l.events.StatusChanged(status)
	}
}
