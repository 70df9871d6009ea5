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

var (
	ErrConcurrentSession = errors.New("a recognition session is already in progress")
	ErrUtterancePending  = errors.New("a recognized utterance has not been consumed yet")
)

// SessionStats counts attempt outcomes for the session summary.
type SessionStats struct {
	Attempts   int
	Recognized int
	NoMatch    int
	Canceled   int
	Rejected   int
}

// RecognitionSession owns the single outstanding recognition attempt.
//
// Begin is called from the frame goroutine; the attempt itself runs on its own
// goroutine and reports back only through the relay.
type RecognitionSession struct {
	engine ports.RecognizerFactory
	gates  Gates
	relay  *resultRelay
	logger *slog.Logger

	mu     sync.Mutex
	state  domain.SessionState
	target *domain.InteractionTarget
	done   chan struct{}
	last   domain.OutcomeKind
	stats  SessionStats
}

func NewRecognitionSession(engine ports.RecognizerFactory, gates Gates, logger *slog.Logger) *RecognitionSession {
	if logger == nil {
		logger = slog.Default()
	}
	initial := domain.MessageInteract
	if !gates.Permission.Granted() {
		initial = domain.MessageWaitingForPermission
	}
	return &RecognitionSession{
		engine: engine,
		gates:  gates,
		relay:  newResultRelay(initial),
		logger: logger.With("component", "recognition_session"),
		state:  domain.SessionStateIdle,
		last:   domain.OutcomeNotAttempted,
	}
}

// Begin starts a capture attempt for target.
//
// When the player is not eligible nil is returned and no recognizer is opened;
// that is a normal branch. ErrConcurrentSession is returned when an attempt is
// already outstanding, and the running attempt is left untouched.
// ErrUtterancePending is returned while the previous result has not been
// consumed; the caller should poll first and try again.
func (s *RecognitionSession) Begin(ctx context.Context, target domain.InteractionTarget) error {
	s.mu.Lock()
	if s.state != domain.SessionStateIdle {
		s.stats.Rejected++
		s.mu.Unlock()
		return ErrConcurrentSession
	}

	if !s.gates.Eligible() {
		s.last = domain.OutcomeNotAttempted
		s.mu.Unlock()
		s.relay.Announce(domain.MessageInteract)
		return nil
	}

	if !s.relay.Claim(domain.MessageListening) {
		s.mu.Unlock()
		return ErrUtterancePending
	}
	s.state = domain.SessionStateAwaitingCapture
	stored := target
	s.target = &stored
	s.stats.Attempts++
	done := make(chan struct{})
	s.done = done
	s.state = domain.SessionStateListening
	s.mu.Unlock()

	s.logger.Info("recognition started", "target", target.ID, "persona", target.Persona)
	go s.run(ctx, done)
	return nil
}

func (s *RecognitionSession) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	recognizer, err := s.engine.NewRecognizer(ctx)
	if err != nil {
		s.complete(domain.Canceled(domain.CancelReasonError, err.Error()), nil)
		return
	}
	outcome := recognizer.RecognizeOnce(ctx)
	s.complete(outcome, recognizer)
}

func (s *RecognitionSession) complete(outcome domain.RecognitionOutcome, recognizer ports.Recognizer) {
	s.mu.Lock()
	s.state = domain.SessionStateCompleted
	switch outcome.Kind {
	case domain.OutcomeRecognized:
		if outcome.Text == "" {
			outcome = domain.NoMatch()
			s.stats.NoMatch++
		} else {
			s.stats.Recognized++
		}
	case domain.OutcomeNoMatch:
		s.stats.NoMatch++
	case domain.OutcomeCanceled:
		s.stats.Canceled++
	default:
		outcome = domain.Canceled(domain.CancelReasonError, "recognizer returned no outcome")
		s.stats.Canceled++
	}
	s.last = outcome.Kind
	s.mu.Unlock()

	succeeded := outcome.Kind == domain.OutcomeRecognized
	s.relay.Write(outcome.Message(), succeeded, outcome.Text)

	if recognizer != nil {
		if err := recognizer.Close(); err != nil {
			s.logger.Warn("failed to release recognizer", "error", err)
		}
	}

	s.logger.Info("recognition completed", "outcome", string(outcome.Kind))

	s.mu.Lock()
	s.state = domain.SessionStateIdle
	s.mu.Unlock()
}

// PollAndConsume returns the display message and, at most once per recognized
// utterance, the utterance awaiting dispatch.
func (s *RecognitionSession) PollAndConsume() (string, string, bool) {
	return s.relay.PollAndConsume()
}

// Message returns the current display message without consuming anything.
func (s *RecognitionSession) Message() string {
	return s.relay.Message()
}

// Announce replaces the display message outside of an attempt.
func (s *RecognitionSession) Announce(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.SessionStateIdle {
		return
	}
	s.relay.Announce(message)
}

// State returns the current lifecycle state.
func (s *RecognitionSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Target returns a copy of the target of the most recent attempt, or nil.
func (s *RecognitionSession) Target() *domain.InteractionTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return nil
	}
	target := *s.target
	return &target
}

// LastOutcome reports how the most recent Begin ended. It is
// OutcomeNotAttempted before any attempt and after an ineligible Begin.
func (s *RecognitionSession) LastOutcome() domain.OutcomeKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stats returns a snapshot of outcome counters.
func (s *RecognitionSession) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Wait blocks until the outstanding attempt, if any, has completed or timeout
// passes. It reports whether the session is idle.
func (s *RecognitionSession) Wait(timeout time.Duration) bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (s *RecognitionSession) wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
