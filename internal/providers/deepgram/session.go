package deepgram

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"npctalk/internal/domain"
)

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)

// liveSession pumps audio up and transcript events down one listen socket.
type liveSession struct {
	conn   *websocket.Conn
	logger *slog.Logger

	events  chan domain.TranscriptEvent
	audio   chan []byte
	written chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	errMu sync.Mutex
	err   error

	sendMu     sync.Mutex
	sendClosed bool

	closeOnce sync.Once
}

func newLiveSession(conn *websocket.Conn, logger *slog.Logger) *liveSession {
	s := &liveSession{
		conn:    conn,
		logger:  logger,
		events:  make(chan domain.TranscriptEvent, 64),
		audio:   make(chan []byte, 32),
		written: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()
	return s
}

func (s *liveSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	copied := append([]byte(nil), chunk...)

	// sendMu is held across the send so CloseSend cannot close audio under it.
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return errors.New("audio stream is already closed")
	}

	select {
	case s.audio <- copied:
		return nil
	case <-s.written:
		s.errMu.Lock()
		defer s.errMu.Unlock()
		if s.err != nil {
			return s.err
		}
		return errors.New("session closed")
	}
}

// CloseSend asks Deepgram to flush and finish. Events keep arriving until the
// server closes the socket.
func (s *liveSession) CloseSend() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.sendClosed {
		s.sendClosed = true
		close(s.audio)
	}
	return nil
}

func (s *liveSession) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *liveSession) Wait() error {
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *liveSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		_ = s.CloseSend()
	})
	return s.Wait()
}

func (s *liveSession) fail(err error) {
	if err == nil || isExpectedClose(err) {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	return errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed)
}

func (s *liveSession) writeLoop() {
	defer s.wg.Done()
	defer close(s.written)

	for chunk := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.fail(fmt.Errorf("failed to send audio: %w", err))
			return
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, closeStreamMessage); err != nil {
		s.fail(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *liveSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("failed to read provider event: %w", err))
			return
		}

		msg, event, ok, err := decodeMessage(payload)
		if err != nil {
			s.logger.Warn("deepgram reported an error", "error", err)
			s.fail(err)
			return
		}
		if msg.RequestID != "" && strings.EqualFold(msg.Type, "Metadata") {
			s.logger.Debug("listen session metadata", "request_id", msg.RequestID)
		}
		if ok {
			s.emit(event)
		}
	}
}

// emit never blocks the read loop; a consumer that stops reading loses events.
func (s *liveSession) emit(event domain.TranscriptEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Debug("dropping transcript event", "kind", string(event.Kind))
	}
}
