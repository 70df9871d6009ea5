package speech

import (
	"errors"
	"fmt"
	"io"
	"time"

	"npctalk/internal/ports"
)

// pumpAudioChunks copies microphone audio into the provider stream until the
// capture ends. A capture that ends cleanly half-closes the stream so the
// provider can flush its last transcript.
func pumpAudioChunks(
	audio ports.AudioSession,
	stream ports.StreamingSession,
	chunkSize int,
	failed chan<- error,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				report(failed, fmt.Errorf("failed to stream audio: %w", sendErr))
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				_ = stream.CloseSend()
				return
			}
			report(failed, fmt.Errorf("audio capture error: %w", err))
			return
		}
	}
}

func report(failed chan<- error, err error) {
	select {
	case failed <- err:
	default:
	}
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
