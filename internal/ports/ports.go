package ports

import (
	"context"
	"io"

	"npctalk/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
	EndpointingMs  int
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// Recognizer performs a single-utterance recognition attempt.
//
// RecognizeOnce blocks until the engine produces an outcome; the engine is
// responsible for bounding how long that takes.
type Recognizer interface {
	RecognizeOnce(ctx context.Context) domain.RecognitionOutcome
	Close() error
}

// RecognizerFactory opens one Recognizer per capture attempt.
type RecognizerFactory interface {
	NewRecognizer(ctx context.Context) (Recognizer, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// PermissionProbe reports whether the capture device is authorized.
type PermissionProbe interface {
	Authorized() bool
}

// Dispatcher hands dialogue requests to the conversation service.
// Submit must not block the caller.
type Dispatcher interface {
	Submit(req domain.DialogueRequest)
}

// Uploader sends session telemetry. Upload must not block the caller.
type Uploader interface {
	Upload(payload string)
}

// EventSink emits frontend-facing state and events.
type EventSink interface {
	StatusChanged(status domain.Status)
	PauseChanged(paused bool)
	DialogueDispatched(req domain.DialogueRequest)
	DialogueReply(text string)
	SessionError(code domain.ErrorCode, detail string)
}
