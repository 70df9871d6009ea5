package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"npctalk/internal/domain"
	"npctalk/internal/ports"
)

const (
	DefaultMaxListen      = 15 * time.Second
	DefaultInitialSilence = 5 * time.Second
)

// Config controls single-utterance recognition.
type Config struct {
	Audio          ports.AudioConfig
	Streaming      ports.StreamingConfig
	ChunkSize      int
	MaxListen      time.Duration
	InitialSilence time.Duration
}

// Engine opens recognizers that capture the microphone and stream it to a
// transcription provider until one utterance is complete.
type Engine struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	rules    ports.RulesEngine
	cfg      Config
	logger   *slog.Logger
}

func NewEngine(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	rules ports.RulesEngine,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.MaxListen <= 0 {
		cfg.MaxListen = DefaultMaxListen
	}
	if cfg.InitialSilence <= 0 || cfg.InitialSilence > cfg.MaxListen {
		cfg.InitialSilence = cfg.MaxListen
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		audio:    audio,
		provider: provider,
		rules:    rules,
		cfg:      cfg,
		logger:   logger.With("component", "speech"),
	}
}

// NewRecognizer connects the provider and starts microphone capture.
func (e *Engine) NewRecognizer(ctx context.Context) (ports.Recognizer, error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	stream, err := e.provider.StartStreaming(sessionCtx, e.cfg.Streaming)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start transcription stream: %w", err)
	}

	audioSession, err := e.audio.Start(sessionCtx, e.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return nil, fmt.Errorf("start audio capture: %w", err)
	}

	r := &recognizer{
		cancel:     cancel,
		audio:      audioSession,
		stream:     stream,
		rules:      e.rules,
		cfg:        e.cfg,
		logger:     e.logger,
		audioErr:   make(chan error, 1),
		audioDone:  make(chan struct{}),
		aggregator: &transcriptAggregator{},
	}
	go pumpAudioChunks(audioSession, stream, e.cfg.ChunkSize, r.audioErr, r.audioDone)
	return r, nil
}

type recognizer struct {
	cancel context.CancelFunc
	audio  ports.AudioSession
	stream ports.StreamingSession
	rules  ports.RulesEngine
	cfg    Config
	logger *slog.Logger

	audioErr  chan error
	audioDone chan struct{}

	aggregator *transcriptAggregator

	closeOnce sync.Once
	closeErr  error
}

// RecognizeOnce returns after the first completed utterance, after the
// initial-silence window passes without speech, or once MaxListen elapses.
func (r *recognizer) RecognizeOnce(ctx context.Context) domain.RecognitionOutcome {
	listenCtx, cancel := context.WithTimeout(ctx, r.cfg.MaxListen)
	defer cancel()

	silence := time.NewTimer(r.cfg.InitialSilence)
	defer silence.Stop()

	events := r.stream.Events()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return r.streamEnded()
			}
			if r.aggregator.Add(event) {
				silence.Stop()
			}
			if event.Kind == domain.TranscriptKindPartial {
				r.logger.Debug("partial transcript", "text", event.Text)
				continue
			}
			// Utterance-end markers carry no text of their own.
			if event.IsSpeechFinal {
				if text := r.aggregator.Text(); text != "" {
					return r.finish(text)
				}
			}

		case <-silence.C:
			if r.aggregator.Text() == "" {
				return domain.NoMatch()
			}

		case err := <-r.audioErr:
			if text := r.aggregator.Text(); text != "" {
				return r.finish(text)
			}
			return domain.Canceled(domain.CancelReasonError, err.Error())

		case <-listenCtx.Done():
			if err := ctx.Err(); err != nil {
				return domain.Canceled(domain.CancelReasonCancelledUser, err.Error())
			}
			if text := r.aggregator.Text(); text != "" {
				return r.finish(text)
			}
			return domain.NoMatch()
		}
	}
}

func (r *recognizer) streamEnded() domain.RecognitionOutcome {
	err := r.stream.Wait()
	if text := r.aggregator.Text(); text != "" {
		return r.finish(text)
	}
	if err != nil {
		return domain.Canceled(domain.CancelReasonError, err.Error())
	}
	return domain.NoMatch()
}

func (r *recognizer) finish(raw string) domain.RecognitionOutcome {
	if r.rules == nil {
		return domain.Recognized(raw)
	}
	text, err := r.rules.Apply(raw)
	if err != nil {
		return domain.Canceled(domain.CancelReasonError, fmt.Sprintf("rules failed: %v", err))
	}
	if text == "" {
		return domain.NoMatch()
	}
	return domain.Recognized(text)
}

// Close stops capture and tears down the provider stream.
func (r *recognizer) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		stopErr := r.audio.Stop()
		_ = r.stream.CloseSend()
		_ = waitForStream(r.stream, 2*time.Second)
		<-r.audioDone
		if stopErr != nil {
			r.closeErr = fmt.Errorf("stop audio capture: %w", stopErr)
		}
	})
	return r.closeErr
}
