package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"npctalk/internal/audio"
	"npctalk/internal/config"
	"npctalk/internal/dialogue"
	"npctalk/internal/domain"
	"npctalk/internal/ports"
	"npctalk/internal/providers/deepgram"
	"npctalk/internal/rules"
	"npctalk/internal/speech"
	"npctalk/internal/telemetry"
	"npctalk/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config   config.Config
	Roster   config.Roster
	Gates    usecase.Gates
	Session  *usecase.RecognitionSession
	Loop     *usecase.FrameLoop
	Presence *usecase.Presence
	Dialogue *dialogue.Client
	Uploader *telemetry.Uploader
	Recorder *telemetry.Recorder

	logger *slog.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return nil, err
	}

	roster, err := config.LoadRoster(cfg.Roster.Path)
	if err != nil {
		return nil, err
	}

	var probe ports.PermissionProbe
	if cfg.Audio.RequirePermission {
		probe = audio.NewCommandProbe(cfg.Audio.RecorderCommand)
	}
	gates := usecase.NewGates(probe, cfg.Session.TriggerSource, eventSink.PauseChanged)

	engine := speech.NewEngine(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, cfg.Session.MaxListen),
		deepgram.NewProvider(deepgram.Config{
			APIKey:         cfg.Deepgram.APIKey,
			APIBaseURL:     cfg.Deepgram.APIBaseURL,
			Model:          cfg.Deepgram.Model,
			Language:       cfg.Deepgram.Language,
			SmartFormat:    cfg.Deepgram.SmartFormat,
			UtteranceEndMs: cfg.Deepgram.UtteranceEndMs,
		}, logger),
		rulesEngine,
		speech.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
				EndpointingMs:  cfg.Deepgram.EndpointingMs,
			},
			ChunkSize:      cfg.Session.ChunkSize,
			MaxListen:      cfg.Session.MaxListen,
			InitialSilence: cfg.Session.InitialSilence,
		},
		logger,
	)

	dialogueClient := dialogue.NewClient(dialogue.Config{
		URL:       cfg.Dialogue.URL,
		QueueSize: cfg.Dialogue.QueueSize,
	}, eventSink, logger)

	session := usecase.NewRecognitionSession(engine, gates, logger)
	loop := usecase.NewFrameLoop(session, gates, dialogueClient, eventSink, logger)

	return &Services{
		Config:   cfg,
		Roster:   roster,
		Gates:    gates,
		Session:  session,
		Loop:     loop,
		Presence: usecase.NewPresence(gates, loop),
		Dialogue: dialogueClient,
		Uploader: telemetry.NewUploader(telemetry.Config{
			URL:     cfg.Telemetry.URL,
			Timeout: cfg.Telemetry.Timeout,
		}, logger),
		Recorder: telemetry.NewRecorder(nil),
		logger:   logger.With("component", "bootstrap"),
	}, nil
}

// Run starts the dialogue worker and ticks the frame loop until ctx is done.
func (s *Services) Run(ctx context.Context) {
	s.Dialogue.Start(ctx)
	s.Loop.Run(ctx, s.Config.Session.FrameInterval)
}

// Approach brings the roster entry id into interaction range.
func (s *Services) Approach(id string) (domain.InteractionTarget, error) {
	target, ok := s.Roster.Find(id)
	if !ok {
		return domain.InteractionTarget{}, fmt.Errorf("unknown interaction target %q (known: %s)", id, strings.Join(s.Roster.IDs(), ", "))
	}
	s.Presence.Approach(target)
	return target, nil
}

// Summary collects the session counters gathered so far.
func (s *Services) Summary() domain.SessionSummary {
	stats := s.Session.Stats()
	return s.Recorder.Summary(telemetry.Counters{
		Attempts:   stats.Attempts,
		Recognized: stats.Recognized,
		NoMatch:    stats.NoMatch,
		Canceled:   stats.Canceled,
		Rejected:   stats.Rejected,
		Dispatched: s.Loop.Dispatched(),
		Pauses:     s.Gates.Pause.Pauses(),
	})
}

// Shutdown lets an outstanding attempt finish, uploads the session summary and
// closes the dialogue connection. Each wait is bounded by timeout.
func (s *Services) Shutdown(timeout time.Duration) error {
	defer s.Dialogue.Close()

	if !s.Session.Wait(timeout) {
		s.logger.Warn("recognition attempt still running at shutdown", "timeout", timeout)
	}
	payload, err := telemetry.Encode(s.Summary())
	if err != nil {
		return err
	}
	s.Uploader.Upload(payload)
	if !s.Uploader.Wait(timeout) {
		s.logger.Warn("telemetry upload still pending at shutdown", "timeout", timeout)
	}
	return nil
}
