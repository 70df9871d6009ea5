package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"npctalk/internal/bootstrap"
	"npctalk/internal/domain"
	"npctalk/internal/usecase"
)

const (
	eventStatus   = "npctalk:status"
	eventPause    = "npctalk:pause"
	eventDispatch = "npctalk:dialogue"
	eventReply    = "npctalk:reply"
	eventError    = "npctalk:error"

	shutdownTimeout = 5 * time.Second
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	services *bootstrap.Services
	bootErr  error
	wg       sync.WaitGroup
}

func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{logger: logger}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a.logger)
	if err != nil {
		a.bootErr = err
		a.logger.Error("startup failed", "error", err)
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		services.Run(runCtx)
	}()
}

func (a *App) shutdown(_ context.Context) {
	if a.services == nil {
		return
	}
	a.cancel()
	a.wg.Wait()
	if err := a.services.Shutdown(shutdownTimeout); err != nil {
		a.logger.Error("telemetry upload failed", "error", err)
	}
}

// Approach brings the roster entry id into interaction range.
func (a *App) Approach(id string) (domain.InteractionTarget, error) {
	if err := a.requireReady(); err != nil {
		return domain.InteractionTarget{}, err
	}
	return a.services.Approach(id)
}

// Leave moves the player out of interaction range.
func (a *App) Leave() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.services.Presence.Leave()
	return nil
}

// Talk asks for a capture attempt with the person in range.
func (a *App) Talk() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Presence.Talk(); err != nil {
		if errors.Is(err, usecase.ErrInvalidTarget) {
			return fmt.Errorf("nobody is in range: %w", err)
		}
		return err
	}
	return nil
}

// TouchWatch reports a collision with the pause trigger.
func (a *App) TouchWatch(source string) (bool, error) {
	if err := a.requireReady(); err != nil {
		return false, err
	}
	if source == "" {
		source = a.services.Config.Session.TriggerSource
	}
	a.services.Gates.Pause.Trigger(source)
	return a.services.Gates.Pause.Paused(), nil
}

// GetStatus returns the current runtime status.
func (a *App) GetStatus() domain.Status {
	if a.services == nil {
		status := domain.Status{State: domain.SessionStateIdle}
		if a.bootErr != nil {
			status.Message = a.bootErr.Error()
		}
		return status
	}
	return a.services.Loop.Status()
}

// GetRoster returns the people the player can approach.
func (a *App) GetRoster() []domain.InteractionTarget {
	if a.services == nil {
		return nil
	}
	return a.services.Roster.Targets
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	return map[string]string{
		"provider":      "Deepgram",
		"model":         cfg.Deepgram.Model,
		"language":      cfg.Deepgram.Language,
		"rulesFile":     cfg.Rules.Path,
		"rosterFile":    cfg.Roster.Path,
		"audioInput":    cfg.Audio.InputDevice,
		"dialogueUrl":   cfg.Dialogue.URL,
		"telemetryUrl":  cfg.Telemetry.URL,
		"triggerSource": cfg.Session.TriggerSource,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StatusChanged emits status updates to the frontend.
func (a *App) StatusChanged(status domain.Status) {
	a.emit(eventStatus, status)
}

// PauseChanged shows or hides the pause surface.
func (a *App) PauseChanged(paused bool) {
	a.emit(eventPause, map[string]bool{"paused": paused})
}

// DialogueDispatched emits the request sent to the conversation service.
func (a *App) DialogueDispatched(req domain.DialogueRequest) {
	a.emit(eventDispatch, req)
}

// DialogueReply emits the persona's answer.
func (a *App) DialogueReply(text string) {
	a.emit(eventReply, map[string]string{"text": text})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emit(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) emit(name string, payload any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, payload)
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeRecognition:
		return "Speech recognition failed"
	case domain.ErrorCodeDispatch:
		return "Could not reach the conversation service"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
