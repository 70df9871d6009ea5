package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"npctalk/internal/ports"
)

const (
	startupGrace = 250 * time.Millisecond
	stopGrace    = 1200 * time.Millisecond
)

// FFMPEGCapture records the microphone as raw s16le PCM on ffmpeg's stdout.
type FFMPEGCapture struct {
	command     string
	maxDuration time.Duration
}

// NewFFMPEGCapture returns a capture that runs command. A positive
// maxDuration is passed to ffmpeg as -t, so a recording ends on its own after
// one listening window even if nobody stops it.
func NewFFMPEGCapture(command string, maxDuration time.Duration) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command, maxDuration: maxDuration}
}

// Start launches the recorder and waits briefly so that a bad device fails
// here instead of on the first Read.
func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, c.command, captureArgs(cfg, c.maxDuration)...)
	// SIGINT lets ffmpeg flush; WaitDelay escalates to a kill.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = stopGrace

	rec := &recording{cancel: cancel, exited: make(chan struct{})}
	cmd.Stderr = &rec.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	rec.stdout = stdout
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start %s: %w", c.command, err)
	}
	go func() {
		rec.waitErr = cmd.Wait()
		close(rec.exited)
	}()

	grace := time.NewTimer(startupGrace)
	defer grace.Stop()
	select {
	case <-rec.exited:
		cancel()
		return nil, rec.startupFailure()
	case <-grace.C:
		return rec, nil
	}
}

func captureArgs(cfg ports.AudioConfig, maxDuration time.Duration) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
	}
	if maxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(maxDuration.Seconds(), 'f', -1, 64))
	}
	return append(args,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	)
}

// recording is one running ffmpeg process. stderr and waitErr are only read
// after exited is closed.
type recording struct {
	stdout io.ReadCloser
	stderr bytes.Buffer
	cancel context.CancelFunc

	exited  chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

func (r *recording) Read(p []byte) (int, error) {
	return r.stdout.Read(p)
}

func (r *recording) Close() error {
	return r.Stop()
}

// Stop interrupts ffmpeg and waits for it to exit. It is safe to call more
// than once.
func (r *recording) Stop() error {
	r.stopOnce.Do(func() {
		r.cancel()
		<-r.exited
		if err := cleanExit(r.waitErr); err != nil {
			r.stopErr = r.withStderr(err)
		}
	})
	return r.stopErr
}

func (r *recording) startupFailure() error {
	if r.waitErr == nil {
		return errors.New("ffmpeg exited before capture started")
	}
	return r.withStderr(fmt.Errorf("ffmpeg exited before capture started: %w", r.waitErr))
}

func (r *recording) withStderr(err error) error {
	if tail := strings.TrimSpace(r.stderr.String()); tail != "" {
		return fmt.Errorf("%w: %s", err, tail)
	}
	return err
}

// cleanExit drops the errors that an interrupted recorder is expected to
// report. Only a failure to wait on the process is a real error.
func cleanExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) ||
		errors.Is(err, exec.ErrWaitDelay) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
