// Package telemetry submits end-of-session summaries to the results backend.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 4 << 10
)

// Config controls the results backend.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Uploader implements ports.Uploader with one HTTP PUT per payload.
type Uploader struct {
	url    string
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewUploader(cfg Config, logger *slog.Logger) *Uploader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "telemetry"),
	}
}

// Upload sends payload in the background. The outcome is only logged.
func (u *Uploader) Upload(payload string) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		body, err := u.put(context.Background(), payload)
		if err != nil {
			u.logger.Error("telemetry upload failed", "url", u.url, "error", err)
			return
		}
		u.logger.Info("telemetry uploaded", "url", u.url, "response", body)
	}()
}

// Wait blocks until pending uploads finish or timeout elapses. It reports
// whether every upload finished.
func (u *Uploader) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (u *Uploader) put(ctx context.Context, payload string) (string, error) {
	if strings.TrimSpace(u.url) == "" {
		return "", errors.New("telemetry url is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.url, strings.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build telemetry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read telemetry response: %w", err)
	}
	body := strings.TrimSpace(string(raw))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("telemetry backend returned %s: %s", resp.Status, body)
	}
	return body, nil
}
