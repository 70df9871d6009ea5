package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"npctalk/internal/domain"
	"npctalk/internal/ports"
)

func TestNewProviderDefaults(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{}, nil)
	if p.cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected base url: %q", p.cfg.APIBaseURL)
	}
	if p.cfg.Model != defaultModel {
		t.Fatalf("unexpected model: %q", p.cfg.Model)
	}
}

func TestProviderStartStreamingRequiresAPIKey(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{APIKey: "  "}, nil)
	if _, err := p.StartStreaming(context.Background(), ports.StreamingConfig{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestBuildListenURLDefaults(t *testing.T) {
	t.Parallel()

	got, err := buildListenURL(Config{APIBaseURL: "https://api.deepgram.com/v1/", Model: "nova-2"}, ports.StreamingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"wss://api.deepgram.com/v1/listen?",
		"encoding=linear16",
		"sample_rate=16000",
		"channels=1",
		"interim_results=false",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in url: %s", want, got)
		}
	}
	for _, unwanted := range []string{"language=", "endpointing=", "utterance_end_ms="} {
		if strings.Contains(got, unwanted) {
			t.Fatalf("did not expect %q in url: %s", unwanted, got)
		}
	}
}

func TestBuildListenURLWithLanguageAndSmartFormat(t *testing.T) {
	t.Parallel()

	got, err := buildListenURL(
		Config{APIBaseURL: "http://localhost:8080/v1", Model: "m", Language: "en-US", SmartFormat: true},
		ports.StreamingConfig{Encoding: "linear16", SampleRate: 8000, Channels: 2, InterimResults: true},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"ws://localhost:8080/v1/listen", "language=en-US", "smart_format=true", "sample_rate=8000", "channels=2"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in url: %s", want, got)
		}
	}
}

func TestBuildListenURLEndpointingAndUtteranceEnd(t *testing.T) {
	t.Parallel()

	got, err := buildListenURL(
		Config{Model: "nova-2", UtteranceEndMs: 1000},
		ports.StreamingConfig{InterimResults: true, EndpointingMs: 300},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "endpointing=300") || !strings.Contains(got, "utterance_end_ms=1000") {
		t.Fatalf("expected endpointing params in url: %s", got)
	}

	got, err = buildListenURL(Config{Model: "nova-2", UtteranceEndMs: 1000}, ports.StreamingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "utterance_end_ms") {
		t.Fatalf("utterance_end_ms needs interim results: %s", got)
	}
}

func TestBuildListenURLInvalidBase(t *testing.T) {
	t.Parallel()

	if _, err := buildListenURL(Config{APIBaseURL: ":// bad"}, ports.StreamingConfig{}); err == nil {
		t.Fatalf("expected invalid base url error")
	}
}

func TestStreamingSessionRoundTrip(t *testing.T) {
	t.Parallel()

	type seen struct {
		auth  string
		audio string
		close string
	}
	got := make(chan seen, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, audio, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata","request_id":"req-1"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello there"}]}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"UtteranceEnd"}`))

		_, closing, _ := conn.ReadMessage()
		got <- seen{auth: auth, audio: string(audio), close: string(closing)}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer server.Close()

	p := NewProvider(Config{APIKey: "key", APIBaseURL: server.URL}, nil)
	session, err := p.StartStreaming(context.Background(), ports.StreamingConfig{InterimResults: true})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Close()

	if err := session.SendAudio([]byte("pcm")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	want := []domain.TranscriptEvent{
		{Kind: domain.TranscriptKindPartial, Text: "hello"},
		{Kind: domain.TranscriptKindFinal, Text: "hello there"},
		{Kind: domain.TranscriptKindFinal, IsSpeechFinal: true},
	}
	for i, expected := range want {
		select {
		case event := <-session.Events():
			if event != expected {
				t.Fatalf("event %d: got %+v, want %+v", i, event, expected)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	if err := session.CloseSend(); err != nil {
		t.Fatalf("close send failed: %v", err)
	}
	if err := session.SendAudio([]byte("late")); err == nil {
		t.Fatalf("expected send after close to fail")
	}
	if err := session.Wait(); err != nil {
		t.Fatalf("expected clean finish, got %v", err)
	}

	s := <-got
	if s.auth != "Token key" || s.audio != "pcm" || s.close != `{"type":"CloseStream"}` {
		t.Fatalf("unexpected server view: %+v", s)
	}
}

func TestStreamingSessionSurfacesProviderError(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Error","description":"insufficient credits"}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	p := NewProvider(Config{APIKey: "key", APIBaseURL: server.URL}, nil)
	session, err := p.StartStreaming(context.Background(), ports.StreamingConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_ = session.CloseSend()

	err = session.Wait()
	if err == nil || err.Error() != "insufficient credits" {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, ok := <-session.Events(); ok {
		t.Fatalf("expected events to be closed")
	}
}

func TestStreamingSessionClosesWithContext(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewProvider(Config{APIKey: "key", APIBaseURL: server.URL}, nil)
	session, err := p.StartStreaming(ctx, ports.StreamingConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		_ = session.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not stop after context cancel")
	}
}
