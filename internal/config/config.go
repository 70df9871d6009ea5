package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultTelemetryURL = "http://aaronchannon1.pythonanywhere.com/api/results"

// Config stores runtime configuration.
type Config struct {
	Deepgram  DeepgramConfig
	Audio     AudioConfig
	Rules     RulesConfig
	Session   SessionConfig
	Dialogue  DialogueConfig
	Telemetry TelemetryConfig
	Roster    RosterConfig
}

type DeepgramConfig struct {
	APIKey         string
	APIBaseURL     string
	Model          string
	Language       string
	SmartFormat    bool
	EndpointingMs  int
	UtteranceEndMs int
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	// RequirePermission keeps the permission gate closed until the recorder
	// command can be resolved.
	RequirePermission bool
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type SessionConfig struct {
	ChunkSize      int
	MaxListen      time.Duration
	InitialSilence time.Duration
	FrameInterval  time.Duration
	TriggerSource  string
}

type DialogueConfig struct {
	URL       string
	QueueSize int
}

type TelemetryConfig struct {
	URL     string
	Timeout time.Duration
}

type RosterConfig struct {
	Path string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	configDir := filepath.Join(home, ".config", "npctalk")

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:         strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:     envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:          envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:       strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat:    envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
			EndpointingMs:  envOrDefaultInt("DEEPGRAM_ENDPOINTING_MS", 300),
			UtteranceEndMs: envOrDefaultInt("DEEPGRAM_UTTERANCE_END_MS", 1000),
		},
		Audio: AudioConfig{
			RecorderCommand:   envOrDefault("NPCTALK_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:       envOrDefault("NPCTALK_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:       firstNonEmpty(os.Getenv("NPCTALK_AUDIO_INPUT_DEVICE"), "default"),
			SampleRate:        envOrDefaultInt("NPCTALK_SAMPLE_RATE", 16000),
			Channels:          envOrDefaultInt("NPCTALK_CHANNELS", 1),
			RequirePermission: envOrDefaultBool("NPCTALK_REQUIRE_MIC_PERMISSION", true),
		},
		Rules: RulesConfig{
			Path:           envOrDefault("NPCTALK_RULES_FILE", filepath.Join(configDir, "speech.rules")),
			IterationLimit: envOrDefaultInt("NPCTALK_RULE_ITERATION_LIMIT", 30),
		},
		Session: SessionConfig{
			ChunkSize:      envOrDefaultInt("NPCTALK_AUDIO_CHUNK_SIZE", 4096),
			MaxListen:      envOrDefaultMillis("NPCTALK_MAX_LISTEN_MS", 15*time.Second),
			InitialSilence: envOrDefaultMillis("NPCTALK_INITIAL_SILENCE_MS", 5*time.Second),
			FrameInterval:  envOrDefaultMillis("NPCTALK_FRAME_INTERVAL_MS", 50*time.Millisecond),
			TriggerSource:  envOrDefault("NPCTALK_TRIGGER_SOURCE", "watch"),
		},
		Dialogue: DialogueConfig{
			URL:       envOrDefault("NPCTALK_DIALOGUE_URL", "ws://localhost:5000/ws/dialogue"),
			QueueSize: envOrDefaultInt("NPCTALK_DIALOGUE_QUEUE", 16),
		},
		Telemetry: TelemetryConfig{
			URL:     envOrDefault("NPCTALK_TELEMETRY_URL", DefaultTelemetryURL),
			Timeout: envOrDefaultMillis("NPCTALK_TELEMETRY_TIMEOUT_MS", 10*time.Second),
		},
		Roster: RosterConfig{
			Path: envOrDefault("NPCTALK_ROSTER_FILE", filepath.Join(configDir, "roster.yaml")),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.MaxListen <= 0 {
		cfg.Session.MaxListen = 15 * time.Second
	}
	if cfg.Session.InitialSilence <= 0 || cfg.Session.InitialSilence > cfg.Session.MaxListen {
		cfg.Session.InitialSilence = cfg.Session.MaxListen
	}
	if cfg.Session.FrameInterval <= 0 {
		cfg.Session.FrameInterval = 50 * time.Millisecond
	}
	if cfg.Dialogue.QueueSize <= 0 {
		cfg.Dialogue.QueueSize = 16
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	ms := envOrDefaultInt(key, -1)
	if ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
