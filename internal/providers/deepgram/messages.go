package deepgram

import (
	"encoding/json"
	"errors"
	"strings"

	"npctalk/internal/domain"
)

type alternative struct {
	Transcript string `json:"transcript"`
}

type channel struct {
	Alternatives []alternative `json:"alternatives"`
}

// listenMessage covers the server messages of the listen API that matter
// here: Results, UtteranceEnd, Metadata and Error.
type listenMessage struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Description string  `json:"description"`
	RequestID   string  `json:"request_id"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Channel     channel `json:"channel"`
	Results     struct {
		Channels []channel `json:"channels"`
	} `json:"results"`
}

func (m listenMessage) transcript() string {
	if len(m.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(m.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(m.Results.Channels) > 0 && len(m.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(m.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

func (m listenMessage) failure() error {
	for _, text := range []string{m.Message, m.Description} {
		if text = strings.TrimSpace(text); text != "" {
			return errors.New(text)
		}
	}
	return errors.New("deepgram returned an unknown error")
}

// decodeMessage turns one server payload into a transcript event. ok is false
// for payloads that carry nothing to emit. A non-nil error ends the stream.
func decodeMessage(payload []byte) (msg listenMessage, event domain.TranscriptEvent, ok bool, err error) {
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, event, false, nil
	}

	switch strings.ToLower(msg.Type) {
	case "utteranceend":
		return msg, domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, IsSpeechFinal: true}, true, nil
	case "error":
		return msg, event, false, msg.failure()
	}

	text := msg.transcript()
	if text == "" {
		return msg, event, false, nil
	}
	event = domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: text, IsSpeechFinal: msg.SpeechFinal}
	if msg.IsFinal || msg.SpeechFinal {
		event.Kind = domain.TranscriptKindFinal
	}
	return msg, event, true, nil
}
