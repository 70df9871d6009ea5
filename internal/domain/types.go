package domain

import "fmt"

// SessionState models the capture-session lifecycle.
type SessionState string

const (
	SessionStateIdle            SessionState = "idle"
	SessionStateAwaitingCapture SessionState = "awaiting_capture"
	SessionStateListening       SessionState = "listening"
	SessionStateCompleted       SessionState = "completed"
)

// Status strings surfaced to the player.
const (
	MessageWaitingForPermission = "Waiting for mic permission"
	MessageInteract             = "Interact with a person to start a chat."
	MessageListening            = "Listening. Please say something!"
	MessageNoMatch              = "NOMATCH: Speech could not be recognized."
)

// CanceledMessage formats the status shown when the engine cancels an attempt.
func CanceledMessage(reason string, detail string) string {
	return fmt.Sprintf("CANCELED: Reason=%s ErrorDetails=%s", reason, detail)
}

// OutcomeKind tags a RecognitionOutcome.
type OutcomeKind string

const (
	OutcomeNotAttempted OutcomeKind = "not_attempted"
	OutcomeRecognized   OutcomeKind = "recognized"
	OutcomeNoMatch      OutcomeKind = "no_match"
	OutcomeCanceled     OutcomeKind = "canceled"
)

// RecognitionOutcome is the single result of one capture attempt.
type RecognitionOutcome struct {
	Kind   OutcomeKind
	Text   string
	Reason string
	Detail string
}

func Recognized(text string) RecognitionOutcome {
	return RecognitionOutcome{Kind: OutcomeRecognized, Text: text}
}

func NoMatch() RecognitionOutcome {
	return RecognitionOutcome{Kind: OutcomeNoMatch}
}

func Canceled(reason string, detail string) RecognitionOutcome {
	return RecognitionOutcome{Kind: OutcomeCanceled, Reason: reason, Detail: detail}
}

// Message returns the status string the outcome is displayed as.
func (o RecognitionOutcome) Message() string {
	switch o.Kind {
	case OutcomeRecognized:
		return o.Text
	case OutcomeNoMatch:
		return MessageNoMatch
	case OutcomeCanceled:
		return CanceledMessage(o.Reason, o.Detail)
	default:
		return ""
	}
}

// Cancellation reasons reported by engine adapters.
const (
	CancelReasonError         = "Error"
	CancelReasonCancelledUser = "CancelledByUser"
)

// InteractionTarget identifies the person currently engaged.
type InteractionTarget struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	SessionID   string `json:"sessionId" yaml:"sessionId"`
	Persona     string `json:"persona" yaml:"persona"`
	VoiceName   string `json:"voiceName" yaml:"voiceName"`
	HasTicket   bool   `json:"hasTicket" yaml:"hasTicket"`
}

// DialogueRequest is sent to the remote conversation service.
type DialogueRequest struct {
	SessionID string `json:"sessionId"`
	Persona   string `json:"persona"`
	VoiceName string `json:"voiceName"`
	HasTicket bool   `json:"hasTicket"`
	UserInput string `json:"userInput"`
}

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// ErrorCode identifies non-fatal backend errors reported to the UI.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeDispatch    ErrorCode = "dispatch"
)

// Status summarizes the current runtime status.
type Status struct {
	State             SessionState `json:"state"`
	Message           string       `json:"message"`
	PermissionGranted bool         `json:"permissionGranted"`
	PersonActive      bool         `json:"personActive"`
	Paused            bool         `json:"paused"`
	LastOutcome       OutcomeKind  `json:"lastOutcome"`
	Target            string       `json:"target,omitempty"`
}

// SessionSummary is the telemetry payload uploaded at end of session.
type SessionSummary struct {
	ID         string `json:"id"`
	StartedAt  string `json:"startedAt"`
	EndedAt    string `json:"endedAt"`
	Attempts   int    `json:"attempts"`
	Recognized int    `json:"recognized"`
	NoMatch    int    `json:"noMatch"`
	Canceled   int    `json:"canceled"`
	Rejected   int    `json:"rejected"`
	Dispatched int    `json:"dispatched"`
	Pauses     int    `json:"pauses"`
}
