package speech

import (
	"strings"

	"npctalk/internal/domain"
)

// transcriptAggregator assembles one utterance from provider events. It is
// only touched by the goroutine running RecognizeOnce.
type transcriptAggregator struct {
	finals  []string
	partial string
}

// Add records event and reports whether it carried any text.
func (a *transcriptAggregator) Add(event domain.TranscriptEvent) bool {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return false
	}
	if event.Kind == domain.TranscriptKindFinal {
		a.finals = append(a.finals, text)
		a.partial = ""
		return true
	}
	a.partial = text
	return true
}

// Text returns the finalized words heard so far, falling back to the latest
// partial hypothesis when nothing has been finalized.
func (a *transcriptAggregator) Text() string {
	joined := strings.TrimSpace(strings.Join(a.finals, " "))
	if joined == "" {
		return a.partial
	}
	return joined
}
