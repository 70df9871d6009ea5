package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"npctalk/internal/domain"
)

// Counters are the session totals reported in a summary.
type Counters struct {
	Attempts   int
	Recognized int
	NoMatch    int
	Canceled   int
	Rejected   int
	Dispatched int
	Pauses     int
}

// Recorder stamps the session window for the summary.
type Recorder struct {
	id        string
	startedAt time.Time
	now       func() time.Time
}

// NewRecorder starts a session window now. A nil clock uses time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{id: uuid.NewString(), startedAt: now(), now: now}
}

// Summary closes the window at the current time.
func (r *Recorder) Summary(c Counters) domain.SessionSummary {
	return domain.SessionSummary{
		ID:         r.id,
		StartedAt:  r.startedAt.UTC().Format(time.RFC3339),
		EndedAt:    r.now().UTC().Format(time.RFC3339),
		Attempts:   c.Attempts,
		Recognized: c.Recognized,
		NoMatch:    c.NoMatch,
		Canceled:   c.Canceled,
		Rejected:   c.Rejected,
		Dispatched: c.Dispatched,
		Pauses:     c.Pauses,
	}
}

// Encode renders summary as the upload payload.
func Encode(summary domain.SessionSummary) (string, error) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("encode session summary: %w", err)
	}
	return string(raw), nil
}
