package usecase

import "sync"

// resultRelay hands recognition results from the completion goroutine to the
// frame goroutine. Every access goes through mu; nothing else is done while
// it is held.
type resultRelay struct {
	mu        sync.Mutex
	message   string
	succeeded bool
	utterance string
}

func newResultRelay(message string) *resultRelay {
	return &resultRelay{message: message}
}

// Write replaces all three fields. A success without text is stored as a
// plain status update so succeeded never outlives its utterance.
func (r *resultRelay) Write(message string, succeeded bool, utterance string) {
	if utterance == "" {
		succeeded = false
	}
	if !succeeded {
		utterance = ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.message = message
	r.succeeded = succeeded
	r.utterance = utterance
}

// PollAndConsume returns the current message and, when a recognized utterance
// is pending, the utterance itself. A pending utterance is returned exactly once.
func (r *resultRelay) PollAndConsume() (string, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.succeeded {
		return r.message, "", false
	}
	utterance := r.utterance
	r.succeeded = false
	r.utterance = ""
	return r.message, utterance, true
}

// Announce replaces the message unless a recognized utterance is still
// waiting to be consumed.
func (r *resultRelay) Announce(message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.succeeded {
		return false
	}
	r.message = message
	return true
}

// Claim writes message as the start of a new attempt. It refuses while a
// recognized utterance is still waiting to be consumed, so a start can never
// overwrite a result.
func (r *resultRelay) Claim(message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.succeeded {
		return false
	}
	r.message = message
	r.utterance = ""
	return true
}

// Message peeks at the display message without consuming anything.
func (r *resultRelay) Message() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message
}
