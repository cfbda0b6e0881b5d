// Package capture provides the input side of a rehearsal session: speech
// transcription and screen capture. Both are modeled as small state
// machines over pluggable backends so the terminal client can swap in
// whatever the host machine provides.
package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Transcription errors.
var (
	ErrUnsupported      = errors.New("capture: no transcription engine available")
	ErrAlreadyListening = errors.New("capture: already listening")
	ErrNotListening     = errors.New("capture: not listening")
)

// Result is one recognized fragment. Final fragments are appended to the
// transcript; interim fragments only replace the live preview.
type Result struct {
	Text  string
	Final bool
}

// Engine produces recognition results. Start returns a channel that is
// closed when the engine stops on its own; the Transcriber restarts the
// engine while it is still supposed to be listening.
type Engine interface {
	Start(ctx context.Context) (<-chan Result, error)
	Stop() error
}

// Transcriber accumulates a transcript from an Engine. It is either idle
// or listening; starting twice or stopping twice is an error.
type Transcriber struct {
	engine Engine

	mu         sync.Mutex
	listening  bool
	transcript strings.Builder
	interim    string
	cancel     context.CancelFunc

	// OnError receives engine failures that end listening. Optional.
	OnError func(error)
}

// NewTranscriber constructs a Transcriber over the given engine. A nil
// engine yields ErrUnsupported from Start, matching hosts without any
// recognition backend.
func NewTranscriber(engine Engine) *Transcriber {
	return &Transcriber{engine: engine}
}

// Start begins listening. The transcript keeps accumulating across
// engine restarts until Stop is called.
func (t *Transcriber) Start(ctx context.Context) error {
	if t.engine == nil {
		return ErrUnsupported
	}

	t.mu.Lock()
	if t.listening {
		t.mu.Unlock()
		return ErrAlreadyListening
	}
	t.listening = true
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	results, err := t.engine.Start(runCtx)
	if err != nil {
		t.setStopped()
		return err
	}

	go t.consume(runCtx, results)
	return nil
}

func (t *Transcriber) consume(ctx context.Context, results <-chan Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				// Engine ended on its own; restart while still listening.
				if !t.Listening() {
					return
				}
				restarted, err := t.engine.Start(ctx)
				if err != nil {
					t.setStopped()
					if t.OnError != nil {
						t.OnError(err)
					}
					return
				}
				results = restarted
				continue
			}
			t.record(result)
		}
	}
}

func (t *Transcriber) record(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if result.Final {
		if t.transcript.Len() > 0 {
			t.transcript.WriteString(" ")
		}
		t.transcript.WriteString(strings.TrimSpace(result.Text))
		t.interim = ""
		return
	}
	t.interim = result.Text
}

// Stop ends listening. The accumulated transcript survives until Clear.
func (t *Transcriber) Stop() error {
	t.mu.Lock()
	if !t.listening {
		t.mu.Unlock()
		return ErrNotListening
	}
	t.listening = false
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return t.engine.Stop()
}

func (t *Transcriber) setStopped() {
	t.mu.Lock()
	t.listening = false
	t.cancel = nil
	t.mu.Unlock()
}

// Listening reports whether the transcriber is active.
func (t *Transcriber) Listening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}

// Transcript returns the accumulated final text.
func (t *Transcriber) Transcript() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transcript.String()
}

// Interim returns the latest unconfirmed fragment.
func (t *Transcriber) Interim() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interim
}

// Clear discards the accumulated transcript and interim fragment.
func (t *Transcriber) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transcript.Reset()
	t.interim = ""
}

// Take returns the accumulated transcript and clears it, the handoff
// used when processing a completed question.
func (t *Transcriber) Take() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	text := t.transcript.String()
	t.transcript.Reset()
	t.interim = ""
	return text
}
