package capture

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// LineEngine turns lines read from r into final recognition results. It
// is the terminal stand-in for a speech recognizer: the user types what
// the interviewer said.
type LineEngine struct {
	r io.Reader

	mu      sync.Mutex
	stopped bool
}

// NewLineEngine constructs a LineEngine reading from r.
func NewLineEngine(r io.Reader) *LineEngine {
	return &LineEngine{r: r}
}

// Start begins reading lines. The returned channel closes when the
// reader is exhausted or the context is cancelled.
func (e *LineEngine) Start(ctx context.Context) (<-chan Result, error) {
	e.mu.Lock()
	e.stopped = false
	e.mu.Unlock()

	results := make(chan Result)
	scanner := bufio.NewScanner(e.r)

	go func() {
		defer close(results)
		for scanner.Scan() {
			e.mu.Lock()
			stopped := e.stopped
			e.mu.Unlock()
			if stopped {
				return
			}

			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case results <- Result{Text: line, Final: true}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return results, nil
}

// Stop ends reading. The underlying reader is left open; the caller
// owns it.
func (e *LineEngine) Stop() error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	return nil
}
