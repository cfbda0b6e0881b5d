package capture

import (
	"context"
	"errors"
	"sync"
)

// Screen capture errors.
var (
	ErrNotSharing     = errors.New("capture: screen sharing not active")
	ErrAlreadySharing = errors.New("capture: screen sharing already active")
	ErrNotReady       = errors.New("capture: screen frame not ready yet")
)

// Frame is one captured screenshot.
type Frame struct {
	PNG    []byte
	Width  int
	Height int
}

// Source provides screen frames. Done is closed when the source ends on
// its own, for example when the user stops sharing from outside.
type Source interface {
	Start(ctx context.Context) error
	Snapshot(ctx context.Context) (Frame, error)
	Stop() error
	Done() <-chan struct{}
}

// Screen is the sharing state machine over a Source. It is either idle
// or sharing; snapshots are only valid while sharing and once the source
// delivers frames with nonzero dimensions.
type Screen struct {
	source Source

	mu      sync.Mutex
	sharing bool

	// OnStopped is called when the source ends on its own. Optional.
	OnStopped func()
}

// NewScreen constructs a Screen over the given source.
func NewScreen(source Source) *Screen {
	return &Screen{source: source}
}

// Start begins sharing and watches for the source ending on its own.
func (s *Screen) Start(ctx context.Context) error {
	if s.source == nil {
		return ErrUnsupported
	}

	s.mu.Lock()
	if s.sharing {
		s.mu.Unlock()
		return ErrAlreadySharing
	}
	s.mu.Unlock()

	if err := s.source.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.sharing = true
	s.mu.Unlock()

	go s.watch(ctx)
	return nil
}

func (s *Screen) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-s.source.Done():
		s.mu.Lock()
		wasSharing := s.sharing
		s.sharing = false
		s.mu.Unlock()
		if wasSharing && s.OnStopped != nil {
			s.OnStopped()
		}
	}
}

// Stop ends sharing.
func (s *Screen) Stop() error {
	s.mu.Lock()
	if !s.sharing {
		s.mu.Unlock()
		return ErrNotSharing
	}
	s.sharing = false
	s.mu.Unlock()
	return s.source.Stop()
}

// Sharing reports whether sharing is active.
func (s *Screen) Sharing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sharing
}

// Snapshot captures the current frame. It fails with ErrNotSharing when
// idle and ErrNotReady until the source delivers a usable frame.
func (s *Screen) Snapshot(ctx context.Context) (Frame, error) {
	if !s.Sharing() {
		return Frame{}, ErrNotSharing
	}

	frame, err := s.source.Snapshot(ctx)
	if err != nil {
		return Frame{}, err
	}
	if frame.Width == 0 || frame.Height == 0 || len(frame.PNG) == 0 {
		return Frame{}, ErrNotReady
	}
	return frame, nil
}

// Refresh checks the source after a pause. Failures are returned but the
// sharing state is kept; the next snapshot may still succeed.
func (s *Screen) Refresh(ctx context.Context) error {
	if !s.Sharing() {
		return ErrNotSharing
	}
	_, err := s.source.Snapshot(ctx)
	return err
}
