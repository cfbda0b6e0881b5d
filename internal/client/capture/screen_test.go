package capture

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	frame    Frame
	snapErr  error
	startErr error
	done     chan struct{}
	stopped  bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{done: make(chan struct{})}
}

func (f *fakeSource) Start(ctx context.Context) error { return f.startErr }

func (f *fakeSource) Snapshot(ctx context.Context) (Frame, error) {
	if f.snapErr != nil {
		return Frame{}, f.snapErr
	}
	return f.frame, nil
}

func (f *fakeSource) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeSource) Done() <-chan struct{} { return f.done }

func readyFrame() Frame {
	return Frame{PNG: []byte{0x89, 0x50}, Width: 1280, Height: 720}
}

func TestScreenNilSource(t *testing.T) {
	s := NewScreen(nil)
	assert.ErrorIs(t, s.Start(context.Background()), ErrUnsupported)
}

func TestScreenStartStop(t *testing.T) {
	source := newFakeSource()
	s := NewScreen(source)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Sharing())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadySharing)

	require.NoError(t, s.Stop())
	assert.False(t, s.Sharing())
	assert.True(t, source.stopped)
	assert.ErrorIs(t, s.Stop(), ErrNotSharing)
}

func TestScreenStartPropagatesSourceError(t *testing.T) {
	source := newFakeSource()
	source.startErr = errors.New("no display")
	s := NewScreen(source)

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.Sharing())
}

func TestScreenSnapshotGating(t *testing.T) {
	source := newFakeSource()
	s := NewScreen(source)

	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotSharing)

	require.NoError(t, s.Start(context.Background()))

	// Source has no usable frame yet.
	_, err = s.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	source.frame = readyFrame()
	frame, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1280, frame.Width)
	require.NoError(t, s.Stop())
}

func TestScreenSourceEndingFiresOnStopped(t *testing.T) {
	source := newFakeSource()
	s := NewScreen(source)

	var fired bool
	var mu sync.Mutex
	s.OnStopped = func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	}

	require.NoError(t, s.Start(context.Background()))
	close(source.done)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired
	})
	assert.False(t, s.Sharing())
}

func TestScreenRefresh(t *testing.T) {
	source := newFakeSource()
	source.frame = readyFrame()
	s := NewScreen(source)

	assert.ErrorIs(t, s.Refresh(context.Background()), ErrNotSharing)

	require.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Refresh(context.Background()))

	source.snapErr = errors.New("capture failed")
	assert.Error(t, s.Refresh(context.Background()))
	assert.True(t, s.Sharing())
	require.NoError(t, s.Stop())
}
