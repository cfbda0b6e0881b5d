package capture

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os/exec"
	"strings"
	"sync"
)

// ExecSource captures frames by running an external command that writes
// a PNG screenshot to stdout, for example "grim -" on Wayland or
// "import -window root png:-" with ImageMagick.
type ExecSource struct {
	command string

	mu   sync.Mutex
	done chan struct{}
}

// NewExecSource constructs an ExecSource for the given shell command.
func NewExecSource(command string) (*ExecSource, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("capture: capture command is empty")
	}
	return &ExecSource{command: command}, nil
}

// Start verifies the command can run by taking a throwaway capture.
func (e *ExecSource) Start(ctx context.Context) error {
	e.mu.Lock()
	e.done = make(chan struct{})
	e.mu.Unlock()

	_, err := e.Snapshot(ctx)
	if err != nil && !errors.Is(err, ErrNotReady) {
		return err
	}
	return nil
}

// Snapshot runs the capture command and decodes the PNG dimensions.
func (e *ExecSource) Snapshot(ctx context.Context) (Frame, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", e.command)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return Frame{}, errors.New("capture: capture command failed: " + err.Error())
	}

	data := out.Bytes()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Frame{}, ErrNotReady
	}

	return Frame{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// Stop closes the done channel.
func (e *ExecSource) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
	return nil
}

// Done reports when the source has been stopped.
func (e *ExecSource) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return e.done
}
