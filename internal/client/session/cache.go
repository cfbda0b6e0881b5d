package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const cacheFileName = "session-state.json"

// State is the locally cached rehearsal state, written through on every
// change so an interrupted session can be resumed.
type State struct {
	SessionID     int       `json:"sessionId"`
	Conversation  []Entry   `json:"conversation"`
	TimeRemaining int       `json:"timeRemaining"`
	Model         string    `json:"model"`
	SavedAt       time.Time `json:"savedAt"`
}

// Cache persists the session state. Implementations hold a single slot;
// saving overwrites the previous state.
type Cache interface {
	Save(state State) error
	Load() (State, bool, error)
	Clear() error
}

// FileCache stores the state as one JSON file in a directory.
type FileCache struct {
	path string
}

// NewFileCache constructs a FileCache under dir.
func NewFileCache(dir string) *FileCache {
	return &FileCache{path: filepath.Join(dir, cacheFileName)}
}

// Save writes the state, creating the directory if needed.
func (c *FileCache) Save(state State) error {
	state.SavedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}

// Load reads the saved state. The second return is false when no state
// has been saved.
func (c *FileCache) Load() (State, bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

// Clear removes the saved state.
func (c *FileCache) Clear() error {
	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
