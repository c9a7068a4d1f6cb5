package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the persisted session.
type State struct {
	Username     string    `json:"username,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Ranking      string    `json:"ranking,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store abstracts persistence for session state.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// FileStore writes session state to a JSON file on disk.
type FileStore struct {
	path string
}

// NewFileStore builds a FileStore rooted at the provided path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads session state from disk. A missing file resolves to an empty state.
func (s *FileStore) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read session: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

// Save persists session state with restricted permissions. The file is
// replaced atomically so a crash never leaves half-written tokens behind.
func (s *FileStore) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// MemoryStore keeps state in memory; useful for tests and one-shot commands.
type MemoryStore struct {
	State State
	Err   error
}

func (m *MemoryStore) Load() (State, error) { return m.State, m.Err }

func (m *MemoryStore) Save(state State) error {
	if m.Err != nil {
		return m.Err
	}
	m.State = state
	return nil
}
