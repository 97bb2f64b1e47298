package session

import (
	"os"
	"path/filepath"
	"sync"

	"herald/internal/domain/service"
	"herald/internal/errors"

	"github.com/goccy/go-json"
)

// Tokens is the pair handed out by login and refresh.
type Tokens = service.TokenPair

// Store persists the token pair outside the coordinator.
type Store interface {
	Load() (*Tokens, error)
	Save(tokens *Tokens) error
	Clear() error
}

// MemoryStore keeps the pair for the lifetime of the process.
type MemoryStore struct {
	mu     sync.Mutex
	tokens *Tokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens == nil {
		return nil, nil
	}
	cp := *s.tokens

	return &cp, nil
}

func (s *MemoryStore) Save(tokens *Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tokens
	s.tokens = &cp

	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = nil

	return nil
}

// FileStore keeps the pair in a 0600 JSON file so a CLI session survives restarts.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFileStore places the file under the user config directory.
func DefaultFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.Wrap(err, "resolve config dir")
	}

	return NewFileStore(filepath.Join(dir, "herald", "session.json")), nil
}

func (s *FileStore) Load() (*Tokens, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read session file")
	}

	var tokens Tokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, errors.Wrap(err, "decode session file")
	}

	return &tokens, nil
}

func (s *FileStore) Save(tokens *Tokens) error {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return errors.Wrap(err, "encode session file")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create session dir")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "write session file")
	}

	return errors.Wrap(os.Rename(tmp, s.path), "replace session file")
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove session file")
	}

	return nil
}
