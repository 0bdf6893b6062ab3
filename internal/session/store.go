package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store holds the bearer token of the signed-in user.
// Token returns an empty string when no one is signed in.
type Store interface {
	Token(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type memoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *memoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	return s.Save(context.Background(), "")
}

// fileStore persists the token on disk with owner-only permissions and
// caches it in memory after the first read.
type fileStore struct {
	path   string
	sealer *sealer
	log    *zap.SugaredLogger

	mu     sync.Mutex
	loaded bool
	token  string
}

func NewFileStore(path, encryptionKey string, log *zap.SugaredLogger) (Store, error) {
	s := &fileStore{path: path, log: log}
	if encryptionKey != "" {
		sl, err := newSealer(encryptionKey)
		if err != nil {
			return nil, err
		}
		s.sealer = sl
	}
	return s, nil
}

func (s *fileStore) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.token, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.loaded = true
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	data = bytes.TrimSpace(data)
	if s.sealer != nil && len(data) > 0 {
		if data, err = s.sealer.open(data); err != nil {
			return "", err
		}
	}
	s.token = string(data)
	s.loaded = true
	return s.token, nil
}

func (s *fileStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		return s.clearLocked()
	}

	data := []byte(token)
	if s.sealer != nil {
		var err error
		if data, err = s.sealer.seal(data); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	s.token = token
	s.loaded = true
	s.log.Debugw("Saved session token", "path", s.path)
	return nil
}

func (s *fileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *fileStore) clearLocked() error {
	s.token = ""
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
