package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists exactly one access token.
type Store interface {
	// Store writes the token, replacing any previous one.
	Store(token string) error
	// Get returns the token, or ok=false when none is stored.
	Get() (token string, ok bool, err error)
	// Remove deletes the token, reporting whether one existed.
	Remove() (bool, error)
	// Has reports whether a token is stored.
	Has() bool
}

// FileStore keeps the token as a single plaintext file readable only by
// the owner. Writes go through a temp file in the same directory so a
// crash never leaves a torn credential.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Store(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("failed to create credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to restrict credential permissions: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}

// Get returns the stored token with surrounding whitespace stripped. A
// missing or blank file means no credential.
func (s *FileStore) Get() (string, bool, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	token := strings.TrimSpace(string(content))
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (s *FileStore) Remove() (bool, error) {
	err := os.Remove(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FileStore) Has() bool {
	_, ok, err := s.Get()
	return err == nil && ok
}
