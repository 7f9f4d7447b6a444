package auth

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "wbctl"
	keyringUser    = "access-token"
)

// KeyringStore keeps the token in the operating system keychain.
type KeyringStore struct {
	service string
	user    string
}

var _ Store = (*KeyringStore)(nil)

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService, user: keyringUser}
}

func (s *KeyringStore) Store(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(s.service, s.user, token)
}

func (s *KeyringStore) Get() (string, bool, error) {
	token, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return token, true, nil
}

func (s *KeyringStore) Remove() (bool, error) {
	err := keyring.Delete(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *KeyringStore) Has() bool {
	_, ok, err := s.Get()
	return err == nil && ok
}
