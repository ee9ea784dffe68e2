package auth

import (
	"os"
	"time"
)

const (
	EnvToken     = "WALLGRAB_FEED_TOKEN"
	EnvUser      = "WALLGRAB_FEED_USER"
	EnvUserAgent = "WALLGRAB_FEED_USER_AGENT"
)

// EnvironmentStore is a read-only store backed by WALLGRAB_FEED_* variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from the environment. An empty username
// falls back to WALLGRAB_FEED_USER, then "default".
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	token := os.Getenv(EnvToken)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	envUser := os.Getenv(EnvUser)
	if username == "" {
		username = envUser
	} else if envUser != "" && envUser != username {
		return nil, ErrCredentialsNotFound
	}
	if username == "" {
		username = "default"
	}

	return &Account{
		Username:     username,
		Token:        token,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the token variable is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists reports whether environment credentials are set
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
