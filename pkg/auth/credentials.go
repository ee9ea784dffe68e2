package auth

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const appName = "wallgrab"

// Account holds the bearer token used to read a feed account's listings
type Account struct {
	Username     string    `json:"username"`
	Token        string    `json:"token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// AuthorizationHeader returns the value for the Authorization request header
func (a *Account) AuthorizationHeader() string {
	if strings.HasPrefix(strings.ToLower(a.Token), "bearer ") {
		return a.Token
	}
	return "Bearer " + a.Token
}

// CredentialStore is one backend that can hold feed credentials
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// Manager fans credential operations out over an ordered list of stores.
// Writes land in the first store that accepts them; reads take the first hit.
type Manager struct {
	stores []CredentialStore
}

// NewManager uses the system keychain when reachable, then an encrypted
// file under the user config dir, then the environment.
func NewManager() (*Manager, error) {
	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("locate config dir: %w", err)
	}
	file, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("open credential file: %w", err)
	}

	m := &Manager{}
	if kr, err := NewKeyringStore(); err == nil {
		m.stores = append(m.stores, kr)
	}
	m.stores = append(m.stores, file, NewEnvironmentStore())
	return m, nil
}

// NewManagerWithStores creates a manager over an explicit list of stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store trims the token, stamps LastModified and saves the account
func (m *Manager) Store(account *Account) error {
	switch {
	case account == nil || account.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidCredentials)
	case strings.TrimSpace(account.Token) == "":
		return fmt.Errorf("%w: token is required", ErrInvalidCredentials)
	}
	account.Token = strings.TrimSpace(account.Token)
	account.LastModified = time.Now()

	if len(m.stores) == 0 {
		return ErrStoreUnavailable
	}
	var failures []error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		failures = append(failures, err)
	}
	return fmt.Errorf("store credentials: %w", errors.Join(failures...))
}

func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		account, err := store.Retrieve(username)
		if err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault prefers credentials from the environment, then the most
// recently stored account.
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, store := range m.stores {
		env, ok := store.(*EnvironmentStore)
		if !ok {
			continue
		}
		if account, err := env.Retrieve(""); err == nil {
			return account, nil
		}
	}

	if accounts, _ := m.List(); len(accounts) > 0 {
		return accounts[0], nil
	}
	return nil, ErrCredentialsNotFound
}

// List merges every store's accounts, newest first. A username known to
// several stores is reported once, using its most recent copy.
func (m *Manager) List() ([]*Account, error) {
	newest := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, a := range accounts {
			if seen := newest[a.Username]; seen == nil || a.LastModified.After(seen.LastModified) {
				newest[a.Username] = a
			}
		}
	}

	out := make([]*Account, 0, len(newest))
	for _, a := range newest {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *Account) int {
		if c := b.LastModified.Compare(a.LastModified); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
	return out, nil
}

// Delete removes username from every store. It fails only when no store
// held the account.
func (m *Manager) Delete(username string) error {
	removed := 0
	var failures []error
	for _, store := range m.stores {
		err := store.Delete(username)
		switch {
		case err == nil:
			removed++
		case !errors.Is(err, ErrCredentialsNotFound) && !errors.Is(err, ErrStoreUnavailable):
			failures = append(failures, err)
		}
	}

	if removed > 0 {
		return nil
	}
	if len(failures) > 0 {
		return fmt.Errorf("delete credentials: %w", errors.Join(failures...))
	}
	return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// DeleteAll removes every listed account, best effort
func (m *Manager) DeleteAll() error {
	accounts, err := m.List()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		_ = m.Delete(a.Username)
	}
	return nil
}

// configDir is <user config dir>/wallgrab, created 0700 when missing
func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// SanitizeAccount returns a copy with the token masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	masked := *account
	masked.Token = maskString(account.Token)
	return &masked
}

// maskString keeps the first and last 4 characters
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
