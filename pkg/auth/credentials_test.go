package auth

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// memoryStore is an in-memory CredentialStore with error injection
type memoryStore struct {
	mu         sync.Mutex
	accounts   map[string]Account
	storeError error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: make(map[string]Account)}
}

func (m *memoryStore) Store(account *Account) error {
	if m.storeError != nil {
		return m.storeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Username] = *account
	return nil
}

func (m *memoryStore) Retrieve(username string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (m *memoryStore) List() ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Account
	for _, account := range m.accounts {
		acc := account
		result = append(result, &acc)
	}
	return result, nil
}

func (m *memoryStore) Delete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *memoryStore) Exists(username string) bool {
	_, err := m.Retrieve(username)
	return err == nil
}

func TestManagerRoundTrip(t *testing.T) {
	store := newMemoryStore()
	manager := NewManagerWithStores(store)

	account := &Account{Username: "alice", Token: "  token-abcdefgh-1234  ", UserAgent: "TestAgent/1.0"}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero())

	retrieved, err := manager.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "token-abcdefgh-1234", retrieved.Token)
	assert.Equal(t, "TestAgent/1.0", retrieved.UserAgent)

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("alice"))
	_, err = manager.Retrieve("alice")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	err = manager.Delete("alice")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(newMemoryStore())

	assert.Error(t, manager.Store(nil))
	assert.Error(t, manager.Store(&Account{Token: "abc"}))
	assert.Error(t, manager.Store(&Account{Username: "bob", Token: "   "}))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := newMemoryStore()
	broken.storeError = errors.New("keychain locked")
	working := newMemoryStore()
	manager := NewManagerWithStores(broken, working)

	require.NoError(t, manager.Store(&Account{Username: "carol", Token: "tok"}))
	assert.True(t, working.Exists("carol"))
	assert.False(t, broken.Exists("carol"))

	only := NewManagerWithStores(broken)
	err := only.Store(&Account{Username: "carol", Token: "tok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keychain locked")
}

func TestManagerListNewestWins(t *testing.T) {
	older := newMemoryStore()
	newer := newMemoryStore()
	now := time.Now()

	require.NoError(t, older.Store(&Account{Username: "dave", Token: "old", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, newer.Store(&Account{Username: "dave", Token: "new", LastModified: now}))
	require.NoError(t, older.Store(&Account{Username: "erin", Token: "e", LastModified: now.Add(-2 * time.Hour)}))

	accounts, err := NewManagerWithStores(older, newer).List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "dave", accounts[0].Username)
	assert.Equal(t, "new", accounts[0].Token)
	assert.Equal(t, "erin", accounts[1].Username)
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.Store(&Account{Username: "frank", Token: "stored", LastModified: time.Now()}))
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	t.Setenv(EnvToken, "")
	account, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "stored", account.Token)

	t.Setenv(EnvToken, "from-env")
	account, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "from-env", account.Token)
	assert.Equal(t, "default", account.Username)
}

func TestRetrieveDefaultEmpty(t *testing.T) {
	t.Setenv(EnvToken, "")
	_, err := NewManagerWithStores(newMemoryStore(), NewEnvironmentStore()).RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Username: "grace", Token: "abcd1234567890wxyz", UserAgent: "UA"}

	sanitized := SanitizeAccount(account)
	assert.Equal(t, "grace", sanitized.Username)
	assert.Equal(t, "abcd...wxyz", sanitized.Token)
	assert.Equal(t, "UA", sanitized.UserAgent)
	assert.Equal(t, "********", SanitizeAccount(&Account{Token: "short"}).Token)
	assert.Nil(t, SanitizeAccount(nil))
}

func TestAuthorizationHeader(t *testing.T) {
	assert.Equal(t, "Bearer abc", (&Account{Token: "abc"}).AuthorizationHeader())
	assert.Equal(t, "bearer abc", (&Account{Token: "bearer abc"}).AuthorizationHeader())
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	_, err = store.Retrieve("heidi")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Store(&Account{Username: "heidi", Token: "secret-token-value"}))
	require.NoError(t, store.Store(&Account{Username: "ivan", Token: "other-token-value"}))

	retrieved, err := store.Retrieve("heidi")
	require.NoError(t, err)
	assert.Equal(t, "secret-token-value", retrieved.Token)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(content), "secret-token-value"))
	assert.False(t, strings.Contains(string(content), "heidi"))

	accounts, err := store.List()
	require.NoError(t, err)
	names := []string{accounts[0].Username, accounts[1].Username}
	sort.Strings(names)
	assert.Equal(t, []string{"heidi", "ivan"}, names)

	require.NoError(t, store.Delete("heidi"))
	assert.False(t, store.Exists("heidi"))
	require.NoError(t, store.Delete("ivan"))
	assert.NoFileExists(t, path)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(EnvPassphrase, "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "judy", Token: "tok"}))

	t.Setenv(EnvPassphrase, "wrong")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("judy")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "ken", Token: "tok"}))
	assert.FileExists(t, filepath.Join(dir, ".passphrase"))

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	account, err := reopened.Retrieve("ken")
	require.NoError(t, err)
	assert.Equal(t, "tok", account.Token)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvToken, "env_token")
	t.Setenv(EnvUser, "")
	t.Setenv(EnvUserAgent, "EnvAgent/2.0")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env_token", account.Token)
	assert.Equal(t, "EnvAgent/2.0", account.UserAgent)
	assert.Equal(t, "default", account.Username)
	assert.True(t, store.Exists("anyone"))

	t.Setenv(EnvUser, "leo")
	_, err = store.Retrieve("mallory")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	account, err = store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "leo", account.Username)

	assert.ErrorIs(t, store.Store(&Account{}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("leo"), ErrStoreUnavailable)

	t.Setenv(EnvToken, "")
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	require.NoError(t, store.Store(&Account{Username: "nina", Token: "n-token"}))
	require.NoError(t, store.Store(&Account{Username: "oscar", Token: "o-token"}))
	require.NoError(t, store.Store(&Account{Username: "nina", Token: "n-token-2"}))

	account, err := store.Retrieve("nina")
	require.NoError(t, err)
	assert.Equal(t, "n-token-2", account.Token)

	accounts, err = store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	require.NoError(t, store.Delete("nina"))
	assert.False(t, store.Exists("nina"))
	assert.ErrorIs(t, store.Delete("nina"), ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "oscar", accounts[0].Username)

	_, err = store.Retrieve("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestShowTokenGuide(t *testing.T) {
	var b strings.Builder
	ShowTokenGuide(&b)
	assert.Contains(t, b.String(), "access_token")
	assert.Contains(t, b.String(), EnvToken)
}
