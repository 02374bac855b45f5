package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestCredentialManager(t *testing.T) {
	manager, store := NewMockManager()

	cred := &Credential{Name: "happy-otter-123", DeployKey: "prod:happy-otter-123|secretsecret"}
	require.NoError(t, manager.Store(cred))
	assert.False(t, cred.LastModified.IsZero())

	retrieved, err := manager.Retrieve("happy-otter-123")
	require.NoError(t, err)
	assert.Equal(t, cred.DeployKey, retrieved.DeployKey)

	creds, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, creds, 1)

	require.NoError(t, manager.Delete("happy-otter-123"))
	_, err = manager.Retrieve("happy-otter-123")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Equal(t, 0, store.Count())
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	err := manager.Store(&Credential{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	cred := &Credential{DeployKey: "key"}
	require.NoError(t, manager.Store(cred))
	assert.Equal(t, DefaultName, cred.Name)
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	require.NoError(t, manager.Store(&Credential{Name: "a", DeployKey: "key-a"}))
	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, working.Count())

	working.StoreError = errors.New("disk full")
	err := manager.Store(&Credential{Name: "b", DeployKey: "key-b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestManagerResolve(t *testing.T) {
	manager, _ := NewMockManager()

	_, err := manager.Resolve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, manager.Store(&Credential{Name: "only", DeployKey: "key-only"}))
	cred, err := manager.Resolve("missing")
	require.NoError(t, err)
	assert.Equal(t, "key-only", cred.DeployKey, "single credential is used")

	require.NoError(t, manager.Store(&Credential{Name: DefaultName, DeployKey: "key-default"}))
	cred, err = manager.Resolve("missing")
	require.NoError(t, err)
	assert.Equal(t, "key-default", cred.DeployKey)

	cred, err = manager.Resolve("only")
	require.NoError(t, err)
	assert.Equal(t, "key-only", cred.DeployKey)
}

func TestManagerListKeepsNewestCopy(t *testing.T) {
	first, second := NewMockStore(), NewMockStore()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, first.Store(&Credential{Name: "dep", DeployKey: "old", LastModified: older}))
	require.NoError(t, second.Store(&Credential{Name: "dep", DeployKey: "new", LastModified: older.Add(time.Hour)}))
	require.NoError(t, second.Store(&Credential{Name: "aaa", DeployKey: "k", LastModified: older}))

	creds, err := NewManagerWithStores(first, second).List()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "aaa", creds[0].Name)
	assert.Equal(t, "new", creds[1].DeployKey)
}

func TestManagerDeleteSkipsReadOnlyStores(t *testing.T) {
	t.Setenv(EnvDeployKey, "env-key")
	store := NewMockStore()
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	err := manager.Delete("nothing")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Store(&Credential{Name: "dep", DeployKey: "k"}))
	assert.NoError(t, manager.Delete("dep"))
}

func TestSanitize(t *testing.T) {
	cred := &Credential{Name: "dep", DeployKey: "prod:dep|0123456789abcdef"}
	sanitized := Sanitize(cred)

	assert.Equal(t, "dep", sanitized.Name)
	assert.Equal(t, "prod...cdef", sanitized.DeployKey)
	assert.Equal(t, "********", MaskString("short"))
	assert.Nil(t, Sanitize(nil))
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Name: "dep", DeployKey: "very-secret-deploy-key"}))
	require.NoError(t, store.Store(&Credential{Name: "other", DeployKey: "another-secret"}))

	retrieved, err := store.Retrieve("dep")
	require.NoError(t, err)
	assert.Equal(t, "very-secret-deploy-key", retrieved.DeployKey)
	assert.True(t, store.Exists("other"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(content, []byte("very-secret-deploy-key")), "file holds plaintext key")

	// a second store with the same passphrase reads the same file
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	creds, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, creds, 2)

	require.NoError(t, store.Delete("dep"))
	require.NoError(t, store.Delete("other"))
	assert.NoFileExists(t, path, "file is removed with the last credential")
	assert.ErrorIs(t, store.Delete("other"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(EnvPassphrase, "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Name: "dep", DeployKey: "key"}))

	t.Setenv(EnvPassphrase, "wrong")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("dep")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Name: "dep", DeployKey: "key"}))
	assert.FileExists(t, filepath.Join(dir, ".passphrase"))

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	cred, err := reopened.Retrieve("dep")
	require.NoError(t, err)
	assert.Equal(t, "key", cred.DeployKey)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(EnvDeployKey, "")
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.False(t, store.Exists(""))

	t.Setenv(EnvDeployKey, "env-key")
	t.Setenv(EnvBackendURL, "https://api.example.com")
	cred, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, cred.Name)
	assert.Equal(t, "env-key", cred.DeployKey)
	assert.Equal(t, "https://api.example.com", cred.BackendURL)

	assert.ErrorIs(t, store.Store(&Credential{Name: "x", DeployKey: "y"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Name: "b", DeployKey: "key-b"}))
	require.NoError(t, store.Store(&Credential{Name: "a", DeployKey: "key-a"}))
	assert.True(t, store.Exists("a"))

	cred, err := store.Retrieve("b")
	require.NoError(t, err)
	assert.Equal(t, "key-b", cred.DeployKey)

	creds, err := store.List()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "a", creds[0].Name)

	require.NoError(t, store.Delete("a"))
	assert.ErrorIs(t, store.Delete("a"), ErrCredentialsNotFound)
	_, err = store.Retrieve("a")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	creds, err = store.List()
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestShowDeployKeyGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowDeployKeyGuide(&buf)
	assert.Contains(t, buf.String(), EnvDeployKey)
	assert.Contains(t, buf.String(), "auth login")
}
