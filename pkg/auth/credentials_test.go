package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range EnvVars {
		t.Setenv(name, "")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStoreWithPassphrase(path, "correct horse")
	require.NoError(t, err)

	_, err = store.Retrieve(DefaultProfile)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	list, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.Store(&Credential{Profile: "work", APIKey: "sk-work-0001"}))
	require.NoError(t, store.Store(&Credential{Profile: DefaultProfile, APIKey: "sk-default-0002"}))
	assert.True(t, store.Exists("work"))

	got, err := store.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "sk-work-0001", got.APIKey)

	list, err = store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, DefaultProfile, list[0].Profile)
	assert.Equal(t, "work", list[1].Profile)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "sk-work-0001", "key must not be stored in clear text")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	t.Run("wrong passphrase cannot read", func(t *testing.T) {
		other, err := NewEncryptedFileStoreWithPassphrase(path, "battery staple")
		require.NoError(t, err)
		_, err = other.Retrieve("work")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wrong passphrase")
	})

	require.NoError(t, store.Delete("work"))
	assert.ErrorIs(t, store.Delete("work"), ErrCredentialsNotFound)
	require.NoError(t, store.Delete(DefaultProfile))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is removed with the last profile")
}

func TestEncryptedFileStoreRejectsInvalid(t *testing.T) {
	_, err := NewEncryptedFileStoreWithPassphrase(filepath.Join(t.TempDir(), "c.enc"), "")
	require.Error(t, err)

	store, err := NewEncryptedFileStoreWithPassphrase(filepath.Join(t.TempDir(), "c.enc"), "pass")
	require.NoError(t, err)
	assert.ErrorIs(t, store.Store(nil), ErrInvalidCredentials)
	assert.ErrorIs(t, store.Store(&Credential{APIKey: "k"}), ErrInvalidCredentials)
	_, err = store.Retrieve("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPassphraseFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "from-env")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Profile: DefaultProfile, APIKey: "sk-env-pass"}))

	_, err = os.Stat(filepath.Join(dir, ".passphrase"))
	assert.True(t, os.IsNotExist(err), "no passphrase file when the env var is set")

	reopened, err := NewEncryptedFileStoreWithPassphrase(filepath.Join(dir, "credentials.enc"), "from-env")
	require.NoError(t, err)
	got, err := reopened.Retrieve(DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "sk-env-pass", got.APIKey)
}

func TestGeneratedPassphraseIsReused(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "")
	path := filepath.Join(dir, "credentials.enc")

	first, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Store(&Credential{Profile: DefaultProfile, APIKey: "sk-generated"}))

	second, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := second.Retrieve(DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "sk-generated", got.APIKey)
}

func TestEnvironmentStore(t *testing.T) {
	clearKeyEnv(t)
	store := NewEnvironmentStore()

	assert.False(t, store.Exists(DefaultProfile))
	_, err := store.Retrieve(DefaultProfile)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	t.Setenv("TWITTER_API_KEY", "sk-twitter")
	got, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "sk-twitter", got.APIKey)
	assert.Equal(t, DefaultProfile, got.Profile)

	t.Setenv("POSTSCOPE_API_KEY", "sk-postscope")
	got, err = store.Retrieve(DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "sk-postscope", got.APIKey, "earlier variables take precedence")

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, store.Store(&Credential{Profile: "x", APIKey: "y"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(DefaultProfile), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	_, err = store.Retrieve(DefaultProfile)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Store(&Credential{Profile: DefaultProfile, APIKey: "sk-keychain"}))
	assert.True(t, store.Exists(DefaultProfile))

	got, err := store.Retrieve(DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "sk-keychain", got.APIKey)

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(DefaultProfile))
	assert.ErrorIs(t, store.Delete(DefaultProfile), ErrCredentialsNotFound)
}

func TestManagerFallsBackAcrossStores(t *testing.T) {
	clearKeyEnv(t)

	failing := NewMockStore()
	failing.StoreError = errors.New("keychain locked")
	failing.RetrieveError = ErrCredentialsNotFound

	file, err := NewEncryptedFileStoreWithPassphrase(filepath.Join(t.TempDir(), "c.enc"), "pass")
	require.NoError(t, err)

	m := NewManagerWithStores(failing, file, NewEnvironmentStore())

	require.NoError(t, m.Store(&Credential{APIKey: "  sk-file-key \n"}))
	got, err := m.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "sk-file-key", got.APIKey, "key is trimmed and stored under the default profile")
	assert.False(t, got.LastModified.IsZero())

	key, err := m.ResolveAPIKey("", DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "sk-file-key", key)

	key, err = m.ResolveAPIKey(" sk-explicit ", DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "sk-explicit", key)

	require.NoError(t, m.Delete(DefaultProfile))
	_, err = m.ResolveAPIKey("", DefaultProfile)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	t.Setenv("SOCIALDATA_API_KEY", "sk-from-env")
	key, err = m.ResolveAPIKey("", DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", key)
}

func TestManagerStoreValidation(t *testing.T) {
	m, _ := NewMockManager()
	assert.ErrorIs(t, m.Store(nil), ErrInvalidCredentials)
	assert.Error(t, m.Store(&Credential{Profile: "p", APIKey: "   "}))

	empty := NewManagerWithStores()
	assert.ErrorIs(t, empty.Store(&Credential{APIKey: "k"}), ErrStoreUnavailable)
}

func TestManagerListSortsProfiles(t *testing.T) {
	m, store := NewMockManager()
	for _, p := range []string{"zeta", "alpha", DefaultProfile} {
		require.NoError(t, m.Store(&Credential{Profile: p, APIKey: "sk-" + p + "-123456"}))
	}
	assert.Equal(t, 3, store.Count())

	list, err := m.List()
	require.NoError(t, err)
	var names []string
	for _, c := range list {
		names = append(names, c.Profile)
	}
	assert.Equal(t, []string{"alpha", DefaultProfile, "zeta"}, names)

	assert.ErrorIs(t, m.Delete("missing"), ErrCredentialsNotFound)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "********", MaskKey(""))
	assert.Equal(t, "********", MaskKey("12345678"))
	assert.Equal(t, "sk-a...wxyz", MaskKey("sk-abcdefghijklmnopqrstuvwxyz"))

	cred := &Credential{Profile: "p", APIKey: "sk-abcdefghijklmnop"}
	masked := Sanitize(cred)
	assert.Equal(t, "sk-a...mnop", masked.APIKey)
	assert.Equal(t, "sk-abcdefghijklmnop", cred.APIKey, "original is untouched")
	assert.Nil(t, Sanitize(nil))
}

func TestShowAPIKeyGuide(t *testing.T) {
	var b strings.Builder
	ShowAPIKeyGuide(&b)
	out := b.String()
	assert.Contains(t, out, "postscope auth login")
	assert.Contains(t, out, EnvVars[0])
}
