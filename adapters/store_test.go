package adapters

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/anchorpoint-labs/apibridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	s, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, store.Save(apibridge.NewSession("tok", "ref")))
	s, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "tok", s.AccessToken)

	// Load returns a copy; mutating it must not leak into the store.
	s.AccessToken = "tampered"
	again, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", again.AccessToken)

	require.NoError(t, store.Clear())
	s, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestMemoryStoreSaveNilClears(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(apibridge.NewSession("tok", "")))
	require.NoError(t, store.Save(nil))

	s, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(path, "admin-panel")
	require.NoError(t, err)
	defer store.Close()

	s, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, s)

	session := &apibridge.Session{
		AccessToken:  "tok",
		RefreshToken: "ref",
		IssuedAt:     time.Now().Truncate(time.Millisecond),
		ExpiresIn:    time.Hour,
	}
	require.NoError(t, store.Save(session))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok", loaded.AccessToken)
	assert.Equal(t, "ref", loaded.RefreshToken)
	assert.Equal(t, session.IssuedAt.UnixMilli(), loaded.IssuedAt.UnixMilli())
	assert.Equal(t, time.Hour, loaded.ExpiresIn)

	// Save replaces wholesale.
	require.NoError(t, store.Save(&apibridge.Session{AccessToken: "tok2"}))
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok2", loaded.AccessToken)
	assert.Empty(t, loaded.RefreshToken)

	require.NoError(t, store.Clear())
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSQLiteStoreScopesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	a, err := NewSQLiteStore(path, "tab-a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteStore(path, "tab-b")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Save(apibridge.NewSession("tok-a", "")))

	s, err := b.Load()
	require.NoError(t, err)
	assert.Nil(t, s, "scopes must not observe each other's sessions")

	require.NoError(t, b.Save(apibridge.NewSession("tok-b", "")))
	require.NoError(t, a.Clear())

	s, err = b.Load()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "tok-b", s.AccessToken)
}

func TestSQLiteStoreRequiresScope(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), "")
	assert.Error(t, err)
}

func TestSQLiteStoreSaveNilClears(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), "scope")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(apibridge.NewSession("tok", "")))
	require.NoError(t, store.Save(nil))

	s, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, s)
}
