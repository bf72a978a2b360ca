package client

import (
	"path/filepath"
	"testing"

	"github.com/buildwise/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "buildwise.json"))
}

func TestFileStore(t *testing.T) {
	fs := tempStore(t)

	_, ok, err := fs.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Set("key", "value"))
	v, ok, err := fs.Get("key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	require.NoError(t, fs.Delete("key"))
	_, ok, err = fs.Get("key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionLifecycle(t *testing.T) {
	fs := tempStore(t)

	t.Run("empty store starts unauthenticated", func(t *testing.T) {
		s := NewSession(fs)
		assert.Equal(t, StateUnauthenticated, s.State())
		assert.Empty(t, s.Token())
		assert.Nil(t, s.User())
	})

	user := &models.User{ID: primitive.NewObjectID(), Email: "pm@example.com", Role: models.RoleManager}

	t.Run("establish persists and authenticates", func(t *testing.T) {
		s := NewSession(fs)
		require.NoError(t, s.establish("token-abc", user))
		assert.Equal(t, StateAuthenticated, s.State())
		assert.Equal(t, "token-abc", s.Token())
	})

	t.Run("restart trusts stored credential without a network call", func(t *testing.T) {
		s := NewSession(fs)
		assert.Equal(t, StateAuthenticated, s.State())
		assert.Equal(t, "token-abc", s.Token())
		require.NotNil(t, s.User())
		assert.Equal(t, user.Email, s.User().Email)
	})

	t.Run("clear wipes credential and survives restart", func(t *testing.T) {
		s := NewSession(fs)
		s.Clear()
		assert.Equal(t, StateUnauthenticated, s.State())

		again := NewSession(fs)
		assert.Equal(t, StateUnauthenticated, again.State())
		assert.Empty(t, again.Token())
	})
}

func TestSessionCorruptStore(t *testing.T) {
	fs := tempStore(t)
	require.NoError(t, fs.Set(sessionKey, "{not json"))

	s := NewSession(fs)
	assert.Equal(t, StateUnauthenticated, s.State())

	// The unreadable entry is discarded.
	_, ok, err := fs.Get(sessionKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestViewPreference(t *testing.T) {
	fs := tempStore(t)
	s := NewSession(fs)

	t.Run("defaults to manager", func(t *testing.T) {
		assert.Equal(t, ViewManager, s.ViewPreference())
	})

	t.Run("persists independently of the session", func(t *testing.T) {
		require.NoError(t, s.SetViewPreference(ViewInvestor))
		assert.Equal(t, ViewInvestor, s.ViewPreference())

		s.Clear()
		again := NewSession(fs)
		assert.Equal(t, ViewInvestor, again.ViewPreference())
	})

	t.Run("toggle flips between the two views", func(t *testing.T) {
		require.NoError(t, s.SetViewPreference(ViewManager))
		next, err := s.ToggleViewPreference()
		require.NoError(t, err)
		assert.Equal(t, ViewInvestor, next)

		next, err = s.ToggleViewPreference()
		require.NoError(t, err)
		assert.Equal(t, ViewManager, next)
	})

	t.Run("unknown value falls back to manager", func(t *testing.T) {
		require.NoError(t, fs.Set(viewKey, "accountant"))
		assert.Equal(t, ViewManager, s.ViewPreference())
	})
}
