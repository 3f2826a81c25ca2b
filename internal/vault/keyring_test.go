package vault

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeyringBackend(items ...keyring.Item) *KeyringBackend {
	return NewKeyringBackendWithRing(keyring.NewArrayKeyring(items))
}

func TestKeyringBackend(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		b := newTestKeyringBackend()
		require.NoError(t, b.Store("nostr", "default", "private_key", "nsec1xyz"))

		got, err := b.Retrieve("nostr", "default", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "nsec1xyz", got)
		assert.True(t, b.Exists("nostr", "default", "private_key"))
	})

	t.Run("missing credential is not found", func(t *testing.T) {
		b := newTestKeyringBackend()
		_, err := b.Retrieve("nostr", "default", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, b.Exists("nostr", "default", "missing"))
	})

	t.Run("delete verifies presence", func(t *testing.T) {
		b := newTestKeyringBackend()
		require.NoError(t, b.Store("nostr", "default", "private_key", "v"))
		require.NoError(t, b.Delete("nostr", "default", "private_key"))
		assert.ErrorIs(t, b.Delete("nostr", "default", "private_key"), ErrNotFound)
	})

	t.Run("list accounts is a documented no-op", func(t *testing.T) {
		b := newTestKeyringBackend()
		require.NoError(t, b.Store("nostr", "default", "private_key", "a"))
		require.NoError(t, b.Store("nostr", "work", "private_key", "b"))

		// OS keyrings cannot enumerate by prefix, so listing reports
		// nothing even when entries exist; the registry covers for it.
		got, err := b.ListAccounts("nostr", "private_key")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("scan reports stored namespaces", func(t *testing.T) {
		b := newTestKeyringBackend(
			keyring.Item{Key: "nostr.private_key", Data: []byte("legacy")},
			keyring.Item{Key: "nostr.default.private_key", Data: []byte("current")},
			keyring.Item{Key: "unrelated junk", Data: []byte("x")},
		)
		got, err := b.scanNamespaces()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"nostr.private_key", "nostr.default.private_key"}, got)
	})

	t.Run("unopened keyring reports unavailable", func(t *testing.T) {
		b := &KeyringBackend{openErr: errors.New("no secret service")}

		assert.ErrorIs(t, b.Store("nostr", "default", "k", "v"), ErrUnavailable)
		_, err := b.Retrieve("nostr", "default", "k")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, b.Delete("nostr", "default", "k"), ErrUnavailable)
		assert.False(t, b.Exists("nostr", "default", "k"))
		assert.ErrorIs(t, b.Probe(), ErrUnavailable)
	})

	t.Run("probe succeeds on a live ring", func(t *testing.T) {
		assert.NoError(t, newTestKeyringBackend().Probe())
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout", err: errors.New("org.freedesktop.DBus: request timeout"), want: true},
		{name: "no reply", err: errors.New("did not receive a reply"), want: true},
		{name: "busy daemon", err: errors.New("resource busy"), want: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "not found", err: keyring.ErrKeyNotFound, want: false},
		{name: "permission denied", err: errors.New("permission denied"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
