package vault

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plurcast/credstore/internal/secure"
)

// testWorkFactor keeps scrypt cheap in tests; the default cost would slow
// every round trip by a second or more.
const testWorkFactor = 10

func newTestEncBackend(t *testing.T, passphrase string) *EncryptedFileBackend {
	t.Helper()
	b, err := NewEncryptedFileBackend(t.TempDir(), secure.NewPassphrase([]byte(passphrase)), nil)
	require.NoError(t, err)
	b.workFactor = testWorkFactor
	return b
}

func TestEncryptedFileBackend(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		b := newTestEncBackend(t, "correct horse battery")
		require.NoError(t, b.Store("nostr", "default", "private_key", "nsec1xyz"))

		got, err := b.Retrieve("nostr", "default", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "nsec1xyz", got)
	})

	t.Run("value is not stored in the clear", func(t *testing.T) {
		b := newTestEncBackend(t, "correct horse battery")
		require.NoError(t, b.Store("nostr", "default", "private_key", "nsec1xyz"))

		data, err := os.ReadFile(filepath.Join(b.dir, "nostr.default.private_key.age"))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "nsec1xyz")
	})

	t.Run("files are owner read write only", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("file modes are not meaningful on windows")
		}
		b := newTestEncBackend(t, "correct horse battery")
		require.NoError(t, b.Store("nostr", "default", "private_key", "nsec1xyz"))

		info, err := os.Stat(filepath.Join(b.dir, "nostr.default.private_key.age"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		dirInfo, err := os.Stat(b.dir)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
	})

	t.Run("accounts are isolated", func(t *testing.T) {
		b := newTestEncBackend(t, "correct horse battery")
		require.NoError(t, b.Store("nostr", "default", "private_key", "main-key"))
		require.NoError(t, b.Store("nostr", "test", "private_key", "test-key"))

		got, err := b.Retrieve("nostr", "default", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "main-key", got)

		got, err = b.Retrieve("nostr", "test", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "test-key", got)
	})

	t.Run("missing credential is not found", func(t *testing.T) {
		b := newTestEncBackend(t, "correct horse battery")
		_, err := b.Retrieve("nostr", "default", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing credential never prompts", func(t *testing.T) {
		b, err := NewEncryptedFileBackend(t.TempDir(), nil, func() (string, error) {
			t.Fatal("prompt must not run for an absent credential")
			return "", nil
		})
		require.NoError(t, err)

		_, err = b.Retrieve("nostr", "default", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, b.Exists("nostr", "default", "missing"))
	})

	t.Run("wrong passphrase is a decryption failure", func(t *testing.T) {
		dir := t.TempDir()
		writer, err := NewEncryptedFileBackend(dir, secure.NewPassphrase([]byte("correct horse battery")), nil)
		require.NoError(t, err)
		writer.workFactor = testWorkFactor
		require.NoError(t, writer.Store("nostr", "default", "private_key", "nsec1xyz"))

		reader, err := NewEncryptedFileBackend(dir, secure.NewPassphrase([]byte("wrong passphrase")), nil)
		require.NoError(t, err)
		reader.workFactor = testWorkFactor

		_, err = reader.Retrieve("nostr", "default", "private_key")
		assert.ErrorIs(t, err, ErrDecryptFailed)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("corrupted file is a decryption failure", func(t *testing.T) {
		b := newTestEncBackend(t, "correct horse battery")
		path := filepath.Join(b.dir, "nostr.default.private_key.age")
		require.NoError(t, os.WriteFile(path, []byte("not an age file"), 0600))

		_, err := b.Retrieve("nostr", "default", "private_key")
		assert.ErrorIs(t, err, ErrDecryptFailed)
	})

	t.Run("weak passphrase is rejected at write", func(t *testing.T) {
		b := newTestEncBackend(t, "short")
		err := b.Store("nostr", "default", "private_key", "nsec1xyz")
		assert.ErrorIs(t, err, ErrWeakPassphrase)

		// Nothing may be written on rejection.
		assert.False(t, b.Exists("nostr", "default", "private_key"))
	})

	t.Run("eight characters is the floor", func(t *testing.T) {
		b := newTestEncBackend(t, "12345678")
		assert.NoError(t, b.Store("nostr", "default", "private_key", "v"))
	})

	t.Run("delete removes the file", func(t *testing.T) {
		b := newTestEncBackend(t, "correct horse battery")
		require.NoError(t, b.Store("nostr", "default", "private_key", "v"))
		require.NoError(t, b.Delete("nostr", "default", "private_key"))

		assert.False(t, b.Exists("nostr", "default", "private_key"))
		assert.ErrorIs(t, b.Delete("nostr", "default", "private_key"), ErrNotFound)
	})

	t.Run("list accounts from file names", func(t *testing.T) {
		b := newTestEncBackend(t, "correct horse battery")
		require.NoError(t, b.Store("nostr", "work", "private_key", "a"))
		require.NoError(t, b.Store("nostr", "default", "private_key", "b"))
		require.NoError(t, b.Store("nostr", "default", "other_key", "c"))
		require.NoError(t, b.Store("mastodon", "default", "private_key", "d"))

		got, err := b.ListAccounts("nostr", "private_key")
		require.NoError(t, err)
		assert.Equal(t, []string{"default", "work"}, got)
	})

	t.Run("no passphrase source is unavailable", func(t *testing.T) {
		b, err := NewEncryptedFileBackend(t.TempDir(), nil, nil)
		require.NoError(t, err)

		err = b.Store("nostr", "default", "private_key", "v")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, b.Probe(), ErrUnavailable)
	})

	t.Run("prompt runs once and is cached", func(t *testing.T) {
		calls := 0
		b, err := NewEncryptedFileBackend(t.TempDir(), nil, func() (string, error) {
			calls++
			return "prompted passphrase", nil
		})
		require.NoError(t, err)
		b.workFactor = testWorkFactor

		require.NoError(t, b.Store("nostr", "default", "private_key", "v1"))
		require.NoError(t, b.Store("nostr", "default", "other_key", "v2"))
		_, err = b.Retrieve("nostr", "default", "private_key")
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
	})
}

func TestEncryptedFileBackendSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}

	setup := func(t *testing.T) (*EncryptedFileBackend, string) {
		t.Helper()
		b := newTestEncBackend(t, "correct horse battery")
		target := filepath.Join(t.TempDir(), "target")
		require.NoError(t, os.WriteFile(target, []byte("elsewhere"), 0600))
		link := filepath.Join(b.dir, "nostr.default.private_key.age")
		require.NoError(t, os.Symlink(target, link))
		return b, target
	}

	t.Run("store refuses to follow", func(t *testing.T) {
		b, target := setup(t)
		err := b.Store("nostr", "default", "private_key", "v")
		assert.ErrorIs(t, err, ErrSymlink)

		// The link target must be untouched.
		data, rerr := os.ReadFile(target)
		require.NoError(t, rerr)
		assert.Equal(t, "elsewhere", string(data))
	})

	t.Run("retrieve refuses to follow", func(t *testing.T) {
		b, _ := setup(t)
		_, err := b.Retrieve("nostr", "default", "private_key")
		assert.ErrorIs(t, err, ErrSymlink)
	})

	t.Run("delete refuses to follow", func(t *testing.T) {
		b, target := setup(t)
		assert.ErrorIs(t, b.Delete("nostr", "default", "private_key"), ErrSymlink)
		_, err := os.Stat(target)
		assert.NoError(t, err)
	})

	t.Run("exists treats a symlink as absent", func(t *testing.T) {
		b, _ := setup(t)
		assert.False(t, b.Exists("nostr", "default", "private_key"))
	})
}
