package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plurcast/credstore/internal/accounts"
	"github.com/plurcast/credstore/internal/vault"
)

// readOnlyBackend rejects writes while serving reads from the embedded
// backend, modeling a store whose write path is broken.
type readOnlyBackend struct {
	*vault.PlainFileBackend
}

func (r *readOnlyBackend) Store(_, _, _, _ string) error {
	return vault.ErrUnavailable
}

type testVault struct {
	mgr      *vault.Manager
	plainDir string
}

// newTestVault builds a manager over [memory, plain-file] with an empty
// registry. Legacy credentials are seeded as real files in the plain dir.
func newTestVault(t *testing.T) *testVault {
	t.Helper()
	plainDir := t.TempDir()
	plain, err := vault.NewPlainFileBackend(plainDir)
	require.NoError(t, err)
	reg := accounts.Open(filepath.Join(t.TempDir(), "accounts.json"))
	return &testVault{
		mgr:      vault.NewManager([]vault.Backend{vault.NewMemoryBackend(), plain}, reg),
		plainDir: plainDir,
	}
}

func (v *testVault) seedLegacy(t *testing.T, service, key, value string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(v.plainDir, service+"."+key), []byte(value), 0600))
}

func (v *testVault) legacyValue(t *testing.T, service, key string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(v.plainDir, service+"."+key))
	require.NoError(t, err)
	return string(data)
}

func TestMigrateAll(t *testing.T) {
	t.Run("copies legacy values into the default account", func(t *testing.T) {
		tv := newTestVault(t)
		tv.seedLegacy(t, "nostr", "private_key", "nsec1xyz")
		engine := New(tv.mgr)

		report := engine.MigrateAll()
		require.Len(t, report.Entries, 1)
		assert.Equal(t, Entry{Service: "nostr", Key: "private_key", Outcome: OutcomeMigrated}, report.Entries[0])

		got, err := tv.mgr.GetAccount("nostr", "default", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "nsec1xyz", got)

		// The legacy file must survive untouched.
		assert.Equal(t, "nsec1xyz", tv.legacyValue(t, "nostr", "private_key"))
	})

	t.Run("registers the default account", func(t *testing.T) {
		tv := newTestVault(t)
		tv.seedLegacy(t, "nostr", "private_key", "v")

		New(tv.mgr).MigrateAll()
		assert.True(t, tv.mgr.Registry().Exists("nostr", "default"))
	})

	t.Run("second run reports already migrated", func(t *testing.T) {
		tv := newTestVault(t)
		tv.seedLegacy(t, "nostr", "private_key", "v")

		New(tv.mgr).MigrateAll()
		report := New(tv.mgr).MigrateAll()

		require.Len(t, report.Entries, 1)
		assert.Equal(t, OutcomeAlreadyMigrated, report.Entries[0].Outcome)
		assert.Equal(t, "v", tv.legacyValue(t, "nostr", "private_key"))
	})

	t.Run("existing account value is never overwritten", func(t *testing.T) {
		tv := newTestVault(t)
		tv.seedLegacy(t, "nostr", "private_key", "older")
		_, err := tv.mgr.SetAccount("nostr", "default", "private_key", "newer")
		require.NoError(t, err)

		report := New(tv.mgr).MigrateAll()
		require.Len(t, report.Entries, 1)
		assert.Equal(t, OutcomeAlreadyMigrated, report.Entries[0].Outcome)

		got, err := tv.mgr.GetAccount("nostr", "default", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "newer", got)
	})

	t.Run("nothing to migrate yields an empty report", func(t *testing.T) {
		tv := newTestVault(t)
		report := New(tv.mgr).MigrateAll()
		assert.Empty(t, report.Entries)
	})

	t.Run("report is ordered by service then key", func(t *testing.T) {
		tv := newTestVault(t)
		tv.seedLegacy(t, "nostr", "private_key", "a")
		tv.seedLegacy(t, "mastodon", "access_token", "b")
		tv.seedLegacy(t, "mastodon", "client_secret", "c")

		report := New(tv.mgr).MigrateAll()
		require.Len(t, report.Entries, 3)
		assert.Equal(t, "mastodon", report.Entries[0].Service)
		assert.Equal(t, "access_token", report.Entries[0].Key)
		assert.Equal(t, "mastodon", report.Entries[1].Service)
		assert.Equal(t, "client_secret", report.Entries[1].Key)
		assert.Equal(t, "nostr", report.Entries[2].Service)

		migrated, already, failed := report.Counts()
		assert.Equal(t, 3, migrated)
		assert.Zero(t, already)
		assert.Zero(t, failed)
	})

	t.Run("write failure is reported and legacy survives", func(t *testing.T) {
		plainDir := t.TempDir()
		plain, err := vault.NewPlainFileBackend(plainDir)
		require.NoError(t, err)
		reg := accounts.Open(filepath.Join(t.TempDir(), "accounts.json"))
		mgr := vault.NewManager([]vault.Backend{&readOnlyBackend{plain}}, reg)
		require.NoError(t, os.WriteFile(filepath.Join(plainDir, "nostr.private_key"), []byte("v"), 0600))

		report := New(mgr).MigrateAll()
		require.Len(t, report.Entries, 1)
		assert.Equal(t, OutcomeFailed, report.Entries[0].Outcome)
		assert.Contains(t, report.Entries[0].Reason, "store")

		data, err := os.ReadFile(filepath.Join(plainDir, "nostr.private_key"))
		require.NoError(t, err)
		assert.Equal(t, "v", string(data))
		assert.False(t, reg.Exists("nostr", "default"))
	})
}

func TestAutoMigrate(t *testing.T) {
	t.Run("runs at most once per pair", func(t *testing.T) {
		tv := newTestVault(t)
		tv.seedLegacy(t, "nostr", "private_key", "v")
		engine := New(tv.mgr)
		tv.mgr.SetAutoMigrate(engine.AutoMigrate)

		require.NoError(t, engine.AutoMigrate("nostr", "private_key"))
		got, err := tv.mgr.GetAccount("nostr", "default", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "v", got)

		// Remove the migrated copy; the memoized hook must not bring it
		// back on later accesses within the same process.
		_, err = tv.mgr.DeleteAccount("nostr", "default", "private_key")
		require.NoError(t, err)
		assert.False(t, tv.mgr.HasAccount("nostr", "default", "private_key"))

		// An explicit full migration does bring it back, because the
		// legacy value was never deleted.
		report := engine.MigrateAll()
		require.Len(t, report.Entries, 1)
		assert.Equal(t, OutcomeMigrated, report.Entries[0].Outcome)
		got, err = tv.mgr.GetAccount("nostr", "default", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("no legacy value is a cheap no-op", func(t *testing.T) {
		tv := newTestVault(t)
		assert.NoError(t, New(tv.mgr).AutoMigrate("nostr", "private_key"))
		assert.False(t, tv.mgr.HasAccount("nostr", "default", "private_key"))
	})

	t.Run("installed as the manager hook migrates transparently", func(t *testing.T) {
		tv := newTestVault(t)
		tv.seedLegacy(t, "nostr", "private_key", "nsec1xyz")
		engine := New(tv.mgr)
		tv.mgr.SetAutoMigrate(engine.AutoMigrate)

		// A plain read through the manager triggers the copy, including
		// the reentrant verification read inside the hook.
		got, err := tv.mgr.Get("nostr", "private_key")
		require.NoError(t, err)
		assert.Equal(t, "nsec1xyz", got)
		assert.True(t, tv.mgr.Registry().Exists("nostr", "default"))
		assert.Equal(t, "nsec1xyz", tv.legacyValue(t, "nostr", "private_key"))
	})

	t.Run("failure surfaces as an error once", func(t *testing.T) {
		plainDir := t.TempDir()
		plain, err := vault.NewPlainFileBackend(plainDir)
		require.NoError(t, err)
		reg := accounts.Open(filepath.Join(t.TempDir(), "accounts.json"))
		mgr := vault.NewManager([]vault.Backend{&readOnlyBackend{plain}}, reg)
		require.NoError(t, os.WriteFile(filepath.Join(plainDir, "nostr.private_key"), []byte("v"), 0600))

		engine := New(mgr)
		assert.Error(t, engine.AutoMigrate("nostr", "private_key"))
		// Attempted pairs are not retried automatically.
		assert.NoError(t, engine.AutoMigrate("nostr", "private_key"))
	})
}
