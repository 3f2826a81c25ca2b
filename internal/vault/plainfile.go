package vault

import (
	"fmt"
	"os"
	"path/filepath"
)

// PlainFileBackend stores credentials as bare files, one per namespace,
// value as-is. It exists only so installations that predate encryption
// keep working; the manager logs a deprecation warning on every operation
// it serves, and it should sit last in the chain.
type PlainFileBackend struct {
	dir string
}

// NewPlainFileBackend creates the backend rooted at dir. The directory is
// created owner-only: the files are plaintext, the permissions are the
// only protection they get.
func NewPlainFileBackend(dir string) (*PlainFileBackend, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &PlainFileBackend{dir: dir}, nil
}

// Name returns the backend identifier.
func (b *PlainFileBackend) Name() string {
	return PlainFileName
}

// Store writes the raw value to the credential's file.
func (b *PlainFileBackend) Store(service, account, key, value string) error {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return err
	}
	return b.storeNS(ns, value)
}

// Retrieve reads the credential's file.
func (b *PlainFileBackend) Retrieve(service, account, key string) (string, error) {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return "", err
	}
	return b.retrieveNS(ns)
}

// Delete removes the credential's file.
func (b *PlainFileBackend) Delete(service, account, key string) error {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return err
	}
	return b.deleteNS(ns)
}

// Exists checks for the credential's file.
func (b *PlainFileBackend) Exists(service, account, key string) bool {
	ns, err := Namespace(service, account, key)
	if err != nil {
		return false
	}
	return b.existsNS(ns)
}

// ListAccounts enumerates accounts from the file names in the directory.
func (b *PlainFileBackend) ListAccounts(service, key string) ([]string, error) {
	namespaces, err := listNamespaces(b.dir, "")
	if err != nil {
		return nil, err
	}
	return accountsFromNamespaces(namespaces, service, key), nil
}

// Probe reports whether the directory is usable.
func (b *PlainFileBackend) Probe() error {
	if err := ensureDir(b.dir); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *PlainFileBackend) storeNS(ns, value string) error {
	path := b.path(ns)
	if err := rejectSymlink(path); err != nil {
		return err
	}
	return writeOwnerOnly(path, []byte(value))
}

func (b *PlainFileBackend) retrieveNS(ns string) (string, error) {
	path := b.path(ns)
	if err := rejectSymlink(path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func (b *PlainFileBackend) deleteNS(ns string) error {
	path := b.path(ns)
	if err := rejectSymlink(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func (b *PlainFileBackend) existsNS(ns string) bool {
	path := b.path(ns)
	if err := rejectSymlink(path); err != nil {
		return false
	}
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

func (b *PlainFileBackend) scanNamespaces() ([]string, error) {
	return listNamespaces(b.dir, "")
}

func (b *PlainFileBackend) path(ns string) string {
	return filepath.Join(b.dir, ns)
}
