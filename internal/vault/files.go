package vault

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// rejectSymlink stats path without following links and fails if a symlink
// sits there. File backends call this before every open so a link planted
// at a credential path cannot redirect the read or write somewhere else. A
// missing path is fine.
func rejectSymlink(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("%w: %s", ErrSymlink, path)
	}
	return nil
}

// ensureDir creates dir with owner-only permissions.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// writeOwnerOnly writes data to path with 0600 permissions. The mode is
// also enforced on pre-existing files, since os.WriteFile only applies it
// on creation.
func writeOwnerOnly(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to restrict permissions on %s: %w", path, err)
	}
	return nil
}

// listNamespaces returns the valid namespaces stored as files in dir,
// sorted. ext (may be empty) is stripped before parsing; files that do not
// parse as namespaces are ignored rather than treated as errors, so a
// stray file cannot break listings.
func listNamespaces(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var namespaces []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext != "" {
			if !strings.HasSuffix(name, ext) {
				continue
			}
			name = strings.TrimSuffix(name, ext)
		}
		if _, ok := splitNamespace(name); !ok {
			continue
		}
		namespaces = append(namespaces, name)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// accountsFromNamespaces filters namespaces down to the accounts that hold
// key under service.
func accountsFromNamespaces(namespaces []string, service, key string) []string {
	var accounts []string
	for _, ns := range namespaces {
		parts, ok := splitNamespace(ns)
		if !ok || len(parts) != 3 {
			continue
		}
		if parts[0] == service && parts[2] == key {
			accounts = append(accounts, parts[1])
		}
	}
	sort.Strings(accounts)
	return accounts
}
