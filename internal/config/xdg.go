package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// ConfigDir returns the XDG-compliant config directory shared by the
// plurcast tools. Typically ~/.config/plurcast/ on Linux.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "plurcast")
}

// ConfigPath returns the full path to this tool's config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "credstore.json5")
}

// DataDir returns the XDG-compliant data directory.
// Typically ~/.local/share/plurcast/ on Linux.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "plurcast")
}

// DefaultEncryptedDir is where the encrypted-file backend keeps its files
// unless configured otherwise.
func DefaultEncryptedDir() string {
	return filepath.Join(DataDir(), "vault")
}

// DefaultPlainDir is where the legacy plaintext backend keeps its files
// unless configured otherwise.
func DefaultPlainDir() string {
	return filepath.Join(DataDir(), "secrets")
}

// DefaultStatePath is the account registry state file location unless
// configured otherwise.
func DefaultStatePath() string {
	return filepath.Join(ConfigDir(), "accounts.json")
}
