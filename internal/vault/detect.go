package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"

	"github.com/plurcast/credstore/internal/secure"
)

// ChainConfig describes the backend chain to build.
type ChainConfig struct {
	// Order lists backend names by priority. Unknown names fail.
	Order []string
	// ServicePrefix scopes keyring entries to this tool.
	ServicePrefix string
	// EncryptedDir and PlainDir root the two file backends.
	EncryptedDir string
	PlainDir     string
	// Passphrase seeds the encrypted backend; nil means prompt on demand.
	Passphrase *secure.Passphrase
	// Prompt supplies a passphrase interactively. Nil disables prompting.
	Prompt PromptFunc
}

// NewChain constructs backends in the configured priority order. The
// keyring backend is always included when requested, even in environments
// where it is likely dead, because availability is probed per operation
// and the manager falls through on its own. A warning is printed once so
// the fallback is not silent.
func NewChain(cfg ChainConfig) ([]Backend, error) {
	backends := make([]Backend, 0, len(cfg.Order))
	for _, name := range cfg.Order {
		switch name {
		case KeyringName:
			if IsWSL() || IsHeadless() {
				warnOnce("Detected WSL/headless environment, the OS keyring is likely unavailable; credentials will fall back to encrypted file storage")
			}
			backends = append(backends, NewKeyringBackend(cfg.ServicePrefix))
		case EncryptedFileName:
			b, err := NewEncryptedFileBackend(cfg.EncryptedDir, cfg.Passphrase, cfg.Prompt)
			if err != nil {
				return nil, err
			}
			backends = append(backends, b)
		case PlainFileName:
			b, err := NewPlainFileBackend(cfg.PlainDir)
			if err != nil {
				return nil, err
			}
			backends = append(backends, b)
		case MemoryName:
			backends = append(backends, NewMemoryBackend())
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("backend chain is empty")
	}
	return backends, nil
}

// warningShown checks if the fallback warning has already been shown.
// Uses a marker file in the data directory to avoid repeating on every command.
func warningShown() bool {
	_, err := os.Stat(warningMarkerPath())
	return err == nil
}

// markWarningShown creates the marker file so the warning isn't repeated.
func markWarningShown() {
	_ = os.MkdirAll(filepath.Dir(warningMarkerPath()), 0700)
	_ = os.WriteFile(warningMarkerPath(), []byte("1"), 0600)
}

func warningMarkerPath() string {
	return filepath.Join(xdg.DataHome, "plurcast", ".keyring-warning-shown")
}

// quietMode returns true if the user has suppressed warnings via CREDSTORE_QUIET.
func quietMode() bool {
	return os.Getenv("CREDSTORE_QUIET") == "1" || os.Getenv("CREDSTORE_QUIET") == "true"
}

// warnOnce prints a message to stderr, but only the first time.
// Subsequent invocations are suppressed via a marker file.
// Set CREDSTORE_QUIET=1 to suppress entirely.
func warnOnce(msg string) {
	if quietMode() || warningShown() {
		return
	}
	fmt.Fprintln(os.Stderr, msg)
	markWarningShown()
}

// IsWSL returns true if running under Windows Subsystem for Linux.
func IsWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}

	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// IsHeadless returns true if running in a headless environment (no display server).
// Only applicable on Linux; macOS and Windows are assumed to have GUI.
func IsHeadless() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	// Check for X11 or Wayland display
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}
