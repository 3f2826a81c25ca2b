package accounts

import (
	"errors"
	"fmt"
)

// Default is the account every service starts out with. Callers that never
// opt into multiple accounts only ever touch this one.
const Default = "default"

// maxNameLen bounds account names so they stay usable as path and keyring
// namespace segments everywhere.
const maxNameLen = 64

// ErrInvalidName indicates an account name that fails validation
var ErrInvalidName = errors.New("invalid account name")

// ValidateName checks that name is 1-64 characters drawn from
// [A-Za-z0-9_-]. Names are embedded in storage namespaces and file names,
// so anything outside that set (in particular the "." delimiter and path
// separators) is rejected.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, name, maxNameLen)
	}
	for i := 0; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, rune(name[i]))
		}
	}
	return nil
}

func isNameChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}
