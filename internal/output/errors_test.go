package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCLIError(t *testing.T) {
	err := NewCLIError(ExitNotFound, "credential not found")
	assert.Equal(t, ExitNotFound, err.ExitCode)
	assert.Equal(t, "credential not found", err.Message)
	assert.Empty(t, err.Hint)
}

func TestCLIErrorError(t *testing.T) {
	err := &CLIError{Message: "something broke"}
	assert.Equal(t, "something broke", err.Error())
}

func TestCLIErrorWithHint(t *testing.T) {
	err := NewCLIError(ExitNoStore, "no credential store available")
	result := err.WithHint("Run: credstore doctor")

	// Fluent builder returns same pointer
	assert.Same(t, err, result)
	assert.Equal(t, "Run: credstore doctor", err.Hint)
}

func TestCLIErrorImplementsError(t *testing.T) {
	var err error = NewCLIError(ExitGeneral, "test")
	assert.Equal(t, "test", err.Error())
}

func TestExitCodesAreDistinct(t *testing.T) {
	codes := []int{ExitOK, ExitGeneral, ExitUsage, ExitNotFound, ExitConflict, ExitNoStore, ExitConfigError}
	seen := make(map[int]bool)
	for _, c := range codes {
		assert.False(t, seen[c], "exit code %d is reused", c)
		seen[c] = true
	}
}
