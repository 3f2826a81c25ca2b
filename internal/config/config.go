package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Config holds the CLI configuration. Every field is optional; unset
// fields fall back to the Resolved* defaults.
type Config struct {
	// ServicePrefix scopes keyring entries and lets several installs
	// share one OS keyring without colliding.
	ServicePrefix string `json:"service_prefix,omitempty"`
	// Backends is the chain in priority order.
	Backends []string `json:"backends,omitempty"`
	// EncryptedDir and PlainDir root the file backends.
	EncryptedDir string `json:"encrypted_dir,omitempty"`
	PlainDir     string `json:"plain_dir,omitempty"`
	// StateFile is the account registry location.
	StateFile string `json:"state_file,omitempty"`
	// DefaultOutput picks the output format when --output is not given.
	DefaultOutput string `json:"default_output,omitempty"`
}

// Load reads config from the XDG path, returning defaults if no file exists.
func Load() (*Config, error) {
	path := ConfigPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to the XDG config path.
func (c *Config) Save() error {
	path := ConfigPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON (not JSON5 for writing - JSON is valid JSON5)
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ResolvedServicePrefix returns the keyring service prefix to use.
func (c *Config) ResolvedServicePrefix() string {
	if c.ServicePrefix != "" {
		return c.ServicePrefix
	}
	return "plurcast"
}

// ResolvedBackends returns the backend chain to build.
func (c *Config) ResolvedBackends() []string {
	if len(c.Backends) > 0 {
		return c.Backends
	}
	return DefaultOrder()
}

// ResolvedEncryptedDir returns the encrypted-file backend directory.
func (c *Config) ResolvedEncryptedDir() string {
	if c.EncryptedDir != "" {
		return c.EncryptedDir
	}
	return DefaultEncryptedDir()
}

// ResolvedPlainDir returns the plaintext backend directory.
func (c *Config) ResolvedPlainDir() string {
	if c.PlainDir != "" {
		return c.PlainDir
	}
	return DefaultPlainDir()
}

// ResolvedStateFile returns the account registry location.
func (c *Config) ResolvedStateFile() string {
	if c.StateFile != "" {
		return c.StateFile
	}
	return DefaultStatePath()
}

// Get retrieves a config value by key name.
func (c *Config) Get(key string) (string, error) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !tagMatches(field.Tag.Get("json"), key) {
			continue
		}
		if field.Type.Kind() == reflect.Slice {
			return strings.Join(v.Field(i).Interface().([]string), ","), nil
		}
		return fmt.Sprintf("%v", v.Field(i).Interface()), nil
	}

	return "", fmt.Errorf("unknown config key: %s", key)
}

// Set sets a config value by key name and saves. List-valued keys take a
// comma-separated string.
func (c *Config) Set(key, value string) error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !tagMatches(field.Tag.Get("json"), key) {
			continue
		}
		if field.Type.Kind() == reflect.Slice {
			v.Field(i).Set(reflect.ValueOf(splitList(value)))
		} else {
			v.Field(i).SetString(value)
		}
		return c.Save()
	}

	return fmt.Errorf("unknown config key: %s", key)
}

// Unset sets a config value to its zero value and saves.
func (c *Config) Unset(key string) error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !tagMatches(field.Tag.Get("json"), key) {
			continue
		}
		v.Field(i).Set(reflect.Zero(field.Type))
		return c.Save()
	}

	return fmt.Errorf("unknown config key: %s", key)
}

func tagMatches(jsonTag, key string) bool {
	return jsonTag == key || jsonTag == key+",omitempty"
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
