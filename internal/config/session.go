package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	sessionKeyPath = "lastfm.session_key"
	apiKeyPath     = "lastfm.api_key"
)

// SessionFile persists the session key inside a TOML config file. Saving
// rewrites only lastfm.session_key and keeps every other key of the file.
// Comments are not preserved.
type SessionFile struct {
	mu   sync.Mutex
	path string
}

// NewSessionFile returns a SessionFile writing to path.
func NewSessionFile(path string) *SessionFile {
	return &SessionFile{path: path}
}

// Path returns the backing file.
func (f *SessionFile) Path() string {
	return f.path
}

// LoadSessionKey returns the stored key, or "" if the file or key is missing.
func (f *SessionFile) LoadSessionKey() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k, err := f.read()
	if err != nil {
		return "", err
	}
	return k.String(sessionKeyPath), nil
}

// SaveSessionKey writes key to the file; "" clears it.
func (f *SessionFile) SaveSessionKey(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	k, err := f.read()
	if err != nil {
		return err
	}
	if err := k.Set(sessionKeyPath, key); err != nil {
		return fmt.Errorf("set %s: %w", sessionKeyPath, err)
	}

	data, err := k.Marshal(toml.Parser())
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	return writeFileAtomic(f.path, data)
}

func (f *SessionFile) read() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
		return k, nil
	}
	if err := k.Load(file.Provider(f.path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return k, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
