// Package store provides persistent backends for recorded routines. Keys
// are short names such as "a3" or "p0"; a missing key reads as
// fs.ErrNotExist.
package store

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxKeyLength bounds keys, matching the flash file system's name limit.
const MaxKeyLength = 8

// ErrInvalidKey is returned for empty, overlong or path-like keys.
var ErrInvalidKey = errors.New("invalid key")

func validateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return nil
}

// Backend is a store that can also enumerate and release its keys.
type Backend interface {
	Open(key string) (io.ReadCloser, error)
	Create(key string) (io.WriteCloser, error)
	Keys() ([]string, error)
	Close() error
}

// New opens the named backend ("dir", "sqlite" or "memory") at path.
func New(backend, path string) (Backend, error) {
	switch backend {
	case "dir":
		return NewDir(path)
	case "sqlite":
		return OpenSQLite(path)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}
