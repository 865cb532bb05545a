// Package storage defines the durable key/value abstraction that mirrors
// browser local storage: string keys, opaque values, whole-value writes.
package storage

import (
	"fmt"
	"io/fs"
	"regexp"
)

// ErrNotExist is returned by Get when the key has never been set or was removed.
var ErrNotExist = fs.ErrNotExist

// Backend names accepted by Open.
const (
	BackendFS     = "fs"
	BackendDiskv  = "diskv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Provider is the interface for durable key/value operations.
type Provider interface {
	// Get returns the value stored under key, or ErrNotExist.
	Get(key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys lists every stored key.
	Keys() ([]string, error)
	// Close releases backend resources.
	Close() error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidKey rejects keys that could not be stored as a plain file name.
func ValidKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}

// Open creates the provider for backend rooted at path.
// For fs and diskv path is a directory; for sqlite it is the database file.
func Open(backend, path string) (Provider, error) {
	switch backend {
	case BackendFS, "":
		return NewFS(path)
	case BackendDiskv:
		return NewDiskv(path)
	case BackendSQLite:
		return NewSQLite(path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// Watchable reports whether backend keeps one plain file per key under its
// root, so that external edits can be observed with a file watcher.
func Watchable(backend string) bool {
	return backend == BackendFS || backend == "" || backend == BackendDiskv
}
