package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/peterbourgon/diskv/v3"
)

// Diskv implements Provider on top of diskv, one file per key. The diskv read
// cache is disabled: it is only invalidated by this process's own writes, and
// the watcher relies on Get seeing files rewritten by other processes.
type Diskv struct {
	d    *diskv.Diskv
	root string
}

// NewDiskv opens a diskv store rooted at dir.
func NewDiskv(dir string) (*Diskv, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Diskv{
		d: diskv.New(diskv.Options{
			BasePath:     abs,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 0,
			TempDir:      filepath.Join(abs, ".tmp"),
		}),
		root: abs,
	}, nil
}

// Root returns the absolute data directory.
func (d *Diskv) Root() string {
	return d.root
}

// Get returns the value stored under key.
func (d *Diskv) Get(key string) ([]byte, error) {
	if err := ValidKey(key); err != nil {
		return nil, err
	}
	if !d.d.Has(key) {
		return nil, fmt.Errorf("storage: read %s: %w", key, ErrNotExist)
	}
	val, err := d.d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return val, nil
}

// Set writes value under key.
func (d *Diskv) Set(key string, value []byte) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	if err := d.d.Write(key, value); err != nil {
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	return nil
}

// Remove erases key when present.
func (d *Diskv) Remove(key string) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	if !d.d.Has(key) {
		return nil
	}
	if err := d.d.Erase(key); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys.
func (d *Diskv) Keys() ([]string, error) {
	var out []string
	for k := range d.d.Keys(nil) {
		if ValidKey(k) == nil {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op; diskv holds no open handles between calls.
func (d *Diskv) Close() error { return nil }
