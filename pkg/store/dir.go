package store

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Dir stores each key as a file in a directory.
type Dir struct {
	root string
}

// NewDir creates root if needed and returns a store rooted there.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Open opens key for reading.
func (d *Dir) Open(key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(d.root, key))
}

// Create returns a writer for key. The previous contents stay in place
// until the writer is closed after a clean write.
func (d *Dir) Create(key string) (io.WriteCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(d.root, "."+key+"-*")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}
	return &replaceFile{File: f, path: filepath.Join(d.root, key)}, nil
}

// Keys lists the stored keys in lexical order.
func (d *Dir) Keys() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.Type().IsRegular() && validateKey(e.Name()) == nil {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (d *Dir) Close() error {
	return nil
}

// replaceFile writes to a temporary file and renames it over path on Close.
// After a failed write Close discards the temporary file instead.
type replaceFile struct {
	*os.File
	path   string
	err    error
	closed bool
}

func (f *replaceFile) Write(p []byte) (int, error) {
	n, err := f.File.Write(p)
	if err != nil && f.err == nil {
		f.err = err
	}
	return n, err
}

func (f *replaceFile) Close() error {
	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true

	tmp := f.Name()
	if err := f.File.Close(); err != nil && f.err == nil {
		f.err = err
	}
	if f.err != nil {
		os.Remove(tmp)
		return f.err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(f.path), err)
	}
	return nil
}
