package store

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync"
)

// Memory keeps routines in a map. Writes become visible on Close.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	opens map[string]int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		opens: make(map[string]int),
	}
}

// Open returns a reader over a copy of key's bytes.
func (m *Memory) Open(key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", key, fs.ErrNotExist)
	}
	m.opens[key]++
	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

// Create returns a writer that replaces key when closed.
func (m *Memory) Create(key string) (io.WriteCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return &pendingWrite{commit: func(data []byte) error {
		m.Put(key, data)
		return nil
	}}, nil
}

// Put stores data under key directly.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = bytes.Clone(data)
}

// Get returns a copy of key's bytes.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	return bytes.Clone(data), ok
}

// Opens reports how many times key has been opened for reading.
func (m *Memory) Opens(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[key]
}

// Keys lists the stored keys in lexical order.
func (m *Memory) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// pendingWrite buffers a write and hands it to commit on Close.
type pendingWrite struct {
	buf    bytes.Buffer
	commit func([]byte) error
	closed bool
}

func (w *pendingWrite) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fs.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *pendingWrite) Close() error {
	if w.closed {
		return fs.ErrClosed
	}
	w.closed = true
	return w.commit(w.buf.Bytes())
}
