package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"purpaws/internal/storage"
)

// ErrBlobFailure is returned by MemoryStore operations set to fail.
var ErrBlobFailure = errors.New("blob store unavailable")

// MemoryStore is an in-memory blob store for tests.
type MemoryStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	next     int
	FailPut  bool
	FailCopy bool
	Deleted  []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, prefix string, r io.Reader, _ int64, _ string) (string, error) {
	if m.FailPut {
		return "", ErrBlobFailure
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	key := fmt.Sprintf("%s/blob-%d.png", prefix, m.next)
	m.blobs[key] = data
	return key, nil
}

func (m *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Copy(_ context.Context, srcKey, prefix string) (string, error) {
	if m.FailCopy {
		return "", ErrBlobFailure
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[srcKey]
	if !ok {
		return "", storage.ErrNotFound
	}
	m.next++
	key := fmt.Sprintf("%s/blob-%d.png", prefix, m.next)
	m.blobs[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

// Seed stores data under an explicit key.
func (m *MemoryStore) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
}

// Has reports whether key is present.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

// Len counts stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// PNG returns a small valid PNG.
func PNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
