package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process memory. Used when no bucket is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://objects"
	}
	return &MemoryStore{
		objects: make(map[string]memObject),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (m *MemoryStore) Put(_ context.Context, key string, body io.ReadSeeker, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	m.mu.Lock()
	m.objects[key] = memObject{data: data, contentType: contentType}
	m.mu.Unlock()

	return m.PublicURL(key), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s?expires=%d", m.PublicURL(key), expires), nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return m.baseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

// Has reports whether key is stored
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// KeyFromURL maps a public URL back to its key
func (m *MemoryStore) KeyFromURL(raw string) (string, bool) {
	prefix := m.baseURL + "/"
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(raw, prefix))
	if err != nil {
		return "", false
	}
	return key, true
}
