// Package resource materializes in-memory assets as addressable handles,
// the host's stand-in for page-local object URLs.
package resource

import (
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Media types assigned to bundle assets.
const (
	MediaJavaScript = "text/javascript"
	MediaWasm       = "application/wasm"
)

// RefPrefix starts every handle reference.
const RefPrefix = "blob:ncube/"

// Handle addresses materialized bytes.
type Handle struct {
	Ref       string
	MediaType string
	Size      int
}

type entry struct {
	data   []byte
	handle Handle
}

// Store owns materialized resources until they are revoked.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	closed  bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Materialize stores a copy of data and returns a fresh handle. An empty
// mediaType is detected from the content.
func (s *Store) Materialize(data []byte, mediaType string) Handle {
	if mediaType == "" {
		mediaType = mimetype.Detect(data).String()
	}
	h := Handle{
		Ref:       RefPrefix + uuid.NewString(),
		MediaType: mediaType,
		Size:      len(data),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.entries[h.Ref] = entry{data: append([]byte(nil), data...), handle: h}
	}
	return h
}

// Resolve returns the bytes behind ref.
func (s *Store) Resolve(ref string) ([]byte, Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[ref]
	return e.data, e.handle, ok
}

// Revoke releases ref. Revoking an unknown ref is a no-op.
func (s *Store) Revoke(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ref)
}

// Len reports the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close revokes everything. Later Materialize calls still return handles
// but they never resolve.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
	s.closed = true
}
