package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quilldocs/quill/internal/types"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*types.DocumentRecord
	configs   map[string]*types.UserConfig
	uploads   map[string]*types.UploadRecord
	uploadSeq []string // Insertion order, for LatestUploadByUser
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*types.DocumentRecord),
		configs:   make(map[string]*types.UserConfig),
		uploads:   make(map[string]*types.UploadRecord),
	}
}

// clone deep-copies a value through JSON so callers cannot mutate stored
// state in place.
func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*types.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return clone(doc), nil
}

func (s *MemoryStore) PutDocument(ctx context.Context, doc *types.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := clone(doc)
	if stored.CreatedAt == "" {
		stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	stored.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.documents[doc.ID] = stored
	return nil
}

func (s *MemoryStore) ListDocumentsByUser(ctx context.Context, userID string) ([]types.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.DocumentRecord, 0)
	for _, doc := range s.documents {
		if doc.UserID == userID {
			out = append(out, *clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	delete(s.documents, id)
	return nil
}

func (s *MemoryStore) GetUserConfig(ctx context.Context, userID string) (*types.UserConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[userID]
	if !ok {
		return nil, fmt.Errorf("%w: config for user %s", ErrNotFound, userID)
	}
	return clone(cfg), nil
}

func (s *MemoryStore) PutUserConfig(ctx context.Context, cfg *types.UserConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := clone(cfg)
	stored.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.configs[cfg.ID] = stored
	return nil
}

func (s *MemoryStore) GetUpload(ctx context.Context, id string) (*types.UploadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	up, ok := s.uploads[id]
	if !ok {
		return nil, fmt.Errorf("%w: upload %s", ErrNotFound, id)
	}
	return clone(up), nil
}

func (s *MemoryStore) PutUpload(ctx context.Context, up *types.UploadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.uploads[up.ID]; !exists {
		s.uploadSeq = append(s.uploadSeq, up.ID)
	}
	s.uploads[up.ID] = clone(up)
	return nil
}

func (s *MemoryStore) LatestUploadByUser(ctx context.Context, userID string) (*types.UploadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.uploadSeq) - 1; i >= 0; i-- {
		up := s.uploads[s.uploadSeq[i]]
		if up != nil && up.UserID == userID {
			return clone(up), nil
		}
	}
	return nil, fmt.Errorf("%w: no uploads for user %s", ErrNotFound, userID)
}

func (s *MemoryStore) Close() error { return nil }

// Verify interface
var _ Store = (*MemoryStore)(nil)
