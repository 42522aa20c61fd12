package repository

import (
	"context"
	"sync"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	domrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
)

// MemoryBucketStore is an in-process BucketStore with the same atomic
// read-modify-write contract as the Redis store. Used in tests and for
// running without shared infrastructure.
type MemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*models.DemandBucket
}

// NewMemoryBucketStore creates an empty store.
func NewMemoryBucketStore() *MemoryBucketStore {
	return &MemoryBucketStore{buckets: make(map[string]*models.DemandBucket)}
}

// Update applies the mutation atomically and returns a copy of the result.
func (s *MemoryBucketStore) Update(_ context.Context, docID string, apply func(*models.DemandBucket)) (*models.DemandBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[docID]
	if !ok {
		b = &models.DemandBucket{}
		s.buckets[docID] = b
	}
	apply(b)
	out := *b
	out.ActiveDriverIDs = append([]string(nil), b.ActiveDriverIDs...)
	return &out, nil
}

// Get returns a copy of the document, or nil when it does not exist.
func (s *MemoryBucketStore) Get(_ context.Context, docID string) (*models.DemandBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[docID]
	if !ok {
		return nil, nil
	}
	out := *b
	out.ActiveDriverIDs = append([]string(nil), b.ActiveDriverIDs...)
	return &out, nil
}

// Close is a no-op.
func (s *MemoryBucketStore) Close() error { return nil }

var _ domrepo.BucketStore = (*MemoryBucketStore)(nil)
