package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

// Store keeps documents, baselines and error records in memory. It
// implements crawler.DocumentStore, crawler.BaselineStore and
// crawler.ErrorLog.
type Store struct {
	mu        sync.RWMutex
	docs      map[string]crawler.ArchivedDocument
	byHash    map[string]string
	baselines map[string]crawler.SourceBaseline
	errors    []crawler.ErrorRecord
	now       func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		docs:      make(map[string]crawler.ArchivedDocument),
		byHash:    make(map[string]string),
		baselines: make(map[string]crawler.SourceBaseline),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExistsByHash reports whether a document with hash is stored.
func (s *Store) ExistsByHash(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHash[hash]
	return ok, nil
}

// CreateDocument stores doc. A second document with the same content hash
// is rejected with crawler.ErrDuplicateContent.
func (s *Store) CreateDocument(_ context.Context, doc crawler.ArchivedDocument) (string, error) {
	if doc.ID == "" {
		return "", fmt.Errorf("document id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[doc.ContentHash]; ok {
		return "", fmt.Errorf("%w: %s", crawler.ErrDuplicateContent, doc.ContentHash)
	}
	if _, ok := s.docs[doc.ID]; ok {
		return "", fmt.Errorf("document %s already exists", doc.ID)
	}
	s.docs[doc.ID] = doc
	s.byHash[doc.ContentHash] = doc.ID
	return doc.ID, nil
}

// Documents returns every stored document.
func (s *Store) Documents() []crawler.ArchivedDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.ArchivedDocument, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out
}

// GetOrCreateBaseline returns the baseline for key, creating an empty one
// on first encounter.
func (s *Store) GetOrCreateBaseline(_ context.Context, key string) (crawler.SourceBaseline, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.baselines[key]; ok {
		return b, false, nil
	}
	b := crawler.SourceBaseline{SourceID: key, UpdatedAt: s.now()}
	s.baselines[key] = b
	return b, true, nil
}

// UpdateBaseline sets the listing hash for key.
func (s *Store) UpdateBaseline(_ context.Context, key, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines[key] = crawler.SourceBaseline{SourceID: key, ListingHash: hash, UpdatedAt: s.now()}
	return nil
}

// Baseline returns the stored baseline for key.
func (s *Store) Baseline(key string) (crawler.SourceBaseline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[key]
	return b, ok
}

// AppendError records rec.
func (s *Store) AppendError(_ context.Context, rec crawler.ErrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, rec)
	return nil
}

// Errors returns a copy of the recorded errors.
func (s *Store) Errors() []crawler.ErrorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.ErrorRecord, len(s.errors))
	copy(out, s.errors)
	return out
}
