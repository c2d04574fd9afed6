// Package badger implements the crawler's document, baseline and error-log
// persistence on an embedded BadgerDB, for single-node deployments that do
// not run Postgres.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

const (
	docKeyPrefix      = "doc:"
	hashKeyPrefix     = "hash:"
	baselineKeyPrefix = "baseline:"
	errorKeyPrefix    = "err:"

	maxConflictRetries = 10
)

// Store persists crawler state in BadgerDB. It implements
// crawler.DocumentStore, crawler.BaselineStore and crawler.ErrorLog.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
	seq    atomic.Uint64
	now    func() time.Time
}

// Open opens (or creates) a database rooted at dir.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("db.path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create badger directory %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(zapAdapter{sugar: logger.Named("badger").Sugar()}).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database at %s: %w", dir, err)
	}
	return &Store{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger database: %w", err)
	}
	return nil
}

// update retries fn when concurrent transactions touch the same keys.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("badger transaction conflict, retrying", zap.Int("attempt", i+1))
	}
	return fmt.Errorf("badger transaction conflict not resolved after %d retries", maxConflictRetries)
}

// ExistsByHash reports whether a document with hash is stored.
func (s *Store) ExistsByHash(_ context.Context, hash string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(hashKeyPrefix + hash))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		case err != nil:
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("lookup document hash: %w", err)
	}
	return exists, nil
}

// CreateDocument stores doc and its hash index in one transaction.
func (s *Store) CreateDocument(_ context.Context, doc crawler.ArchivedDocument) (string, error) {
	if doc.ID == "" {
		return "", fmt.Errorf("document id is required")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	hashKey := []byte(hashKeyPrefix + doc.ContentHash)
	err = s.update(func(txn *badger.Txn) error {
		_, getErr := txn.Get(hashKey)
		if getErr == nil {
			return fmt.Errorf("%w: %s", crawler.ErrDuplicateContent, doc.ContentHash)
		}
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return getErr
		}
		if err := txn.Set([]byte(docKeyPrefix+doc.ID), payload); err != nil {
			return err
		}
		return txn.Set(hashKey, []byte(doc.ID))
	})
	if err != nil {
		if errors.Is(err, crawler.ErrDuplicateContent) {
			return "", err
		}
		return "", fmt.Errorf("store document: %w", err)
	}
	return doc.ID, nil
}

// Document loads the document stored under id.
func (s *Store) Document(id string) (crawler.ArchivedDocument, error) {
	var doc crawler.ArchivedDocument
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(docKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return crawler.ArchivedDocument{}, fmt.Errorf("load document %s: %w", id, err)
	}
	return doc, nil
}

// GetOrCreateBaseline returns the baseline for key, creating an empty one
// on first encounter.
func (s *Store) GetOrCreateBaseline(_ context.Context, key string) (crawler.SourceBaseline, bool, error) {
	var (
		baseline crawler.SourceBaseline
		created  bool
	)
	dbKey := []byte(baselineKeyPrefix + key)
	err := s.update(func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(dbKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			baseline = crawler.SourceBaseline{SourceID: key, UpdatedAt: s.now()}
			payload, marshalErr := json.Marshal(baseline)
			if marshalErr != nil {
				return marshalErr
			}
			created = true
			return txn.Set(dbKey, payload)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &baseline)
		})
	})
	if err != nil {
		return crawler.SourceBaseline{}, false, fmt.Errorf("get or create baseline %s: %w", key, err)
	}
	return baseline, created, nil
}

// UpdateBaseline sets the listing hash for key.
func (s *Store) UpdateBaseline(_ context.Context, key, hash string) error {
	payload, err := json.Marshal(crawler.SourceBaseline{SourceID: key, ListingHash: hash, UpdatedAt: s.now()})
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	if err := s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(baselineKeyPrefix+key), payload)
	}); err != nil {
		return fmt.Errorf("update baseline %s: %w", key, err)
	}
	return nil
}

// AppendError stores rec under a key ordered by timestamp.
func (s *Store) AppendError(_ context.Context, rec crawler.ErrorRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal error record: %w", err)
	}
	key := fmt.Sprintf("%s%020d:%010d", errorKeyPrefix, rec.Timestamp.UnixNano(), s.seq.Add(1))
	if err := s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), payload)
	}); err != nil {
		return fmt.Errorf("append error record: %w", err)
	}
	return nil
}

// Errors returns every stored error record, oldest first.
func (s *Store) Errors() ([]crawler.ErrorRecord, error) {
	var out []crawler.ErrorRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(errorKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec crawler.ErrorRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list error records: %w", err)
	}
	return out, nil
}
