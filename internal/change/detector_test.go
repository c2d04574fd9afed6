package change

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

func TestDetector_NewSourceAlwaysChanged(t *testing.T) {
	t.Parallel()

	store := newFakeBaselineStore()
	d := New(store, zap.NewNop())

	changed, handle, err := d.Changed(context.Background(), "ca9", "hash-a")
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, handle.Created())
	require.Zero(t, store.updates, "lookup must not write the hash")
}

func TestDetector_UnchangedHash(t *testing.T) {
	t.Parallel()

	store := newFakeBaselineStore()
	store.baselines["ca9"] = "hash-a"
	d := New(store, zap.NewNop())

	changed, handle, err := d.Changed(context.Background(), "ca9", "hash-a")
	require.NoError(t, err)
	require.False(t, changed)
	require.False(t, handle.Created())
}

func TestDetector_ChangedHash(t *testing.T) {
	t.Parallel()

	store := newFakeBaselineStore()
	store.baselines["ca9"] = "hash-a"
	d := New(store, zap.NewNop())

	changed, _, err := d.Changed(context.Background(), "ca9", "hash-b")
	require.NoError(t, err)
	require.True(t, changed)
}

func TestDetector_NewSourceWithEmptyHashStillChanged(t *testing.T) {
	t.Parallel()

	store := newFakeBaselineStore()
	d := New(store, zap.NewNop())

	changed, _, err := d.Changed(context.Background(), "ca1", "")
	require.NoError(t, err)
	require.True(t, changed)
}

func TestHandle_CommitWritesBaseline(t *testing.T) {
	t.Parallel()

	store := newFakeBaselineStore()
	d := New(store, zap.NewNop())

	_, handle, err := d.Changed(context.Background(), "ca9", "hash-b")
	require.NoError(t, err)
	require.NoError(t, handle.Commit(context.Background(), "hash-b"))
	require.Equal(t, "hash-b", store.baselines["ca9"])

	changed, _, err := d.Changed(context.Background(), "ca9", "hash-b")
	require.NoError(t, err)
	require.False(t, changed)
}

func TestDetector_StoreError(t *testing.T) {
	t.Parallel()

	store := newFakeBaselineStore()
	store.err = errors.New("db down")
	d := New(store, zap.NewNop())

	_, _, err := d.Changed(context.Background(), "ca9", "hash")
	require.Error(t, err)
	require.ErrorContains(t, err, "db down")
}

type fakeBaselineStore struct {
	mu        sync.Mutex
	baselines map[string]string
	updates   int
	err       error
}

func newFakeBaselineStore() *fakeBaselineStore {
	return &fakeBaselineStore{baselines: make(map[string]string)}
}

func (f *fakeBaselineStore) GetOrCreateBaseline(_ context.Context, key string) (crawler.SourceBaseline, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return crawler.SourceBaseline{}, false, f.err
	}
	hash, ok := f.baselines[key]
	if !ok {
		f.baselines[key] = ""
		return crawler.SourceBaseline{SourceID: key}, true, nil
	}
	return crawler.SourceBaseline{SourceID: key, ListingHash: hash}, false, nil
}

func (f *fakeBaselineStore) UpdateBaseline(_ context.Context, key, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.baselines[key] = hash
	return nil
}
