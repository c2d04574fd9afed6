package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

func TestChain_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{usable: map[crawler.ExtractionMethod]bool{crawler.ExtractionPrimary: true}}
	queue := NewMemory()
	c := NewChain(ex, queue, zap.NewNop())

	err := c.Handle(context.Background(), crawler.ExtractionTask{
		DocumentID: "d1", Method: crawler.ExtractionPrimary, Fallback: crawler.ExtractionOCR,
	})
	require.NoError(t, err)
	require.Empty(t, queue.Tasks())
	require.Equal(t, []crawler.ExtractionMethod{crawler.ExtractionPrimary}, ex.calls)
}

func TestChain_UnusablePrimaryEnqueuesFallback(t *testing.T) {
	t.Parallel()

	ex := &fakeExtractor{usable: map[crawler.ExtractionMethod]bool{crawler.ExtractionOCR: true}}
	queue := NewMemory()
	c := NewChain(ex, queue, zap.NewNop())

	require.NoError(t, c.Handle(context.Background(), crawler.ExtractionTask{
		DocumentID: "d1", Method: crawler.ExtractionPrimary, Fallback: crawler.ExtractionOCR,
	}))
	require.Equal(t, []crawler.ExtractionTask{{DocumentID: "d1", Method: crawler.ExtractionOCR}}, queue.Tasks())

	// The fallback task carries no further fallback, so the chain ends there.
	require.NoError(t, c.Handle(context.Background(), queue.Tasks()[0]))
	require.Len(t, queue.Tasks(), 1)
}

func TestChain_UnusableWithoutFallbackStops(t *testing.T) {
	t.Parallel()

	queue := NewMemory()
	c := NewChain(&fakeExtractor{}, queue, zap.NewNop())

	require.NoError(t, c.Handle(context.Background(), crawler.ExtractionTask{DocumentID: "d1", Method: crawler.ExtractionOCR}))
	require.Empty(t, queue.Tasks())
}

func TestChain_ExtractorError(t *testing.T) {
	t.Parallel()

	c := NewChain(&fakeExtractor{err: errors.New("corrupt")}, NewMemory(), nil)
	err := c.Handle(context.Background(), crawler.ExtractionTask{DocumentID: "d1", Method: crawler.ExtractionPrimary})
	require.ErrorContains(t, err, "corrupt")
}

func TestDecodeTask(t *testing.T) {
	t.Parallel()

	task, err := DecodeTask([]byte(`{"document_id":"d9","method":"primary","fallback":"ocr"}`))
	require.NoError(t, err)
	require.Equal(t, crawler.ExtractionTask{DocumentID: "d9", Method: crawler.ExtractionPrimary, Fallback: crawler.ExtractionOCR}, task)

	_, err = DecodeTask([]byte(`{"method":"primary"}`))
	require.Error(t, err)
	_, err = DecodeTask([]byte(`not json`))
	require.Error(t, err)
}

type fakeExtractor struct {
	usable map[crawler.ExtractionMethod]bool
	err    error
	calls  []crawler.ExtractionMethod
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, method crawler.ExtractionMethod) (bool, error) {
	f.calls = append(f.calls, method)
	if f.err != nil {
		return false, f.err
	}
	return f.usable[method], nil
}
