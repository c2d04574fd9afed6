// Package ingest persists newly discovered documents and hands them to the
// extraction pipeline.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
	"github.com/JakeFAU/opinion-crawler/internal/metrics"
)

// MaxNameLength bounds the case-name portion of a stored file name.
const MaxNameLength = 75

// Config controls Writer behavior.
type Config struct {
	BlobPrefix string
}

// Writer stores the binary, records the citation and document, and enqueues
// extraction.
type Writer struct {
	blobs      crawler.BlobStore
	docs       crawler.DocumentStore
	dispatcher crawler.Dispatcher
	ids        crawler.IDGenerator
	clock      crawler.Clock
	reporter   crawler.ErrorReporter
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Writer.
func New(
	blobs crawler.BlobStore,
	docs crawler.DocumentStore,
	dispatcher crawler.Dispatcher,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	reporter crawler.ErrorReporter,
	cfg Config,
	logger *zap.Logger,
) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		blobs:      blobs,
		docs:       docs,
		dispatcher: dispatcher,
		ids:        ids,
		clock:      clock,
		reporter:   reporter,
		cfg:        cfg,
		logger:     logger,
	}
}

// Write persists one new item. Failures before the document row exists are
// returned wrapped in crawler.ErrWrite, except a lost race on the content
// hash, which is returned as crawler.ErrDuplicateContent. Extraction dispatch
// is fire-and-forget: its failure is reported but never returned.
func (w *Writer) Write(
	ctx context.Context,
	sourceKey string,
	item crawler.CandidateItem,
	hash string,
	body []byte,
	class crawler.Class,
) (crawler.ArchivedDocument, error) {
	id, err := w.ids.NewID()
	if err != nil {
		return crawler.ArchivedDocument{}, fmt.Errorf("%w: new document id: %w", crawler.ErrWrite, err)
	}

	blobPath := w.buildBlobPath(sourceKey, hash, item.DisplayName, class.Extension)
	uri, err := w.blobs.PutObject(ctx, blobPath, class.MIME, bytes.NewReader(body))
	if err != nil {
		return crawler.ArchivedDocument{}, fmt.Errorf("%w: put object %s: %w", crawler.ErrWrite, blobPath, err)
	}

	doc := crawler.ArchivedDocument{
		ID:          id,
		ContentHash: hash,
		SourceKey:   sourceKey,
		FiledDate:   item.FiledDate,
		Citation: crawler.Citation{
			CaseName:        item.DisplayName,
			DocketNumber:    item.DocketNumber,
			NeutralCitation: item.NeutralCitation,
		},
		BinaryPath:         uri,
		MIMEType:           class.MIME,
		Extension:          class.Extension,
		DownloadURL:        item.DownloadURL,
		PrecedentialStatus: item.PrecedentialStatus,
		Origin:             crawler.OriginCrawler,
		ExtractionStatus:   crawler.ExtractionPending,
		CreatedAt:          w.clock.Now(),
	}
	storedID, err := w.docs.CreateDocument(ctx, doc)
	if err != nil {
		if errors.Is(err, crawler.ErrDuplicateContent) {
			return crawler.ArchivedDocument{}, fmt.Errorf("create document %s: %w", hash, err)
		}
		return crawler.ArchivedDocument{}, fmt.Errorf("%w: create document %s: %w", crawler.ErrWrite, hash, err)
	}
	if storedID != "" {
		doc.ID = storedID
	}

	w.dispatch(ctx, sourceKey, doc)
	return doc, nil
}

func (w *Writer) dispatch(ctx context.Context, sourceKey string, doc crawler.ArchivedDocument) {
	if w.dispatcher == nil {
		return
	}
	task := crawler.ExtractionTask{
		DocumentID: doc.ID,
		Method:     crawler.ExtractionPrimary,
		Fallback:   crawler.ExtractionOCR,
	}
	if err := w.dispatcher.Enqueue(ctx, task); err != nil {
		metrics.ObserveDispatch("error")
		msg := fmt.Sprintf("ExtractionDispatchError: document %s: %v", doc.ID, err)
		if w.reporter != nil {
			w.reporter.Record(ctx, crawler.SeverityWarning, sourceKey, msg)
		} else {
			w.logger.Warn(msg, zap.String("source", sourceKey))
		}
		return
	}
	metrics.ObserveDispatch("enqueued")
	w.logger.Debug("extraction enqueued",
		zap.String("source", sourceKey),
		zap.String("document_id", doc.ID),
	)
}

func (w *Writer) buildBlobPath(sourceKey, hash, name, ext string) string {
	shard := hash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	file := FileName(name, ext)
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return path.Join(sourceKey, shard, hash, file)
	}
	return path.Join(prefix, sourceKey, shard, hash, file)
}

// FileName builds the stored file name from a case name: lowercased,
// truncated to MaxNameLength characters on a word boundary where one
// exists, reduced to path-safe characters, plus ext.
func FileName(name, ext string) string {
	base := truncate(strings.ToLower(strings.TrimSpace(name)), MaxNameLength)
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	safe := strings.Trim(b.String(), "._")
	if safe == "" {
		safe = "document"
	}
	return safe + ext
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		return strings.TrimSpace(cut[:i])
	}
	return cut
}
