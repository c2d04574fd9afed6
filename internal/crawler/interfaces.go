package crawler

import (
	"context"
	"io"
	"time"
)

// SourceAdapter produces the current listing for a source.
type SourceAdapter interface {
	List(ctx context.Context, sourceID string) (Listing, error)
}

// DocumentStore persists archived documents keyed by content hash.
type DocumentStore interface {
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	CreateDocument(ctx context.Context, doc ArchivedDocument) (string, error)
}

// BaselineStore persists the listing hash of each source id.
type BaselineStore interface {
	GetOrCreateBaseline(ctx context.Context, sourceID string) (SourceBaseline, bool, error)
	UpdateBaseline(ctx context.Context, sourceID, hash string) error
}

// ErrorLog is the durable sink for error records.
type ErrorLog interface {
	AppendError(ctx context.Context, record ErrorRecord) error
}

// ErrorReporter records recoverable and fatal errors against a source.
type ErrorReporter interface {
	Record(ctx context.Context, severity Severity, sourceKey, message string)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Dispatcher hands a document to the asynchronous extraction pipeline.
// Implementations must not block on the pipeline's result.
type Dispatcher interface {
	Enqueue(ctx context.Context, task ExtractionTask) error
}

// Fetcher retrieves the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// MIMEClassifier sniffs a body into a MIME type and file extension.
type MIMEClassifier interface {
	Classify(body []byte) Class
}

// Hasher computes digests for deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces document IDs.
type IDGenerator interface {
	NewID() (string, error)
}
