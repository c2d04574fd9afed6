package crawler

import "errors"

// Sentinel errors used to classify failures across the crawl pipeline.
var (
	// ErrEmptyFile reports a fetch that returned a zero-length body.
	ErrEmptyFile = errors.New("empty file")
	// ErrDownloading reports a transport failure or non-success response.
	ErrDownloading = errors.New("downloading error")
	// ErrTooManyRedirects reports a meta-refresh chain longer than the hop limit.
	ErrTooManyRedirects = errors.New("too many meta-refresh redirects")
	// ErrWrite reports a failure persisting a document or its binary.
	ErrWrite = errors.New("write error")
	// ErrDuplicateContent reports an insert that lost a race on content hash.
	ErrDuplicateContent = errors.New("duplicate content hash")
	// ErrAdapter reports a source that failed to produce a listing.
	ErrAdapter = errors.New("adapter error")
	// ErrUnknownSource reports a source id with no registered adapter.
	ErrUnknownSource = errors.New("unknown source")
	// ErrSetup reports an invalid configuration or source selection.
	ErrSetup = errors.New("setup error")
)

// IsRecoverableFetch reports whether err should skip the current item only.
func IsRecoverableFetch(err error) bool {
	return errors.Is(err, ErrEmptyFile) || errors.Is(err, ErrDownloading)
}
