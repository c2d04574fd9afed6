package crawler

import (
	"net/http"
	"time"
)

// Severity classifies an ErrorRecord.
type Severity string

// Severity values written to the error log.
const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// OriginCrawler marks documents created by the scraper.
const OriginCrawler = "C"

// ExtractionStatus tracks where a document sits in the extraction pipeline.
type ExtractionStatus string

// ExtractionPending is the status of a document awaiting extraction.
const ExtractionPending ExtractionStatus = "pending"

// ExtractionMethod names one stage of the extraction pipeline.
type ExtractionMethod string

// Extraction methods understood by the extraction consumers.
const (
	ExtractionPrimary ExtractionMethod = "primary"
	ExtractionOCR     ExtractionMethod = "ocr"
)

// SourceBaseline is the last committed listing hash for a source id.
type SourceBaseline struct {
	SourceID    string    `json:"source_id"`
	ListingHash string    `json:"listing_hash"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CandidateItem is one entry produced by a source adapter for a single scan.
type CandidateItem struct {
	DisplayName        string    `json:"display_name"`
	DownloadURL        string    `json:"download_url"`
	FiledDate          time.Time `json:"filed_date"`
	DocketNumber       string    `json:"docket_number,omitempty"`
	NeutralCitation    string    `json:"neutral_citation,omitempty"`
	PrecedentialStatus string    `json:"precedential_status"`
}

// Listing is the result of asking a source adapter for its current items.
// Items are expected newest-first by FiledDate.
type Listing struct {
	SourceID    string          `json:"source_id"`
	ListingHash string          `json:"listing_hash"`
	Items       []CandidateItem `json:"items"`
}

// Citation carries the case metadata stored alongside a document.
type Citation struct {
	CaseName        string `json:"case_name"`
	DocketNumber    string `json:"docket_number,omitempty"`
	NeutralCitation string `json:"neutral_citation,omitempty"`
}

// ArchivedDocument is the durable record written for every new item.
type ArchivedDocument struct {
	ID                 string           `json:"id"`
	ContentHash        string           `json:"content_hash"`
	SourceKey          string           `json:"source_key"`
	FiledDate          time.Time        `json:"filed_date"`
	Citation           Citation         `json:"citation"`
	BinaryPath         string           `json:"binary_path"`
	MIMEType           string           `json:"mime_type"`
	Extension          string           `json:"extension"`
	DownloadURL        string           `json:"download_url"`
	PrecedentialStatus string           `json:"precedential_status"`
	Origin             string           `json:"origin"`
	ExtractionStatus   ExtractionStatus `json:"extraction_status"`
	CreatedAt          time.Time        `json:"created_at"`
}

// ErrorRecord is an append-only audit entry keyed by source.
type ErrorRecord struct {
	Severity  Severity  `json:"severity"`
	SourceKey string    `json:"source_key"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ExtractionTask is the message handed to the extraction pipeline.
// Fallback is attempted by the consumer when Method yields no usable text.
type ExtractionTask struct {
	DocumentID string           `json:"document_id"`
	Method     ExtractionMethod `json:"method"`
	Fallback   ExtractionMethod `json:"fallback,omitempty"`
}

// FetchResponse is the final response after any meta-refresh hops.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Hops       int
}

// Class is the MIME classification of a document body.
type Class struct {
	MIME      string
	Extension string
}
