// Package mime classifies downloaded document bodies into a MIME type and
// file extension.
package mime

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

// MIME types produced by the sniffer corrections.
const (
	MSWord      = "application/msword"
	WordPerfect = "application/vnd.wordperfect"
	OLEStorage  = "application/x-ole-storage"
	OctetStream = "application/octet-stream"
	HTML        = "text/html"
)

// Classifier implements crawler.MIMEClassifier on top of mimetype.
type Classifier struct{}

// New returns a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify sniffs body and applies the archive's corrections:
// a bare OLE compound file is a legacy Word document, and an unrecognised
// binary is a WordPerfect document.
func (Classifier) Classify(body []byte) crawler.Class {
	m := mimetype.Detect(body)
	mt := baseType(m.String())
	ext := m.Extension()

	switch {
	case mt == OLEStorage:
		return crawler.Class{MIME: MSWord, Extension: ".doc"}
	case mt == OctetStream, ext == "", ext == ".bin":
		return crawler.Class{MIME: WordPerfect, Extension: ".wpd"}
	}
	return crawler.Class{MIME: mt, Extension: ext}
}

// IsHTML reports whether body sniffs as an HTML document.
func IsHTML(body []byte) bool {
	return mimetype.Detect(body).Is(HTML)
}

func baseType(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.ToLower(s))
}
