package collyfetcher

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/opinion-crawler/internal/mime"
)

// metaRefreshTarget returns the absolute URL named by the first
// <meta http-equiv="refresh"> tag in body, if body is HTML and has one.
func metaRefreshTarget(base string, body []byte) (string, bool) {
	if !mime.IsHTML(body) {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	var target string
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			return true
		}
		content, _ := s.Attr("content")
		if u, ok := parseRefreshContent(content); ok {
			target = u
			return false
		}
		return true
	})
	if target == "" {
		return "", false
	}
	return resolve(base, target)
}

// parseRefreshContent extracts the URL from a refresh value such as
// `0; url=/opinions/1.pdf`.
func parseRefreshContent(content string) (string, bool) {
	_, rest, ok := strings.Cut(content, ";")
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 4 || !strings.EqualFold(rest[:4], "url=") {
		return "", false
	}
	target := strings.Trim(strings.TrimSpace(rest[4:]), `'"`)
	return target, target != ""
}

func resolve(base, ref string) (string, bool) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return refURL.String(), refURL.IsAbs()
	}
	return baseURL.ResolveReference(refURL).String(), true
}
