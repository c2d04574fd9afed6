package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://Www.CA9.uscourts.gov/opinions", "www.ca9.uscourts.gov"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveItemAndBaseline(t *testing.T) {
	ObserveItem("metrics-test", "written")
	ObserveItem("metrics-test", "written")
	if val := testutil.ToFloat64(crawlerItemsTotal.WithLabelValues("metrics-test", "written")); val != 2 {
		t.Errorf("expected 2 written items, got %f", val)
	}

	ObserveBaselineCommit("metrics-test", nil)
	ObserveBaselineCommit("metrics-test", errors.New("boom"))
	if val := testutil.ToFloat64(crawlerBaselineCommitsTotal.WithLabelValues("metrics-test", "error")); val != 1 {
		t.Errorf("expected 1 failed commit, got %f", val)
	}
}

func TestObserveFetchCountsBytes(t *testing.T) {
	ObserveFetch("https://fetch-test.example/doc.pdf", "ok", 128)
	if val := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("fetch-test.example")); val != 128 {
		t.Errorf("expected 128 bytes, got %f", val)
	}
	ObserveScan("fetch-test", "completed", time.Second)
	if val := testutil.CollectAndCount(crawlerScanDurationSeconds); val <= 0 {
		t.Errorf("expected scan duration to be observed, got %d", val)
	}
}

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/mw-ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/mw-teapot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/mw-ok", "/mw-teapot"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")); val != 1 {
		t.Errorf("expected one 418 request, got %f", val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("expected httpRequestDurationSeconds to be observed, got %d", val)
	}
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://google.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
