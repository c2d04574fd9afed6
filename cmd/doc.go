// Package cmd defines the opinion-crawler CLI.
//
// Architecture overview:
//   - Scheduler: internal/scheduler walks the selected sources one at a time, pausing
//     rate*60/len(sources) seconds after each. Daemon mode wraps around; one-shot mode stops
//     after the last source. SIGINT/SIGTERM are only observed between sources.
//   - Scan: internal/worker asks the source adapter for the listing, skips the scan when the
//     listing hash matches the committed baseline, and otherwise walks candidates newest-first
//     through the duplicate cascade (internal/dupcheck). The baseline is committed only when
//     no write failed during the pass and the pass was not a full crawl.
//   - Fetch: the Colly-based fetcher follows HTML meta refreshes up to a hop limit and paces
//     requests per host with a token bucket.
//   - Persistence: binaries go to the BlobStore (local/GCS/memory); documents, baselines and
//     the error log go to Postgres, Badger or memory. New documents are handed to the
//     extraction pipeline over Pub/Sub.
//   - Operations: with server.port set, an HTTP server exposes /healthz, /readyz, /metrics
//     and /v1/sources alongside the scheduler.
//
// Exit codes: 0 when a one-shot run completes, 1 on cancellation or a setup error.
package cmd
