// Package api hosts the crawler's operations HTTP server. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/sources for the configured sources and their keys.
package api
