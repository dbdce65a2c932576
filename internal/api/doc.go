// Package api hosts the HTTP server, middleware, and REST handlers. Notable routes:
//   - GET /healthz and /readyz for container probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/restaurants for the current seven-day list.
//   - POST /v1/runs to queue a refresh, GET /v1/runs and /v1/runs/latest for run history.
package api
