// Package server is the crawl service behind `imagefinder serve`.
//
// POST /main starts a crawl and streams one NDJSON record per visited page
// while the crawl runs. GET /metrics exposes Prometheus metrics and
// GET /healthz answers liveness probes.
package server
