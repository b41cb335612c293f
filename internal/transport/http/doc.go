// Package http serves the status endpoints of a running batch:
//
//	GET /healthz  liveness
//	GET /status   progress of the current run
//	GET /metrics  Prometheus metrics, when a metric exporter is configured
package http
