/*
Package metrics defines and registers the coordinator's Prometheus metrics
and health-check state, and exposes both over HTTP for the control plane.

Gauges for worker counts, dataset count, and ring size are sampled
periodically by a Collector; the active-barrier gauge, counters, and
histograms (heartbeats, RPC latency, checkpoint sizes) are updated inline
by the package that owns the event as it happens.

A separate HealthChecker tracks liveness/readiness per named component
(storage, ring, rpc) independent of the Prometheus registry, backing the
control plane's /api/health, /ready, and /live routes.
*/
package metrics
