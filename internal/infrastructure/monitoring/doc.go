/*
Package monitoring collects Prometheus metrics for the ncube host.

Metrics live on a private registry created by NewMetrics, so several
servers (and tests) can coexist in one process. Handler exposes the
registry; Middleware instruments gin routes.

Families:

  - ncube_http_*: requests, latency, response size per route
  - ncube_release_*: upstream proxy fetch results and bundle sizes
  - ncube_bootstrap_*: phase entries, outcomes, time to Loaded
  - ncube_bridge_*: drag-and-drop imports and data file exports
  - ncube_sessions_active, ncube_ws_messages_total
*/
package monitoring
