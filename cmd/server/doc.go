// Package main is the entry point for the ncube web host.
//
// The server proxies the latest ncube release bundle, serves the page,
// and hosts one session per connected page:
//
//	Browser page ⇄ /stream (websocket) ⇄ session (goja loader + wazero guest)
//	             → /latest-release → upstream release
//
// Configuration:
//   - Environment variables (SERVER_PORT, RELEASE_URL, BOOTSTRAP_*, ...)
//   - CLI flags (override the environment)
//   - An optional YAML file (NCUBE_CONFIG, or -config which is applied last)
//
// Usage:
//
//	./server -port 8000
//	./server -dev -bundle ./wasm.zip
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
