// Package server wires the HTTP surface: the release proxy, the page
// renderer, the session websocket, health and metrics.
package server
