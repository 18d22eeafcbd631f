// Package config provides 12-factor configuration management for the ncube host.
//
// Configuration is loaded from environment variables with sensible defaults.
// A YAML file named by NCUBE_CONFIG may overlay individual keys.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Release: upstream bundle URL, proxy route, fetch timeout
//   - Bootstrap: session bundle source, notice delay, frame interval, guest limits
//   - Bridge: export directory for the terminal host
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - SERVER_PORT, SERVER_HOST
//   - RELEASE_URL, RELEASE_ROUTE, RELEASE_TIMEOUT
//   - BOOTSTRAP_SOURCE_URL, BOOTSTRAP_BUNDLE_PATH, BOOTSTRAP_NOTICE_DELAY
//   - LOGGING_LEVEL, LOGGING_DEV
//   - RATELIMIT_RPS, RATELIMIT_BURST, RATELIMIT_ENABLED
package config
