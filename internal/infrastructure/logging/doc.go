// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components below the server take a *zap.Logger and default to
// zap.NewNop(), so tests stay quiet unless they pass a logger in.
//
// Example Usage:
//
//	logger := logging.NewFromLevel("info", false)
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Error("Bootstrap failed", zap.Error(err))
package logging
