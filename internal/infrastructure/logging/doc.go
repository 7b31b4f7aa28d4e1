// Package logging provides structured logging for Lumen.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output for production, text output for development
//   - service and version attributes on every entry
//   - level filtering (debug, info, warn, error)
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("output").Info("engine started", "protocol", "sacn")
//
// Components that only need to emit messages take a small Logger interface
// (Debug/Info/Warn/Error) and *Logger satisfies it.
package logging
