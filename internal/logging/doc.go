// Package logging provides structured logging for the dashboard.
//
// This package wraps a zap logger with package-level convenience functions. The
// logger is silent by default: the dashboard usually owns the terminal it runs
// on, so nothing is written until a level is requested with --log-level or the
// VTDASH_LOG_LEVEL environment variable.
//
// # Log Levels
//
//   - Debug: raw terminal traffic, individual Home Assistant requests
//   - Info: connections, reconnects, configuration reloads
//   - Warn: failed polls, lost terminals, skipped layout entries
//   - Error: startup failures
//
// # Configuration
//
//	if err := logging.InitializeWithOptions(logging.Options{
//	    Level: "info",
//	    File:  "/var/log/vtdash.log",
//	}); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// When a file is given, or stdout is not a terminal, level names are written
// without colour codes.
package logging
