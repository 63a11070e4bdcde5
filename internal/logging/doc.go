// Package logging provides a simple leveled logging interface for the
// manga library.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (scan failures, watcher events)
//   - INFO: General operational messages
//   - WARN: Warning conditions (watcher fallback, manifest load failures)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// DEBUG=true, and can be overridden at runtime with SetLevel.
package logging
