// Package logging provides a minimal logging interface and adapters for the
// workflow framework.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the runner and agents use for observability. This package
// includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter and WorkflowLogger wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	r := runner.New(rootAgent, sessionStore, artifactStore, memoryStore, runner.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
