// Package logger provides the structured logging interface used across goingviral.
//
// It wraps zerolog and offers:
//   - leveled logging (Debug, Info, Warn, Error, Fatal)
//   - child loggers with fields (WithField, WithFields, WithError)
//   - colored console output for the CLI and JSON lines for the server
//   - an optional append-only log file
//   - request-scoped loggers carried in a context.Context
//
// Basic usage:
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("username", "natgeo").Info("Fetch started")
//
// Handlers attach a request logger with IntoContext so deeper code can pick
// it up with FromContext:
//
//	ctx = logger.IntoContext(ctx, log.WithField("request_id", id))
//	logger.FromContext(ctx, fallback).Info("Run launched")
//
// Tests use NewNopLogger, or NewTestLogger to assert on captured messages.
package logger
