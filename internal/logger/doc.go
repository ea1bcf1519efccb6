// Package logger provides a small, thread-safe, levelled logging facility
// backed by zerolog.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, optional tag (usually a worker
// ID), and message. Output goes to stderr by default so that stdout stays
// reserved for factorization results.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "pipeline started")
//	logger.Debug("worker-1", "factorized %d", n)
//	logger.Error("", "write failed: %v", err)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)     // human-readable console
//	j := logger.NewJSON(os.Stderr, logger.LevelInfo)  // one JSON object per line
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// # Thread Safety
//
// All logging operations are protected by a mutex and safe for concurrent use.
package logger
