// Package task defines the units of work that flow through the factorization
// pipeline.
//
// An Entry is produced by the input parser and consumed by exactly one worker.
// The worker turns it into a Completed record and appends it to its own Result,
// which is handed to the collector only after the worker has terminated.
package task
