// Package api serves factorization runs over HTTP.
//
// Routes:
//
//	POST /api/factorize   body is the input text; ?workers= ?queue= ?method= ?format=
//	GET  /api/status      server counters and default settings
//	GET  /api/runs/last   Report of the most recent run
//	GET  /api/methods     available factorization methods and output formats
//	GET  /ws              websocket stream of pipeline events as JSON;
//	                      ?run= and ?type= narrow the stream
//
// ?workers= is capped at 256 and ?queue= at 65536; larger values are
// rejected with 400. Bodies over 16 MiB are rejected with 413.
//
// Every run uses its own queue and worker pool; runs only share the event bus.
package api
