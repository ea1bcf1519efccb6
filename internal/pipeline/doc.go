// Package pipeline wires the queue, producer, worker pool and collector
// into a single factorization run.
//
// A run starts the workers, parses input on a separate goroutine, joins
// every worker once the input is exhausted and the queue drained, and only
// then writes the results. The returned Report summarizes what happened.
//
// # Basic Usage
//
//	p := pipeline.New(pipeline.DefaultConfig())
//	report, err := p.Run(os.Stdin, os.Stdout)
//	if err != nil {
//	    // worker failure, read failure or write failure
//	}
//	fmt.Fprintln(os.Stderr, report.Summary())
//
// # Failure
//
// If a worker fails, nothing is written: the run is abandoned and the error
// returned. A read error still writes everything that was parsed before it
// and is then returned. A malformed input record is not an error; the
// Report marks the input as truncated.
package pipeline
