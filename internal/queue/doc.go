// Package queue provides a fixed-capacity, blocking FIFO of task entries.
//
// A single producer calls Put until its input is exhausted and then Close.
// Any number of consumers call Take; once the queue is closed and drained,
// every consumer (including those already blocked) receives ok == false.
//
// # Basic Usage
//
//	q := queue.New(128)
//
//	go func() {
//	    defer q.Close()
//	    for _, e := range entries {
//	        if err := q.Put(e); err != nil {
//	            return
//	        }
//	    }
//	}()
//
//	for {
//	    e, ok := q.Take()
//	    if !ok {
//	        break // closed and empty
//	    }
//	    // process e
//	}
//
// # Thread Safety
//
// All state is guarded by one mutex. Two condition variables signal
// "not full" to producers and "not empty or closed" to consumers; Close
// broadcasts on both.
package queue
