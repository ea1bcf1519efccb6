// Package producer parses (label, number) pairs from a text stream and feeds
// them into the work queue.
//
// Input is a sequence of whitespace-separated tokens read in pairs: a label
// followed by a positive base-10 uint64. Parsing stops at the first record
// that is not well formed (non-numeric, overflowing or zero value, or a label
// with no value at end of input). Everything enqueued before that point is
// still processed; the rest of the input is ignored. The queue is closed
// exactly once when Run returns, whatever the reason.
package producer
