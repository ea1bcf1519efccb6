// Package events publishes pipeline lifecycle notifications.
//
// The pipeline emits an event when a run starts, when each worker starts and
// stops, for every completed factorization, when the input has been fully
// read, and when the run finishes. Subscribers (the HTTP websocket stream,
// tests) receive them through buffered channels.
//
// A subscription can be narrowed with a Filter to one run and a set of
// event types.
//
// Publishing never blocks: a subscriber whose buffer is full misses the
// event, and the drop is counted.
package events
