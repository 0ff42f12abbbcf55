// Package async provides safe concurrent execution primitives for
// background work: fire-and-forget goroutines with panic recovery and
// timeout enforcement, and bounded-concurrency batch processing.
package async
