// Package dispatcher runs image generation for an unbounded stream of
// thumbnail ideas with a fixed number of slots, retrying failed attempts up
// to a bounded budget and persisting every visible status transition.
//
// Scheduling is strictly FIFO among waiting tasks, except that a retried
// task re-enters at the front of the queue so a transient provider hiccup
// resolves before fresh work starts. Between a slot freeing and the next
// task starting there is a short settle delay to avoid hammering the
// provider immediately after an error.
//
// Transient failures are invisible to polling clients: the thumbnail stays
// in processing until the task either completes or exhausts its retries.
package dispatcher
