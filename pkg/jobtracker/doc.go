// Package jobtracker owns the Job entity: pending -> queued -> running
// -> {success, failed, cancelled, timedOut}. Terminal jobs move from the
// active map into a bounded FIFO history buffer and become read-only.
package jobtracker
