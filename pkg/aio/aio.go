//go:build linux

// Package aio bridges Linux kernel AIO to the Go scheduler.
//
// A Context owns one kernel queue of fixed depth, the eventfd the kernel
// signals completions through, and the registry matching completions back
// to submitters. Submissions go through a Handle and resolve through
// futures, in completion order, not submission order.
package aio

// NotificationMode selects how the completion eventfd counts.
type NotificationMode uint8

const (
	// CounterMode drains the whole pending-completion count per wake.
	CounterMode NotificationMode = iota
	// SemaphoreMode consumes one completion per wake.
	SemaphoreMode
)

const maxWaitBatch = 256
