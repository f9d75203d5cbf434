// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cooperative task scheduling for the arena server.
//
// Every task runs on its own goroutine, but a baton handed over channels lets
// exactly one of them execute at any moment. A task gives the baton back by
// calling Yield, which re-queues it behind every other ready task. Shared
// state touched only between suspension points therefore needs no locking,
// although a task must re-validate such state after Yield returns.
package concurrency
