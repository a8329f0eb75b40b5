// Package ordersync keeps a client's view of an order's fulfillment status in
// step with the storefront.
//
// # Overview
//
// A Session owns one order. It polls the storefront's status endpoint on a
// fixed interval, compares each reply with the last status it applied, and
// pushes the result to a Renderer. When the status moved it publishes a
// StatusChanged event on a Bus. When the server flags the order as
// inconsistent it asks the Renderer to raise a warning that offers an
// immediate resync (ForceSync).
//
// The server is the source of truth. The session never merges or queues
// local writes; every applied snapshot replaces the previous one whole.
//
// # Lifecycle
//
//	Idle --Start--> Polling --Stop--> Idle
//	Polling --Pause--> Paused --Resume--> Polling
//	any --Close--> Closed
//
// Start always replaces a running loop, so a session never has more than one
// poll goroutine. Stop and Pause cancel the in-flight request and wait for the
// goroutine to exit. Resume restarts with the interval that was in use.
//
// # Ordering
//
// Every request gets a sequence number. A reply is applied only if no newer
// request was issued after it and the session is still open, so a slow
// response can never overwrite a fresher one. Conflict resolutions bump the
// sequence too, which discards polls that were in flight when the server
// resolved the conflict.
//
// # Failures
//
// A failed poll leaves the last-known state alone, increments a failure
// counter and reports the error to the Renderer. The wait before the next
// poll doubles per consecutive failure up to a cap, and a small random
// jitter keeps many watchers from polling in lockstep. The first success
// resets the wait.
//
// # Conflict resolution
//
// ResolveConflict posts the client's belief (status and timestamp) to the
// storefront and adopts whatever the server resolves. The returned Decision
// is computed locally with ResolutionStrategy: last write wins on timestamps
// alone, ties favor the client.
package ordersync
