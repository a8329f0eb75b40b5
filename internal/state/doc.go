// Package state holds the view model shared by sync sessions and the
// dashboard.
//
// # Overview
//
// Board is what a web page's DOM is to a browser poller: every session
// renders into it and the UI reads it back on its own schedule. Sessions
// write through the ordersync.Renderer methods; the UI takes copies with
// Snapshot.
//
//	Sessions (one goroutine each):      UI:
//	┌──────────────────────┐           ┌──────────────────┐
//	│ Render()             │           │                  │
//	│ ShowInconsistency…() │──(mutex)─→│ board.Snapshot() │
//	│ ShowConflictNotice() │           │       ↓          │
//	│ PollFailed()         │           │   render view    │
//	└──────────────────────┘           └──────────────────┘
//
// # Views
//
// Each tracked order has an OrderView carrying the same attributes the page
// sets on a status element: the display name (StatusText), the raw code
// (DataStatus), the formatted last-update time (TimestampText) and the
// consistency class ("consistent" or "inconsistent"). A failed poll only
// records the error and bumps ConsecutiveFailures; the last status stays.
//
// # Banners
//
// Two kinds:
//
//   - Inconsistency warnings. One per order; a repeat replaces the existing
//     warning instead of stacking another. Cleared when dismissed or when a
//     consistent snapshot arrives for the order.
//   - Conflict notices. Raised after the server overrode the client's status
//     and gone after ConflictNoticeTTL.
//
// Expiry is evaluated against the time passed to Snapshot, so tests can
// step through it without sleeping.
//
// # History
//
// RecordChange keeps the most recent status changes, bounded by
// HistoryLimit. Subscribe it to an ordersync.Bus.
//
// # Concurrency
//
// Board is safe for concurrent use and its zero value is ready. Snapshot
// returns copies; callers may keep or modify them freely.
package state
