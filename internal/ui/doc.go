// Package ui provides the terminal dashboard for ordersync.
//
// # Architecture Overview
//
// The dashboard is a Bubble Tea program. It never talks to the storefront
// itself: sync sessions render into a state.Board, and the Model copies a
// board snapshot on every tick. User actions go out through the Controller
// interface, which app.Registry implements.
//
// # Views
//
//   - Orders: table of tracked orders beside a detail pane showing the
//     status badge, last update, consistency and the statuses the order can
//     move to next
//   - History: status changes observed by the pollers, newest first
//   - Logs: tail of the structured log file, for the selected order or all
//     orders, with follow mode
//
// Inconsistency warnings and conflict notices from the board are shown as
// banner lines above the active view.
//
// # Focus
//
// When the terminal reports focus loss the Model pauses every session, and
// resumes them when focus returns. A pause made by hand with "p" is left
// alone by focus changes.
//
// # Event Flow
//
//  1. Run() builds the Model and starts the program in the alternate screen
//  2. tickMsg fires every PollTick and fetches a board snapshot
//  3. Key presses start ForceSync or ResolveConflict as tea.Cmds; their
//     results arrive as actionMsg and are shown in the footer
//  4. Context cancellation stops the program
package ui
