// Package app provides the orchestration layer for ordersync.
//
// # Overview
//
// This package wires together configuration, logging, the storefront
// client, the per-order sync sessions and either the dashboard or the
// headless reporter. It is the composition root where all dependencies are
// initialized and connected.
//
// # Components
//
//   - app.go: LoadConfig, Run and the pre-flight health check
//   - registry.go: Registry, the owner of one ordersync.Session per order
//   - headless.go: reporter that logs board banners when no dashboard runs
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> LoadConfig()             TOML + flag overrides
//	       ├─────> logging.New()            zap JSON logger
//	       ├─────> storefront.NewClient()   HTTP client for the sync API
//	       ├─────> checkHealth()            Pre-flight, warning only
//	       ├─────> state.Board{}            Renderer shared by all sessions
//	       ├─────> Registry.InitOrderSync() One poll loop per order
//	       ├─────> relay.ListenAndServe()   Optional websocket relay
//	       └─────> ui.Run() or reporter     Blocks until exit
//
//	Per-order session:
//	┌─────────────────────────────────────────┐
//	│ Session loop goroutine                  │
//	│  1. FetchOrderStatus                    │
//	│  2. Discard if superseded or closed     │
//	│  3. Publish StatusChanged on the Bus    │
//	│  4. Render into the Board               │
//	│  5. Wait interval, doubled per failure  │
//	└─────────────────────────────────────────┘
//
// The Bus feeds the Board's history and, when relay_bind is set, the relay.
//
// # Lifecycle
//
// The errgroup context ends the run. The dashboard quitting cancels it, as
// does SIGINT or SIGTERM in main. Deferred cleanup closes every session
// and unsubscribes the relay and history from the Bus.
//
// # Error Handling
//
// Configuration, logger and client construction errors abort Run. An
// unreachable sync service at startup is only logged; sessions keep polling
// and surface failures on the Board.
package app
