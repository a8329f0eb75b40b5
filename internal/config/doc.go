// Package config loads the ordersync configuration file.
//
// # Overview
//
// ordersync reads a single TOML file at startup. Every key is optional and a
// missing file is not an error, so the tool runs against a local storefront
// with no setup at all. Command-line flags override whatever Load returns.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/ordersync/config.toml
//  3. If the file doesn't exist, use Default()
//  4. Keys that are missing or blank keep their defaults
//
// # TOML Format
//
//	api_base = "127.0.0.1:8080"   # storefront host[:port] or URL
//	poll_interval = "30s"
//	request_timeout = "10s"
//	max_backoff = "5m"            # cap on the wait after failed polls
//	jitter = 0.1                  # ±fraction of each wait; 0 disables
//	orders = ["1001", "1002"]     # orders watched by default
//	log_file = "~/.local/state/ordersync/ordersync.log"
//	log_level = "info"            # debug, info, warn, error
//	relay_bind = ""               # e.g. "127.0.0.1:9090" to serve /events
//
// Durations use time.ParseDuration syntax. Paths expand a leading ~.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - Values Validate rejects (non-positive durations, max_backoff below
//     poll_interval, jitter outside [0, 1], unknown log levels)
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//		return fmt.Errorf("load config: %w", err)
//	}
//	client, err := storefront.NewClient(cfg.APIBase, storefront.WithTimeout(cfg.RequestTimeout))
package config
