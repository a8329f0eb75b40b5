package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/ordersync/internal/app"
)

const (
	appName    = "ordersync"
	appVersion = "0.1.0"
)

// Flags shared by every command.
var (
	configPath string
	apiBase    string
	jsonOutput bool
)

// Flags for watch.
var (
	prefsPath    string
	headless     bool
	pollInterval time.Duration
	relayBind    string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   appName + " [order-id...]",
	Short: "Keep storefront order statuses in sync",
	Long: `ordersync polls the storefront sync API for one or more orders, flags
inconsistent data and settles conflicting views by timestamp.

Without a subcommand it runs watch.`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatch,
}

var watchCmd = &cobra.Command{
	Use:   "watch [order-id...]",
	Short: "Watch orders in the dashboard or headless",
	Long: `Watch polls every order given on the command line, or the orders from
the config file, or the most recently watched orders, in that order of
preference.`,
	RunE: runWatch,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/ordersync/config.toml)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "", "sync API base URL, overrides api_base")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print API responses as JSON")

	for _, cmd := range []*cobra.Command{rootCmd, watchCmd} {
		cmd.Flags().StringVar(&prefsPath, "prefs", "", "preferences file (default ~/.config/ordersync/prefs.toml)")
		cmd.Flags().BoolVar(&headless, "headless", false, "log to stderr instead of starting the dashboard")
		cmd.Flags().DurationVar(&pollInterval, "interval", 0, "poll interval, overrides poll_interval")
		cmd.Flags().StringVar(&relayBind, "relay", "", "serve status events over websocket on this address")
		cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	}

	rootCmd.AddCommand(watchCmd)
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 1
	}
	return 0
}

func runWatch(cmd *cobra.Command, args []string) error {
	return app.Run(cmd.Context(), app.Options{
		ConfigPath: configPath,
		PrefsPath:  prefsPath,
		Orders:     args,
		Interval:   pollInterval,
		APIBase:    apiBase,
		RelayBind:  relayBind,
		LogLevel:   logLevel,
		Headless:   headless,
	})
}
