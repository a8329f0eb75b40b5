package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/ordersync/internal/app"
	"github.com/five82/ordersync/internal/orderstatus"
	"github.com/five82/ordersync/internal/ordersync"
	"github.com/five82/ordersync/internal/storefront"
)

var (
	resolveStatus string
	resolveAt     string
)

var statusCmd = &cobra.Command{
	Use:   "status <order-id>",
	Short: "Fetch an order's current status once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		return printStatus(cmd.Context(), cmd.OutOrStdout(), client, args[0])
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <order-id>",
	Short: "Ask the server to settle an order against the status you believe",
	Long: `Resolve sends --status and --at as the client's view of the order. The
server's resolved status is authoritative; the printed decision shows which
side last-write-wins favors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at := time.Now()
		if resolveAt != "" {
			parsed, err := storefront.ParseTime(resolveAt)
			if err != nil {
				return fmt.Errorf("parse --at: %w", err)
			}
			at = parsed
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		return printResolve(cmd.Context(), cmd.OutOrStdout(), client, args[0], resolveStatus, at)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <order-id>",
	Short: "Check whether the server's data for an order is consistent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		report, err := client.ValidateConsistency(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, report)
		}
		fmt.Fprintf(out, "order       %s\n", args[0])
		fmt.Fprintf(out, "status      %s (%s)\n", report.CurrentStatus, orderstatus.DisplayName(report.CurrentStatus))
		fmt.Fprintf(out, "updated     %s\n", formatWhen(report.LastUpdated.Time))
		fmt.Fprintf(out, "consistent  %t\n", report.IsConsistent)
		return nil
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix <order-id>",
	Short: "Ask the server to repair an inconsistent order (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		report, err := client.FixInconsistency(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, report)
		}
		fmt.Fprintf(out, "order       %s\n", args[0])
		fmt.Fprintf(out, "fixed       %t\n", report.Fixed)
		fmt.Fprintf(out, "status      %s (%s)\n", report.CurrentStatus, orderstatus.DisplayName(report.CurrentStatus))
		fmt.Fprintf(out, "consistent  %t\n", report.IsConsistent)
		return nil
	},
}

var bulkSyncCmd = &cobra.Command{
	Use:   "bulk-sync",
	Short: "Ask the server to resynchronize every order (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		return printBulkSync(cmd.Context(), cmd.OutOrStdout(), client)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the sync service is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		report, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := writeJSON(out, report); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "%s %s at %s\n", report.Service, report.Status, client.BaseURL())
		}
		if !report.Healthy() {
			return fmt.Errorf("sync service reports %q", report.Status)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveStatus, "status", "", "status the client believes the order has")
	resolveCmd.Flags().StringVar(&resolveAt, "at", "", "when the client saw that status (default now)")
	_ = resolveCmd.MarkFlagRequired("status")

	rootCmd.AddCommand(statusCmd, resolveCmd, validateCmd, fixCmd, bulkSyncCmd, healthCmd)
}

// newClient builds a storefront client from the config file and --api.
func newClient() (*storefront.Client, error) {
	cfg, err := app.LoadConfig(app.Options{ConfigPath: configPath, APIBase: apiBase})
	if err != nil {
		return nil, err
	}
	client, err := storefront.NewClient(cfg.APIBase, storefront.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, fmt.Errorf("init storefront client: %w", err)
	}
	return client, nil
}

func printBulkSync(ctx context.Context, out io.Writer, api storefront.SyncAPI) error {
	report, err := api.BulkSync(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, report)
	}
	fmt.Fprintf(out, "success     %t\n", report.Success)
	fmt.Fprintf(out, "message     %s\n", report.Message)
	fmt.Fprintf(out, "at          %s\n", formatWhen(report.Timestamp.Time))
	if !report.Success {
		return fmt.Errorf("bulk sync failed: %s", report.Message)
	}
	return nil
}

func printStatus(ctx context.Context, out io.Writer, api storefront.SyncAPI, orderID string) error {
	snap, err := api.FetchOrderStatus(ctx, orderID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, snap)
	}
	name := snap.DisplayName
	if name == "" {
		name = orderstatus.DisplayName(snap.Status)
	}
	fmt.Fprintf(out, "order       %s\n", orderID)
	fmt.Fprintf(out, "status      %s (%s)\n", snap.Status, name)
	fmt.Fprintf(out, "updated     %s\n", formatWhen(snap.LastUpdated.Time))
	fmt.Fprintf(out, "consistent  %t\n", snap.IsConsistent)
	if status, ok := orderstatus.Parse(snap.Status); ok {
		if next := status.ValidNext(); len(next) > 0 {
			fmt.Fprintf(out, "next        %v\n", next)
		}
	}
	return nil
}

// printResolve runs one resolution through a throwaway session so the
// decision is computed exactly as the watcher would.
func printResolve(ctx context.Context, out io.Writer, api ordersync.Syncer, orderID, clientStatus string, at time.Time) error {
	sess, err := ordersync.New(orderID, api, ordersync.Options{})
	if err != nil {
		return err
	}
	defer sess.Close()

	res, err := sess.ResolveConflict(ctx, clientStatus, at)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, res)
	}
	fmt.Fprintf(out, "order       %s\n", res.OrderID)
	fmt.Fprintf(out, "client      %s\n", res.ClientStatus)
	fmt.Fprintf(out, "resolved    %s (%s)\n", res.ResolvedStatus, res.DisplayName)
	fmt.Fprintf(out, "conflict    %t\n", res.WasConflict)
	fmt.Fprintf(out, "decision    %s: %s\n", res.Decision.Action, res.Decision.Reason)
	return nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
