package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/ordersync/internal/config"
	"github.com/five82/ordersync/internal/logging"
	"github.com/five82/ordersync/internal/ordersync"
	"github.com/five82/ordersync/internal/prefs"
	"github.com/five82/ordersync/internal/relay"
	"github.com/five82/ordersync/internal/state"
	"github.com/five82/ordersync/internal/storefront"
	"github.com/five82/ordersync/internal/ui"
)

// ErrNoOrders is returned when neither flags, config nor recent history name
// an order to watch.
var ErrNoOrders = errors.New("no orders to watch")

const healthTimeout = 3 * time.Second

var _ ui.Controller = (*Registry)(nil)

// Options configure the watcher. Zero values fall back to the config file.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/ordersync/prefs.toml
	Orders     []string
	Interval   time.Duration
	APIBase    string
	RelayBind  string
	LogLevel   string
	Headless   bool
}

// LoadConfig reads the config file and applies the overrides in opts.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIBase); v != "" {
		cfg.APIBase = v
	}
	if opts.Interval > 0 {
		cfg.PollInterval = opts.Interval
		if cfg.MaxBackoff < cfg.PollInterval {
			cfg.MaxBackoff = cfg.PollInterval
		}
	}
	if v := strings.TrimSpace(opts.RelayBind); v != "" {
		cfg.RelayBind = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if len(opts.Orders) > 0 {
		cfg.Orders = config.NormalizeOrders(opts.Orders)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Run watches the configured orders until the context is cancelled or the
// dashboard exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	orders := cfg.Orders
	if len(orders) == 0 {
		orders = userPrefs.Recent
	}
	if len(orders) == 0 {
		return ErrNoOrders
	}

	logger, err := logging.New(logging.Options{
		File:   cfg.LogFile,
		Level:  cfg.LogLevel,
		Stderr: opts.Headless,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := storefront.NewClient(cfg.APIBase, storefront.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("init storefront client: %w", err)
	}
	checkHealth(ctx, client, logger)

	board := &state.Board{}
	bus := ordersync.NewBus()
	defer bus.Subscribe(board.RecordChange)()

	registry := NewRegistry(client, RegistryOptions{
		Board:      board,
		Bus:        bus,
		Logger:     logger,
		Interval:   cfg.PollInterval,
		MaxBackoff: cfg.MaxBackoff,
		Jitter:     cfg.Jitter,
	})
	defer registry.Close()

	for _, id := range orders {
		if _, err := registry.InitOrderSync(id); err != nil {
			return fmt.Errorf("watch order %s: %w", id, err)
		}
	}
	if err := prefs.Save(opts.PrefsPath, userPrefs.Remember(orders...)); err != nil {
		logger.Warn("save recent orders", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.RelayBind != "" {
		srv := relay.New(logger)
		defer bus.Subscribe(srv.Publish)()
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.RelayBind)
		})
	}

	if opts.Headless {
		rep := newReporter(board, logger)
		g.Go(func() error {
			rep.run(gctx, defaultReportInterval)
			return nil
		})
	} else {
		g.Go(func() error {
			// The dashboard exiting ends the run
			defer cancel()
			return ui.Run(ui.Options{
				Context:   gctx,
				Board:     board,
				Control:   registry,
				APIBase:   client.BaseURL(),
				LogFile:   cfg.LogFile,
				ThemeName: userPrefs.Theme,
				PrefsPath: opts.PrefsPath,
				Prefs:     userPrefs,
			})
		})
	}

	return g.Wait()
}

type healthChecker interface {
	Health(ctx context.Context) (*storefront.HealthReport, error)
}

// checkHealth logs whether the sync service answers. An unhealthy or
// unreachable service is not fatal: polling reports its own failures.
func checkHealth(ctx context.Context, api healthChecker, logger *zap.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	report, err := api.Health(ctx)
	if err != nil {
		logger.Warn("sync service unreachable", zap.Error(err))
		return false
	}
	if !report.Healthy() {
		logger.Warn("sync service unhealthy", zap.String("service", report.Service), zap.String("status", report.Status))
		return false
	}
	logger.Info("sync service healthy", zap.String("service", report.Service))
	return true
}

