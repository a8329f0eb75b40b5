package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/five82/ordersync/internal/prefs"
	"github.com/five82/ordersync/internal/state"
	"github.com/five82/ordersync/internal/storefront"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	path := writeConfig(t, `
api_base = "shop.local:9000"
poll_interval = "20s"
max_backoff = "40s"
orders = ["A1"]
`)
	cfg, err := LoadConfig(Options{
		ConfigPath: path,
		APIBase:    "http://other:8080",
		Interval:   time.Minute,
		Orders:     []string{" B2 ", "B2", "C3"},
		LogLevel:   "DEBUG",
		RelayBind:  "127.0.0.1:7070",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://other:8080", cfg.APIBase)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, time.Minute, cfg.MaxBackoff, "backoff cap is raised to the interval")
	assert.Equal(t, []string{"B2", "C3"}, cfg.Orders)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:7070", cfg.RelayBind)
}

func TestLoadConfigKeepsFileValues(t *testing.T) {
	path := writeConfig(t, `orders = ["A1", "B2"]`)
	cfg, err := LoadConfig(Options{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, cfg.Orders)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
}

func TestLoadConfigRejectsBadLevel(t *testing.T) {
	path := writeConfig(t, ``)
	_, err := LoadConfig(Options{ConfigPath: path, LogLevel: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

type fakeHealth struct {
	report *storefront.HealthReport
	err    error
}

func (f fakeHealth) Health(context.Context) (*storefront.HealthReport, error) {
	return f.report, f.err
}

func TestCheckHealth(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	ctx := context.Background()

	assert.True(t, checkHealth(ctx, fakeHealth{report: &storefront.HealthReport{Service: "OrderSync", Status: "healthy"}}, logger))
	assert.False(t, checkHealth(ctx, fakeHealth{report: &storefront.HealthReport{Service: "OrderSync", Status: "degraded"}}, logger))
	assert.False(t, checkHealth(ctx, fakeHealth{err: errors.New("connection refused")}, logger))

	assert.Equal(t, 1, logs.FilterMessage("sync service healthy").Len())
	assert.Equal(t, 1, logs.FilterMessage("sync service unhealthy").Len())
	assert.Equal(t, 1, logs.FilterMessage("sync service unreachable").Len())
}

func TestReporterLogsEachBannerOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	board := &state.Board{Now: func() time.Time { return now }}
	rep := newReporter(board, zap.New(core))
	rep.now = func() time.Time { return now }

	snap := storefront.StatusSnapshot{OrderID: "A1", Status: "SHIPPING"}
	board.Render(snap)
	board.ShowInconsistencyWarning(snap)

	rep.report()
	rep.report()
	warnings := logs.FilterField(zap.String("banner", "inconsistency"))
	require.Equal(t, 1, warnings.Len())
	assert.Equal(t, zapcore.WarnLevel, warnings.All()[0].Level)

	// Dismissed then raised again is reported again
	require.True(t, board.Dismiss("inconsistent:A1"))
	rep.report()
	board.ShowInconsistencyWarning(snap)
	rep.report()
	assert.Equal(t, 2, logs.FilterField(zap.String("banner", "inconsistency")).Len())
}

func TestReporterLogsFailingOrders(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	board := &state.Board{}
	rep := newReporter(board, zap.New(core))

	board.PollFailed("A1", errors.New("connection refused"))
	rep.report()
	assert.Equal(t, 0, logs.FilterMessage("order sync failing").Len(), "a single failure is not offline")

	board.PollFailed("A1", errors.New("connection refused"))
	rep.report()
	failing := logs.FilterMessage("order sync failing").All()
	require.Len(t, failing, 1)
	assert.Equal(t, "A1", failing[0].ContextMap()["order_id"])
}

func TestRunWithoutOrders(t *testing.T) {
	dir := t.TempDir()
	err := Run(context.Background(), Options{
		ConfigPath: filepath.Join(dir, "missing.toml"),
		PrefsPath:  filepath.Join(dir, "prefs.toml"),
		Headless:   true,
	})
	assert.ErrorIs(t, err, ErrNoOrders)
}

func TestRunHeadless(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/sync/health":
			fmt.Fprint(w, `{"service":"OrderSync","status":"healthy"}`)
		case "/api/sync/order/A1/status":
			polls.Add(1)
			fmt.Fprint(w, `{"status":"SHIPPING","lastUpdated":"2024-03-01T10:00:00","isConsistent":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	logFile := filepath.Join(dir, "ordersync.log")
	cfgPath := writeConfig(t, fmt.Sprintf(`
api_base = %q
poll_interval = "20ms"
max_backoff = "1s"
jitter = 0.0
orders = ["A1"]
log_file = %q
`, srv.URL, logFile))
	prefsPath := filepath.Join(dir, "prefs.toml")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, Run(ctx, Options{ConfigPath: cfgPath, PrefsPath: prefsPath, Headless: true}))

	assert.GreaterOrEqual(t, polls.Load(), int32(2))

	saved, err := prefs.Load(prefsPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, saved.Recent)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"watching order"`))
	assert.True(t, strings.Contains(string(data), `"order_id":"A1"`))
}
