package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xrbtree/internal/config"
	"github.com/benz9527/xrbtree/internal/driver"
	"github.com/benz9527/xrbtree/observability"
	"github.com/benz9527/xrbtree/xlog"
)

const metricsShutdownTimeout = 5 * time.Second

type banner struct{}

func (banner) JSON() string {
	return fmt.Sprintf(`{"app":"xrbtree","version":%q,"go":%q}`, Version, runtime.Version())
}

func (banner) PlainText() string {
	return fmt.Sprintf(`
 __  ___ __  ___ _____ ___ ___ ___
 \ \/ / '__|| _ )_   _| _ \ __| __|
  >  <| |   | _ \ | | |   / _|| _|
 /_/\_\_|   |___/ |_| |_|_\___|___|  %s %s
`, Version, runtime.Version())
}

// app is everything a tree command needs, built from the loaded config.
type app struct {
	cfg         *config.Config
	logger      xlog.XLogger
	metrics     *observability.Metrics
	undoMaxProc func()
}

func newLogger(cfg config.LoggingConfig) xlog.XLogger {
	enc, _ := xlog.ParseLogEncoder(cfg.Format)
	writer := xlog.WithXLoggerStdErrWriter()
	if cfg.Output == "stdout" {
		writer = xlog.WithXLoggerStdOutWriter()
	}
	return xlog.NewXLogger(
		xlog.WithXLoggerLevel(xlog.ParseLogLevel(cfg.Level)),
		xlog.WithXLoggerEncoder(enc),
		writer,
	)
}

func setupApp(ctx context.Context, configPath string, out io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Logging)
	logger.Banner(banner{})

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Logf(zapcore.DebugLevel, format, args...)
	}))
	if err != nil {
		logger.Warn("unable to set GOMAXPROCS", zap.Error(err))
	}

	kind, err := observability.ParseExporterKind(cfg.Metrics.Exporter)
	if err != nil {
		return nil, err
	}
	metrics, err := observability.NewMetrics(kind,
		observability.WithConsoleInterval(cfg.Metrics.Interval, cfg.Metrics.Interval/2),
		observability.WithConsoleWriter(out),
	)
	if err != nil {
		return nil, err
	}
	if kind != observability.NoneExporter {
		if err := observability.InitAppStats(ctx, "cli", metrics); err != nil {
			return nil, multierr.Append(err, metrics.Shutdown(ctx))
		}
	}
	logger.Info("config loaded",
		zap.String("variant", cfg.Tree.Variant),
		zap.String("alloc", cfg.Tree.Alloc),
		zap.String("borrow", cfg.Tree.Borrow),
		zap.Bool("desc", cfg.Tree.Desc),
		zap.String("exporter", string(kind)),
	)
	return &app{cfg: cfg, logger: logger, metrics: metrics, undoMaxProc: undo}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := a.metrics.Shutdown(ctx); err != nil {
		a.logger.Error(err, "metrics shutdown")
	}
	if a.undoMaxProc != nil {
		a.undoMaxProc()
	}
	_ = a.logger.Sync()
}

// meterProviderOrNil is nil when metrics are off, so trees skip their stats.
func (a *app) meterProviderOrNil() metric.MeterProvider {
	if a.metrics.Kind == observability.NoneExporter {
		return nil
	}
	return a.metrics.MeterProvider
}

// serveMetrics exposes the prometheus handler until ctx is done.
func (a *app) serveMetrics(ctx context.Context) func() {
	if a.metrics.Handler == nil {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler)
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("serving metrics", zap.String("listen", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(err, "metrics server")
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	rootCmd := &cobra.Command{
		Use:   "xrbtree",
		Short: "Red-black tree drivers",
		Long: `xrbtree exercises the iterative and the recursive red-black trees.

Commands:
  demo      Fixed insert/erase scenario, every rule checked after each op
  soak      Randomized rounds on a worker pool against a reference set
  version   Build version`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./xrbtree.yaml)")

	rootCmd.AddCommand(newDemoCommand(&configPath))
	rootCmd.AddCommand(newSoakCommand(&configPath))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newDemoCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the fixed insert/erase scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setupApp(ctx, *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			t := driver.BuildTree(a.cfg.Tree, "demo", a.meterProviderOrNil())
			defer t.Release()
			report, err := driver.RunDemo(ctx, t, a.cfg.Demo.Inserts, a.cfg.Demo.Erases, a.logger.Named("demo"))
			if report != nil {
				report.Render(cmd.OutOrStdout())
			}
			return err
		},
	}
}

func newSoakCommand(configPath *string) *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "soak",
		Short: "Run randomized rounds and check every tree against a reference set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setupApp(ctx, *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("seed") {
				a.cfg.Soak.Seed = seed
			}

			stopServing := a.serveMetrics(ctx)
			defer stopServing()

			report, err := driver.RunSoak(ctx, a.cfg, a.meterProviderOrNil(), a.logger)
			if report != nil {
				report.Render(cmd.OutOrStdout())
			}
			return err
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "overrides soak.seed, 0 picks a random seed")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xrbtree %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
