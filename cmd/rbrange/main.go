package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"

	"github.com/benz9527/rbrange/internal/config"
	"github.com/benz9527/rbrange/internal/driver"
	"github.com/benz9527/rbrange/lib/tree"
	"github.com/benz9527/rbrange/observability"
	"github.com/benz9527/rbrange/xlog"
)

const appName = "rbrange"

func newLogger(lc fx.Lifecycle, cfg *config.Config) xlog.XLogger {
	logger := cfg.Logger()
	lc.Append(fx.StopHook(func() {
		// Syncing the stderr returns EINVAL on some platforms.
		_ = logger.Sync()
	}))
	return logger
}

func newTree(cfg *config.Config) tree.RBTree[int64] {
	opts := make([]tree.RBTreeOpt[int64], 0, 2)
	if cfg.Tree.Desc {
		opts = append(opts, tree.WithRBTreeDesc[int64]())
	}
	if cfg.Tree.EraseRebalance {
		opts = append(opts, tree.WithRBTreeEraseRebalance[int64]())
	}
	return tree.NewRBTree[int64](opts...)
}

func newTreeStats(lc fx.Lifecycle, cfg *config.Config, rbtree tree.RBTree[int64]) (*observability.TreeStats, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	shutdown, err := observability.NewConsoleMetricsExporter(
		cfg.Metrics.Interval,
		cfg.Metrics.Interval,
		stdoutmetric.WithWriter(os.Stderr),
	)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(shutdown))
	if err = observability.StartRuntimeStats(appName); err != nil {
		return nil, err
	}
	return observability.NewTreeStats(observability.TreeMeter(appName), rbtree.Len), nil
}

func newSession(
	cfg *config.Config,
	rbtree tree.RBTree[int64],
	stats *observability.TreeStats,
	logger xlog.XLogger,
) *driver.Session {
	return driver.NewSession(rbtree,
		driver.WithLogger(logger),
		driver.WithStats(stats),
		driver.WithMaxAttempts(cfg.Driver.MaxAttempts),
	)
}

func run(args []string) int {
	fs := pflag.NewFlagSet(appName, pflag.ExitOnError)
	flags := config.RegisterFlags(fs)
	_ = fs.Parse(args)
	cfg, err := flags.Resolve()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		return 2
	}

	var session *driver.Session
	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(newLogger, newTree, newTreeStats, newSession),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Populate(&session),
		fx.StartTimeout(5*time.Second),
		fx.StopTimeout(5*time.Second),
	)
	if err = app.Err(); err != nil {
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err = app.Start(ctx); err != nil {
		return 1
	}
	runErr := session.Run(ctx, os.Stdin, os.Stdout)

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err = multierr.Combine(runErr, app.Stop(stopCtx)); err != nil {
		return 1
	}
	return 0
}

// Reads the "k <int>" and "q <int> <int>" commands from stdin and prints
// the range query results to stdout.
func main() {
	os.Exit(run(os.Args[1:]))
}
