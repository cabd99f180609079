package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/google/safeopen"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/rbrange/internal/workload"
	"github.com/benz9527/rbrange/lib/infra"
	"github.com/benz9527/rbrange/xlog"
)

const defaultOut = "tests/performanceTest.dat"

type genOptions struct {
	out       string
	commands  int64
	seed      uint64
	chunkSize int64
	workers   int
}

// The positional arguments "[out] [commands]" take precedence over the flags.
func (opts *genOptions) applyArgs(args []string) error {
	if len(args) >= 1 {
		opts.out = args[0]
	}
	if len(args) >= 2 {
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return infra.WrapErrorStackWithMessage(err, "invalid number of commands: "+args[1])
		}
		opts.commands = n
	}
	return nil
}

func generate(ctx context.Context, opts *genOptions, logger xlog.XLogger) (err error) {
	genOpts := []workload.GeneratorOption{
		workload.WithLogger(logger),
		workload.WithCommands(opts.commands),
		workload.WithChunkSize(opts.chunkSize),
		workload.WithPoolSize(opts.workers),
	}
	if opts.seed != 0 {
		genOpts = append(genOpts, workload.WithSeed(opts.seed))
	}
	g, err := workload.NewGenerator(genOpts...)
	if err != nil {
		return err
	}

	dir, name := filepath.Split(filepath.Clean(opts.out))
	if dir == "" {
		dir = "."
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return infra.WrapErrorStackWithMessage(err, "unable to create workload directory: "+dir)
	}
	f, err := safeopen.OpenFileBeneath(dir, name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "error opening file: "+opts.out)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err = g.Generate(ctx, f); err != nil {
		return err
	}
	logger.Info("workload generated",
		zap.String("out", opts.out),
		zap.Int64("commands", opts.commands),
		zap.Uint64("seed", g.Seed()),
	)
	return nil
}

func main() {
	fs := pflag.NewFlagSet("rbrange-gen", pflag.ExitOnError)
	opts := &genOptions{}
	var logLevel string
	fs.StringVarP(&opts.out, "out", "o", defaultOut, "the workload file to write")
	fs.Int64VarP(&opts.commands, "commands", "n", workload.DefaultCommands, "number of commands")
	fs.Uint64Var(&opts.seed, "seed", 0, "random seed, 0 picks one from the clock")
	fs.Int64Var(&opts.chunkSize, "chunk", 4096, "commands rendered per task")
	fs.IntVar(&opts.workers, "workers", 0, "worker pool size, 0 follows GOMAXPROCS")
	fs.StringVar(&logLevel, "log-level", xlog.LogLevelInfo.String(), "log level: debug, info, warn or error")
	_ = fs.Parse(os.Args[1:])

	lvl, ok := xlog.ParseLogLevel(logLevel)
	if !ok {
		_, _ = fmt.Fprintf(os.Stderr, "unknown log level: %s\n", logLevel)
		os.Exit(2)
	}
	if err := opts.applyArgs(fs.Args()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(2)
	}
	logger := xlog.NewXLogger(
		xlog.WithXLoggerLevel(lvl),
		xlog.WithXLoggerEncoder(xlog.PlainText),
		xlog.WithXLoggerWriter(xlog.StdErr),
	)

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Logf(zapcore.DebugLevel, format, args...)
	}))
	if err != nil {
		logger.Warn("unable to set GOMAXPROCS", zap.Error(err))
	}
	if opts.workers <= 0 {
		opts.workers = runtime.GOMAXPROCS(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = generate(ctx, opts, logger)
	stop()
	undo()
	if err != nil {
		logger.ErrorStack(err, "workload generation failed")
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
