package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/safeopen"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/rbrange/internal/config"
	"github.com/benz9527/rbrange/internal/driver"
	"github.com/benz9527/rbrange/lib/infra"
	"github.com/benz9527/rbrange/lib/tree"
	"github.com/benz9527/rbrange/xlog"
)

const defaultOut = "graphviz/tree.dot"

type dotOptions struct {
	out      string
	validate bool
	cfg      *config.Config
}

func validate(rbtree tree.RBTree[int64]) error {
	return multierr.Combine(
		tree.RedViolationValidate[int64](rbtree),
		tree.BlackViolationValidate[int64](rbtree),
		tree.OrderViolationValidate[int64](rbtree),
		tree.LinkViolationValidate[int64](rbtree),
	)
}

func writeDot(rbtree tree.RBTree[int64], out string) (err error) {
	dir, name := filepath.Split(filepath.Clean(out))
	if dir == "" {
		dir = "."
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return infra.WrapErrorStackWithMessage(err, "unable to create dot directory: "+dir)
	}
	f, err := safeopen.OpenFileBeneath(dir, name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "unable to create dot file: "+out)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return rbtree.Export(f)
}

// dot applies the inserts of the stream then exports the tree.
func dot(ctx context.Context, opts *dotOptions, in io.Reader, logger xlog.XLogger) error {
	treeOpts := make([]tree.RBTreeOpt[int64], 0, 1)
	if opts.cfg.Tree.Desc {
		treeOpts = append(treeOpts, tree.WithRBTreeDesc[int64]())
	}
	rbtree := tree.NewRBTree[int64](treeOpts...)

	session := driver.NewSession(rbtree,
		driver.WithLogger(logger),
		driver.WithMaxAttempts(opts.cfg.Driver.MaxAttempts),
		driver.WithInsertOnly(),
	)
	if _, err := session.Apply(ctx, in); err != nil {
		return err
	}
	if opts.validate {
		if err := validate(rbtree); err != nil {
			logger.Error(err, "tree violates the red black rules")
			return err
		}
	}
	if err := writeDot(rbtree, opts.out); err != nil {
		logger.ErrorStack(err, "export failed")
		return err
	}
	logger.Info("tree exported", zap.String("out", opts.out), zap.Int64("size", rbtree.Len()))
	return nil
}

func main() {
	fs := pflag.NewFlagSet("rbrange-dot", pflag.ExitOnError)
	flags := config.RegisterFlags(fs)
	opts := &dotOptions{}
	fs.StringVarP(&opts.out, "out", "o", defaultOut, "the dot file to write")
	fs.BoolVar(&opts.validate, "validate", false, "fail if the tree violates any red black rule")
	_ = fs.Parse(os.Args[1:])

	cfg, err := flags.Resolve()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(2)
	}
	opts.cfg = cfg
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = dot(ctx, opts, os.Stdin, logger)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
