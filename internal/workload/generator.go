package workload

import (
	"bufio"
	"context"
	"errors"
	"io"
	randv2 "math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/rbrange/lib/infra"
	"github.com/benz9527/rbrange/xlog"
)

const (
	DefaultCommands  = 100000
	defaultChunkSize = 4096
	defaultPoolSize  = 8
	minCommands      = 4
)

var ErrChunkLost = errors.New("workload chunk lost")

type generatorOpts struct {
	commands  int64
	seed      uint64
	chunkSize int64
	poolSize  int
	logger    xlog.XLogger
}

type GeneratorOption func(*generatorOpts) error

func WithCommands(n int64) GeneratorOption {
	return func(opts *generatorOpts) error {
		if n < minCommands {
			return infra.NewErrorStack("at least " + strconv.Itoa(minCommands) + " commands are required")
		}
		opts.commands = n
		return nil
	}
}

func WithSeed(seed uint64) GeneratorOption {
	return func(opts *generatorOpts) error {
		opts.seed = seed
		return nil
	}
}

func WithChunkSize(size int64) GeneratorOption {
	return func(opts *generatorOpts) error {
		if size <= 0 {
			return infra.NewErrorStack("chunk size must be positive")
		}
		opts.chunkSize = size
		return nil
	}
}

func WithPoolSize(size int) GeneratorOption {
	return func(opts *generatorOpts) error {
		if size <= 0 {
			return infra.NewErrorStack("pool size must be positive")
		}
		opts.poolSize = size
		return nil
	}
}

func WithLogger(logger xlog.XLogger) GeneratorOption {
	return func(opts *generatorOpts) error {
		if logger == nil {
			return infra.NewErrorStack("nil logger")
		}
		opts.logger = logger
		return nil
	}
}

// Generator writes a random command stream. Half of the commands are
// inserts "k v1", the others are queries "q v1 v2", v1 is picked from
// [1, n/2-1] and v2 from [n/2, n].
type Generator struct {
	opts *generatorOpts
}

func NewGenerator(opts ...GeneratorOption) (*Generator, error) {
	o := &generatorOpts{
		commands:  DefaultCommands,
		seed:      uint64(time.Now().UnixNano()),
		chunkSize: defaultChunkSize,
		poolSize:  defaultPoolSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.logger == nil {
		o.logger = xlog.NewXLogger(xlog.WithXLoggerWriter(xlog.StdErr), xlog.WithXLoggerLevel(xlog.LogLevelInfo))
	}
	return &Generator{opts: o}, nil
}

func (g *Generator) Seed() uint64 {
	return g.opts.seed
}

// chunk renders the commands [from, to). Every chunk owns its source, so
// the output of a seed never depends on the scheduling.
func (g *Generator) chunk(idx, from, to int64) []byte {
	n := g.opts.commands
	rng := randv2.New(randv2.NewPCG(g.opts.seed, uint64(idx)))
	buf := make([]byte, 0, (to-from)*16)
	for i := from; i < to; i++ {
		v1 := 1 + rng.Int64N(n/2-1)
		if rng.IntN(2) == 0 {
			buf = append(buf, 'k', ' ')
			buf = strconv.AppendInt(buf, v1, 10)
		} else {
			v2 := n/2 + rng.Int64N(n-n/2+1)
			buf = append(buf, 'q', ' ')
			buf = strconv.AppendInt(buf, v1, 10)
			buf = append(buf, ' ')
			buf = strconv.AppendInt(buf, v2, 10)
		}
		buf = append(buf, ' ')
	}
	return buf
}

// Generate renders the chunks on an ants pool. A window of pool size
// chunks is rendered concurrently then written in order.
func (g *Generator) Generate(ctx context.Context, w io.Writer) (err error) {
	pool, err := ants.NewPool(g.opts.poolSize,
		ants.WithPreAlloc(true),
		ants.WithLogger(xlog.NewAntsXLogger(g.opts.logger)),
	)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "unable to create workload pool")
	}
	bw := bufio.NewWriter(w)
	defer func() {
		if err == nil {
			err = bw.Flush()
		}
		err = multierr.Append(err, pool.ReleaseTimeout(time.Second))
	}()

	var (
		total   = g.opts.commands
		size    = g.opts.chunkSize
		chunks  = (total + size - 1) / size
		window  = int64(g.opts.poolSize)
		results = make([][]byte, window)
	)
	g.opts.logger.Info("generating workload",
		zap.Int64("commands", total),
		zap.Int64("chunks", chunks),
		zap.Uint64("seed", g.opts.seed),
	)
	for base := int64(0); base < chunks; base += window {
		if err = ctx.Err(); err != nil {
			return err
		}
		batch := lo.Range(int(min(window, chunks-base)))
		clear(results)

		wg := sync.WaitGroup{}
		for _, offset := range batch {
			idx := base + int64(offset)
			slot := offset
			wg.Add(1)
			if err = pool.Submit(func() {
				defer wg.Done()
				from := idx * size
				results[slot] = g.chunk(idx, from, min(from+size, total))
			}); err != nil {
				wg.Done()
				wg.Wait()
				return infra.WrapErrorStackWithMessage(err, "unable to submit workload chunk")
			}
		}
		wg.Wait()

		for _, offset := range batch {
			if results[offset] == nil {
				return infra.WrapErrorStackWithMessage(ErrChunkLost, "chunk "+strconv.FormatInt(base+int64(offset), 10))
			}
			if _, err = bw.Write(results[offset]); err != nil {
				return infra.WrapErrorStackWithMessage(err, "unable to write workload")
			}
		}
	}
	return nil
}
