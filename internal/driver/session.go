package driver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/benz9527/rbrange/lib/tree"
)

// Session applies a command stream to a tree.
type Session struct {
	tree tree.RBTree[int64]
	opts []Option
}

func NewSession(t tree.RBTree[int64], opts ...Option) *Session {
	return &Session{
		tree: t,
		opts: opts,
	}
}

// Apply consumes the whole input and returns the range query results in
// the command order.
func (s *Session) Apply(ctx context.Context, in io.Reader) ([]int64, error) {
	reader := NewCommandReader(in, s.opts...)
	o := reader.opts

	results := make([]int64, 0, 64)
	for {
		cmd, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			o.logger.ErrorStack(err, "command stream aborted")
			return nil, err
		}

		switch cmd.Op {
		case OpInsert:
			if err = s.tree.Insert(cmd.From); err != nil {
				o.logger.ErrorStack(err, "insert failed", zap.Int64("key", cmd.From))
				return nil, err
			}
			o.stats.Inserted(ctx)
		case OpQuery:
			if o.insertOnly {
				continue
			}
			results = append(results, s.tree.RangeQuery(cmd.From, cmd.To))
			o.stats.Queried(ctx)
		default:
		}
	}
	o.logger.Debug("command stream applied",
		zap.Int64("size", s.tree.Len()),
		zap.Int("queries", len(results)),
	)
	return results, nil
}

// Run applies the input and prints the results space separated with a
// trailing newline.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	results, err := s.Apply(ctx, in)
	if err != nil {
		return err
	}
	return WriteResults(out, results)
}

func WriteResults(out io.Writer, results []int64) (err error) {
	bw := bufio.NewWriter(out)
	defer func() {
		if ferr := bw.Flush(); err == nil {
			err = ferr
		}
	}()

	buf := make([]byte, 0, 24)
	for i, res := range results {
		buf = buf[:0]
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, res, 10)
		if _, err = bw.Write(buf); err != nil {
			return err
		}
	}
	_, err = bw.WriteString("\n")
	return err
}
