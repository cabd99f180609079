package driver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/benz9527/rbrange/lib/infra"
)

var ErrMaxAttemptsReached = errors.New("max attempts reached")

type Op uint8

const (
	OpInsert Op = iota + 1
	OpQuery
)

func (op Op) String() string {
	switch op {
	case OpInsert:
		return "k"
	case OpQuery:
		return "q"
	default:
	}
	return "unknown"
}

// Command is one parsed command of the stream.
// An insert only fills From.
type Command struct {
	Op   Op
	From int64
	To   int64
}

// CommandReader splits the input into whitespace separated tokens and
// parses the "k <int>" and "q <int> <int>" commands.
type CommandReader struct {
	scanner *bufio.Scanner
	opts    *options
}

func NewCommandReader(r io.Reader, opts ...Option) *CommandReader {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	return &CommandReader{
		scanner: scanner,
		opts:    newOptions(opts...),
	}
}

func (r *CommandReader) token() (string, bool) {
	if !r.scanner.Scan() {
		return "", false
	}
	return r.scanner.Text(), true
}

// number reads the next integer. Every malformed token is skipped with a
// warning, the MaxAttempts-th one fails the whole stream.
func (r *CommandReader) number(ctx context.Context, op Op) (int64, error) {
	for attempt := 1; ; attempt++ {
		tok, ok := r.token()
		if !ok {
			return 0, io.ErrUnexpectedEOF
		}
		num, err := strconv.ParseInt(tok, 10, 64)
		if err == nil {
			return num, nil
		}
		r.opts.stats.MalformedToken(ctx)
		if attempt >= r.opts.maxAttempts {
			return 0, infra.WrapErrorStackWithMessage(ErrMaxAttemptsReached,
				"max attempts("+strconv.Itoa(r.opts.maxAttempts)+") reached at token "+strconv.Quote(tok))
		}
		r.opts.logger.Warn("invalid number, try the next token",
			zap.String("cmd", op.String()),
			zap.String("token", tok),
			zap.Int("attempt", attempt),
		)
	}
}

// Next returns io.EOF once the input is exhausted. A command truncated by
// the end of input is dropped with a warning.
func (r *CommandReader) Next(ctx context.Context) (Command, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Command{}, err
		}
		tok, ok := r.token()
		if !ok {
			if err := r.scanner.Err(); err != nil {
				return Command{}, infra.WrapErrorStackWithMessage(err, "unable to read commands")
			}
			return Command{}, io.EOF
		}

		var cmd Command
		switch tok {
		case "k":
			cmd.Op = OpInsert
		case "q":
			cmd.Op = OpQuery
		default:
			r.opts.logger.Warn("unknown command, skipped", zap.String("token", tok))
			continue
		}

		var err error
		if cmd.From, err = r.number(ctx, cmd.Op); err == nil && cmd.Op == OpQuery {
			cmd.To, err = r.number(ctx, cmd.Op)
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if err = r.scanner.Err(); err != nil {
				return Command{}, infra.WrapErrorStackWithMessage(err, "unable to read commands")
			}
			r.opts.logger.Warn("incomplete command at the end of input, dropped", zap.String("cmd", cmd.Op.String()))
			return Command{}, io.EOF
		}
		if err != nil {
			return Command{}, err
		}
		return cmd, nil
	}
}
