package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/rbrange/xlog"
)

func TestGenOptions_ApplyArgs(t *testing.T) {
	opts := &genOptions{out: defaultOut, commands: 10}
	require.NoError(t, opts.applyArgs(nil))
	require.Equal(t, defaultOut, opts.out)

	require.NoError(t, opts.applyArgs([]string{"perf.dat", "500"}))
	require.Equal(t, "perf.dat", opts.out)
	require.Equal(t, int64(500), opts.commands)

	require.Error(t, opts.applyArgs([]string{"perf.dat", "many"}))
}

func TestGenerate(t *testing.T) {
	logger := xlog.NewXLogger(
		xlog.WithXLoggerLevel(xlog.LogLevelError),
		xlog.WithXLoggerWriteSyncer(zapcore.AddSync(io.Discard)),
	)
	opts := &genOptions{
		out:       filepath.Join(t.TempDir(), "tests", "performanceTest.dat"),
		commands:  1000,
		seed:      99,
		chunkSize: 64,
		workers:   4,
	}
	require.NoError(t, generate(context.Background(), opts, logger))

	data, err := os.ReadFile(opts.out)
	require.NoError(t, err)
	fields := strings.Fields(string(data))
	commands := 0
	for _, f := range fields {
		if f == "k" || f == "q" {
			commands++
		}
	}
	require.Equal(t, 1000, commands)

	opts.commands = 2
	require.Error(t, generate(context.Background(), opts, logger))
}
