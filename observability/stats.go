package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterNamePrefix = "rbrange/app"

var (
	once sync.Once
)

func meterName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString(meterNamePrefix)
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// TreeStats records the command stream applied to a tree. A nil
// *TreeStats records nothing.
type TreeStats struct {
	inserts   metric.Int64Counter
	queries   metric.Int64Counter
	malformed metric.Int64Counter
	size      metric.Int64ObservableGauge
}

func NewTreeStats(meter metric.Meter, sizeFn func() int64) *TreeStats {
	return &TreeStats{
		inserts: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbrange.tree.inserts",
			metric.WithDescription(`The applied insert commands.`),
		)),
		queries: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbrange.tree.queries",
			metric.WithDescription(`The applied range query commands.`),
		)),
		malformed: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbrange.tree.malformed_tokens",
			metric.WithDescription(`The tokens rejected while parsing a number.`),
		)),
		size: lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
			"rbrange.tree.size",
			metric.WithDescription(`The number of keys held by the tree.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				if sizeFn != nil {
					ob.Observe(sizeFn())
				}
				return nil
			}),
		)),
	}
}

func (stats *TreeStats) Inserted(ctx context.Context) {
	if stats == nil {
		return
	}
	stats.inserts.Add(ctx, 1)
}

func (stats *TreeStats) Queried(ctx context.Context) {
	if stats == nil {
		return
	}
	stats.queries.Add(ctx, 1)
}

func (stats *TreeStats) MalformedToken(ctx context.Context) {
	if stats == nil {
		return
	}
	stats.malformed.Add(ctx, 1)
}

// StartRuntimeStats registers the goroutines and processes gauges and
// starts the otel runtime instrumentation on the global meter provider.
// Only the first call takes effect.
func StartRuntimeStats(name string) error {
	var err error
	once.Do(func() {
		meter := otel.Meter(
			meterName(name),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		_ = lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.goroutines",
			metric.WithDescription(`The application goroutines' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(int64(runtime.NumGoroutine()))
				return nil
			}),
		))
		_ = lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.processes",
			metric.WithDescription(`The application processes' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(int64(runtime.GOMAXPROCS(0)))
				return nil
			}),
		))
		err = otelruntime.Start()
	})
	return err
}

// TreeMeter returns the named meter of the global provider.
func TreeMeter(name string) metric.Meter {
	return otel.Meter(meterName(name))
}
