package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/pitabwire/fluent"
	unitMilliseconds    = "ms"
)

//nolint:gochecknoglobals // OpenTelemetry attribute keys must be global for reuse
var (
	AttrMethodKey  = attribute.Key("fluent_method")
	AttrPackageKey = attribute.Key("fluent_package")
	AttrStatusKey  = attribute.Key("fluent_status")
)

//nolint:gochecknoglobals // histogram boundaries are shared by every view
var defaultMillisecondsBoundaries = []float64{
	0, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000,
}

type contextKey string

const startTimeContextKey contextKey = "spanStartTimeCtxKey"

type tracer struct {
	name           string
	tracer         trace.Tracer
	latencyMeasure metric.Float64Histogram
}

// NewTracer creates a tracer for a package. Spans go to the global tracer
// provider, so they are dropped until a Manager is initialised.
func NewTracer(name string, options ...trace.TracerOption) Tracer {
	return &tracer{
		name:           name,
		tracer:         otel.Tracer(instrumentationName, options...),
		latencyMeasure: LatencyMeasure(name),
	}
}

// Start creates and starts a new span. The caller must End it.
//
//nolint:spancheck // spans are returned to the caller for lifecycle management
func (t *tracer) Start(
	ctx context.Context,
	spanName string,
	options ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	options = append(options, trace.WithAttributes(
		AttrPackageKey.String(t.name),
		AttrMethodKey.String(spanName),
	))

	sCtx, span := t.tracer.Start(ctx, t.name+"/"+spanName, options...)
	return context.WithValue(sCtx, startTimeContextKey, time.Now()), span
}

// End completes a span, recording err when present, and measures latency.
func (t *tracer) End(ctx context.Context, span trace.Span, err error, options ...trace.SpanEndOption) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(options...)

	startTime, ok := ctx.Value(startTimeContextKey).(time.Time)
	if !ok {
		util.Log(ctx).Debug("span ended without a start time")
		return
	}

	t.latencyMeasure.Record(ctx,
		float64(time.Since(startTime).Milliseconds()),
		metric.WithAttributes(AttrStatusKey.String(ErrorCode(err))),
	)
}

func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	default:
		return "err"
	}
}

// LatencyMeasure returns the method latency histogram of a package.
func LatencyMeasure(pkg string) metric.Float64Histogram {
	meter := otel.Meter(instrumentationName, metric.WithInstrumentationAttributes(AttrPackageKey.String(pkg)))

	m, err := meter.Float64Histogram(
		pkg+"/latency",
		metric.WithDescription("Latency distribution of method calls"),
		metric.WithUnit(unitMilliseconds),
	)
	if err != nil {
		// only invalid instrument names fail here
		panic(fmt.Sprintf("latency measure for %q: %v", pkg, err))
	}
	return m
}

// Views buckets every latency histogram under the instrumentation scope.
func Views(scope string) []sdkmetric.View {
	return []sdkmetric.View{
		func(inst sdkmetric.Instrument) (sdkmetric.Stream, bool) {
			if inst.Kind != sdkmetric.InstrumentKindHistogram || inst.Scope.Name != scope {
				return sdkmetric.Stream{}, false
			}
			return sdkmetric.Stream{
				Name:        inst.Name,
				Description: inst.Description,
				Unit:        inst.Unit,
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: defaultMillisecondsBoundaries},
			}, true
		},
	}
}
