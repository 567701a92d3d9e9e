package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	traceSDK "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

const (
	// Namespace groups every checkout component under one service.namespace
	Namespace = "checkout"

	exportInterval  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Config describes how a checkout component reports traces and metrics
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SampleRatio is the share of root traces kept. Zero or anything at or
	// above one keeps every trace.
	SampleRatio float64
	// OTLPEndpoint is optional; without it only the Prometheus reader is installed.
	OTLPEndpoint string
}

func (c Config) sampler() traceSDK.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return traceSDK.ParentBased(traceSDK.AlwaysSample())
	}
	return traceSDK.ParentBased(traceSDK.TraceIDRatioBased(c.SampleRatio))
}

func (c Config) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(c.ServiceName),
		semconv.ServiceVersionKey.String(c.ServiceVersion),
		semconv.ServiceNamespaceKey.String(Namespace),
	}
	if c.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(c.Environment))
	}
	return attrs
}

// Telemetry is the tracer and meter of one service plus the instruments it
// has handed out so far. Saga and HTTP metrics are recorded on every request,
// so instruments are created once per name.
type Telemetry struct {
	config Config
	tracer trace.Tracer
	meter  metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewTelemetry binds to whatever global providers are installed
func NewTelemetry(config Config) *Telemetry {
	return newTelemetry(config, otel.Tracer(config.ServiceName), otel.Meter(config.ServiceName))
}

func newTelemetry(config Config, tracer trace.Tracer, meter metric.Meter) *Telemetry {
	return &Telemetry{
		config:     config,
		tracer:     tracer,
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// InitTelemetry installs the global trace and metric providers. Metrics are
// always exposed to Prometheus and also pushed over OTLP when an endpoint is
// set. The returned func flushes and stops both providers.
func InitTelemetry(ctx context.Context, config Config) (*Telemetry, func(), error) {
	res, err := resource.New(ctx, resource.WithAttributes(config.attributes()...))
	if err != nil {
		return nil, nil, err
	}

	tracerProvider, err := newTracerProvider(ctx, res, config)
	if err != nil {
		return nil, nil, err
	}
	meterProvider, err := newMeterProvider(ctx, res, config)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, nil, err
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := multierr.Combine(tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx)); err != nil {
			otel.Handle(err)
		}
	}

	return NewTelemetry(config), shutdown, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, config Config) (*traceSDK.TracerProvider, error) {
	opts := []traceSDK.TracerProviderOption{
		traceSDK.WithResource(res),
		traceSDK.WithSampler(config.sampler()),
	}
	if config.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(config.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, traceSDK.WithBatcher(exporter))
	}
	return traceSDK.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, config Config) (*metricSDK.MeterProvider, error) {
	scrape, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	opts := []metricSDK.Option{
		metricSDK.WithResource(res),
		metricSDK.WithReader(scrape),
	}
	if config.OTLPEndpoint != "" {
		exporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(config.OTLPEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, metricSDK.WithReader(
			metricSDK.NewPeriodicReader(exporter, metricSDK.WithInterval(exportInterval)),
		))
	}
	return metricSDK.NewMeterProvider(opts...), nil
}

// ServiceName is the name spans and metrics are reported under
func (t *Telemetry) ServiceName() string {
	return t.config.ServiceName
}

func (t *Telemetry) counter(name, description string) (metric.Int64Counter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if counter, ok := t.counters[name]; ok {
		return counter, nil
	}
	counter, err := t.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	t.counters[name] = counter
	return counter, nil
}

func (t *Telemetry) histogram(name, description string) (metric.Float64Histogram, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if histogram, ok := t.histograms[name]; ok {
		return histogram, nil
	}
	histogram, err := t.meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	t.histograms[name] = histogram
	return histogram, nil
}

type contextKey struct{}

// WithTelemetry stores tel on the context for the request's lifetime
func WithTelemetry(ctx context.Context, tel *Telemetry) context.Context {
	return context.WithValue(ctx, contextKey{}, tel)
}

// FromContext returns the request's telemetry, or nil outside a request
func FromContext(ctx context.Context) *Telemetry {
	tel, _ := ctx.Value(contextKey{}).(*Telemetry)
	return tel
}

var (
	detachedOnce sync.Once
	detached     *Telemetry
)

// current falls back to a global-provider instance for work that runs
// outside an HTTP request, such as queue consumers and tests.
func current(ctx context.Context) *Telemetry {
	if tel := FromContext(ctx); tel != nil {
		return tel
	}
	detachedOnce.Do(func() {
		detached = NewTelemetry(Config{ServiceName: Namespace})
	})
	return detached
}

// StartSpan starts a span on the context's tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return current(ctx).tracer.Start(ctx, name, opts...)
}

// RecordCounter adds value to the named counter, tagged with the service name
func RecordCounter(ctx context.Context, name, description string, value int64, attrs ...attribute.KeyValue) {
	tel := current(ctx)
	counter, err := tel.counter(name, description)
	if err != nil {
		otel.Handle(err)
		return
	}
	attrs = append(attrs, attribute.String("service", tel.ServiceName()))
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// RecordHistogram records a duration in seconds, tagged with the service name
func RecordHistogram(ctx context.Context, name, description string, value float64, attrs ...attribute.KeyValue) {
	tel := current(ctx)
	histogram, err := tel.histogram(name, description)
	if err != nil {
		otel.Handle(err)
		return
	}
	attrs = append(attrs, attribute.String("service", tel.ServiceName()))
	histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}
