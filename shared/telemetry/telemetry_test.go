package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestGetStatusClass(t *testing.T) {
	assert.Equal(t, "1xx", getStatusClass(101))
	assert.Equal(t, "2xx", getStatusClass(201))
	assert.Equal(t, "3xx", getStatusClass(302))
	assert.Equal(t, "4xx", getStatusClass(409))
	assert.Equal(t, "5xx", getStatusClass(502))
	assert.Equal(t, "unknown", getStatusClass(0))
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Equal(t, Namespace, current(context.Background()).ServiceName())

	tel := NewTelemetry(CheckoutServiceConfig)
	ctx := WithTelemetry(context.Background(), tel)
	assert.Same(t, tel, FromContext(ctx))
	assert.Same(t, tel, current(ctx))
	assert.Equal(t, "checkout-service", tel.ServiceName())
}

func TestConfigBuilders(t *testing.T) {
	cfg := CheckoutServiceConfig.
		WithServiceName("checkout-eu").
		WithEnvironment("staging").
		WithSampleRatio(0.25).
		WithOTLPEndpoint("otel:4318")

	assert.Equal(t, "checkout-eu", cfg.ServiceName)
	assert.Equal(t, "otel:4318", cfg.OTLPEndpoint)
	assert.Equal(t, "checkout-service", CheckoutServiceConfig.WithServiceName("").ServiceName)
	assert.Contains(t, cfg.attributes(), attribute.String("service.namespace", Namespace))
	assert.Contains(t, cfg.attributes(), attribute.String("deployment.environment", "staging"))
	assert.Len(t, CheckoutServiceConfig.attributes(), 3)
}

func TestConfig_Sampler(t *testing.T) {
	assert.Contains(t, CheckoutServiceConfig.sampler().Description(), "AlwaysOnSampler")
	assert.Contains(t, CheckoutServiceConfig.WithSampleRatio(1.5).sampler().Description(), "AlwaysOnSampler")
	assert.Contains(t, CheckoutServiceConfig.WithSampleRatio(0.25).sampler().Description(), "TraceIDRatioBased{0.25}")
}

func TestRecordCounter_ReusesInstruments(t *testing.T) {
	reader := metricSDK.NewManualReader()
	provider := metricSDK.NewMeterProvider(metricSDK.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tel := newTelemetry(CheckoutServiceConfig, noop.NewTracerProvider().Tracer("test"), provider.Meter("test"))
	ctx := WithTelemetry(context.Background(), tel)

	RecordCounter(ctx, "checkout_saga_total", "Checkout sagas", 1, attribute.String("status", "completed"))
	RecordCounter(ctx, "checkout_saga_total", "Checkout sagas", 2, attribute.String("status", "completed"))
	RecordHistogram(ctx, "checkout_saga_duration_seconds", "Checkout saga duration", 0.5)
	assert.Len(t, tel.counters, 1)
	assert.Len(t, tel.histograms, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "checkout_saga_total" {
			continue
		}
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(3), sum.DataPoints[0].Value)
		service, _ := sum.DataPoints[0].Attributes.Value("service")
		assert.Equal(t, "checkout-service", service.AsString())
		return
	}
	t.Fatal("checkout_saga_total was not exported")
}

func TestMiddleware_CapturesStatusAndRoute(t *testing.T) {
	tel := NewTelemetry(CheckoutServiceConfig)

	var seen *Telemetry
	r := chi.NewRouter()
	r.Use(Middleware(tel))
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		assert.Equal(t, "/orders/{id}", routePattern(r))
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Same(t, tel, seen)
}
