package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/recommend"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics holds the application instruments
type Metrics struct {
	// AI skill extraction
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business
	Recommendations metric.Int64Counter
	NoResults       metric.Int64Counter
	ResumesScored   metric.Int64Counter
	MatchScore      metric.Int64Histogram

	// Infrastructure
	DatasetReloads  metric.Int64Counter
	DatasetRows     metric.Int64Gauge
	CertReloadCount metric.Int64Counter
	RateLimitHits   metric.Int64Counter
}

// ObservabilityManager owns the tracer and meter providers. A nil manager
// or one built with observability disabled records nothing.
type ObservabilityManager struct {
	config         ObservabilityConfig
	fullConfig     *config.Config
	resource       *resource.Resource
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	logger         *errors.Logger
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager creates a new observability manager
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config, logger *errors.Logger) (*ObservabilityManager, error) {
	return newManager(obsConfig, fullConfig, logger)
}

// newManager accepts extra metric readers; tests pass a manual reader.
func newManager(obsConfig ObservabilityConfig, fullConfig *config.Config, logger *errors.Logger, extraReaders ...sdkmetric.Reader) (*ObservabilityManager, error) {
	om := &ObservabilityManager{config: obsConfig, fullConfig: fullConfig, logger: logger}
	if !obsConfig.Enabled {
		return om, nil
	}

	if err := om.initResource(); err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}
	if err := om.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := om.initMetrics(extraReaders); err != nil {
		_ = om.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return om, nil
}

// initResource builds the resource shared by traces and metrics
func (om *ObservabilityManager) initResource() error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			semconv.ServiceInstanceID(om.getServiceInstanceID()),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	om.resource = res
	return nil
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled:
		exporter, err = om.createOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(om.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics(extraReaders []sdkmetric.Reader) error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}
	readers = append(readers, extraReaders...)
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(om.resource)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return om.initCustomMetrics()
}

// setupMetricReaders builds the console, OTLP and Prometheus readers that
// are enabled
func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.getMetricsCollectionInterval())))
	}

	if om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled {
		reader, err := om.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if om.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if reader != nil {
			readers = append(readers, reader)
			om.shutdownFuncs = append(om.shutdownFuncs, StartPrometheusServer(mux, om.config.Prometheus.Port, om.logger))
		}
	}

	return readers, nil
}

type instrumentDef struct {
	name, description, unit string
}

// initCustomMetrics creates all application instruments
func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	m := &Metrics{}
	var err error

	counters := []struct {
		target *metric.Int64Counter
		def    instrumentDef
	}{
		{&m.AIRequestCount, instrumentDef{"careermatch_ai_requests_total", "Total number of AI skill extraction requests", ""}},
		{&m.AIErrorCount, instrumentDef{"careermatch_ai_errors_total", "Total number of failed AI skill extraction requests", ""}},
		{&m.Recommendations, instrumentDef{"careermatch_recommendations_total", "Recommendations served", ""}},
		{&m.NoResults, instrumentDef{"careermatch_recommendations_empty_total", "Recommendations that found no eligible company", ""}},
		{&m.ResumesScored, instrumentDef{"careermatch_resumes_scored_total", "Resumes scored against a role or skill list", ""}},
		{&m.DatasetReloads, instrumentDef{"careermatch_dataset_reloads_total", "Dataset reload attempts", ""}},
		{&m.CertReloadCount, instrumentDef{"careermatch_cert_reloads_total", "Total number of certificate reloads", ""}},
		{&m.RateLimitHits, instrumentDef{"careermatch_rate_limit_hits_total", "Total number of rate limit hits", ""}},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.def.name, metric.WithDescription(c.def.description))
		if err != nil {
			return fmt.Errorf("failed to create %s metric: %w", c.def.name, err)
		}
	}

	m.AIProcessingTime, err = meter.Float64Histogram(
		"careermatch_ai_processing_duration_seconds",
		metric.WithDescription("Time spent in AI skill extraction"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		"careermatch_ai_token_usage",
		metric.WithDescription("Token usage for AI requests by token_type"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	m.MatchScore, err = meter.Int64Histogram(
		"careermatch_match_score_percent",
		metric.WithDescription("Aggregate skill readiness per request"),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(0, 20, 40, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create match score metric: %w", err)
	}

	m.DatasetRows, err = meter.Int64Gauge(
		"careermatch_dataset_rows",
		metric.WithDescription("Rows in the live dataset snapshot"),
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset rows metric: %w", err)
	}

	om.metrics = m
	return nil
}

// GetMetrics returns the metrics instance, or nil when disabled
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil {
		return nil
	}
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if om == nil || !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if om == nil || !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown flushes and stops every exporter. All shutdowns run; the first
// error is returned.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}
	var firstErr error
	for i := len(om.shutdownFuncs) - 1; i >= 0; i-- {
		if err := om.shutdownFuncs[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	om.shutdownFuncs = nil
	return firstErr
}

func (om *ObservabilityManager) customMetrics() config.CustomMetricsConfig {
	if om.fullConfig == nil {
		return config.CustomMetricsConfig{
			AIOperations:   config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
			Business:       config.BusinessMetricsConfig{Enabled: true, TrackMatchScores: true},
			Infrastructure: config.InfrastructureMetricsConfig{TrackRateLimits: true, TrackReloads: true},
		}
	}
	return om.fullConfig.Observability.CustomMetrics
}

// RecordAIOperation records one AI extraction round trip.
func (om *ObservabilityManager) RecordAIOperation(ctx context.Context, operation string, duration time.Duration, inputTokens, outputTokens int64, err error) {
	m := om.GetMetrics()
	if m == nil {
		return
	}
	cm := om.customMetrics().AIOperations
	if !cm.Enabled {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if cm.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if cm.TrackTokenUsage && (inputTokens > 0 || outputTokens > 0) {
		tokenTypes := []struct {
			name  string
			value int64
		}{
			{"input", inputTokens},
			{"output", outputTokens},
			{"total", inputTokens + outputTokens},
		}
		for _, tt := range tokenTypes {
			m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("token_type", tt.name),
			))
		}
	}
}

// RecordRecommendation counts a served recommendation and its readiness.
func (om *ObservabilityManager) RecordRecommendation(ctx context.Context, res *recommend.Result, source string) {
	m := om.GetMetrics()
	if m == nil || res == nil {
		return
	}
	cm := om.customMetrics().Business
	if !cm.Enabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("mode", string(res.Mode)),
		attribute.String("status", string(res.Status)),
	)
	m.Recommendations.Add(ctx, 1, attrs)
	if res.Status == recommend.StatusNoResults {
		m.NoResults.Add(ctx, 1, attrs)
	}
	if cm.TrackMatchScores {
		m.MatchScore.Record(ctx, int64(res.Aggregate.Percent), metric.WithAttributes(attribute.String("kind", "recommend")))
	}
}

// RecordScore counts a resume scoring request.
func (om *ObservabilityManager) RecordScore(ctx context.Context, res *recommend.ScoreResult, source string) {
	m := om.GetMetrics()
	if m == nil || res == nil {
		return
	}
	cm := om.customMetrics().Business
	if !cm.Enabled {
		return
	}
	m.ResumesScored.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("detector", res.Detector),
	))
	if cm.TrackMatchScores {
		m.MatchScore.Record(ctx, int64(res.Match.Percent), metric.WithAttributes(attribute.String("kind", "score")))
	}
}

// RecordReload counts a dataset reload and updates the row gauge on success.
func (om *ObservabilityManager) RecordReload(ctx context.Context, rows int, err error) {
	m := om.GetMetrics()
	if m == nil || !om.customMetrics().Infrastructure.TrackReloads {
		return
	}
	m.DatasetReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
	if err == nil {
		m.DatasetRows.Record(ctx, int64(rows))
	}
}

// RecordDatasetRows sets the row gauge, typically once at startup.
func (om *ObservabilityManager) RecordDatasetRows(ctx context.Context, rows int) {
	if m := om.GetMetrics(); m != nil {
		m.DatasetRows.Record(ctx, int64(rows))
	}
}

// RecordCertReload counts a TLS certificate reload attempt.
func (om *ObservabilityManager) RecordCertReload(ctx context.Context, err error) {
	m := om.GetMetrics()
	if m == nil || !om.customMetrics().Infrastructure.TrackReloads {
		return
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

// RecordRateLimitHit counts a rejected request. keyType is "ip" or "api_key".
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, keyType string) {
	m := om.GetMetrics()
	if m == nil || !om.customMetrics().Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}

type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (n *noOpSpanExporter) Shutdown(context.Context) error                          { return nil }

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlpConfig.Endpoint)}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint)}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.getMetricsCollectionInterval())), nil
}

func (om *ObservabilityManager) getServiceInstanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return om.config.ServiceName + "-1"
}

func (om *ObservabilityManager) getMetricsCollectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}
