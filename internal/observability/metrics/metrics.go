package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	flowInvocations metric.Int64Counter
	flowFailures    metric.Int64Counter
	flowDuration    metric.Float64Histogram
	invoicesCreated metric.Int64Counter
	statusChanges   metric.Int64Counter
	rateLimitDenied metric.Int64Counter
	skippedInvoices metric.Int64Counter
	jobRuns         metric.Int64Counter
	jobFailures     metric.Int64Counter
	jobDuration     metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down meter provider")
			return provider.Shutdown(ctx)
		},
	})
	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "invoicer"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.flowInvocations, err = meter.Int64Counter("invoicer_flow_invocations_total"); err != nil {
		return nil, err
	}
	if m.flowFailures, err = meter.Int64Counter("invoicer_flow_failures_total"); err != nil {
		return nil, err
	}
	if m.flowDuration, err = meter.Float64Histogram("invoicer_flow_duration_ms"); err != nil {
		return nil, err
	}
	if m.invoicesCreated, err = meter.Int64Counter("invoicer_invoices_created_total"); err != nil {
		return nil, err
	}
	if m.statusChanges, err = meter.Int64Counter("invoicer_invoice_status_changes_total"); err != nil {
		return nil, err
	}
	if m.rateLimitDenied, err = meter.Int64Counter("invoicer_rate_limit_denied_total"); err != nil {
		return nil, err
	}
	if m.skippedInvoices, err = meter.Int64Counter("invoicer_dashboard_skipped_invoices_total"); err != nil {
		return nil, err
	}
	if m.jobRuns, err = meter.Int64Counter("invoicer_scheduler_job_runs_total"); err != nil {
		return nil, err
	}
	if m.jobFailures, err = meter.Int64Counter("invoicer_scheduler_job_failures_total"); err != nil {
		return nil, err
	}
	if m.jobDuration, err = meter.Float64Histogram("invoicer_scheduler_job_duration_ms"); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordFlow counts one flow invocation and its outcome.
func (m *Metrics) RecordFlow(ctx context.Context, flow string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("flow", strings.TrimSpace(flow)))...)
	m.flowInvocations.Add(ctx, 1, attrs)
	m.flowDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.flowFailures.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) RecordInvoiceCreated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.invoicesCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("status", status))...))
}

func (m *Metrics) RecordStatusChange(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_status", from),
		attribute.String("status", to),
	)
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSkippedInvoices counts invoices left out of dashboard aggregation.
func (m *Metrics) RecordSkippedInvoices(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.skippedInvoices.Add(ctx, int64(count))
}

// RecordJob counts one scheduler job run. Timeouts are reported under
// reason "timeout".
func (m *Metrics) RecordJob(ctx context.Context, job string, duration time.Duration, err error, timedOut bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("job", strings.TrimSpace(job)))...)
	m.jobRuns.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err == nil {
		return
	}
	reason := "error"
	if timedOut {
		reason = "timeout"
	}
	m.jobFailures.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("job", strings.TrimSpace(job)),
		attribute.String("reason", reason),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"flow":        {},
	"status":      {},
	"from_status": {},
	"reason":      {},
	"job":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
