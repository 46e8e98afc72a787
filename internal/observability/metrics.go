package observability

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector manages all metrics for gisco
type MetricsCollector struct {
	meter metric.Meter

	// Widget metrics
	widgetAttaches      metric.Int64Counter
	widgetConfigUpdates metric.Int64Counter
	widgetSignals       metric.Int64Counter
	widgetErrors        metric.Int64Counter

	// Relay metrics
	relayConnections metric.Int64UpDownCounter
	relayCalls       metric.Int64Counter
	relayCallLatency metric.Float64Histogram

	// Preview metrics
	previewRequests metric.Int64Counter

	// Server for Prometheus scraping
	prometheusServer *http.Server
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port" mapstructure:"prometheus_port"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	// Create Prometheus exporter
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	// Create meter provider
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("gisco")

	widgetAttaches, err := meter.Int64Counter(
		"gisco.widget.attaches.total",
		metric.WithDescription("Total number of widget frame attachments"),
		metric.WithUnit("{attach}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create widget_attaches counter: %w", err)
	}

	widgetConfigUpdates, err := meter.Int64Counter(
		"gisco.widget.config_updates.total",
		metric.WithDescription("Total number of configuration updates posted to live frames"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create widget_config_updates counter: %w", err)
	}

	widgetSignals, err := meter.Int64Counter(
		"gisco.widget.signals.total",
		metric.WithDescription("Total number of inbound widget signals by kind"),
		metric.WithUnit("{signal}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create widget_signals counter: %w", err)
	}

	widgetErrors, err := meter.Int64Counter(
		"gisco.widget.errors.total",
		metric.WithDescription("Total number of remote widget errors by class"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create widget_errors counter: %w", err)
	}

	relayConnections, err := meter.Int64UpDownCounter(
		"gisco.relay.connections.active",
		metric.WithDescription("Number of active relay connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay_connections gauge: %w", err)
	}

	relayCalls, err := meter.Int64Counter(
		"gisco.relay.calls.total",
		metric.WithDescription("Total number of relay calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay_calls counter: %w", err)
	}

	relayCallLatency, err := meter.Float64Histogram(
		"gisco.relay.call.duration",
		metric.WithDescription("Relay call round-trip duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay_call_duration histogram: %w", err)
	}

	previewRequests, err := meter.Int64Counter(
		"gisco.preview.requests.total",
		metric.WithDescription("Total number of preview server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview_requests counter: %w", err)
	}

	collector := &MetricsCollector{
		meter:               meter,
		widgetAttaches:      widgetAttaches,
		widgetConfigUpdates: widgetConfigUpdates,
		widgetSignals:       widgetSignals,
		widgetErrors:        widgetErrors,
		relayConnections:    relayConnections,
		relayCalls:          relayCalls,
		relayCallLatency:    relayCallLatency,
		previewRequests:     previewRequests,
	}

	// Start Prometheus HTTP server
	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}

	return collector, nil
}

// StartPrometheusServer starts the Prometheus metrics server
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())

	m.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Printf("Prometheus metrics server listening on :%d", port)
		if err := m.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Prometheus server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics collector
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m.prometheusServer != nil {
		return m.prometheusServer.Shutdown(ctx)
	}
	return nil
}

// RecordAttach records a widget frame attachment
func (m *MetricsCollector) RecordAttach(ctx context.Context, mapping string, reembed bool) {
	if m == nil || m.widgetAttaches == nil {
		return
	}
	m.widgetAttaches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mapping", mapping),
		attribute.Bool("reembed", reembed),
	))
}

// RecordConfigUpdate records a configuration update posted to a live frame
func (m *MetricsCollector) RecordConfigUpdate(ctx context.Context) {
	if m == nil || m.widgetConfigUpdates == nil {
		return
	}
	m.widgetConfigUpdates.Add(ctx, 1)
}

// RecordSignal records an inbound widget signal
func (m *MetricsCollector) RecordSignal(ctx context.Context, kind string) {
	if m == nil || m.widgetSignals == nil {
		return
	}
	m.widgetSignals.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordWidgetError records a remote widget error
func (m *MetricsCollector) RecordWidgetError(ctx context.Context, class string) {
	if m == nil || m.widgetErrors == nil {
		return
	}
	m.widgetErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
}

// IncrementRelayConnections increments the active relay connections counter
func (m *MetricsCollector) IncrementRelayConnections(ctx context.Context) {
	if m == nil || m.relayConnections == nil {
		return
	}
	m.relayConnections.Add(ctx, 1)
}

// DecrementRelayConnections decrements the active relay connections counter
func (m *MetricsCollector) DecrementRelayConnections(ctx context.Context) {
	if m == nil || m.relayConnections == nil {
		return
	}
	m.relayConnections.Add(ctx, -1)
}

// RecordRelayCall records a relay call round trip
func (m *MetricsCollector) RecordRelayCall(ctx context.Context, method string, status string, duration time.Duration) {
	if m == nil || m.relayCalls == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("status", status),
	}

	m.relayCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.relayCallLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordPreviewRequest records a preview server request
func (m *MetricsCollector) RecordPreviewRequest(ctx context.Context, route string, status int) {
	if m == nil || m.previewRequests == nil {
		return
	}
	m.previewRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
