package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
)

type ExporterKind string

const (
	NoneExporter       ExporterKind = "none"
	StdoutExporter     ExporterKind = "stdout"
	PrometheusExporter ExporterKind = "prometheus"
)

var ErrUnknownExporter = errors.New("[observability] unknown metrics exporter")

func ParseExporterKind(kind string) (ExporterKind, error) {
	switch k := ExporterKind(strings.ToLower(strings.TrimSpace(kind))); k {
	case "":
		return NoneExporter, nil
	case NoneExporter, StdoutExporter, PrometheusExporter:
		return k, nil
	default:
	}
	return NoneExporter, fmt.Errorf("%w: %q", ErrUnknownExporter, kind)
}

// Metrics is the meter provider in use plus its shutdown hook. Handler is
// only set for the prometheus exporter.
type Metrics struct {
	Kind          ExporterKind
	MeterProvider otelmetric.MeterProvider
	Handler       http.Handler
	shutdown      func(ctx context.Context) error
	shutdownOnce  sync.Once
	shutdownErr   error
}

// Shutdown flushes and stops the provider. Later calls return the first
// result.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.shutdown == nil {
		return nil
	}
	m.shutdownOnce.Do(func() {
		m.shutdownErr = m.shutdown(ctx)
	})
	return m.shutdownErr
}

type metricsOptions struct {
	interval time.Duration
	timeout  time.Duration
	writer   io.Writer
	registry *promclient.Registry
	isGlobal bool
}

type MetricsOption func(*metricsOptions)

// WithConsoleInterval sets the stdout export period and timeout.
func WithConsoleInterval(interval, timeout time.Duration) MetricsOption {
	return func(opts *metricsOptions) {
		opts.interval, opts.timeout = interval, timeout
	}
}

func WithConsoleWriter(w io.Writer) MetricsOption {
	return func(opts *metricsOptions) {
		opts.writer = w
	}
}

func WithPrometheusRegistry(reg *promclient.Registry) MetricsOption {
	return func(opts *metricsOptions) {
		opts.registry = reg
	}
}

// WithGlobalMeterProvider installs the provider with otel.SetMeterProvider.
func WithGlobalMeterProvider() MetricsOption {
	return func(opts *metricsOptions) {
		opts.isGlobal = true
	}
}

func NewMetrics(kind ExporterKind, opts ...MetricsOption) (*Metrics, error) {
	o := &metricsOptions{
		interval: 10 * time.Second,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var (
		m   *Metrics
		err error
	)
	switch kind {
	case NoneExporter, "":
		m = &Metrics{Kind: NoneExporter, MeterProvider: noop.NewMeterProvider()}
	case StdoutExporter:
		m, err = newConsoleMetricsExporter(o)
	case PrometheusExporter:
		m, err = newPrometheusMetricsExporter(o)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, kind)
	}
	if err != nil {
		return nil, err
	}
	if o.isGlobal {
		otel.SetMeterProvider(m.MeterProvider)
	}
	return m, nil
}

// Serves for test/dev environment.
func newConsoleMetricsExporter(o *metricsOptions) (*Metrics, error) {
	stdOpts := []stdoutmetric.Option{stdoutmetric.WithPrettyPrint()}
	if o.writer != nil {
		stdOpts = append(stdOpts, stdoutmetric.WithWriter(o.writer))
	}
	exporter, err := stdoutmetric.New(stdOpts...)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(o.interval),
		metric.WithTimeout(o.timeout),
	)))
	return &Metrics{
		Kind:          StdoutExporter,
		MeterProvider: mp,
		shutdown:      mp.Shutdown,
	}, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
func newPrometheusMetricsExporter(o *metricsOptions) (*Metrics, error) {
	reg := o.registry
	if reg == nil {
		reg = promclient.NewRegistry()
	}
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	return &Metrics{
		Kind:          PrometheusExporter,
		MeterProvider: mp,
		Handler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		shutdown:      mp.Shutdown,
	}, nil
}
