package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// shutdownTimeout bounds the flush of each signal pipeline
const shutdownTimeout = 10 * time.Second

// Settings describes the OTLP pipelines of the service. Every signal goes to
// the same collector.
type Settings struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Insecure       bool

	TracesEnabled   bool
	SamplingRatio   float64
	MetricsEnabled  bool
	MetricsInterval time.Duration
	LogsEnabled     bool
}

func (s Settings) tracer() Config {
	return Config{
		Enabled:           s.TracesEnabled,
		CollectorEndpoint: s.Endpoint,
		SamplingRatio:     s.SamplingRatio,
		ServiceName:       s.ServiceName,
		ServiceVersion:    s.ServiceVersion,
		Insecure:          s.Insecure,
	}
}

func (s Settings) metrics() MetricsConfig {
	return MetricsConfig{
		Enabled:           s.MetricsEnabled,
		CollectorEndpoint: s.Endpoint,
		ExportInterval:    s.MetricsInterval,
		ServiceName:       s.ServiceName,
		ServiceVersion:    s.ServiceVersion,
		Insecure:          s.Insecure,
	}
}

func (s Settings) logs() LogsConfig {
	return LogsConfig{
		Enabled:           s.LogsEnabled,
		CollectorEndpoint: s.Endpoint,
		ServiceName:       s.ServiceName,
		ServiceVersion:    s.ServiceVersion,
		Insecure:          s.Insecure,
	}
}

// Providers holds the tracer, meter and logger providers of one process
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
}

// Setup starts every pipeline enabled in s. If one fails, the ones already
// started are shut down before the error is returned.
func Setup(ctx context.Context, s Settings, logger *zap.Logger) (*Providers, error) {
	p := &Providers{}
	var err error

	if p.Tracer, err = NewTracerProvider(ctx, s.tracer(), logger); err != nil {
		return nil, err
	}
	if p.Meter, err = NewMeterProvider(ctx, s.metrics(), logger); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	if p.Logs, err = NewLoggerProvider(ctx, s.logs(), logger); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}

// Shutdown flushes all started pipelines and joins their errors
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Logs != nil {
		errs = append(errs, p.Logs.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// shutdownWithin runs stop under shutdownTimeout and logs the outcome
func shutdownWithin(ctx context.Context, signal string, logger *zap.Logger, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		logger.Error("Telemetry shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	logger.Info("Telemetry flushed", zap.String("signal", signal))
	return nil
}

func newResource(serviceName, version string) (*resource.Resource, error) {
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
