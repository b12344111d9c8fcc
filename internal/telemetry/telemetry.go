// Package telemetry wires OpenTelemetry metrics and traces for interviews and model calls.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/spigell/ai-interviewer/telemetry"

// Config drives how telemetry is initialised.
type Config struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service-name"`
	ServiceVersion string `mapstructure:"-"`
	// OTLPEndpoint enables the OTLP/HTTP trace exporter, e.g. http://localhost:4318.
	OTLPEndpoint string `mapstructure:"otlp-endpoint"`

	TracerProvider trace.TracerProvider `mapstructure:"-"`
	MeterProvider  metric.MeterProvider `mapstructure:"-"`
}

// Manager records metrics and spans. A nil Manager is valid and records nothing.
type Manager struct {
	tracer  trace.Tracer
	metrics *metrics

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	tp := cfg.TracerProvider
	if tp == nil {
		res, err := buildResource(cfg)
		if err != nil {
			return nil, err
		}
		opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
		if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
			exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
			if err != nil {
				return nil, fmt.Errorf("create otlp exporter: %w", err)
			}
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
		tp = sdktrace.NewTracerProvider(opts...)
	}

	mp := cfg.MeterProvider
	if mp == nil {
		mp = sdkmetric.NewMeterProvider()
	}

	recorder, err := newMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	return &Manager{
		tracer:         tp.Tracer(instrumentationName),
		metrics:        recorder,
		tracerProvider: tp,
		meterProvider:  mp,
	}, nil
}

func (m *Manager) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span and ends it.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	span.End()
}

func (m *Manager) RecordTurn(ctx context.Context, data TurnData) {
	if m == nil {
		return
	}
	m.metrics.RecordTurn(ctx, data)
}

func (m *Manager) RecordLLMRequest(ctx context.Context, data LLMData) {
	if m == nil {
		return
	}
	m.metrics.RecordLLMRequest(ctx, data)
}

// Shutdown flushes and stops the providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var result error
	if closer, ok := m.tracerProvider.(interface {
		Shutdown(context.Context) error
	}); ok {
		result = errors.Join(result, closer.Shutdown(ctx))
	}
	if closer, ok := m.meterProvider.(interface {
		Shutdown(context.Context) error
	}); ok {
		result = errors.Join(result, closer.Shutdown(ctx))
	}
	return result
}

func buildResource(cfg Config) (*resource.Resource, error) {
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "ai-interviewer"
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(service)}
	if version := strings.TrimSpace(cfg.ServiceVersion); version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}
	base := resource.Default()
	schema := base.SchemaURL()
	if schema == "" {
		schema = semconv.SchemaURL
	}
	return resource.Merge(base, resource.NewWithAttributes(schema, attrs...))
}
