// Package observe provides application-wide observability primitives for the
// Lisan tutoring service: OpenTelemetry metrics and HTTP middleware that ties
// them to structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Lisan metrics.
const meterName = "github.com/lisan-app/lisan"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// TurnDuration tracks end-to-end tutoring turn latency in seconds.
	TurnDuration metric.Float64Histogram

	// ChatDuration tracks chat completion call latency in seconds.
	ChatDuration metric.Float64Histogram

	// TranscriptionDuration tracks speech-to-text call latency in seconds.
	TranscriptionDuration metric.Float64Histogram

	// HTTPRequestDuration tracks inbound HTTP request latency in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// PronunciationScore records the distribution of pronunciation scores.
	PronunciationScore metric.Float64Histogram

	// ProviderRequests counts external AI provider calls. Use with
	// attributes: attribute.String("provider", ...), attribute.String("status", ...).
	ProviderRequests metric.Int64Counter

	// Turns counts processed tutoring turns. Use with attribute:
	// attribute.String("status", "ok"|"error").
	Turns metric.Int64Counter
}

// NewMetrics creates all metric instruments using the given MeterProvider.
// Pass otel.GetMeterProvider() for production use.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.TurnDuration, err = meter.Float64Histogram(
		"lisan.turn.duration",
		metric.WithDescription("End-to-end tutoring turn latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.ChatDuration, err = meter.Float64Histogram(
		"lisan.chat.duration",
		metric.WithDescription("Chat completion call latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.TranscriptionDuration, err = meter.Float64Histogram(
		"lisan.transcription.duration",
		metric.WithDescription("Speech-to-text call latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"lisan.http.request.duration",
		metric.WithDescription("Inbound HTTP request latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.PronunciationScore, err = meter.Float64Histogram(
		"lisan.pronunciation.score",
		metric.WithDescription("Distribution of pronunciation scores"),
	); err != nil {
		return nil, err
	}
	if m.ProviderRequests, err = meter.Int64Counter(
		"lisan.provider.requests",
		metric.WithDescription("External AI provider calls"),
	); err != nil {
		return nil, err
	}
	if m.Turns, err = meter.Int64Counter(
		"lisan.turns",
		metric.WithDescription("Processed tutoring turns"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordProviderRequest increments the provider request counter with the
// given provider name and outcome status.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	if m == nil {
		return
	}
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordTurn increments the turn counter and records its duration.
func (m *Metrics) RecordTurn(ctx context.Context, seconds float64, status string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.Turns.Add(ctx, 1, attrs)
	m.TurnDuration.Record(ctx, seconds, attrs)
}

// RecordScore records a pronunciation score observation.
func (m *Metrics) RecordScore(ctx context.Context, score float64) {
	if m == nil {
		return
	}
	m.PronunciationScore.Record(ctx, score)
}

// Default returns a Metrics instance bound to the global MeterProvider.
// Instrument creation against the global provider does not fail in practice;
// any error yields a nil (no-op) Metrics.
func Default() *Metrics {
	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil
	}
	return m
}
