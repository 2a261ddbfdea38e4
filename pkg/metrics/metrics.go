// Package metrics holds the OpenTelemetry instruments for the interpreter
// pipeline: per-stage latency histograms, cache hit/miss and backend-error
// counters, and active-session/participant gauges.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/lokutor-ai/lokutor-interpreter"

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds every instrument used by the pipeline and servicer. All
// fields are safe for concurrent use; the underlying OTel instruments handle
// their own synchronization.
type Metrics struct {
	STTDuration metric.Float64Histogram
	MTDuration  metric.Float64Histogram
	TTSDuration metric.Float64Histogram

	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	BackendRequests metric.Int64Counter
	BackendErrors   metric.Int64Counter

	SilenceSkipped metric.Int64Counter
	UtterancesDone metric.Int64Counter

	ActiveSessions     metric.Int64UpDownCounter
	ActiveParticipants metric.Int64UpDownCounter
}

// New builds a Metrics instance from the given MeterProvider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.STTDuration, err = m.Float64Histogram("interpreter.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"), metric.WithExplicitBucketBoundaries(latencyBuckets...)); err != nil {
		return nil, err
	}
	if met.MTDuration, err = m.Float64Histogram("interpreter.mt.duration",
		metric.WithDescription("Latency of translation."),
		metric.WithUnit("s"), metric.WithExplicitBucketBoundaries(latencyBuckets...)); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("interpreter.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"), metric.WithExplicitBucketBoundaries(latencyBuckets...)); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("interpreter.cache.hits",
		metric.WithDescription("Room cache hits by kind.")); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("interpreter.cache.misses",
		metric.WithDescription("Room cache misses by kind.")); err != nil {
		return nil, err
	}
	if met.BackendRequests, err = m.Int64Counter("interpreter.backend.requests",
		metric.WithDescription("Backend adapter invocations by kind and provider.")); err != nil {
		return nil, err
	}
	if met.BackendErrors, err = m.Int64Counter("interpreter.backend.errors",
		metric.WithDescription("Backend adapter errors by kind and provider.")); err != nil {
		return nil, err
	}
	if met.SilenceSkipped, err = m.Int64Counter("interpreter.silence.skipped",
		metric.WithDescription("Chunks discarded as silence.")); err != nil {
		return nil, err
	}
	if met.UtterancesDone, err = m.Int64Counter("interpreter.utterances.completed",
		metric.WithDescription("Utterances that completed the pipeline.")); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("interpreter.sessions.active",
		metric.WithDescription("Currently live sessions.")); err != nil {
		return nil, err
	}
	if met.ActiveParticipants, err = m.Int64UpDownCounter("interpreter.participants.active",
		metric.WithDescription("Currently connected participants across all sessions.")); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordCacheResult records a hit or miss for a cache kind (stt, mt, tts).
func (m *Metrics) RecordCacheResult(ctx context.Context, kind string, hit bool) {
	if hit {
		m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordBackendCall records an invocation and, on failure, a matching error
// count for a backend kind (stt, mt, tts) and provider name.
func (m *Metrics) RecordBackendCall(ctx context.Context, kind, provider string, err error) {
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.String("provider", provider))
	m.BackendRequests.Add(ctx, 1, attrs)
	if err != nil {
		m.BackendErrors.Add(ctx, 1, attrs)
	}
}
