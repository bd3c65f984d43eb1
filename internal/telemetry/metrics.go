package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/reflections"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// API client metrics
	APIRequestsTotal   metric.Int64Counter
	APIRequestDuration metric.Float64Histogram
	TokenRefreshTotal  metric.Int64Counter
	SessionExpiryTotal metric.Int64Counter

	// Form action metrics
	ActionResultsTotal metric.Int64Counter

	// Generative text metrics
	AIRequestsTotal   metric.Int64Counter
	AIRequestDuration metric.Float64Histogram

	// Session metrics
	SessionTransitionsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// RecordTokenRefresh counts a refresh attempt by outcome (refreshed, failed, missing).
func (m *Metrics) RecordTokenRefresh(ctx context.Context, outcome string) {
	m.TokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordActionResult counts a form action result.
func (m *Metrics) RecordActionResult(ctx context.Context, action string, ok bool) {
	m.ActionResultsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.Bool("ok", ok),
	))
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// API client metrics
	m.APIRequestsTotal, _ = meter.Int64Counter(
		"reflections.api.requests.total",
		metric.WithDescription("Total number of requests sent to the blog API"),
		metric.WithUnit("{request}"),
	)

	m.APIRequestDuration, _ = meter.Float64Histogram(
		"reflections.api.request.duration",
		metric.WithDescription("Duration of blog API requests including any refresh and retry"),
		metric.WithUnit("ms"),
	)

	m.TokenRefreshTotal, _ = meter.Int64Counter(
		"reflections.auth.refresh.total",
		metric.WithDescription("Total number of access token refresh attempts"),
		metric.WithUnit("{refresh}"),
	)

	m.SessionExpiryTotal, _ = meter.Int64Counter(
		"reflections.auth.session_expired.total",
		metric.WithDescription("Total number of sessions ended by a failed refresh"),
		metric.WithUnit("{session}"),
	)

	// Form action metrics
	m.ActionResultsTotal, _ = meter.Int64Counter(
		"reflections.actions.results.total",
		metric.WithDescription("Total number of form action results"),
		metric.WithUnit("{result}"),
	)

	// Generative text metrics
	m.AIRequestsTotal, _ = meter.Int64Counter(
		"reflections.ai.requests.total",
		metric.WithDescription("Total number of generative text requests"),
		metric.WithUnit("{request}"),
	)

	m.AIRequestDuration, _ = meter.Float64Histogram(
		"reflections.ai.request.duration",
		metric.WithDescription("Duration of generative text requests"),
		metric.WithUnit("ms"),
	)

	// Session metrics
	m.SessionTransitionsTotal, _ = meter.Int64Counter(
		"reflections.session.transitions.total",
		metric.WithDescription("Total number of session state transitions"),
		metric.WithUnit("{transition}"),
	)

	return m
}
