package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *metric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return rm
}

func metricNames(rm metricdata.ResourceMetrics) map[string]bool {
	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestMetricsRecording(t *testing.T) {
	ctx := context.Background()

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordHTTPRequest(ctx, "GET", "/credentials", 200, 3*time.Millisecond)
	m.RecordOAuthAuth(ctx, "success")
	m.RecordOAuthTokenRefresh(ctx, "failure")
	m.RecordIMAPOperation(ctx, "folders", "oauth2", "success", 150*time.Millisecond)
	m.RecordMessagesProcessed(ctx, "INBOX", 42)

	names := metricNames(collect(t, reader))

	want := []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"oauth_auth_total",
		"oauth_token_refresh_total",
		"imap_operations_total",
		"imap_operation_duration_seconds",
		"messages_processed_total",
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("metric %q not collected", name)
		}
	}
}

func TestZeroValueMetricsIsNoOp(t *testing.T) {
	ctx := context.Background()
	var m Metrics

	// Must not panic without registered instruments.
	m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	m.RecordOAuthAuth(ctx, "success")
	m.RecordOAuthTokenRefresh(ctx, "success")
	m.RecordIMAPOperation(ctx, "test", "password", "error", time.Second)
	m.RecordMessagesProcessed(ctx, "INBOX", 1)
}
