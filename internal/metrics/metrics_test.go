package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	// Verify iteration metrics
	if m.IterationsTotal == nil {
		t.Error("IterationsTotal is nil")
	}
	if m.IterationDuration == nil {
		t.Error("IterationDuration is nil")
	}
	if m.SleepSecondsTotal == nil {
		t.Error("SleepSecondsTotal is nil")
	}

	// Verify session metrics
	if m.SessionsActive == nil {
		t.Error("SessionsActive is nil")
	}
	if m.SessionsTotal == nil {
		t.Error("SessionsTotal is nil")
	}

	// Verify tool metrics
	if m.ToolExecutionsTotal == nil {
		t.Error("ToolExecutionsTotal is nil")
	}
	if m.CommandsBlockedTotal == nil {
		t.Error("CommandsBlockedTotal is nil")
	}

	// Verify rate limit metrics
	if m.RateLimitHitsTotal == nil {
		t.Error("RateLimitHitsTotal is nil")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()

	// Record some sample metrics so they appear in output
	m.IterationsTotal.WithLabelValues("continue").Inc()
	m.IterationDuration.Observe(42.0)
	m.SleepSecondsTotal.Add(1800)
	m.ToolExecutionsTotal.WithLabelValues("bash", "success").Inc()
	m.CommandsBlockedTotal.Inc()
	m.RateLimitHitsTotal.Inc()

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	// Test HTTP endpoint
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	// Verify metrics are exposed
	expectedMetrics := []string{
		"vigil_iterations_total",
		"vigil_iteration_duration_seconds",
		"vigil_sleep_seconds_total",
		"vigil_sessions_active",
		"vigil_sessions_total",
		"vigil_tool_executions_total",
		"vigil_commands_blocked_total",
		"vigil_rate_limit_hits_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics()

	registry := m.Registry()
	if registry == nil {
		t.Fatal("Registry returned nil")
	}

	// Record some sample metrics so they appear in gather
	m.IterationsTotal.WithLabelValues("rate_limited").Inc()
	m.ToolExecutionsTotal.WithLabelValues("read_file", "success").Inc()

	// Verify metrics are registered
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Error("No metrics registered")
	}
}

func TestIterationOutcomeLabels(t *testing.T) {
	m := NewMetrics()

	m.IterationsTotal.WithLabelValues("continue").Inc()
	m.IterationsTotal.WithLabelValues("continue").Inc()
	m.IterationsTotal.WithLabelValues("rate_limited").Inc()

	metricFamilies, _ := m.registry.Gather()
	found := false
	for _, mf := range metricFamilies {
		if *mf.Name == "vigil_iterations_total" {
			found = true
			if len(mf.Metric) != 2 {
				t.Errorf("Expected 2 label series, got %d", len(mf.Metric))
			}
		}
	}
	if !found {
		t.Error("vigil_iterations_total metric not found")
	}
}

func TestSessionGauge(t *testing.T) {
	m := NewMetrics()

	m.SessionsActive.Set(1)

	metricFamilies, _ := m.registry.Gather()
	found := false
	for _, mf := range metricFamilies {
		if *mf.Name == "vigil_sessions_active" {
			found = true
			if len(mf.Metric) > 0 && *mf.Metric[0].Gauge.Value != 1 {
				t.Errorf("Expected value 1, got %f", *mf.Metric[0].Gauge.Value)
			}
		}
	}
	if !found {
		t.Error("vigil_sessions_active metric not found")
	}
}

func TestMetricsIsolation(t *testing.T) {
	// Create two separate metrics instances
	m1 := NewMetrics()
	m2 := NewMetrics()

	m1.SessionsTotal.Inc()
	m1.SessionsTotal.Inc()

	m2.SessionsTotal.Inc()

	// Verify m1 has 2
	metricFamilies1, _ := m1.registry.Gather()
	for _, mf := range metricFamilies1 {
		if *mf.Name == "vigil_sessions_total" {
			if len(mf.Metric) > 0 && *mf.Metric[0].Counter.Value != 2 {
				t.Errorf("m1: Expected value 2, got %f", *mf.Metric[0].Counter.Value)
			}
		}
	}

	// Verify m2 has 1
	metricFamilies2, _ := m2.registry.Gather()
	for _, mf := range metricFamilies2 {
		if *mf.Name == "vigil_sessions_total" {
			if len(mf.Metric) > 0 && *mf.Metric[0].Counter.Value != 1 {
				t.Errorf("m2: Expected value 1, got %f", *mf.Metric[0].Counter.Value)
			}
		}
	}
}
