package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func resetRegistry() {
	Registry = prometheus.NewRegistry()
	initOnce = sync.Once{}
	initErr = nil
}

func TestInit(t *testing.T) {
	resetRegistry()

	if err := Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families after Init()")
	}
}

func TestInit_MultipleCallsAreIdempotent(t *testing.T) {
	resetRegistry()

	if err := Init(); err != nil {
		t.Fatalf("First Init() failed: %v", err)
	}
	if err := Init(); err != nil {
		t.Errorf("Second Init() returned error: %v", err)
	}
}

func TestMustInit(t *testing.T) {
	resetRegistry()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustInit() panicked: %v", r)
		}
	}()

	MustInit()
}

func TestRequestsTotal(t *testing.T) {
	RequestsTotal.Reset()

	RequestsTotal.WithLabelValues("management.azure.com", "PUT", "201").Inc()
	RequestsTotal.WithLabelValues("management.azure.com", "PUT", "201").Inc()

	got := testutil.ToFloat64(RequestsTotal.WithLabelValues("management.azure.com", "PUT", "201"))
	if got != 2 {
		t.Errorf("RequestsTotal = %v, want 2", got)
	}
}

func TestRetryAttempts(t *testing.T) {
	RetryAttempts.Reset()

	RetryAttempts.WithLabelValues("role_assignment_create", "retry").Add(3)
	RetryAttempts.WithLabelValues("role_assignment_create", "success").Inc()

	if got := testutil.ToFloat64(RetryAttempts.WithLabelValues("role_assignment_create", "retry")); got != 3 {
		t.Errorf("retry attempts = %v, want 3", got)
	}
}
