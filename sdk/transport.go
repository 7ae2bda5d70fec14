package sdk

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/internal/metrics"
)

// requestIDPolicy stamps each logical request with a client request ID.
// It runs once per call, so every retry of a request shares the same ID.
type requestIDPolicy struct{}

func (requestIDPolicy) Do(req *policy.Request) (*http.Response, error) {
	if req.Raw().Header.Get(HeaderClientRequestID) == "" {
		req.Raw().Header.Set(HeaderClientRequestID, uuid.NewString())
	}
	return req.Next()
}

// throttlePolicy blocks until the client-side token bucket allows another request.
type throttlePolicy struct {
	limiter *rate.Limiter
}

func newThrottlePolicy(requestsPerSecond float64, burst int) *throttlePolicy {
	return &throttlePolicy{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

func (t *throttlePolicy) Do(req *policy.Request) (*http.Response, error) {
	start := time.Now()
	if err := t.limiter.Wait(req.Raw().Context()); err != nil {
		return nil, fmt.Errorf("client-side rate limit: %w", err)
	}
	metrics.ThrottleWaitSeconds.Observe(time.Since(start).Seconds())

	return req.Next()
}

// loggingPolicy logs and measures every request attempt, including pipeline retries.
type loggingPolicy struct {
	logger *zap.Logger
}

func (l *loggingPolicy) Do(req *policy.Request) (*http.Response, error) {
	raw := req.Raw()
	logger := logging.FromContext(raw.Context(), l.logger)
	host := raw.URL.Host

	metrics.RequestsInFlight.Inc()
	start := time.Now()
	resp, err := req.Next()
	elapsed := time.Since(start)
	metrics.RequestsInFlight.Dec()

	metrics.RequestDuration.WithLabelValues(host, raw.Method).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String(logging.FieldMethod, raw.Method),
		zap.String(logging.FieldHost, host),
		zap.String(logging.FieldPath, raw.URL.Path),
		zap.String(logging.FieldClientRequestID, raw.Header.Get(HeaderClientRequestID)),
		zap.Duration(logging.FieldDuration, elapsed),
	}

	if err != nil {
		metrics.RequestsTotal.WithLabelValues(host, raw.Method, "error").Inc()
		logger.Debug("Request failed", append(fields, zap.Error(err))...)
		return resp, err
	}

	metrics.RequestsTotal.WithLabelValues(host, raw.Method, strconv.Itoa(resp.StatusCode)).Inc()
	fields = append(fields,
		zap.Int(logging.FieldStatusCode, resp.StatusCode),
		zap.String(logging.FieldServiceRequestID, resp.Header.Get(HeaderRequestID)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Debug("Request returned error status", fields...)
	} else {
		logger.Debug("Request completed", fields...)
	}

	return resp, nil
}
