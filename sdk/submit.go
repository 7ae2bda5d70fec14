package sdk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/internal/metrics"
	"github.com/yaroslav/azfluent/pkg/fluent"
)

// Submit creates or updates the resource held by state through r, recording the
// outcome under resourceType in metrics and in the client's log.
func Submit[T any](ctx context.Context, c *Client, resourceType, name string, r fluent.Reconciler[T], state *fluent.State[T]) (T, error) {
	operation := "update"
	if state.IsInCreateMode() {
		operation = "create"
	}

	logger := logging.FromContext(ctx, c.Logger).With(
		zap.String(logging.FieldOperation, operation),
		zap.String(logging.FieldResourceName, name),
	)
	start := time.Now()

	result, err := r.Submit(ctx, state)
	if err != nil {
		metrics.ResourceOperations.WithLabelValues(resourceType, operation, "error").Inc()
		logger.Error("Resource submission failed",
			zap.String(logging.FieldComponent, resourceType),
			zap.Error(err))
		return result, err
	}

	metrics.ResourceOperations.WithLabelValues(resourceType, operation, "success").Inc()
	logger.Info("Resource submitted",
		zap.String(logging.FieldComponent, resourceType),
		zap.String(logging.FieldResourceID, state.ID()),
		zap.Duration(logging.FieldDuration, time.Since(start)))
	return result, nil
}

// ResourceGroupOf returns the resource group named in a resource ID, or "" if id does
// not parse.
func ResourceGroupOf(id string) string {
	rid, err := ParseResourceID(id)
	if err != nil {
		return ""
	}
	return rid.ResourceGroupName
}
