package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/internal/metrics"
)

// Begin sends the initial request of a long-running operation and hands the response to
// an azcore poller. The poller type (Azure-AsyncOperation, Location or body) is chosen
// from the response.
func Begin[T any](ctx context.Context, c *Client, method, path string, body any) (*runtime.Poller[T], error) {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.Send(req, http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent)
	if err != nil {
		metrics.LongRunningOperations.WithLabelValues(method, "rejected").Inc()
		return nil, err
	}

	poller, err := runtime.NewPoller[T](resp, c.pipeline, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPollingURL, err)
	}

	metrics.LongRunningOperations.WithLabelValues(method, "started").Inc()
	return poller, nil
}

// BeginAndWait runs a long-running operation to completion, polling at the client's
// poll frequency, and returns its final result.
func BeginAndWait[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T

	poller, err := Begin[T](ctx, c, method, path, body)
	if err != nil {
		return zero, err
	}

	logger := logging.FromContext(ctx, c.Logger)
	logger.Debug("Waiting for long-running operation",
		zap.String(logging.FieldMethod, method),
		zap.String(logging.FieldPath, path))

	result, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: c.PollFrequency})
	if err != nil {
		metrics.LongRunningOperations.WithLabelValues(method, "failed").Inc()
		return zero, pollError(err)
	}

	metrics.LongRunningOperations.WithLabelValues(method, "succeeded").Inc()
	return result, nil
}

// pollError converts a terminal polling failure into a *CloudError when it carries a response.
func pollError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.RawResponse != nil {
		return newCloudError(respErr.RawResponse)
	}
	return err
}
