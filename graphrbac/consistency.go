package graphrbac

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/internal/metrics"
	"github.com/yaroslav/azfluent/pkg/retry"
	"github.com/yaroslav/azfluent/sdk"
)

const (
	// CodePrincipalNotFound is returned while a new principal has not replicated to the
	// authorization service yet.
	CodePrincipalNotFound = "PrincipalNotFound"

	// CodeRoleAssignmentExists is returned when the same principal, role and scope are
	// already bound.
	CodeRoleAssignmentExists = "RoleAssignmentExists"

	principalNotFoundMessage = "does not exist in the directory"

	// PrincipalRetryAttempts bounds the calls made while a principal is not visible.
	PrincipalRetryAttempts = 30

	// PrincipalRetryStep is multiplied by the attempt number to get the wait after it.
	PrincipalRetryStep = time.Second

	operationRoleAssignmentCreate = "role_assignment_create"
)

// IsPrincipalNotFound reports whether err is a service error saying the principal of a
// role assignment is not (yet) known. The code is compared case-insensitively.
func IsPrincipalNotFound(err error) bool {
	cloudErr, ok := sdk.AsCloudError(err)
	if !ok {
		return false
	}
	return strings.EqualFold(cloudErr.Code, CodePrincipalNotFound) ||
		strings.Contains(strings.ToLower(cloudErr.Message), principalNotFoundMessage)
}

// IsRoleAssignmentExists reports whether err says the assignment is already in place.
func IsRoleAssignmentExists(err error) bool {
	cloudErr, ok := sdk.AsCloudError(err)
	return ok && strings.EqualFold(cloudErr.Code, CodeRoleAssignmentExists)
}

// defaultPrincipalRetry waits 1s, 2s, 3s... between attempts while the principal is not found.
func (m *Manager) defaultPrincipalRetry() retry.Policy {
	return retry.Policy{
		MaxAttempts: PrincipalRetryAttempts,
		Delay:       retry.Linear(PrincipalRetryStep),
		Retryable:   IsPrincipalNotFound,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			metrics.RetryAttempts.WithLabelValues(operationRoleAssignmentCreate, "retry").Inc()
			m.logger.Info("Principal not visible yet, retrying role assignment",
				zap.Int(logging.FieldAttempt, attempt),
				zap.Duration(logging.FieldDelay, delay),
				zap.Error(err))
		},
	}
}

// observeRetryOutcome counts the final outcome of a retried operation.
func observeRetryOutcome(operation string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, retry.ErrAttemptsExhausted):
		outcome = "exhausted"
	default:
		outcome = "abort"
	}
	metrics.RetryAttempts.WithLabelValues(operation, outcome).Inc()
}
