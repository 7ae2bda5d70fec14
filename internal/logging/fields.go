package logging

// Standard field names for consistent logging across azfluent.
const (
	FieldSubscriptionID = "subscription_id"
	FieldTenantID       = "tenant_id"
	FieldResourceGroup  = "resource_group"
	FieldResourceID     = "resource_id"
	FieldResourceName   = "resource_name"

	// FieldScope is the ARM scope of a role assignment.
	FieldScope       = "scope"
	FieldRole        = "role"
	FieldPrincipalID = "principal_id"

	// FieldClientRequestID is the x-ms-client-request-id sent with a request.
	FieldClientRequestID = "client_request_id"

	// FieldServiceRequestID is the x-ms-request-id returned by ARM.
	FieldServiceRequestID = "service_request_id"

	FieldMethod     = "method"
	FieldHost       = "host"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration"
	FieldError      = "error"
	FieldErrorCode  = "error_code"

	FieldComponent = "component"
	FieldOperation = "operation"

	// FieldAttempt is the 1-based attempt number of a retried operation.
	FieldAttempt = "attempt"
	FieldDelay   = "delay"
)
