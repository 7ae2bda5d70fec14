package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/yaroslav/azfluent/models"
)

// Common SDK errors that clients can check for specific error handling.
var (
	// ErrInvalidConfig indicates the client configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrMissingCredential indicates no token credential was supplied.
	ErrMissingCredential = errors.New("missing token credential")

	// ErrUnsupportedOperation indicates the operation is not available on this object.
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrInvalidResourceID indicates a string is not a fully qualified ARM resource ID.
	ErrInvalidResourceID = errors.New("invalid resource id")

	// ErrNoPollingURL indicates a long-running operation response could not be polled.
	ErrNoPollingURL = errors.New("long-running operation response has no polling url")
)

// CloudError is a failed ARM or Graph response.
// Code and Message are carried verbatim from the service error body.
type CloudError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the service error code, e.g. "PrincipalNotFound".
	Code string

	// Message is the service error message.
	Message string

	// Target is the element the error refers to, if reported.
	Target string

	// Details are nested service errors.
	Details []models.ErrorBody

	// RequestID is the x-ms-request-id of the failed response.
	RequestID string

	response *azcore.ResponseError
}

// Error implements error.
func (e *CloudError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	case e.Code != "":
		return fmt.Sprintf("%s (status %d)", e.Code, e.StatusCode)
	default:
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
}

// Unwrap exposes the underlying *azcore.ResponseError.
func (e *CloudError) Unwrap() error {
	if e.response == nil {
		return nil
	}
	return e.response
}

// Is lets 404 and 409 responses match models.ErrNotFound and models.ErrConflict.
func (e *CloudError) Is(target error) bool {
	switch target {
	case models.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case models.ErrConflict:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// AsCloudError returns the *CloudError in err's chain, if any.
func AsCloudError(err error) (*CloudError, bool) {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr, true
	}
	return nil, false
}

// newCloudError builds a CloudError from a non-success response.
// Both the ARM {"error": {...}} and Graph {"odata.error": {...}} envelopes are understood.
func newCloudError(resp *http.Response) error {
	cloudErr := &CloudError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("x-ms-request-id"),
	}

	var respErr *azcore.ResponseError
	if errors.As(runtime.NewResponseError(resp), &respErr) {
		cloudErr.response = respErr
		cloudErr.Code = respErr.ErrorCode
	}

	cloudErr.decodeBody(resp)
	return cloudErr
}

// FromResponseError converts the *azcore.ResponseError returned by generated SDK
// clients, such as azkeys, into a *CloudError so callers can match it the same way
// as errors from Client. Other errors are returned unchanged.
func FromResponseError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsCloudError(err); ok {
		return err
	}
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}

	cloudErr := &CloudError{
		StatusCode: respErr.StatusCode,
		Code:       respErr.ErrorCode,
		response:   respErr,
	}
	if resp := respErr.RawResponse; resp != nil {
		cloudErr.RequestID = resp.Header.Get(HeaderRequestID)
		if resp.Body != nil {
			cloudErr.decodeBody(resp)
		}
	}
	if cloudErr.Code == "" {
		cloudErr.Code = respErr.ErrorCode
	}
	return cloudErr
}

// decodeBody fills Code, Message and the other fields from the error envelope in
// resp's body, if there is one.
func (e *CloudError) decodeBody(resp *http.Response) {
	body, err := runtime.Payload(resp)
	if err != nil || len(body) == 0 {
		return
	}

	var armErr models.ErrorResponse
	if json.Unmarshal(body, &armErr) == nil && armErr.Error != nil {
		e.Code = armErr.Error.Code
		e.Message = armErr.Error.Message
		e.Target = armErr.Error.Target
		e.Details = armErr.Error.Details
		return
	}

	var graphErr models.GraphErrorResponse
	if json.Unmarshal(body, &graphErr) == nil && graphErr.Error != nil {
		e.Code = graphErr.Error.Code
		e.Message = graphErr.Error.Message.Value
		return
	}

	// Some endpoints return the error body without the envelope.
	var bare models.ErrorBody
	if json.Unmarshal(body, &bare) == nil && bare.Code != "" {
		e.Code = bare.Code
		e.Message = bare.Message
	}
}
