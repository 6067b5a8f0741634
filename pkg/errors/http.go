package errors

import (
	"errors"
	"net/http"
	"strconv"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	Status    int               `json:"-"`
	Code      string            `json:"code"`
	Category  ErrorCategory     `json:"category,omitempty"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status code for an error.
// Directory-side failures map to 502 since the inspector acts as a gateway
// in front of the directory.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return codeToHTTPStatus(customErr.Code())
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotConnected):
		return http.StatusConflict
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

// codeToHTTPStatus maps error codes to HTTP status codes.
func codeToHTTPStatus(code string) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeCancelled:
		return 499 // Client Closed Request
	case CodeInvalidArgument, CodeValidation:
		return http.StatusBadRequest
	case CodeFailedPrecondition:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDeadlineExceeded, CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeConnection, CodeProtocol:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTPError converts an error to an HTTPError.
func ToHTTPError(err error, traceID string) *HTTPError {
	if err == nil {
		return &HTTPError{
			Status:  http.StatusOK,
			Code:    CodeOK,
			Message: "success",
			TraceID: traceID,
		}
	}

	code := GetErrorCode(err)
	httpErr := &HTTPError{
		Status:    StatusCode(err),
		Code:      code,
		Category:  GetCategory(code),
		Message:   GetErrorMessage(err),
		Retryable: ShouldRetry(err),
		TraceID:   traceID,
		Details:   make(map[string]string),
	}

	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		connErr       *ConnectionError
		protoErr      *ProtocolError
		partialErr    *PartialDataError
		timeoutErr    *TimeoutError
	)

	switch {
	case errors.As(err, &validationErr):
		if validationErr.Field != "" {
			httpErr.Details["field"] = validationErr.Field
		}
	case errors.As(err, &notFoundErr):
		if notFoundErr.Resource != "" {
			httpErr.Details["resource"] = notFoundErr.Resource
		}
		if notFoundErr.ID != "" {
			httpErr.Details["id"] = notFoundErr.ID
		}
	case errors.As(err, &connErr):
		httpErr.Details["address"] = connErr.Address
		if connErr.StatusCode != 0 {
			httpErr.Details["upstream_status"] = strconv.Itoa(connErr.StatusCode)
		}
	case errors.As(err, &protoErr):
		if protoErr.HDSType != "" {
			httpErr.Details["hds_error"] = protoErr.HDSType
		}
	case errors.As(err, &partialErr):
		httpErr.Details["component"] = partialErr.Component
	case errors.As(err, &timeoutErr):
		if timeoutErr.Operation != "" {
			httpErr.Details["operation"] = timeoutErr.Operation
		}
		if timeoutErr.Duration != "" {
			httpErr.Details["duration"] = timeoutErr.Duration
		}
	}

	if len(httpErr.Details) == 0 {
		httpErr.Details = nil
	}
	return httpErr
}
